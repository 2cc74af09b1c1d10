package messenger

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Telegram implements Messenger on top of the Bot API and feeds inbound
// updates, converted to Events, to a handler.
type Telegram struct {
	bot *tgbot.Bot
}

// NewTelegram creates a long-polling client. handler is invoked for every
// message and callback query, one update at a time in arrival order; other
// update kinds are dropped.
func NewTelegram(token string, pollTimeout time.Duration, handler func(ctx context.Context, ev Event), onError func(error)) (*Telegram, error) {
	b, err := tgbot.New(token, botOptions(pollTimeout, handler, onError)...)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	return &Telegram{bot: b}, nil
}

func botOptions(pollTimeout time.Duration, handler func(ctx context.Context, ev Event), onError func(error)) []tgbot.Option {
	opts := []tgbot.Option{
		tgbot.WithDefaultHandler(func(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
			if ev, ok := EventFromUpdate(update); ok {
				handler(ctx, ev)
			}
		}),
		// an uploader's media, "done" and caption must be seen in order
		tgbot.WithNotAsyncHandlers(),
		tgbot.WithHTTPClient(pollTimeout, &http.Client{Timeout: pollTimeout + 10*time.Second}),
	}
	if onError != nil {
		opts = append(opts, tgbot.WithErrorsHandler(onError))
	}
	return opts
}

// Start long-polls until ctx is cancelled.
func (t *Telegram) Start(ctx context.Context) {
	t.bot.Start(ctx)
}

func (t *Telegram) SendText(ctx context.Context, chatID int64, text string, markup Markup) (int, error) {
	params := &tgbot.SendMessageParams{ChatID: chatID, Text: text}
	if kb := inlineKeyboard(markup); kb != nil {
		params.ReplyMarkup = kb
	}
	msg, err := t.bot.SendMessage(ctx, params)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (t *Telegram) CopyMessage(ctx context.Context, toChat, fromChat int64, messageID int) (int, error) {
	res, err := t.bot.CopyMessage(ctx, &tgbot.CopyMessageParams{
		ChatID:     toChat,
		FromChatID: fromChat,
		MessageID:  messageID,
	})
	if err != nil {
		return 0, err
	}
	return res.ID, nil
}

func (t *Telegram) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := t.bot.DeleteMessage(ctx, &tgbot.DeleteMessageParams{ChatID: chatID, MessageID: messageID})
	return err
}

func (t *Telegram) EditText(ctx context.Context, chatID int64, messageID int, text string, markup Markup) error {
	params := &tgbot.EditMessageTextParams{ChatID: chatID, MessageID: messageID, Text: text}
	if kb := inlineKeyboard(markup); kb != nil {
		params.ReplyMarkup = kb
	}
	_, err := t.bot.EditMessageText(ctx, params)
	return err
}

func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	_, err := t.bot.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	return err
}

func (t *Telegram) MemberStatus(ctx context.Context, channel string, userID int64) (string, error) {
	m, err := t.bot.GetChatMember(ctx, &tgbot.GetChatMemberParams{
		ChatID: ChatRef(channel),
		UserID: userID,
	})
	if err != nil {
		return "", err
	}
	return string(m.Type), nil
}

// ChatRef turns a configured channel into what the Bot API expects: a
// numeric id when it parses as one, otherwise an "@username".
func ChatRef(channel string) any {
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		return id
	}
	if !strings.HasPrefix(channel, "@") {
		return "@" + channel
	}
	return channel
}

func inlineKeyboard(m Markup) *models.InlineKeyboardMarkup {
	if len(m) == 0 {
		return nil
	}
	rows := make([][]models.InlineKeyboardButton, 0, len(m))
	for _, row := range m {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, models.InlineKeyboardButton{
				Text:         b.Text,
				URL:          b.URL,
				CallbackData: b.Data,
			})
		}
		rows = append(rows, buttons)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// EventFromUpdate converts a Bot API update. Only messages with a sender
// and callback queries are of interest.
func EventFromUpdate(u *models.Update) (Event, bool) {
	switch {
	case u == nil:
		return Event{}, false

	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		ev := Event{
			UserID:       cq.From.ID,
			ChatID:       cq.From.ID,
			CallbackID:   cq.ID,
			CallbackData: cq.Data,
		}
		if m := cq.Message.Message; m != nil {
			ev.ChatID = m.Chat.ID
			ev.MessageID = m.ID
		}
		return ev, true

	case u.Message != nil && u.Message.From != nil:
		m := u.Message
		return Event{
			UserID:    m.From.ID,
			ChatID:    m.Chat.ID,
			MessageID: m.ID,
			Text:      m.Text,
			Media:     mediaKind(m),
		}, true
	}
	return Event{}, false
}

func mediaKind(m *models.Message) MediaKind {
	switch {
	case m.Document != nil:
		return MediaDocument
	case m.Video != nil:
		return MediaVideo
	case m.Audio != nil:
		return MediaAudio
	case len(m.Photo) > 0:
		return MediaPhoto
	}
	return MediaNone
}
