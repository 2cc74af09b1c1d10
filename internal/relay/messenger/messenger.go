// Package messenger is the relay's view of the chat platform: the outbound
// calls it makes (send, copy, delete, membership lookup) and the inbound
// events it reacts to. Telegram is the only implementation; tests use fakes.
package messenger

import "context"

// Button is one inline keyboard button. Exactly one of URL or Data is set.
type Button struct {
	Text string
	URL  string
	Data string
}

// Markup is an inline keyboard laid out in rows.
type Markup [][]Button

// Messenger covers every remote call the relay makes. Each call may block
// on the network and may fail transiently.
type Messenger interface {
	// SendText posts text (with an optional keyboard) and returns the new
	// message id.
	SendText(ctx context.Context, chatID int64, text string, markup Markup) (int, error)

	// CopyMessage replays fromChat/messageID into toChat and returns the id
	// of the copy.
	CopyMessage(ctx context.Context, toChat, fromChat int64, messageID int) (int, error)

	DeleteMessage(ctx context.Context, chatID int64, messageID int) error

	// EditText replaces the text (and keyboard) of an existing message.
	EditText(ctx context.Context, chatID int64, messageID int, text string, markup Markup) error

	// AnswerCallback acknowledges a button press, optionally as an alert.
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error

	// MemberStatus returns the raw membership status of userID in channel
	// ("member", "administrator", "creator", "left", ...).
	MemberStatus(ctx context.Context, channel string, userID int64) (string, error)
}
