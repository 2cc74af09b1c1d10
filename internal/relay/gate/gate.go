// Package gate resolves share links: it checks that the batch exists, that
// the requester belongs to the gating channel, and hands granted requests
// over to delivery.
package gate

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filegate/internal/common"
	"github.com/dmitrijs2005/filegate/internal/logging"
	"github.com/dmitrijs2005/filegate/internal/relay/messenger"
	"github.com/dmitrijs2005/filegate/internal/relay/metrics"
	"github.com/dmitrijs2005/filegate/internal/relay/models"
)

// Outcome of a link resolution.
type Outcome int

const (
	Welcome Outcome = iota
	InvalidLink
	NotMember
	Granted
)

func (o Outcome) String() string {
	switch o {
	case InvalidLink:
		return metrics.GateInvalid
	case NotMember:
		return metrics.GateNotMember
	case Granted:
		return metrics.GateGranted
	default:
		return metrics.GateWelcome
	}
}

const (
	TextWelcome     = "Welcome! Use /newbatch to start uploading files if you are an admin."
	TextInvalidLink = "Invalid link."
	TextMustJoin    = "You must join the channel to access the files."
	TextJoinButton  = "Join Channel"
	TextRecheck     = "I already joined"
	TextNotJoined   = "You haven't joined yet. Please join the channel."
	TextVerified    = "Verified. Sending files..."
	TextUnavailable = "Something went wrong. Please try again later."
)

// Lookup is what the gate needs from the archive store.
type Lookup interface {
	BatchExists(ctx context.Context, id string) (bool, error)
}

// Deliverer replays a batch into a chat.
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, batchID string) (*models.Receipt, error)
}

type Gate struct {
	msg     messenger.Messenger
	store   Lookup
	deliver Deliverer
	channel string
	joinURL string
	logger  logging.Logger
	metrics *metrics.RelayMetrics
}

// New builds a gate for channel (an @username or numeric id). joinURL is
// the link behind the join button.
func New(msg messenger.Messenger, store Lookup, d Deliverer, channel, joinURL string, l logging.Logger, m *metrics.RelayMetrics) *Gate {
	return &Gate{
		msg:     msg,
		store:   store,
		deliver: d,
		channel: channel,
		joinURL: joinURL,
		logger:  l.With("module", "gate"),
		metrics: m,
	}
}

// IsMember reports whether userID belongs to the gating channel. A failed
// lookup counts as not a member.
func (g *Gate) IsMember(ctx context.Context, userID int64) bool {
	status, err := g.msg.MemberStatus(ctx, g.channel, userID)
	if err != nil {
		g.logger.Warn(ctx, "membership lookup failed", "user_id", userID, "error", err)
		return false
	}
	switch status {
	case common.MemberStatusMember, common.MemberStatusAdministrator, common.MemberStatusCreator:
		return true
	}
	return false
}

// Check decides what a request for batchID by userID gets. The store is
// consulted before the membership lookup, so unknown ids never reach the
// chat platform. The returned error is a storage fault.
func (g *Gate) Check(ctx context.Context, userID int64, batchID string) (Outcome, error) {
	if batchID == "" {
		return Welcome, nil
	}
	ok, err := g.exists(ctx, batchID)
	if err != nil || !ok {
		return InvalidLink, err
	}

	if !g.IsMember(ctx, userID) {
		return NotMember, nil
	}
	return Granted, nil
}

// JoinMarkup is the join affordance: a link to the channel and a re-check
// button bound to batchID.
func (g *Gate) JoinMarkup(batchID string) messenger.Markup {
	return messenger.Markup{
		{{Text: TextJoinButton, URL: g.joinURL}},
		{{Text: TextRecheck, Data: common.CallbackCheckJoinPfx + batchID}},
	}
}

// Open handles a link open ("/start [id]").
func (g *Gate) Open(ctx context.Context, ev messenger.Event, batchID string) Outcome {
	out, err := g.Check(ctx, ev.UserID, batchID)
	if err != nil {
		g.logger.Error(ctx, "link not resolved", "user_id", ev.UserID, "batch_id", batchID, "error", err)
		g.reply(ctx, ev.ChatID, TextUnavailable, nil)
		return out
	}
	g.metrics.Gate(out.String())

	switch out {
	case Welcome:
		g.reply(ctx, ev.ChatID, TextWelcome, nil)
	case InvalidLink:
		g.reply(ctx, ev.ChatID, TextInvalidLink, nil)
	case NotMember:
		g.reply(ctx, ev.ChatID, TextMustJoin, g.JoinMarkup(batchID))
	case Granted:
		g.run(ctx, ev, batchID)
	}
	return out
}

// Recheck handles the re-check button. The batch bound to the button is
// looked up again, since it may have been removed after the prompt was
// sent, and then the membership step is repeated. It may be pressed any
// number of times.
func (g *Gate) Recheck(ctx context.Context, ev messenger.Event) Outcome {
	batchID := strings.TrimPrefix(ev.CallbackData, common.CallbackCheckJoinPfx)
	ok, err := g.exists(ctx, batchID)
	if err != nil {
		g.logger.Error(ctx, "link not resolved", "user_id", ev.UserID, "batch_id", batchID, "error", err)
		g.answer(ctx, ev, TextUnavailable, true)
		return InvalidLink
	}
	if !ok {
		g.answer(ctx, ev, TextInvalidLink, true)
		g.metrics.Gate(InvalidLink.String())
		return InvalidLink
	}

	if !g.IsMember(ctx, ev.UserID) {
		g.metrics.Gate(NotMember.String())
		g.answer(ctx, ev, TextNotJoined, true)
		if ev.MessageID == 0 {
			g.reply(ctx, ev.ChatID, TextMustJoin, g.JoinMarkup(batchID))
		}
		return NotMember
	}

	g.metrics.Gate(Granted.String())
	g.answer(ctx, ev, "", false)
	if ev.MessageID != 0 {
		if err := g.msg.EditText(ctx, ev.ChatID, ev.MessageID, TextVerified, nil); err != nil {
			g.logger.Warn(ctx, "prompt not edited", "chat_id", ev.ChatID, "message_id", ev.MessageID, "error", err)
		}
	}
	g.run(ctx, ev, batchID)
	return Granted
}

// exists reports whether batchID names a stored batch. Malformed ids are
// reported as missing without touching the store; only storage faults
// come back as errors.
func (g *Gate) exists(ctx context.Context, batchID string) (bool, error) {
	id, err := common.ParseBatchID(batchID)
	if err != nil {
		g.logger.Debug(ctx, "malformed link", "error", err)
		return false, nil
	}
	ok, err := g.store.BatchExists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("lookup batch: %w", err)
	}
	return ok, nil
}

func (g *Gate) run(ctx context.Context, ev messenger.Event, batchID string) {
	if _, err := g.deliver.Deliver(ctx, ev.ChatID, batchID); err != nil {
		g.logger.Error(ctx, "delivery failed", "chat_id", ev.ChatID, "batch_id", batchID, "error", err)
	}
}

func (g *Gate) reply(ctx context.Context, chatID int64, text string, markup messenger.Markup) {
	if _, err := g.msg.SendText(ctx, chatID, text, markup); err != nil {
		g.logger.Warn(ctx, "reply not sent", "chat_id", chatID, "error", err)
	}
}

func (g *Gate) answer(ctx context.Context, ev messenger.Event, text string, alert bool) {
	if err := g.msg.AnswerCallback(ctx, ev.CallbackID, text, alert); err != nil {
		g.logger.Warn(ctx, "callback not answered", "user_id", ev.UserID, "error", err)
	}
}
