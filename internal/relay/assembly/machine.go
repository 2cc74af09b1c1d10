// Package assembly runs the per-uploader batch assembly conversation:
// /newbatch opens a session, media is archived as it arrives, "done" asks
// for a caption, and a caption or /skip commits the batch and answers with
// its share link.
package assembly

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/filegate/internal/common"
	"github.com/dmitrijs2005/filegate/internal/logging"
	"github.com/dmitrijs2005/filegate/internal/relay/messenger"
	"github.com/dmitrijs2005/filegate/internal/relay/metrics"
	"github.com/dmitrijs2005/filegate/internal/relay/models"
)

// State of an uploader's session. Idle means no session exists.
type State int

const (
	Idle State = iota
	Collecting
	AwaitingCaption
)

func (s State) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case AwaitingCaption:
		return "awaiting_caption"
	default:
		return "idle"
	}
}

// Replies sent to uploaders.
const (
	TextNotAllowed    = "You are not allowed to upload files."
	TextSendFiles     = "Send files now. Press 'Done uploading' when finished."
	TextDoneButton    = "Done uploading"
	TextFileAdded     = "File added to batch."
	TextNoFiles       = "No files uploaded. Cancelled."
	TextAskCaption    = "Enter caption for the batch or use /skip."
	TextCommitFailed  = "Could not save the batch. Please start again with /newbatch."
	TextArchiveFailed = "Could not store this file. Please send it again."
)

// Committer persists a finished batch and returns its id.
type Committer interface {
	CreateBatch(ctx context.Context, caption *string, files []models.FileRef) (string, error)
}

type session struct {
	state State
	files []models.FileRef
}

// Machine holds every uploader's session. Sessions live in memory only and
// are lost on restart.
type Machine struct {
	msg         messenger.Messenger
	store       Committer
	allowed     map[int64]struct{}
	archiveChat int64
	entryPoint  string
	logger      logging.Logger
	metrics     *metrics.RelayMetrics

	mu       sync.Mutex
	sessions map[int64]*session
	// locks serialises each uploader's events; only allow-listed users get one
	locks map[int64]*sync.Mutex
}

// NewMachine builds a machine. entryPoint is the bot's public address,
// e.g. https://t.me/FileGateBot; share links are entryPoint?start=<id>.
func NewMachine(msg messenger.Messenger, store Committer, uploaders []int64, archiveChat int64, entryPoint string, l logging.Logger, m *metrics.RelayMetrics) *Machine {
	allowed := make(map[int64]struct{}, len(uploaders))
	for _, id := range uploaders {
		allowed[id] = struct{}{}
	}
	return &Machine{
		msg:         msg,
		store:       store,
		allowed:     allowed,
		archiveChat: archiveChat,
		entryPoint:  entryPoint,
		logger:      l.With("module", "assembly"),
		metrics:     m,
		sessions:    map[int64]*session{},
		locks:       map[int64]*sync.Mutex{},
	}
}

// Allowed reports whether userID is on the uploader allow-list.
func (m *Machine) Allowed(userID int64) bool {
	_, ok := m.allowed[userID]
	return ok
}

// Link renders the share link of a batch.
func (m *Machine) Link(batchID string) string {
	return fmt.Sprintf("%s?start=%s", m.entryPoint, batchID)
}

// State returns userID's current state.
func (m *Machine) State(userID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s.state
	}
	return Idle
}

// authorize fails with common.ErrorUnauthorized for users outside the
// allow-list.
func (m *Machine) authorize(userID int64) error {
	if !m.Allowed(userID) {
		return fmt.Errorf("user %d: %w", userID, common.ErrorUnauthorized)
	}
	return nil
}

// awaitingCaption returns userID's session if it is waiting for a caption,
// common.ErrNoSession otherwise. The caller holds the user's lock.
func (m *Machine) awaitingCaption(userID int64) (*session, error) {
	s := m.session(userID)
	if s == nil || s.state != AwaitingCaption {
		return nil, common.ErrNoSession
	}
	return s, nil
}

func (m *Machine) lock(userID int64) func() {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (m *Machine) session(userID int64) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

func (m *Machine) setSession(userID int64, s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s == nil {
		delete(m.sessions, userID)
		return
	}
	m.sessions[userID] = s
}

func (m *Machine) reply(ctx context.Context, chatID int64, text string, markup messenger.Markup) {
	if _, err := m.msg.SendText(ctx, chatID, text, markup); err != nil {
		m.logger.Warn(ctx, "reply not sent", "chat_id", chatID, "error", err)
	}
}

// NewBatch opens a fresh Collecting session, discarding any previous one.
// Users outside the allow-list get a denial and no state change.
func (m *Machine) NewBatch(ctx context.Context, ev messenger.Event) {
	if err := m.authorize(ev.UserID); err != nil {
		m.logger.Info(ctx, "upload denied", "user_id", ev.UserID, "error", err)
		m.reply(ctx, ev.ChatID, TextNotAllowed, nil)
		return
	}
	defer m.lock(ev.UserID)()

	if prev := m.session(ev.UserID); prev != nil {
		m.logger.Info(ctx, "session restarted", "user_id", ev.UserID, "dropped_files", len(prev.files))
	}
	m.setSession(ev.UserID, &session{state: Collecting})

	done := messenger.Markup{{{Text: TextDoneButton, Data: common.CallbackDoneUpload}}}
	m.reply(ctx, ev.ChatID, TextSendFiles, done)
}

// AddMedia archives one media item into the uploader's Collecting session.
// It reports false when the event is not part of a collecting session (no
// session, not media, or wrong state) and was left alone.
func (m *Machine) AddMedia(ctx context.Context, ev messenger.Event) bool {
	if ev.Media == messenger.MediaNone || !m.Allowed(ev.UserID) {
		return false
	}
	defer m.lock(ev.UserID)()

	s := m.session(ev.UserID)
	if s == nil || s.state != Collecting {
		return false
	}

	ref, err := m.msg.CopyMessage(ctx, m.archiveChat, ev.ChatID, ev.MessageID)
	if err != nil {
		m.logger.Warn(ctx, "media not archived", "user_id", ev.UserID, "message_id", ev.MessageID, "error", err)
		m.reply(ctx, ev.ChatID, TextArchiveFailed, nil)
		return true
	}

	s.files = append(s.files, models.FileRef(ref))
	m.metrics.Archived()
	m.reply(ctx, ev.ChatID, TextFileAdded, nil)
	return true
}

// Done handles the "done" button. An empty session is abandoned; otherwise
// the session moves on to AwaitingCaption.
func (m *Machine) Done(ctx context.Context, ev messenger.Event) {
	if err := m.authorize(ev.UserID); err != nil {
		m.logger.Info(ctx, "done denied", "user_id", ev.UserID, "error", err)
		m.answer(ctx, ev, TextNotAllowed, true)
		return
	}
	m.answer(ctx, ev, "", false)

	defer m.lock(ev.UserID)()
	s := m.session(ev.UserID)

	switch {
	case s == nil:
		m.edit(ctx, ev, TextNoFiles)
	case s.state != Collecting:
		// a second press while awaiting the caption
	case len(s.files) == 0:
		m.setSession(ev.UserID, nil)
		m.metrics.Abandoned()
		m.logger.Info(ctx, "empty session abandoned", "user_id", ev.UserID)
		m.edit(ctx, ev, TextNoFiles)
	default:
		m.mu.Lock()
		s.state = AwaitingCaption
		m.mu.Unlock()
		m.edit(ctx, ev, TextAskCaption)
	}
}

func (m *Machine) answer(ctx context.Context, ev messenger.Event, text string, alert bool) {
	if err := m.msg.AnswerCallback(ctx, ev.CallbackID, text, alert); err != nil {
		m.logger.Warn(ctx, "callback not answered", "user_id", ev.UserID, "error", err)
	}
}

func (m *Machine) edit(ctx context.Context, ev messenger.Event, text string) {
	if ev.MessageID == 0 {
		m.reply(ctx, ev.ChatID, text, nil)
		return
	}
	if err := m.msg.EditText(ctx, ev.ChatID, ev.MessageID, text, nil); err != nil {
		m.logger.Warn(ctx, "prompt not edited", "chat_id", ev.ChatID, "message_id", ev.MessageID, "error", err)
	}
}

// Caption commits the session with ev.Text as caption. It reports false
// when the uploader is not awaiting a caption.
func (m *Machine) Caption(ctx context.Context, ev messenger.Event) bool {
	caption := ev.Text
	return m.commit(ctx, ev, &caption)
}

// Skip commits the session without a caption. Users outside the allow-list
// get a denial. It reports false when the uploader is not awaiting a
// caption.
func (m *Machine) Skip(ctx context.Context, ev messenger.Event) bool {
	if err := m.authorize(ev.UserID); err != nil {
		m.logger.Info(ctx, "skip denied", "user_id", ev.UserID, "error", err)
		m.reply(ctx, ev.ChatID, TextNotAllowed, nil)
		return true
	}
	return m.commit(ctx, ev, nil)
}

func (m *Machine) commit(ctx context.Context, ev messenger.Event, caption *string) bool {
	if !m.Allowed(ev.UserID) {
		return false
	}
	defer m.lock(ev.UserID)()

	s, err := m.awaitingCaption(ev.UserID)
	if err != nil {
		return false
	}
	// the session ends here whether or not the batch is stored
	m.setSession(ev.UserID, nil)

	id, err := m.store.CreateBatch(ctx, caption, s.files)
	if err != nil {
		m.logger.Error(ctx, "batch not committed", "user_id", ev.UserID, "files", len(s.files), "error", err)
		m.reply(ctx, ev.ChatID, TextCommitFailed, nil)
		return true
	}

	m.metrics.Committed()
	m.logger.Info(ctx, "batch committed", "user_id", ev.UserID, "batch_id", id, "files", len(s.files))
	m.reply(ctx, ev.ChatID, "Batch saved. Link: "+m.Link(id), nil)
	return true
}
