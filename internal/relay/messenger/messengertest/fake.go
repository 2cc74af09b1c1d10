// Package messengertest provides an in-memory Messenger for tests.
package messengertest

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/filegate/internal/relay/messenger"
)

// ErrInjected is returned by calls configured to fail.
var ErrInjected = errors.New("injected failure")

// Sent is one outbound text message.
type Sent struct {
	ChatID    int64
	MessageID int
	Text      string
	Markup    messenger.Markup
}

// Copied is one replayed message.
type Copied struct {
	ToChat    int64
	FromChat  int64
	Source    int
	MessageID int
}

type Edited struct {
	ChatID    int64
	MessageID int
	Text      string
	Markup    messenger.Markup
}

type Answer struct {
	CallbackID string
	Text       string
	Alert      bool
}

// Fake records every call and hands out increasing message ids starting at
// 1000. It is safe for concurrent use.
type Fake struct {
	mu sync.Mutex

	nextID int

	Sent     []Sent
	Copied   []Copied
	Deleted  []int
	Edited   []Edited
	Answers  []Answer
	Lookups  int
	Statuses map[int64]string

	// FailSend makes SendText fail for texts in the set.
	FailSend map[string]bool
	// FailCopy makes CopyMessage fail for source message ids in the set.
	FailCopy map[int]bool
	// FailDelete makes DeleteMessage fail for message ids in the set.
	FailDelete map[int]bool
	// FailLookup makes MemberStatus fail.
	FailLookup bool
}

func New() *Fake {
	return &Fake{
		nextID:     1000,
		Statuses:   map[int64]string{},
		FailSend:   map[string]bool{},
		FailCopy:   map[int]bool{},
		FailDelete: map[int]bool{},
	}
}

func (f *Fake) id() int {
	f.nextID++
	return f.nextID
}

func (f *Fake) SendText(_ context.Context, chatID int64, text string, markup messenger.Markup) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSend[text] {
		return 0, ErrInjected
	}
	s := Sent{ChatID: chatID, MessageID: f.id(), Text: text, Markup: markup}
	f.Sent = append(f.Sent, s)
	return s.MessageID, nil
}

func (f *Fake) CopyMessage(_ context.Context, toChat, fromChat int64, messageID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCopy[messageID] {
		return 0, ErrInjected
	}
	c := Copied{ToChat: toChat, FromChat: fromChat, Source: messageID, MessageID: f.id()}
	f.Copied = append(f.Copied, c)
	return c.MessageID, nil
}

func (f *Fake) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDelete[messageID] {
		return ErrInjected
	}
	f.Deleted = append(f.Deleted, messageID)
	return nil
}

func (f *Fake) EditText(_ context.Context, chatID int64, messageID int, text string, markup messenger.Markup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Edited = append(f.Edited, Edited{ChatID: chatID, MessageID: messageID, Text: text, Markup: markup})
	return nil
}

func (f *Fake) AnswerCallback(_ context.Context, callbackID, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Answers = append(f.Answers, Answer{CallbackID: callbackID, Text: text, Alert: alert})
	return nil
}

// MemberStatus returns the configured status, "left" when none is set.
func (f *Fake) MemberStatus(_ context.Context, _ string, userID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Lookups++
	if f.FailLookup {
		return "", ErrInjected
	}
	if s, ok := f.Statuses[userID]; ok {
		return s, nil
	}
	return "left", nil
}

// SetStatus sets userID's membership status.
func (f *Fake) SetStatus(userID int64, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Statuses[userID] = status
}

// Texts returns the texts sent to chatID, in order.
func (f *Fake) Texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.Sent {
		if s.ChatID == chatID {
			out = append(out, s.Text)
		}
	}
	return out
}

// LastSent returns the most recent text sent to chatID.
func (f *Fake) LastSent(chatID int64) (Sent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Sent) - 1; i >= 0; i-- {
		if f.Sent[i].ChatID == chatID {
			return f.Sent[i], true
		}
	}
	return Sent{}, false
}

// DeletedIDs returns a snapshot of deleted message ids.
func (f *Fake) DeletedIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.Deleted...)
}

// LookupCount returns how many membership queries were made.
func (f *Fake) LookupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Lookups
}

var _ messenger.Messenger = (*Fake)(nil)
