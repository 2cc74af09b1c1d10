package messenger

import "strings"

// MediaKind classifies an inbound message's attachment.
type MediaKind string

const (
	MediaNone     MediaKind = ""
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
)

// Event is a platform-neutral inbound update: either a message or a button
// press (CallbackID set).
type Event struct {
	UserID    int64
	ChatID    int64
	MessageID int

	Text  string
	Media MediaKind

	CallbackID   string
	CallbackData string
}

// IsCallback reports whether the event is a button press.
func (e Event) IsCallback() bool {
	return e.CallbackID != ""
}

// Command splits a "/name arg1 arg2" message into its lowercased name and
// arguments. A "@botname" suffix on the command is dropped. ok is false for
// anything that is not a command.
func (e Event) Command() (name string, args []string, ok bool) {
	if e.IsCallback() || !strings.HasPrefix(e.Text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(e.Text)
	name = strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return "", nil, false
	}
	return strings.ToLower(name), fields[1:], true
}
