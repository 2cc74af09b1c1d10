// Package models defines the relay's data models, both persisted and
// in-flight.
package models

// FileRef is the archive-location handle of one uploaded media item: the
// message id of its copy inside the archive channel.
type FileRef int

// Batch is an immutable caption-plus-ordered-files unit, the unit of sharing.
type Batch struct {
	// ID is the opaque, unguessable token embedded in share links.
	ID string
	// Caption is optional; nil means no caption was supplied.
	Caption *string
	// Files are the archive handles in upload order. Duplicates are allowed.
	Files []FileRef
}

// HasCaption reports whether the batch carries a non-empty caption.
func (b *Batch) HasCaption() bool {
	return b.Caption != nil && *b.Caption != ""
}
