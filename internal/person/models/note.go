package models

import (
	"time"

	id "personfinder/pkg/domain"
)

// Note is an immutable status report on a person. Only Hidden and Reviewed
// change after creation; Quarantined is cleared once the author confirms.
type Note struct {
	Domain   string
	ID       id.RecordID
	PersonID id.RecordID
	// Seq is the store insertion order within the domain.
	Seq int64

	Status         Status
	Found          Found
	LinkedPersonID id.RecordID

	AuthorName         string
	AuthorEmail        string
	AuthorPhone        string
	EmailOfFoundPerson string
	PhoneOfFoundPerson string
	LastKnownLocation  string
	Text               string
	PhotoID            *int64
	PhotoURL           string

	SourceDate *time.Time
	EntryDate  time.Time

	OriginalDomain string
	SpamScore      float64
	Quarantined    bool
	Hidden         bool
	Reviewed       bool
}

// Visible reports whether the note takes part in the projection.
func (n *Note) Visible() bool {
	return !n.Hidden && !n.Quarantined
}

// Clone returns a copy safe to hand out from stores.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	c := *n
	c.SourceDate = copyTime(n.SourceDate)
	c.PhotoID = copyInt64(n.PhotoID)
	return &c
}

// ReviewFilter selects the moderation queue.
type ReviewFilter struct {
	// Status restricts the queue; nil means all statuses.
	Status *Status
	Limit  int
}

// NoteFlag records a moderator or reader toggling a note's visibility.
type NoteFlag struct {
	Domain    string
	NoteID    id.RecordID
	Hidden    bool
	Reason    string
	CreatedAt time.Time
}

// Redact blanks the contact fields only full-read callers may see.
func (n *Note) Redact() {
	n.AuthorEmail = ""
	n.AuthorPhone = ""
	n.EmailOfFoundPerson = ""
	n.PhoneOfFoundPerson = ""
}
