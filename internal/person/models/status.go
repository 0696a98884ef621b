package models

import (
	dErrors "personfinder/pkg/domain-errors"
)

// Status is the reported state of a person carried by a note.
type Status string

const (
	StatusUnspecified       Status = ""
	StatusInformationSought Status = "information_sought"
	StatusIsNoteAuthor      Status = "is_note_author"
	StatusBelievedAlive     Status = "believed_alive"
	StatusBelievedMissing   Status = "believed_missing"
	StatusBelievedDead      Status = "believed_dead"
)

var validStatuses = map[Status]bool{
	StatusUnspecified:       true,
	StatusInformationSought: true,
	StatusIsNoteAuthor:      true,
	StatusBelievedAlive:     true,
	StatusBelievedMissing:   true,
	StatusBelievedDead:      true,
}

// AllStatuses lists statuses in display order.
var AllStatuses = []Status{
	StatusUnspecified,
	StatusInformationSought,
	StatusIsNoteAuthor,
	StatusBelievedAlive,
	StatusBelievedMissing,
	StatusBelievedDead,
}

// ParseStatus accepts the wire form; "unspecified" is an alias of the empty status.
func ParseStatus(s string) (Status, error) {
	if s == "unspecified" {
		return StatusUnspecified, nil
	}
	st := Status(s)
	if !validStatuses[st] {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid status: %q", s)
	}
	return st, nil
}

// IsAlive reports whether the status indicates the person is alive.
func (s Status) IsAlive() bool {
	return s == StatusBelievedAlive || s == StatusIsNoteAuthor
}

func (s Status) String() string {
	if s == StatusUnspecified {
		return "unspecified"
	}
	return string(s)
}

// Found is a tri-state flag: unknown, true or false.
type Found struct {
	Value bool
	Valid bool
}

var (
	FoundUnknown = Found{}
	FoundTrue    = Found{Value: true, Valid: true}
	FoundFalse   = Found{Value: false, Valid: true}
)

// ParseFound maps "true"/"false" to a known value and "" to unknown.
func ParseFound(s string) (Found, error) {
	switch s {
	case "":
		return FoundUnknown, nil
	case "true":
		return FoundTrue, nil
	case "false":
		return FoundFalse, nil
	}
	return Found{}, dErrors.Newf(dErrors.CodeValidation, "invalid found value: %q", s)
}

func (f Found) String() string {
	if !f.Valid {
		return ""
	}
	if f.Value {
		return "true"
	}
	return "false"
}
