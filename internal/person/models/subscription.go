package models

import (
	"time"

	id "personfinder/pkg/domain"
)

// Subscription asks for notification when notes are added to a person.
// At most one exists per (person, email).
type Subscription struct {
	Domain    string
	PersonID  id.RecordID
	Email     string
	Language  string
	CreatedAt time.Time
}
