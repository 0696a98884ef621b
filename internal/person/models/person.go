package models

import (
	"time"

	id "personfinder/pkg/domain"
)

// Person is the mutable summary of a missing or found person. Name and
// description fields come from the record itself; LatestStatus, LatestFound
// and LinkedPersonIDs are projected from the person's notes.
type Person struct {
	Domain         string
	ID             id.RecordID
	OriginalDomain string

	GivenName      string
	FamilyName     string
	FullName       string
	AlternateNames string
	Sex            string
	DateOfBirth    string
	Age            string
	Description    string

	HomeStreet       string
	HomeNeighborhood string
	HomeCity         string
	HomeState        string
	HomePostalCode   string
	HomeCountry      string

	PhotoID  *int64
	PhotoURL string

	AuthorName  string
	AuthorEmail string
	AuthorPhone string
	SourceName  string
	SourceURL   string

	SourceDate *time.Time
	EntryDate  time.Time
	ExpiryDate *time.Time

	IsExpired    bool
	TombstonedAt *time.Time

	LatestStatus     Status
	LatestFound      Found
	LatestStatusDate *time.Time

	LinkedPersonIDs []id.RecordID
	NotesDisabled   bool
}

// IsClone reports whether the record was mirrored from another domain.
func (p *Person) IsClone() bool {
	return p.OriginalDomain != "" && p.OriginalDomain != p.Domain
}

// IsTombstoned reports whether the lifecycle cascade has cleared the record.
func (p *Person) IsTombstoned() bool {
	return p.TombstonedAt != nil
}

// IsPastDue reports whether the expiry date has passed at now.
func (p *Person) IsPastDue(now time.Time) bool {
	return p.ExpiryDate != nil && now.After(*p.ExpiryDate)
}

// LifecycleState names where the person is in ACTIVE -> PAST_DUE -> TOMBSTONED.
func (p *Person) LifecycleState(now time.Time) LifecycleState {
	switch {
	case p.IsTombstoned():
		return StateTombstoned
	case p.IsPastDue(now):
		return StatePastDue
	default:
		return StateActive
	}
}

// HasLink reports whether target already appears in LinkedPersonIDs.
func (p *Person) HasLink(target id.RecordID) bool {
	for _, l := range p.LinkedPersonIDs {
		if l == target {
			return true
		}
	}
	return false
}

// Tombstone clears every content field and marks the record expired. The id,
// domain, origin and dates survive so mirrors observe a deletion.
func (p *Person) Tombstone(now time.Time) {
	*p = Person{
		Domain:         p.Domain,
		ID:             p.ID,
		OriginalDomain: p.OriginalDomain,
		EntryDate:      p.EntryDate,
		ExpiryDate:     p.ExpiryDate,
		SourceDate:     &now,
		IsExpired:      true,
		TombstonedAt:   &now,
	}
}

// Clone returns a deep copy.
func (p *Person) Clone() *Person {
	if p == nil {
		return nil
	}
	c := *p
	c.LinkedPersonIDs = append([]id.RecordID(nil), p.LinkedPersonIDs...)
	c.PhotoID = copyInt64(p.PhotoID)
	c.SourceDate = copyTime(p.SourceDate)
	c.ExpiryDate = copyTime(p.ExpiryDate)
	c.TombstonedAt = copyTime(p.TombstonedAt)
	c.LatestStatusDate = copyTime(p.LatestStatusDate)
	return &c
}

// LifecycleState of a person record.
type LifecycleState string

const (
	StateActive     LifecycleState = "active"
	StatePastDue    LifecycleState = "past_due"
	StateTombstoned LifecycleState = "tombstoned"
)

// Photo is an opaque image blob owned by the person that references it.
type Photo struct {
	ID          int64
	Domain      string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// ListFilter selects the live or past-due listing.
type ListFilter struct {
	// Expired selects past-due (is_expired) records instead of live ones.
	Expired bool
	Limit   int
}

// Counts summarises a domain for the stats endpoint.
type Counts struct {
	Persons        int            `json:"persons"`
	LivePersons    int            `json:"live_persons"`
	ExpiredPersons int            `json:"expired_persons"`
	ByStatus       map[string]int `json:"by_status"`
	Notes          int            `json:"notes"`
	HiddenNotes    int            `json:"hidden_notes"`
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Redact blanks the fields only full-read callers may see.
func (p *Person) Redact() {
	p.DateOfBirth = ""
	p.AuthorEmail = ""
	p.AuthorPhone = ""
}
