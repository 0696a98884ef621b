// Package interchange converts between stored models and the flat string
// records exchanged with other domains. Records are validated here, at the
// boundary, before anything reaches the stores.
package interchange

import (
	"strings"
	"time"

	"personfinder/internal/person/models"
	id "personfinder/pkg/domain"
	dErrors "personfinder/pkg/domain-errors"
)

// TimeLayout is the only accepted date format.
const TimeLayout = "2006-01-02T15:04:05Z"

// Kind tags a Record variant.
type Kind string

const (
	KindPerson Kind = "person"
	KindNote   Kind = "note"
)

// ParseKind accepts "person" or "note".
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindPerson:
		return KindPerson, nil
	case KindNote:
		return KindNote, nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown record kind %q", s)
}

// Record is exactly one of a person or a note record.
type Record struct {
	Kind   Kind
	Person *PersonRecord
	Note   *NoteRecord
}

func PersonOf(p PersonRecord) Record { return Record{Kind: KindPerson, Person: &p} }

func NoteOf(n NoteRecord) Record { return Record{Kind: KindNote, Note: &n} }

// ID returns the record id carried by the active variant.
func (r Record) ID() string {
	switch {
	case r.Kind == KindPerson && r.Person != nil:
		return r.Person.PersonRecordID
	case r.Kind == KindNote && r.Note != nil:
		return r.Note.NoteRecordID
	}
	return ""
}

// PersonRecord is the interchange form of a person. Optional fields are
// empty strings when absent.
type PersonRecord struct {
	PersonRecordID   string       `json:"person_record_id"`
	EntryDate        string       `json:"entry_date,omitempty"`
	ExpiryDate       string       `json:"expiry_date,omitempty"`
	AuthorName       string       `json:"author_name,omitempty"`
	AuthorEmail      string       `json:"author_email,omitempty"`
	AuthorPhone      string       `json:"author_phone,omitempty"`
	SourceName       string       `json:"source_name,omitempty"`
	SourceDate       string       `json:"source_date,omitempty"`
	SourceURL        string       `json:"source_url,omitempty"`
	FullName         string       `json:"full_name,omitempty"`
	GivenName        string       `json:"given_name,omitempty"`
	FamilyName       string       `json:"family_name,omitempty"`
	AlternateNames   string       `json:"alternate_names,omitempty"`
	Description      string       `json:"description,omitempty"`
	Sex              string       `json:"sex,omitempty"`
	DateOfBirth      string       `json:"date_of_birth,omitempty"`
	Age              string       `json:"age,omitempty"`
	HomeStreet       string       `json:"home_street,omitempty"`
	HomeNeighborhood string       `json:"home_neighborhood,omitempty"`
	HomeCity         string       `json:"home_city,omitempty"`
	HomeState        string       `json:"home_state,omitempty"`
	HomePostalCode   string       `json:"home_postal_code,omitempty"`
	HomeCountry      string       `json:"home_country,omitempty"`
	PhotoURL         string       `json:"photo_url,omitempty"`
	Notes            []NoteRecord `json:"notes,omitempty"`
}

// NoteRecord is the interchange form of a note.
type NoteRecord struct {
	NoteRecordID         string `json:"note_record_id"`
	PersonRecordID       string `json:"person_record_id,omitempty"`
	LinkedPersonRecordID string `json:"linked_person_record_id,omitempty"`
	EntryDate            string `json:"entry_date,omitempty"`
	AuthorName           string `json:"author_name,omitempty"`
	AuthorEmail          string `json:"author_email,omitempty"`
	AuthorPhone          string `json:"author_phone,omitempty"`
	SourceDate           string `json:"source_date,omitempty"`
	Found                string `json:"found,omitempty"`
	Status               string `json:"status,omitempty"`
	EmailOfFoundPerson   string `json:"email_of_found_person,omitempty"`
	PhoneOfFoundPerson   string `json:"phone_of_found_person,omitempty"`
	LastKnownLocation    string `json:"last_known_location,omitempty"`
	Text                 string `json:"text,omitempty"`
	PhotoURL             string `json:"photo_url,omitempty"`
}

// ParseTime parses TimeLayout; an empty string is a nil time.
func ParseTime(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(TimeLayout, value)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeValidation, "%s: bad date %q, want YYYY-MM-DDTHH:MM:SSZ", field, value)
	}
	return &t, nil
}

// FormatTime renders t in TimeLayout; nil renders as "".
func FormatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

func parseRequiredID(field, value string) (id.RecordID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", dErrors.Newf(dErrors.CodeValidation, "%s is required", field)
	}
	rid, err := id.ParseRecordID(value)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeValidation, field)
	}
	return rid, nil
}

// ToPerson validates r and builds the clone stored in domain. The original
// domain is the id's domain; entryDate is when this domain stores it.
func (r *PersonRecord) ToPerson(domain string, entryDate time.Time) (*models.Person, error) {
	personID, err := parseRequiredID("person_record_id", r.PersonRecordID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(r.FullName) == "" && strings.TrimSpace(r.GivenName) == "" && strings.TrimSpace(r.FamilyName) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "full_name or given_name/family_name is required")
	}
	sourceDate, err := ParseTime("source_date", r.SourceDate)
	if err != nil {
		return nil, err
	}
	expiryDate, err := ParseTime("expiry_date", r.ExpiryDate)
	if err != nil {
		return nil, err
	}
	if _, err := ParseTime("entry_date", r.EntryDate); err != nil {
		return nil, err
	}

	return &models.Person{
		Domain:           domain,
		ID:               personID,
		OriginalDomain:   personID.Domain(),
		GivenName:        r.GivenName,
		FamilyName:       r.FamilyName,
		FullName:         r.FullName,
		AlternateNames:   r.AlternateNames,
		Sex:              r.Sex,
		DateOfBirth:      r.DateOfBirth,
		Age:              r.Age,
		Description:      r.Description,
		HomeStreet:       r.HomeStreet,
		HomeNeighborhood: r.HomeNeighborhood,
		HomeCity:         r.HomeCity,
		HomeState:        r.HomeState,
		HomePostalCode:   r.HomePostalCode,
		HomeCountry:      r.HomeCountry,
		PhotoURL:         r.PhotoURL,
		AuthorName:       r.AuthorName,
		AuthorEmail:      r.AuthorEmail,
		AuthorPhone:      r.AuthorPhone,
		SourceName:       r.SourceName,
		SourceURL:        r.SourceURL,
		SourceDate:       sourceDate,
		EntryDate:        entryDate,
		ExpiryDate:       expiryDate,
	}, nil
}

// ToNote validates r and builds the note stored in domain.
func (r *NoteRecord) ToNote(domain string, entryDate time.Time) (*models.Note, error) {
	noteID, err := parseRequiredID("note_record_id", r.NoteRecordID)
	if err != nil {
		return nil, err
	}
	personID, err := parseRequiredID("person_record_id", r.PersonRecordID)
	if err != nil {
		return nil, err
	}
	var linked id.RecordID
	if strings.TrimSpace(r.LinkedPersonRecordID) != "" {
		if linked, err = parseRequiredID("linked_person_record_id", r.LinkedPersonRecordID); err != nil {
			return nil, err
		}
	}
	status, err := models.ParseStatus(r.Status)
	if err != nil {
		return nil, err
	}
	found, err := models.ParseFound(r.Found)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(r.Text) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "text is required")
	}
	sourceDate, err := ParseTime("source_date", r.SourceDate)
	if err != nil {
		return nil, err
	}
	if _, err := ParseTime("entry_date", r.EntryDate); err != nil {
		return nil, err
	}

	return &models.Note{
		Domain:             domain,
		ID:                 noteID,
		PersonID:           personID,
		Status:             status,
		Found:              found,
		LinkedPersonID:     linked,
		AuthorName:         r.AuthorName,
		AuthorEmail:        r.AuthorEmail,
		AuthorPhone:        r.AuthorPhone,
		EmailOfFoundPerson: r.EmailOfFoundPerson,
		PhoneOfFoundPerson: r.PhoneOfFoundPerson,
		LastKnownLocation:  r.LastKnownLocation,
		Text:               r.Text,
		PhotoURL:           r.PhotoURL,
		SourceDate:         sourceDate,
		EntryDate:          entryDate,
		OriginalDomain:     noteID.Domain(),
	}, nil
}

// FromPerson renders a stored person. Tombstones carry only identity and dates.
func FromPerson(p *models.Person) PersonRecord {
	return PersonRecord{
		PersonRecordID:   string(p.ID),
		EntryDate:        FormatTime(&p.EntryDate),
		ExpiryDate:       FormatTime(p.ExpiryDate),
		AuthorName:       p.AuthorName,
		AuthorEmail:      p.AuthorEmail,
		AuthorPhone:      p.AuthorPhone,
		SourceName:       p.SourceName,
		SourceDate:       FormatTime(p.SourceDate),
		SourceURL:        p.SourceURL,
		FullName:         p.FullName,
		GivenName:        p.GivenName,
		FamilyName:       p.FamilyName,
		AlternateNames:   p.AlternateNames,
		Description:      p.Description,
		Sex:              p.Sex,
		DateOfBirth:      p.DateOfBirth,
		Age:              p.Age,
		HomeStreet:       p.HomeStreet,
		HomeNeighborhood: p.HomeNeighborhood,
		HomeCity:         p.HomeCity,
		HomeState:        p.HomeState,
		HomePostalCode:   p.HomePostalCode,
		HomeCountry:      p.HomeCountry,
		PhotoURL:         p.PhotoURL,
	}
}

// FromNote renders a stored note.
func FromNote(n *models.Note) NoteRecord {
	return NoteRecord{
		NoteRecordID:         string(n.ID),
		PersonRecordID:       string(n.PersonID),
		LinkedPersonRecordID: string(n.LinkedPersonID),
		EntryDate:            FormatTime(&n.EntryDate),
		AuthorName:           n.AuthorName,
		AuthorEmail:          n.AuthorEmail,
		AuthorPhone:          n.AuthorPhone,
		SourceDate:           FormatTime(n.SourceDate),
		Found:                n.Found.String(),
		Status:               wireStatus(n.Status),
		EmailOfFoundPerson:   n.EmailOfFoundPerson,
		PhoneOfFoundPerson:   n.PhoneOfFoundPerson,
		LastKnownLocation:    n.LastKnownLocation,
		Text:                 n.Text,
		PhotoURL:             n.PhotoURL,
	}
}

func wireStatus(s models.Status) string {
	if s == models.StatusUnspecified {
		return ""
	}
	return string(s)
}

// FilterSensitive blanks the fields reserved for full-read callers, in place.
func FilterSensitive(records []Record) {
	for _, r := range records {
		if r.Person != nil {
			r.Person.filterSensitive()
		}
		if r.Note != nil {
			r.Note.filterSensitive()
		}
	}
}

func (r *PersonRecord) filterSensitive() {
	r.DateOfBirth = ""
	r.AuthorEmail = ""
	r.AuthorPhone = ""
	for i := range r.Notes {
		r.Notes[i].filterSensitive()
	}
}

func (r *NoteRecord) filterSensitive() {
	r.AuthorEmail = ""
	r.AuthorPhone = ""
	r.EmailOfFoundPerson = ""
	r.PhoneOfFoundPerson = ""
}
