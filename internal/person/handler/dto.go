package handler

import (
	"personfinder/internal/interchange"
	"personfinder/internal/person/models"
	"personfinder/internal/person/service"
	id "personfinder/pkg/domain"
	dErrors "personfinder/pkg/domain-errors"
)

// CreatePersonRequest is the body of POST /{domain}/persons.
type CreatePersonRequest struct {
	GivenName        string `json:"given_name"`
	FamilyName       string `json:"family_name"`
	FullName         string `json:"full_name"`
	AlternateNames   string `json:"alternate_names"`
	Sex              string `json:"sex"`
	DateOfBirth      string `json:"date_of_birth"`
	Age              string `json:"age"`
	Description      string `json:"description"`
	HomeStreet       string `json:"home_street"`
	HomeNeighborhood string `json:"home_neighborhood"`
	HomeCity         string `json:"home_city"`
	HomeState        string `json:"home_state"`
	HomePostalCode   string `json:"home_postal_code"`
	HomeCountry      string `json:"home_country"`
	PhotoURL         string `json:"photo_url"`
	AuthorName       string `json:"author_name"`
	AuthorEmail      string `json:"author_email"`
	AuthorPhone      string `json:"author_phone"`
	SourceName       string `json:"source_name"`
	SourceURL        string `json:"source_url"`
	SourceDate       string `json:"source_date"`
	ExpiryDate       string `json:"expiry_date"`
}

func (r *CreatePersonRequest) toModel() (*models.Person, error) {
	sourceDate, err := interchange.ParseTime("source_date", r.SourceDate)
	if err != nil {
		return nil, err
	}
	expiry, err := interchange.ParseTime("expiry_date", r.ExpiryDate)
	if err != nil {
		return nil, err
	}
	return &models.Person{
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
		ExpiryDate:       expiry,
	}, nil
}

// AppendNoteRequest is the body of POST /{domain}/notes.
type AppendNoteRequest struct {
	PersonID           string `json:"person_record_id"`
	LinkedPersonID     string `json:"linked_person_record_id"`
	Status             string `json:"status"`
	Found              string `json:"found"`
	AuthorName         string `json:"author_name"`
	AuthorEmail        string `json:"author_email"`
	AuthorPhone        string `json:"author_phone"`
	EmailOfFoundPerson string `json:"email_of_found_person"`
	PhoneOfFoundPerson string `json:"phone_of_found_person"`
	LastKnownLocation  string `json:"last_known_location"`
	Text               string `json:"text"`
	PhotoURL           string `json:"photo_url"`
	SourceDate         string `json:"source_date"`
}

func (r *AppendNoteRequest) toModel() (*models.Note, error) {
	status, err := models.ParseStatus(r.Status)
	if err != nil {
		return nil, err
	}
	found, err := models.ParseFound(r.Found)
	if err != nil {
		return nil, err
	}
	sourceDate, err := interchange.ParseTime("source_date", r.SourceDate)
	if err != nil {
		return nil, err
	}
	return &models.Note{
		PersonID:           id.RecordID(r.PersonID),
		LinkedPersonID:     id.RecordID(r.LinkedPersonID),
		Status:             status,
		Found:              found,
		AuthorName:         r.AuthorName,
		AuthorEmail:        r.AuthorEmail,
		AuthorPhone:        r.AuthorPhone,
		EmailOfFoundPerson: r.EmailOfFoundPerson,
		PhoneOfFoundPerson: r.PhoneOfFoundPerson,
		LastKnownLocation:  r.LastKnownLocation,
		Text:               r.Text,
		PhotoURL:           r.PhotoURL,
		SourceDate:         sourceDate,
	}, nil
}

type FlagNoteRequest struct {
	NoteID string `json:"note_record_id"`
	Reason string `json:"reason"`
}

type ReviewRequest struct {
	NoteID string `json:"note_record_id"`
	Action string `json:"action"`
}

func (r *ReviewRequest) action() (service.ReviewAction, error) {
	switch a := service.ReviewAction(r.Action); a {
	case service.ReviewAccept, service.ReviewFlag:
		return a, nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "invalid review action: %q", r.Action)
}

type NotesDisabledRequest struct {
	PersonID string `json:"person_record_id"`
	Disabled bool   `json:"disabled"`
}

type SubscribeRequest struct {
	PersonID string `json:"person_record_id"`
	Email    string `json:"email"`
	Language string `json:"lang"`
}

// PersonResponse is a person record plus its projected fields.
type PersonResponse struct {
	interchange.PersonRecord
	OriginalDomain  string         `json:"original_domain"`
	IsExpired       bool           `json:"is_expired"`
	LatestStatus    string         `json:"latest_status"`
	LatestFound     string         `json:"latest_found,omitempty"`
	LinkedPersonIDs []string       `json:"linked_person_record_ids"`
	NotesDisabled   bool           `json:"notes_disabled"`
	Notes           []NoteResponse `json:"notes,omitempty"`
}

// NoteResponse is a note record plus its moderation state.
type NoteResponse struct {
	interchange.NoteRecord
	SpamScore   float64 `json:"spam_score"`
	Quarantined bool    `json:"quarantined"`
	Hidden      bool    `json:"hidden"`
	Reviewed    bool    `json:"reviewed"`
}

func toPersonResponse(p *models.Person, notes []*models.Note) PersonResponse {
	resp := PersonResponse{
		PersonRecord:    interchange.FromPerson(p),
		OriginalDomain:  p.OriginalDomain,
		IsExpired:       p.IsExpired,
		LatestStatus:    p.LatestStatus.String(),
		LatestFound:     p.LatestFound.String(),
		LinkedPersonIDs: make([]string, 0, len(p.LinkedPersonIDs)),
		NotesDisabled:   p.NotesDisabled,
	}
	for _, l := range p.LinkedPersonIDs {
		resp.LinkedPersonIDs = append(resp.LinkedPersonIDs, string(l))
	}
	for _, n := range notes {
		resp.Notes = append(resp.Notes, toNoteResponse(n))
	}
	return resp
}

func toNoteResponse(n *models.Note) NoteResponse {
	return NoteResponse{
		NoteRecord:  interchange.FromNote(n),
		SpamScore:   n.SpamScore,
		Quarantined: n.Quarantined,
		Hidden:      n.Hidden,
		Reviewed:    n.Reviewed,
	}
}

func toNoteResponses(notes []*models.Note) []NoteResponse {
	out := make([]NoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, toNoteResponse(n))
	}
	return out
}
