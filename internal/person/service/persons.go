package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"personfinder/internal/person/models"
	"personfinder/internal/person/store"
	id "personfinder/pkg/domain"
	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/platform/sentinel"
	"personfinder/pkg/requestcontext"
)

// PersonView is a person with the notes a reader may see.
type PersonView struct {
	Person *models.Person
	Notes  []*models.Note
}

// CreatePerson stores an original record written in this domain.
func (s *Service) CreatePerson(ctx context.Context, domain string, person *models.Person) (*models.Person, error) {
	if err := id.ValidateDomain(domain); err != nil {
		return nil, err
	}
	p := person.Clone()
	if strings.TrimSpace(p.FullName) == "" && strings.TrimSpace(p.GivenName) == "" && strings.TrimSpace(p.FamilyName) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a name is required")
	}
	personID, err := id.MakeID(domain, "person."+uuid.NewString())
	if err != nil {
		return nil, err
	}
	cfg, err := s.domainSettings(ctx, domain)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	p.Domain = domain
	p.ID = personID
	p.OriginalDomain = domain
	p.EntryDate = now
	if p.SourceDate == nil {
		p.SourceDate = &now
	}
	if p.ExpiryDate == nil && cfg.DefaultExpiryDays > 0 {
		expiry := now.Add(time.Duration(cfg.DefaultExpiryDays) * 24 * time.Hour)
		p.ExpiryDate = &expiry
	}
	p.IsExpired, p.TombstonedAt = false, nil
	p.LatestStatus, p.LatestFound, p.LatestStatusDate = models.StatusUnspecified, models.FoundUnknown, nil
	p.LinkedPersonIDs = nil

	if err := s.store.CreatePerson(ctx, p); err != nil {
		return nil, storageErr(err, "store person")
	}
	s.logger.InfoContext(ctx, "person created",
		"request_id", requestcontext.RequestID(ctx),
		"domain", domain,
		"person_id", p.ID,
	)
	return p, nil
}

// ImportPerson stores a clone received from another domain, preserving its
// original_domain. An existing id fails with CodeDuplicate and is left untouched.
func (s *Service) ImportPerson(ctx context.Context, domain string, person *models.Person) error {
	if err := id.ValidateDomain(domain); err != nil {
		return err
	}
	p := person.Clone()
	if err := parseRecordID(p.ID, "person_record_id"); err != nil {
		return err
	}
	p.Domain = domain
	if p.OriginalDomain == "" {
		p.OriginalDomain = p.ID.Domain()
	}
	err := s.store.CreatePerson(ctx, p)
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Newf(dErrors.CodeDuplicate, "person %q already exists", p.ID)
	}
	return storageErr(err, "store person")
}

// Read returns a person with its visible notes. Sensitive fields are blanked
// unless the caller holds full-read permission.
func (s *Service) Read(ctx context.Context, domain string, personID id.RecordID) (*PersonView, error) {
	if err := parseRecordID(personID, "id"); err != nil {
		return nil, err
	}
	cfg, err := s.domainSettings(ctx, domain)
	if err != nil {
		return nil, err
	}
	if cfg.ReadAuthRequired && !requestcontext.Principal(ctx).Authenticated() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "reads require an authenticated caller")
	}
	p, err := s.store.FindPerson(ctx, domain, personID)
	if err != nil {
		return nil, storageErr(err, "load person")
	}
	notes, err := s.store.ListNotes(ctx, domain, personID)
	if err != nil {
		return nil, storageErr(err, "list notes")
	}
	models.SortNotes(notes)

	view := &PersonView{Person: p, Notes: make([]*models.Note, 0, len(notes))}
	for _, n := range notes {
		if n.Visible() {
			view.Notes = append(view.Notes, n)
		}
	}
	if !requestcontext.Principal(ctx).FullRead {
		view.Person.Redact()
		for _, n := range view.Notes {
			n.Redact()
		}
	}
	return view, nil
}

// GetLinkedPersons returns the persons this person's notes link to, in note
// order. Links are directional; targets that no longer resolve are skipped,
// as are links on hidden or quarantined notes.
func (s *Service) GetLinkedPersons(ctx context.Context, domain string, personID id.RecordID) ([]*models.Person, error) {
	p, err := s.store.FindPerson(ctx, domain, personID)
	if err != nil {
		return nil, storageErr(err, "load person")
	}
	notes, err := s.store.ListNotes(ctx, domain, personID)
	if err != nil {
		return nil, storageErr(err, "list notes")
	}
	models.SortNotes(notes)

	seen := map[id.RecordID]struct{}{p.ID: {}}
	var linked []*models.Person
	for _, n := range notes {
		if n.LinkedPersonID.IsZero() || !n.Visible() {
			continue
		}
		if _, ok := seen[n.LinkedPersonID]; ok {
			continue
		}
		seen[n.LinkedPersonID] = struct{}{}
		target, err := s.store.FindPerson(ctx, domain, n.LinkedPersonID)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, storageErr(err, "load linked person")
		}
		linked = append(linked, target)
	}
	return linked, nil
}

// Stats counts the domain's persons and notes.
func (s *Service) Stats(ctx context.Context, domain string) (models.Counts, error) {
	if err := id.ValidateDomain(domain); err != nil {
		return models.Counts{}, err
	}
	counts, err := s.store.Counts(ctx, domain)
	if err != nil {
		return models.Counts{}, storageErr(err, "count records")
	}
	return counts, nil
}

// SetNotesDisabled toggles whether non-privileged callers may append notes.
func (s *Service) SetNotesDisabled(ctx context.Context, domain string, personID id.RecordID, disabled bool) (*models.Person, error) {
	if err := requirePrivileged(ctx); err != nil {
		return nil, err
	}
	var updated *models.Person
	err := s.tx.RunInTx(ctx, personID, func(ctx context.Context, st store.Store) error {
		p, err := loadLivePerson(ctx, st, domain, personID)
		if err != nil {
			return err
		}
		p.NotesDisabled = disabled
		if err := st.UpdatePerson(ctx, p); err != nil {
			return storageErr(err, "update person")
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementModeration(domain, "notes_disabled")
	return updated, nil
}

// Feed lists the domain's persons for export, live records first and then
// expired ones, tombstones included so mirrors observe deletions. Each view
// carries the person's visible notes. Nothing is redacted here.
func (s *Service) Feed(ctx context.Context, domain string, limit int) ([]*PersonView, error) {
	if err := id.ValidateDomain(domain); err != nil {
		return nil, err
	}
	live, err := s.store.ListPersons(ctx, domain, models.ListFilter{Limit: limit})
	if err != nil {
		return nil, storageErr(err, "list persons")
	}
	persons := live
	if limit <= 0 || len(persons) < limit {
		rest := 0
		if limit > 0 {
			rest = limit - len(persons)
		}
		expired, err := s.store.ListPersons(ctx, domain, models.ListFilter{Expired: true, Limit: rest})
		if err != nil {
			return nil, storageErr(err, "list expired persons")
		}
		persons = append(persons, expired...)
	}

	views := make([]*PersonView, 0, len(persons))
	for _, p := range persons {
		view := &PersonView{Person: p}
		if !p.IsTombstoned() {
			notes, err := s.store.ListNotes(ctx, domain, p.ID)
			if err != nil {
				return nil, storageErr(err, "list notes")
			}
			models.SortNotes(notes)
			for _, n := range notes {
				if n.Visible() {
					view.Notes = append(view.Notes, n)
				}
			}
		}
		views = append(views, view)
	}
	return views, nil
}
