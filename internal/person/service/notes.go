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
	"personfinder/pkg/email"
	"personfinder/pkg/platform/outbox"
	"personfinder/pkg/platform/sentinel"
	"personfinder/pkg/requestcontext"
)

// AppendResult reports where an appended note ended up.
type AppendResult struct {
	Note *models.Note
	// Quarantined notes wait for author confirmation and do not affect the person yet.
	Quarantined bool
}

// AppendNote stores a locally written note and folds it into the person.
func (s *Service) AppendNote(ctx context.Context, domain string, note *models.Note) (*AppendResult, error) {
	if err := id.ValidateDomain(domain); err != nil {
		return nil, err
	}
	n := note.Clone()
	if err := validateNote(n); err != nil {
		return nil, err
	}
	if n.ID == "" {
		noteID, err := id.MakeID(domain, "note."+uuid.NewString())
		if err != nil {
			return nil, err
		}
		n.ID = noteID
	} else if n.ID.Domain() != domain {
		return nil, dErrors.Newf(dErrors.CodeValidation, "note id %q is not in domain %q", n.ID, domain)
	}

	cfg, err := s.domainSettings(ctx, domain)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	n.Domain = domain
	n.OriginalDomain = domain
	n.EntryDate = now
	if n.SourceDate == nil {
		n.SourceDate = &now
	}
	n.SpamScore = s.spam.Score(n.Text, cfg.BadWords)
	n.Quarantined = cfg.SpamThreshold > 0 && n.SpamScore > cfg.SpamThreshold
	n.Hidden, n.Reviewed = false, false

	privileged := requestcontext.Principal(ctx).Privileged
	err = s.tx.RunInTx(ctx, n.PersonID, func(ctx context.Context, st store.Store) error {
		p, err := loadLivePerson(ctx, st, domain, n.PersonID)
		if err != nil {
			return err
		}
		if p.NotesDisabled && !privileged {
			return dErrors.New(dErrors.CodeValidation, "notes are disabled for this record")
		}
		if err := createNote(ctx, st, n); err != nil {
			return err
		}
		if n.Quarantined {
			return nil
		}
		return s.accept(ctx, st, p, n)
	})
	if err != nil {
		return nil, err
	}

	if n.Quarantined {
		s.metrics.IncrementNotes(domain, "quarantined")
		s.logger.InfoContext(ctx, "note quarantined as possible spam",
			"request_id", requestcontext.RequestID(ctx),
			"domain", domain,
			"note_id", n.ID,
			"spam_score", n.SpamScore,
		)
	} else {
		s.metrics.IncrementNotes(domain, "accepted")
	}
	return &AppendResult{Note: n, Quarantined: n.Quarantined}, nil
}

// ConfirmNote releases a quarantined note into the projection. Confirming an
// already released note is a no-op.
func (s *Service) ConfirmNote(ctx context.Context, domain string, noteID id.RecordID) (*models.Note, error) {
	existing, err := s.store.FindNote(ctx, domain, noteID)
	if err != nil {
		return nil, storageErr(err, "load note")
	}
	var confirmed *models.Note
	err = s.tx.RunInTx(ctx, existing.PersonID, func(ctx context.Context, st store.Store) error {
		n, err := st.FindNote(ctx, domain, noteID)
		if err != nil {
			return storageErr(err, "load note")
		}
		confirmed = n
		if !n.Quarantined {
			return nil
		}
		p, err := loadLivePerson(ctx, st, domain, n.PersonID)
		if err != nil {
			return err
		}
		n.Quarantined = false
		if err := st.UpdateNoteFlags(ctx, n); err != nil {
			return storageErr(err, "release note")
		}
		return s.accept(ctx, st, p, n)
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// ImportNote stores a note received from another domain. The note must be
// fully populated by the caller; duplicates fail with CodeDuplicate. The
// duplicate check runs before the person checks, so a re-import stays a
// duplicate after notes are disabled. A note for a tombstoned person is also
// reported as a duplicate: the tombstone already superseded it.
func (s *Service) ImportNote(ctx context.Context, domain string, n *models.Note) error {
	if err := id.ValidateDomain(domain); err != nil {
		return err
	}
	if err := validateNote(n); err != nil {
		return err
	}
	err := s.tx.RunInTx(ctx, n.PersonID, func(ctx context.Context, st store.Store) error {
		_, err := st.FindNote(ctx, domain, n.ID)
		switch {
		case err == nil:
			return dErrors.Newf(dErrors.CodeDuplicate, "note %q already exists", n.ID)
		case !errors.Is(err, sentinel.ErrNotFound):
			return storageErr(err, "load note")
		}

		p, err := st.FindPerson(ctx, domain, n.PersonID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeValidation, "no person with id %q", n.PersonID)
		}
		if err != nil {
			return storageErr(err, "load person")
		}
		if p.IsTombstoned() {
			return dErrors.Newf(dErrors.CodeDuplicate, "person %q has been deleted", n.PersonID)
		}
		if p.NotesDisabled {
			return dErrors.New(dErrors.CodeValidation, "notes are disabled for this record")
		}
		if err := createNote(ctx, st, n); err != nil {
			return err
		}
		return s.accept(ctx, st, p, n)
	})
	if err != nil {
		return err
	}
	s.metrics.IncrementNotes(domain, "imported")
	return nil
}

func validateNote(n *models.Note) error {
	if err := parseRecordID(n.PersonID, "person_id"); err != nil {
		return err
	}
	if !n.LinkedPersonID.IsZero() {
		if err := parseRecordID(n.LinkedPersonID, "linked_person_id"); err != nil {
			return err
		}
	}
	if strings.TrimSpace(n.Text) == "" {
		return dErrors.New(dErrors.CodeValidation, "note text is required")
	}
	return nil
}

func createNote(ctx context.Context, st store.Store, n *models.Note) error {
	err := st.CreateNote(ctx, n)
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Newf(dErrors.CodeDuplicate, "note %q already exists", n.ID)
	}
	return storageErr(err, "store note")
}

// accept recomputes the projection after n became visible and queues the
// resulting events. It runs inside the caller's per-person transaction.
func (s *Service) accept(ctx context.Context, st store.Store, p *models.Person, n *models.Note) error {
	previous := p.LatestStatus
	if err := s.reproject(ctx, st, p); err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	if err := s.recordTransition(ctx, p, n, previous, now); err != nil {
		return err
	}

	subs, err := st.ListSubscriptions(ctx, p.Domain, p.ID)
	if err != nil {
		return storageErr(err, "list subscriptions")
	}
	for _, sub := range subs {
		event := outbox.NewEvent(outbox.EventNoteAdded, p.Domain, string(p.ID), now, map[string]any{
			"person_id": string(p.ID),
			"note_id":   string(n.ID),
			"email":     sub.Email,
			"language":  sub.Language,
		})
		event.RequestID = requestcontext.RequestID(ctx)
		if err := s.events.Append(ctx, event); err != nil {
			return storageErr(err, "queue subscriber notification")
		}
		s.logger.DebugContext(ctx, "subscriber notification queued",
			"person_id", p.ID,
			"email", email.Mask(sub.Email),
		)
	}
	return nil
}

// reproject reloads the person's notes and rewrites the derived fields.
func (s *Service) reproject(ctx context.Context, st store.Store, p *models.Person) error {
	notes, err := st.ListNotes(ctx, p.Domain, p.ID)
	if err != nil {
		return storageErr(err, "list notes")
	}
	p.Project(notes)
	if err := st.UpdatePerson(ctx, p); err != nil {
		return storageErr(err, "update person")
	}
	return nil
}

// recordTransition logs and publishes the two transitions operators watch:
// a note reporting the person dead, and a note reporting them alive when they
// were not already believed alive. Only notes that now drive the projection count.
func (s *Service) recordTransition(ctx context.Context, p *models.Person, n *models.Note, previous models.Status, now time.Time) error {
	if p.LatestStatus != n.Status {
		return nil
	}
	var eventType outbox.EventType
	switch {
	case n.Status == models.StatusBelievedDead:
		eventType = outbox.EventBelievedDead
		s.logger.WarnContext(ctx, "person reported believed dead",
			"request_id", requestcontext.RequestID(ctx),
			"domain", p.Domain,
			"person_id", p.ID,
			"note_id", n.ID,
			"previous_status", previous.String(),
		)
	case n.Status.IsAlive() && !previous.IsAlive():
		eventType = outbox.EventReportedAlive
		s.logger.InfoContext(ctx, "person reported alive",
			"request_id", requestcontext.RequestID(ctx),
			"domain", p.Domain,
			"person_id", p.ID,
			"note_id", n.ID,
			"previous_status", previous.String(),
			"status", n.Status.String(),
		)
	default:
		return nil
	}
	s.metrics.IncrementTransition(p.Domain, string(eventType))

	event := outbox.NewEvent(eventType, p.Domain, string(p.ID), now, map[string]any{
		"person_id":       string(p.ID),
		"note_id":         string(n.ID),
		"previous_status": previous.String(),
		"status":          n.Status.String(),
	})
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.events.Append(ctx, event); err != nil {
		return storageErr(err, "queue status event")
	}
	return nil
}
