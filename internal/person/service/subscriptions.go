package service

import (
	"context"
	"strings"

	"personfinder/internal/person/models"
	"personfinder/internal/person/store"
	id "personfinder/pkg/domain"
	"personfinder/pkg/email"
	"personfinder/pkg/requestcontext"
)

const defaultLanguage = "en"

// Subscribe registers email for notifications on a live person. Subscribing
// again with the same email updates the language; created reports which
// happened.
func (s *Service) Subscribe(ctx context.Context, domain string, personID id.RecordID, address, language string) (created bool, err error) {
	if err := parseRecordID(personID, "id"); err != nil {
		return false, err
	}
	normalized, err := email.Normalize(address)
	if err != nil {
		return false, err
	}
	language = strings.TrimSpace(language)
	if language == "" {
		language = defaultLanguage
	}
	// The liveness check and the upsert share the person's lock so a sweep
	// cannot tombstone the person in between.
	err = s.tx.RunInTx(ctx, personID, func(ctx context.Context, st store.Store) error {
		if _, err := loadLivePerson(ctx, st, domain, personID); err != nil {
			return err
		}
		var upsertErr error
		created, upsertErr = st.UpsertSubscription(ctx, &models.Subscription{
			Domain:    domain,
			PersonID:  personID,
			Email:     normalized,
			Language:  language,
			CreatedAt: requestcontext.Now(ctx),
		})
		return storageErr(upsertErr, "store subscription")
	})
	if err != nil {
		return false, err
	}

	action := "updated"
	if created {
		action = "created"
	}
	s.metrics.IncrementSubscription(domain, action)
	s.logger.InfoContext(ctx, "subscription "+action,
		"request_id", requestcontext.RequestID(ctx),
		"domain", domain,
		"person_id", personID,
		"email", email.Mask(normalized),
	)
	return created, nil
}

// Unsubscribe removes a subscription and reports whether one existed.
func (s *Service) Unsubscribe(ctx context.Context, domain string, personID id.RecordID, address string) (bool, error) {
	if err := parseRecordID(personID, "id"); err != nil {
		return false, err
	}
	normalized, err := email.Normalize(address)
	if err != nil {
		return false, err
	}
	removed, err := s.store.DeleteSubscription(ctx, domain, personID, normalized)
	if err != nil {
		return false, storageErr(err, "delete subscription")
	}
	if removed {
		s.metrics.IncrementSubscription(domain, "removed")
	}
	return removed, nil
}
