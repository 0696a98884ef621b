package federated

import (
	"context"
	"errors"

	"personfinder/internal/person/models"
	"personfinder/internal/search/query"
	id "personfinder/pkg/domain"
	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/platform/sentinel"
)

// Result is one ranked search hit.
type Result struct {
	Person    *models.Person
	NameMatch bool
	// AddressMatch is set for hits found by the all-field search, including
	// name matches that the all-field search also returned.
	AddressMatch bool
}

// Resolver looks up peer-referenced ids in the local store.
type Resolver interface {
	FindPerson(ctx context.Context, domain string, personID id.RecordID) (*models.Person, error)
}

// Combine merges name matches with all-field matches: name matches are
// re-ranked against q, all-field matches not already present follow in their
// given order, and the list is cut to maxResults.
func Combine(names, all []*models.Person, q query.Query, maxResults int) []Result {
	names = dedupe(names)
	query.SortByRelevance(names, q)

	inAll := make(map[id.RecordID]struct{}, len(all))
	for _, p := range all {
		inAll[p.ID] = struct{}{}
	}

	results := make([]Result, 0, len(names)+len(all))
	seen := make(map[id.RecordID]struct{}, len(names)+len(all))
	for _, p := range names {
		_, both := inAll[p.ID]
		results = append(results, Result{Person: p, NameMatch: true, AddressMatch: both})
		seen[p.ID] = struct{}{}
	}
	for _, p := range all {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		results = append(results, Result{Person: p, AddressMatch: true})
	}
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// Merge resolves the payload's ids in domain, dropping ids that are
// malformed, unknown or expired here, and combines the two lists.
func Merge(ctx context.Context, resolver Resolver, domain string, payload *Payload, q query.Query, maxResults int) ([]Result, error) {
	names, err := resolve(ctx, resolver, domain, payload.NameEntries)
	if err != nil {
		return nil, err
	}
	all, err := resolve(ctx, resolver, domain, payload.AllEntries)
	if err != nil {
		return nil, err
	}
	return Combine(names, all, q, maxResults), nil
}

func resolve(ctx context.Context, resolver Resolver, domain string, entries []Entry) ([]*models.Person, error) {
	persons := make([]*models.Person, 0, len(entries))
	for _, e := range entries {
		personID, err := id.ParseRecordID(e.PersonRecordID)
		if err != nil {
			continue
		}
		p, err := resolver.FindPerson(ctx, domain, personID)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeStorage, "resolve peer result")
		}
		if p.IsExpired {
			continue
		}
		persons = append(persons, p)
	}
	return persons, nil
}

func dedupe(persons []*models.Person) []*models.Person {
	seen := make(map[id.RecordID]struct{}, len(persons))
	out := make([]*models.Person, 0, len(persons))
	for _, p := range persons {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
