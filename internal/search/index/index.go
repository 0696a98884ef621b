// Package index is the local search index: name matches and all-field
// matches for a query within one domain.
package index

import (
	"context"

	"personfinder/internal/person/models"
	"personfinder/internal/search/query"
	id "personfinder/pkg/domain"
	dErrors "personfinder/pkg/domain-errors"
)

// Hits are the two ranked lists a local search produces.
type Hits struct {
	NameMatches []*models.Person
	AllMatches  []*models.Person
}

// Index answers local searches. Expired persons never match.
type Index interface {
	Search(ctx context.Context, domain string, q query.Query, limit int) (*Hits, error)
}

// PersonSearcher is the slice of the person store the store index needs.
type PersonSearcher interface {
	SearchPersons(ctx context.Context, domain string, q query.Query, allFields bool, limit int) ([]*models.Person, error)
}

// StoreIndex searches the person store's token columns directly.
type StoreIndex struct {
	store PersonSearcher
}

func NewStoreIndex(store PersonSearcher) *StoreIndex {
	return &StoreIndex{store: store}
}

func (i *StoreIndex) Search(ctx context.Context, domain string, q query.Query, limit int) (*Hits, error) {
	names, err := i.store.SearchPersons(ctx, domain, q, false, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "search names")
	}
	all, err := i.store.SearchPersons(ctx, domain, q, true, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "search all fields")
	}
	query.SortByRelevance(names, q)
	return &Hits{NameMatches: names, AllMatches: all}, nil
}

// Resolver loads the persons an external index refers to.
type Resolver interface {
	FindPerson(ctx context.Context, domain string, personID id.RecordID) (*models.Person, error)
}
