package index

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"personfinder/internal/person/models"
	"personfinder/internal/person/store"
	"personfinder/internal/search/query"
	id "personfinder/pkg/domain"
)

const domain = "haiti"

func seedStore(t *testing.T) *store.InMemoryStore {
	t.Helper()
	st := store.NewInMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	persons := []*models.Person{
		{ID: "haiti/person.1", FullName: "Marie Joseph", HomeCity: "Jacmel"},
		{ID: "haiti/person.2", FullName: "Jean Marie", HomeCity: "Cap-Haitien"},
		{ID: "haiti/person.3", FullName: "Paul Duval", HomeStreet: "Rue Marie"},
		{ID: "haiti/person.4", FullName: "Marie Expired", IsExpired: true},
	}
	for i, p := range persons {
		p.Domain = domain
		p.EntryDate = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, st.CreatePerson(ctx, p))
	}
	require.NoError(t, st.CreatePerson(ctx, &models.Person{Domain: "other", ID: "other/person.1", FullName: "Marie Other"}))
	return st
}

func ids(persons []*models.Person) []id.RecordID {
	out := make([]id.RecordID, 0, len(persons))
	for _, p := range persons {
		out = append(out, p.ID)
	}
	return out
}

func TestStoreIndex(t *testing.T) {
	idx := NewStoreIndex(seedStore(t))

	hits, err := idx.Search(context.Background(), domain, query.Parse("marie"), 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []id.RecordID{"haiti/person.1", "haiti/person.2"}, ids(hits.NameMatches))
	assert.ElementsMatch(t, []id.RecordID{"haiti/person.1", "haiti/person.2", "haiti/person.3"}, ids(hits.AllMatches))

	hits, err = idx.Search(context.Background(), domain, query.Parse("jacmel"), 10)
	require.NoError(t, err)
	assert.Empty(t, hits.NameMatches)
	assert.Equal(t, []id.RecordID{"haiti/person.1"}, ids(hits.AllMatches))
}

// fakeElastic implements the handful of endpoints the index uses.
type fakeElastic struct {
	mu      sync.Mutex
	created bool
	docs    map[string]document
}

func (f *fakeElastic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/":
		_, _ = io.WriteString(w, `{"version":{"number":"8.13.0"},"tagline":"You Know, for Search"}`)
	case r.URL.Path == "/persons" && r.Method == http.MethodHead:
		if !f.created {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.URL.Path == "/persons" && r.Method == http.MethodPut:
		f.created = true
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		scanner := bufio.NewScanner(r.Body)
		for scanner.Scan() {
			var meta struct {
				Index struct {
					ID string `json:"_id"`
				} `json:"index"`
			}
			_ = json.Unmarshal(scanner.Bytes(), &meta)
			scanner.Scan()
			var doc document
			_ = json.Unmarshal(scanner.Bytes(), &doc)
			f.docs[meta.Index.ID] = doc
		}
		_, _ = io.WriteString(w, `{"errors":false,"items":[]}`)
	case strings.HasSuffix(r.URL.Path, "/_search"):
		var body struct {
			Query struct {
				Bool struct {
					Must   []map[string]map[string]string `json:"must"`
					Filter []map[string]map[string]any    `json:"filter"`
				} `json:"bool"`
			} `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		wantDomain := body.Query.Bool.Filter[0]["term"]["domain"]
		var hits []map[string]any
		for _, doc := range f.docs {
			if doc.Domain != wantDomain || doc.Expired {
				continue
			}
			if matchesAll(doc, body.Query.Bool.Must) {
				hits = append(hits, map[string]any{"_source": map[string]string{"person_record_id": doc.PersonRecordID}})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"hits": map[string]any{"hits": hits}})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func matchesAll(doc document, must []map[string]map[string]string) bool {
	for _, clause := range must {
		for field, word := range clause["prefix"] {
			tokens := doc.NameTokens
			if field == "all_tokens" {
				tokens = doc.AllTokens
			}
			found := false
			for _, tok := range tokens {
				if strings.HasPrefix(tok, word) {
					found = true
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

type ElasticSuite struct {
	suite.Suite
	fake  *fakeElastic
	srv   *httptest.Server
	store *store.InMemoryStore
	index *Elastic
}

func TestElasticSuite(t *testing.T) {
	suite.Run(t, new(ElasticSuite))
}

func (s *ElasticSuite) SetupTest() {
	s.fake = &fakeElastic{docs: map[string]document{}}
	s.srv = httptest.NewServer(s.fake)
	s.T().Cleanup(s.srv.Close)
	s.store = seedStore(s.T())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	idx, err := NewElastic(context.Background(), ElasticConfig{URL: s.srv.URL, Index: "persons"}, s.store, logger)
	s.Require().NoError(err)
	s.index = idx
}

func (s *ElasticSuite) TestEnsureIndexCreatesOnce() {
	s.Require().NoError(s.index.EnsureIndex(context.Background()))
	s.True(s.fake.created)
	s.Require().NoError(s.index.EnsureIndex(context.Background()))
}

func (s *ElasticSuite) TestReindexAndSearch() {
	ctx := context.Background()
	n, err := s.index.Reindex(ctx, s.store, domain)
	s.Require().NoError(err)
	s.Equal(4, n)

	hits, err := s.index.Search(ctx, domain, query.Parse("marie"), 10)
	s.Require().NoError(err)
	s.ElementsMatch([]id.RecordID{"haiti/person.1", "haiti/person.2"}, ids(hits.NameMatches))
	s.ElementsMatch([]id.RecordID{"haiti/person.1", "haiti/person.2", "haiti/person.3"}, ids(hits.AllMatches))

	s.Run("documents for vanished persons are dropped", func() {
		s.fake.mu.Lock()
		s.fake.docs["haiti:haiti/person.9"] = document{Domain: domain, PersonRecordID: "haiti/person.9", NameTokens: []string{"marie"}}
		s.fake.mu.Unlock()

		hits, err := s.index.Search(ctx, domain, query.Parse("marie"), 10)
		s.Require().NoError(err)
		s.Len(hits.NameMatches, 2)
	})
}

func TestSyncEmpty(t *testing.T) {
	e := &Elastic{}
	n, err := e.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
