package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"personfinder/internal/person/models"
	"personfinder/internal/search/query"
	id "personfinder/pkg/domain"
	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/platform/sentinel"
)

// ElasticConfig addresses the cluster and index holding person documents.
type ElasticConfig struct {
	URL        string
	Index      string
	MaxRetries int
}

// Elastic is an Index backed by Elasticsearch. Documents carry only ids and
// tokens; hits are resolved against the person store so results always
// reflect the stored record.
type Elastic struct {
	client   *es.Client
	index    string
	resolver Resolver
	logger   *slog.Logger
}

type document struct {
	Domain         string    `json:"domain"`
	PersonRecordID string    `json:"person_record_id"`
	NameTokens     []string  `json:"name_tokens"`
	AllTokens      []string  `json:"all_tokens"`
	Expired        bool      `json:"expired"`
	EntryDate      time.Time `json:"entry_date"`
}

const mapping = `{
  "mappings": {
    "properties": {
      "domain":           {"type": "keyword"},
      "person_record_id": {"type": "keyword"},
      "name_tokens":      {"type": "keyword"},
      "all_tokens":       {"type": "keyword"},
      "expired":          {"type": "boolean"},
      "entry_date":       {"type": "date"}
    }
  }
}`

// NewElastic connects to cfg.URL and pings it.
func NewElastic(ctx context.Context, cfg ElasticConfig, resolver Resolver, logger *slog.Logger) (*Elastic, error) {
	address := cfg.URL
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}
	client, err := es.NewClient(es.Config{Addresses: []string{address}, MaxRetries: cfg.MaxRetries})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Elastic{client: client, index: cfg.Index, resolver: resolver, logger: logger}

	res, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("ping", res)
	}
	return e, nil
}

// EnsureIndex creates the index with its mapping when missing.
func (e *Elastic) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	res, err = e.client.Indices.Create(e.index,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	return nil
}

// Sync writes documents for persons, marking expired ones so they stop matching.
func (e *Elastic) Sync(ctx context.Context, persons []*models.Person) (int, error) {
	if len(persons) == 0 {
		return 0, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, p := range persons {
		meta := map[string]any{"index": map[string]any{"_index": e.index, "_id": docID(p.Domain, p.ID)}}
		if err := enc.Encode(meta); err != nil {
			return 0, err
		}
		if err := enc.Encode(document{
			Domain:         p.Domain,
			PersonRecordID: string(p.ID),
			NameTokens:     query.NameTokens(p),
			AllTokens:      query.AllTokens(p),
			Expired:        p.IsExpired,
			EntryDate:      p.EntryDate,
		}); err != nil {
			return 0, err
		}
	}

	res, err := e.client.Bulk(bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithContext(ctx),
		e.client.Bulk.WithIndex(e.index),
	)
	if err != nil {
		return 0, fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, responseError("bulk index", res)
	}
	var bulk struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulk); err != nil {
		return 0, fmt.Errorf("decode bulk response: %w", err)
	}
	if bulk.Errors {
		return 0, errors.New("bulk index reported item errors")
	}
	return len(persons), nil
}

func (e *Elastic) Search(ctx context.Context, domain string, q query.Query, limit int) (*Hits, error) {
	nameIDs, err := e.searchIDs(ctx, domain, "name_tokens", q, limit)
	if err != nil {
		return nil, err
	}
	allIDs, err := e.searchIDs(ctx, domain, "all_tokens", q, limit)
	if err != nil {
		return nil, err
	}
	names, err := e.resolve(ctx, domain, nameIDs)
	if err != nil {
		return nil, err
	}
	all, err := e.resolve(ctx, domain, allIDs)
	if err != nil {
		return nil, err
	}
	query.SortByRelevance(names, q)
	return &Hits{NameMatches: names, AllMatches: all}, nil
}

func (e *Elastic) searchIDs(ctx context.Context, domain, field string, q query.Query, limit int) ([]string, error) {
	must := make([]map[string]any, 0, len(q.Words))
	for _, w := range q.Words {
		must = append(must, map[string]any{"prefix": map[string]any{field: w}})
	}
	body := map[string]any{
		"_source": []string{"person_record_id"},
		"query": map[string]any{
			"bool": map[string]any{
				"must": must,
				"filter": []map[string]any{
					{"term": map[string]any{"domain": domain}},
					{"term": map[string]any{"expired": false}},
				},
			},
		},
		"sort": []any{"_score", map[string]any{"entry_date": "asc"}},
	}
	if limit > 0 {
		body["size"] = limit
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "elasticsearch search")
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, dErrors.Wrap(responseError("search", res), dErrors.CodeStorage, "elasticsearch search")
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source struct {
					PersonRecordID string `json:"person_record_id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "decode search response")
	}
	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		ids = append(ids, h.Source.PersonRecordID)
	}
	return ids, nil
}

// resolve drops ids the store no longer knows or that expired since indexing.
func (e *Elastic) resolve(ctx context.Context, domain string, ids []string) ([]*models.Person, error) {
	persons := make([]*models.Person, 0, len(ids))
	for _, raw := range ids {
		personID, err := id.ParseRecordID(raw)
		if err != nil {
			continue
		}
		p, err := e.resolver.FindPerson(ctx, domain, personID)
		if errors.Is(err, sentinel.ErrNotFound) {
			e.logger.DebugContext(ctx, "index refers to unknown person", "domain", domain, "person_id", raw)
			continue
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeStorage, "resolve index hit")
		}
		if p.IsExpired {
			continue
		}
		persons = append(persons, p)
	}
	return persons, nil
}

func docID(domain string, personID id.RecordID) string {
	return domain + ":" + string(personID)
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("elasticsearch %s failed [%d]: %s", op, res.StatusCode, string(body))
}

// PersonLister is the slice of the person store Reindex needs.
type PersonLister interface {
	ListPersons(ctx context.Context, domain string, filter models.ListFilter) ([]*models.Person, error)
}

// Reindex rewrites every document of domain from the store.
func (e *Elastic) Reindex(ctx context.Context, lister PersonLister, domain string) (int, error) {
	live, err := lister.ListPersons(ctx, domain, models.ListFilter{})
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "list live persons")
	}
	expired, err := lister.ListPersons(ctx, domain, models.ListFilter{Expired: true})
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "list expired persons")
	}
	n, err := e.Sync(ctx, append(live, expired...))
	if err != nil {
		return 0, err
	}
	e.logger.InfoContext(ctx, "search index rebuilt", "domain", domain, "documents", n)
	return n, nil
}
