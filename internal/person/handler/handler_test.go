package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"personfinder/internal/person/handler/mocks"
	"personfinder/internal/person/models"
	"personfinder/internal/person/service"
	id "personfinder/pkg/domain"
	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks Service
type PersonHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestPersonHandlerSuite(t *testing.T) {
	suite.Run(t, new(PersonHandlerSuite))
}

func (s *PersonHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	s.router.Route("/{domain}", New(s.service, logger).Register)
}

func (s *PersonHandlerSuite) do(method, target string, body any) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), method, target, body))
}

func (s *PersonHandlerSuite) decode(w *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v))
}

func (s *PersonHandlerSuite) TestRead() {
	entry := time.Date(2010, 1, 13, 0, 0, 0, 0, time.UTC)
	s.Run("returns the person with notes", func() {
		s.service.EXPECT().Read(gomock.Any(), "haiti", id.RecordID("haiti/person.1")).Return(&service.PersonView{
			Person: &models.Person{
				Domain: "haiti", ID: "haiti/person.1", OriginalDomain: "haiti",
				FullName: "Marie Joseph", EntryDate: entry,
				LatestStatus: models.StatusBelievedAlive, LatestFound: models.FoundTrue,
				LinkedPersonIDs: []id.RecordID{"haiti/person.2"},
			},
			Notes: []*models.Note{{Domain: "haiti", ID: "haiti/note.1", PersonID: "haiti/person.1", Status: models.StatusBelievedAlive, EntryDate: entry, Text: "safe"}},
		}, nil)

		w := s.do(http.MethodGet, "/haiti/read?id=haiti/person.1", nil)
		s.Require().Equal(http.StatusOK, w.Code)

		var resp PersonResponse
		s.decode(w, &resp)
		s.Equal("haiti/person.1", resp.PersonRecordID)
		s.Equal("believed_alive", resp.LatestStatus)
		s.Equal("true", resp.LatestFound)
		s.Equal([]string{"haiti/person.2"}, resp.LinkedPersonIDs)
		s.Require().Len(resp.Notes, 1)
		s.Equal("safe", resp.Notes[0].Text)
		s.Equal("2010-01-13T00:00:00Z", resp.EntryDate)
	})

	s.Run("not found maps to 404", func() {
		s.service.EXPECT().Read(gomock.Any(), "haiti", id.RecordID("haiti/person.x")).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "person not found"))

		w := s.do(http.MethodGet, "/haiti/read?id=haiti/person.x", nil)
		testutil.AssertStatusAndError(s.T(), w, http.StatusNotFound, "not_found")
	})

	s.Run("storage failures are opaque", func() {
		s.service.EXPECT().Read(gomock.Any(), "haiti", gomock.Any()).
			Return(nil, dErrors.Wrap(errors.New("pq: too many connections"), dErrors.CodeStorage, "load person"))

		w := s.do(http.MethodGet, "/haiti/read?id=haiti/person.1", nil)
		s.Equal(http.StatusInternalServerError, w.Code)
		s.NotContains(w.Body.String(), "too many connections")
	})
}

func (s *PersonHandlerSuite) TestCreatePerson() {
	s.Run("trims and converts the request", func() {
		s.service.EXPECT().CreatePerson(gomock.Any(), "haiti", gomock.Any()).
			DoAndReturn(func(_ any, _ string, p *models.Person) (*models.Person, error) {
				s.Equal("Marie", p.GivenName)
				s.Require().NotNil(p.ExpiryDate)
				s.Equal(2010, p.ExpiryDate.Year())
				p.ID = "haiti/person.new"
				p.Domain = "haiti"
				return p, nil
			})

		w := s.do(http.MethodPost, "/haiti/persons", map[string]string{
			"given_name":  "  Marie ",
			"expiry_date": "2010-03-01T00:00:00Z",
		})
		s.Require().Equal(http.StatusCreated, w.Code)
		var resp PersonResponse
		s.decode(w, &resp)
		s.Equal("haiti/person.new", resp.PersonRecordID)
	})

	s.Run("bad date is a validation error", func() {
		w := s.do(http.MethodPost, "/haiti/persons", map[string]string{"full_name": "X", "expiry_date": "tomorrow"})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("unknown fields are rejected", func() {
		w := s.do(http.MethodPost, "/haiti/persons", map[string]string{"nickname": "X"})
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *PersonHandlerSuite) TestAppendNote() {
	s.Run("accepted note returns 201", func() {
		s.service.EXPECT().AppendNote(gomock.Any(), "haiti", gomock.Any()).
			DoAndReturn(func(_ any, _ string, n *models.Note) (*service.AppendResult, error) {
				s.Equal(models.StatusBelievedDead, n.Status)
				s.Equal(models.FoundFalse, n.Found)
				n.ID = "haiti/note.1"
				return &service.AppendResult{Note: n}, nil
			})

		w := s.do(http.MethodPost, "/haiti/notes", map[string]string{
			"person_record_id": "haiti/person.1",
			"status":           "believed_dead",
			"found":            "false",
			"text":             "sad news",
		})
		s.Equal(http.StatusCreated, w.Code)
	})

	s.Run("quarantined note returns 202", func() {
		s.service.EXPECT().AppendNote(gomock.Any(), "haiti", gomock.Any()).
			DoAndReturn(func(_ any, _ string, n *models.Note) (*service.AppendResult, error) {
				n.Quarantined = true
				return &service.AppendResult{Note: n, Quarantined: true}, nil
			})

		w := s.do(http.MethodPost, "/haiti/notes", map[string]string{"person_record_id": "haiti/person.1", "text": "casino"})
		s.Equal(http.StatusAccepted, w.Code)
		var resp NoteResponse
		s.decode(w, &resp)
		s.True(resp.Quarantined)
	})

	s.Run("invalid status never reaches the service", func() {
		w := s.do(http.MethodPost, "/haiti/notes", map[string]string{"person_record_id": "haiti/person.1", "status": "gone"})
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *PersonHandlerSuite) TestModeration() {
	s.Run("flag", func() {
		s.service.EXPECT().FlagNote(gomock.Any(), "haiti", id.RecordID("haiti/note.1"), "spam").
			Return(&models.Note{ID: "haiti/note.1", Hidden: true}, nil)
		w := s.do(http.MethodPost, "/haiti/notes/flag", map[string]string{"note_record_id": "haiti/note.1", "reason": "spam"})
		s.Require().Equal(http.StatusOK, w.Code)
		var resp NoteResponse
		s.decode(w, &resp)
		s.True(resp.Hidden)
	})

	s.Run("review queue filters by status", func() {
		s.service.EXPECT().ReviewQueue(gomock.Any(), "haiti", gomock.Any(), 10).
			DoAndReturn(func(_ any, _ string, st *models.Status, _ int) ([]*models.Note, error) {
				s.Require().NotNil(st)
				s.Equal(models.StatusBelievedDead, *st)
				return []*models.Note{{ID: "haiti/note.2"}}, nil
			})
		w := s.do(http.MethodGet, "/haiti/review?status=believed_dead&limit=10", nil)
		s.Require().Equal(http.StatusOK, w.Code)
		var resp struct {
			Notes []NoteResponse `json:"notes"`
		}
		s.decode(w, &resp)
		s.Len(resp.Notes, 1)
	})

	s.Run("review queue all statuses", func() {
		s.service.EXPECT().ReviewQueue(gomock.Any(), "haiti", (*models.Status)(nil), 0).Return(nil, nil)
		w := s.do(http.MethodGet, "/haiti/review?status=all", nil)
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("review requires privilege", func() {
		s.service.EXPECT().ReviewNote(gomock.Any(), "haiti", id.RecordID("haiti/note.1"), service.ReviewFlag).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "privileged caller required"))
		w := s.do(http.MethodPost, "/haiti/review", map[string]string{"note_record_id": "haiti/note.1", "action": "flag"})
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("unknown review action", func() {
		w := s.do(http.MethodPost, "/haiti/review", map[string]string{"note_record_id": "haiti/note.1", "action": "delete"})
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *PersonHandlerSuite) TestSubscriptions() {
	s.Run("new subscription returns 201", func() {
		s.service.EXPECT().Subscribe(gomock.Any(), "haiti", id.RecordID("haiti/person.1"), "a@example.org", "fr").Return(true, nil)
		w := s.do(http.MethodPost, "/haiti/subscribe", map[string]string{"person_record_id": "haiti/person.1", "email": "a@example.org", "lang": "fr"})
		s.Equal(http.StatusCreated, w.Code)
	})

	s.Run("resubscribe returns 200", func() {
		s.service.EXPECT().Subscribe(gomock.Any(), "haiti", gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
		w := s.do(http.MethodPost, "/haiti/subscribe", map[string]string{"person_record_id": "haiti/person.1", "email": "a@example.org"})
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("unsubscribe reports removal", func() {
		s.service.EXPECT().Unsubscribe(gomock.Any(), "haiti", id.RecordID("haiti/person.1"), "a@example.org").Return(true, nil)
		w := s.do(http.MethodPost, "/haiti/unsubscribe", map[string]string{"person_record_id": "haiti/person.1", "email": "a@example.org"})
		s.Require().Equal(http.StatusOK, w.Code)
		var resp map[string]bool
		s.decode(w, &resp)
		s.True(resp["removed"])
	})
}

func (s *PersonHandlerSuite) TestStats() {
	s.service.EXPECT().Stats(gomock.Any(), "haiti").Return(models.Counts{Persons: 3, LivePersons: 2}, nil)
	w := s.do(http.MethodGet, "/haiti/stats", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var resp models.Counts
	s.decode(w, &resp)
	s.Equal(3, resp.Persons)
	s.Equal(2, resp.LivePersons)
}
