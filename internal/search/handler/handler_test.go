package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"personfinder/internal/person/models"
	"personfinder/internal/search/federated"
	"personfinder/internal/search/handler/mocks"
	"personfinder/internal/search/service"
	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks Service
type SearchHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	caller  requestcontext.Caller
}

func TestSearchHandlerSuite(t *testing.T) {
	suite.Run(t, new(SearchHandlerSuite))
}

func (s *SearchHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.caller = requestcontext.Caller{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithPrincipal(r.Context(), s.caller)))
		})
	})
	s.router.Route("/{domain}", New(s.service, logger).Register)
}

func (s *SearchHandlerSuite) get(target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func person() *models.Person {
	return &models.Person{
		Domain: "haiti", ID: "haiti/person.1", OriginalDomain: "haiti",
		FullName: "Marie Joseph", DateOfBirth: "1980-02-02", AuthorEmail: "a@example.org",
		LatestStatus: models.StatusBelievedAlive,
	}
}

func (s *SearchHandlerSuite) TestSearch() {
	s.Run("redacts results for ordinary callers", func() {
		s.service.EXPECT().Search(gomock.Any(), "haiti", "marie", 0).Return(&service.Response{
			Results: []federated.Result{{Person: person(), NameMatch: true}},
			Source:  service.SourceLocal,
		}, nil)

		w := s.get("/haiti/search?q=marie")
		s.Require().Equal(http.StatusOK, w.Code)

		var resp SearchResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal("marie", resp.Query)
		s.Equal(service.SourceLocal, resp.Source)
		s.Require().Len(resp.Results, 1)
		s.Equal("haiti/person.1", resp.Results[0].PersonRecordID)
		s.True(resp.Results[0].NameMatch)
		s.Equal("believed_alive", resp.Results[0].LatestStatus)
		s.Empty(resp.Results[0].DateOfBirth)
		s.Empty(resp.Results[0].AuthorEmail)
	})

	s.Run("full read callers see sensitive fields", func() {
		s.caller = requestcontext.Caller{Subject: "ops", FullRead: true}
		defer func() { s.caller = requestcontext.Caller{} }()
		s.service.EXPECT().Search(gomock.Any(), "haiti", "marie", 5).Return(&service.Response{
			Results:          []federated.Result{{Person: person(), AddressMatch: true}},
			Source:           service.SourceLocalAndPeers,
			PeersUnavailable: false,
		}, nil)

		w := s.get("/haiti/search?q=marie&max_results=5")
		s.Require().Equal(http.StatusOK, w.Code)

		var resp SearchResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Require().Len(resp.Results, 1)
		s.Equal("1980-02-02", resp.Results[0].DateOfBirth)
		s.Equal("a@example.org", resp.Results[0].AuthorEmail)
	})

	s.Run("reports unavailable peers", func() {
		s.service.EXPECT().Search(gomock.Any(), "haiti", "marie", 0).Return(&service.Response{
			Source: service.SourceLocal, PeersUnavailable: true,
		}, nil)

		w := s.get("/haiti/search?q=marie")
		s.Require().Equal(http.StatusOK, w.Code)

		var resp SearchResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.True(resp.PeersUnavailable)
		s.Empty(resp.Results)
	})

	s.Run("rejects a malformed max_results", func() {
		w := s.get("/haiti/search?q=marie&max_results=lots")
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("maps service errors", func() {
		s.service.EXPECT().Search(gomock.Any(), "haiti", "m", 0).
			Return(nil, dErrors.New(dErrors.CodeValidation, "query needs a word of at least 2 characters"))

		w := s.get("/haiti/search?q=m")
		s.Equal(http.StatusBadRequest, w.Code)
		s.Contains(w.Body.String(), "query needs a word")
	})

	s.Run("requires authentication when the domain asks for it", func() {
		s.service.EXPECT().Search(gomock.Any(), "haiti", "marie", 0).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "search requires authentication"))

		w := s.get("/haiti/search?q=marie")
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *SearchHandlerSuite) TestPeerQuery() {
	s.Run("returns id lists", func() {
		s.service.EXPECT().PeerPayload(gomock.Any(), "haiti", "marie").Return(&federated.Payload{
			NameEntries: []federated.Entry{{PersonRecordID: "haiti/person.1"}},
			AllEntries:  []federated.Entry{{PersonRecordID: "haiti/person.1"}, {PersonRecordID: "haiti/person.2"}},
		}, nil)

		w := s.get("/haiti/query?q=marie")
		s.Require().Equal(http.StatusOK, w.Code)

		payload, err := federated.DecodePayload(w.Body.Bytes())
		s.Require().NoError(err)
		s.Len(payload.NameEntries, 1)
		s.Len(payload.AllEntries, 2)
	})

	s.Run("storage failures are internal errors", func() {
		s.service.EXPECT().PeerPayload(gomock.Any(), "haiti", "marie").
			Return(nil, dErrors.Wrap(io.ErrUnexpectedEOF, dErrors.CodeStorage, "search index"))

		w := s.get("/haiti/query?q=marie")
		s.Equal(http.StatusInternalServerError, w.Code)
		s.Contains(w.Body.String(), "internal_error")
	})
}
