package settings

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/platform/cache"
)

type SettingsServiceSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	store   *InMemoryStore
	service *Service
}

func TestSettingsServiceSuite(t *testing.T) {
	suite.Run(t, new(SettingsServiceSuite))
}

func (s *SettingsServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2010, 1, 13, 0, 0, 0, 0, time.UTC)
	s.store = NewInMemoryStore()
	c, err := cache.New[string, Settings](16, time.Minute, cache.WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)
	s.service = NewService(s.store, c, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *SettingsServiceSuite) TestFallback() {
	s.Run("defaults when nothing is stored", func() {
		got, err := s.service.For(s.ctx, "haiti")
		s.Require().NoError(err)
		s.Equal(Defaults(), got)
	})

	s.Run("domain overrides global", func() {
		s.Require().NoError(s.service.Set(s.ctx, "global", "spam_threshold", json.RawMessage(`0.8`)))
		s.Require().NoError(s.service.Set(s.ctx, "global", "search_peers", json.RawMessage(`["http://a"]`)))
		s.Require().NoError(s.service.Set(s.ctx, "haiti", "search_peers", json.RawMessage(`["http://b","http://c"]`)))

		haiti, err := s.service.For(s.ctx, "haiti")
		s.Require().NoError(err)
		s.Equal([]string{"http://b", "http://c"}, haiti.SearchPeers)
		s.InDelta(0.8, haiti.SpamThreshold, 1e-9)

		chile, err := s.service.For(s.ctx, "chile")
		s.Require().NoError(err)
		s.Equal([]string{"http://a"}, chile.SearchPeers)
	})
}

func (s *SettingsServiceSuite) TestCaching() {
	_, err := s.service.For(s.ctx, "haiti")
	s.Require().NoError(err)

	// Written behind the service's back: only visible after expiry.
	s.Require().NoError(s.store.Save(s.ctx, "haiti", "prefer_peers", json.RawMessage(`true`)))
	got, err := s.service.For(s.ctx, "haiti")
	s.Require().NoError(err)
	s.False(got.PreferPeers)

	s.now = s.now.Add(2 * time.Minute)
	got, err = s.service.For(s.ctx, "haiti")
	s.Require().NoError(err)
	s.True(got.PreferPeers)

	stats := s.service.CacheStats()
	s.Equal(uint64(1), stats.Hits)
	s.Equal(uint64(2), stats.Misses)
	s.Equal(uint64(1), stats.Expired)
}

func (s *SettingsServiceSuite) TestSetValidation() {
	err := s.service.Set(s.ctx, "Not Valid", "prefer_peers", json.RawMessage(`true`))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	err = s.service.Set(s.ctx, "haiti", "prefer_peers", json.RawMessage(`{`))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
