//go:build integration

package settings_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"personfinder/internal/settings"
	"personfinder/pkg/platform/cache"
	"personfinder/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *settings.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = settings.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "settings"))
}

func (s *PostgresStoreSuite) TestSaveOverwrites() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, "haiti", "prefer_peers", json.RawMessage(`false`)))
	s.Require().NoError(s.store.Save(ctx, "haiti", "prefer_peers", json.RawMessage(`true`)))

	values, err := s.store.Load(ctx, "haiti")
	s.Require().NoError(err)
	s.Len(values, 1)
	s.JSONEq(`true`, string(values["prefer_peers"]))
}

func (s *PostgresStoreSuite) TestServiceFallsBackToGlobal() {
	ctx := context.Background()
	c, err := cache.New[string, settings.Settings](16, time.Minute)
	s.Require().NoError(err)
	svc := settings.NewService(s.store, c, nil)

	s.Require().NoError(svc.Set(ctx, "global", "search_peers", json.RawMessage(`["japan"]`)))
	s.Require().NoError(svc.Set(ctx, "haiti", "min_query_word_length", json.RawMessage(`3`)))

	got, err := svc.For(ctx, "haiti")
	s.Require().NoError(err)
	s.Equal([]string{"japan"}, got.SearchPeers)
	s.Equal(3, got.MinQueryWordLength)

	other, err := svc.For(ctx, "chile")
	s.Require().NoError(err)
	s.Equal([]string{"japan"}, other.SearchPeers)
	s.Equal(settings.Defaults().MinQueryWordLength, other.MinQueryWordLength)
}
