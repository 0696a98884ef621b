package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, 900*time.Millisecond, cfg.Search.FetchTimeout)
		assert.Equal(t, 5*time.Second, cfg.Search.TotalTimeout)
		assert.Equal(t, 200, cfg.Search.HardMaxResults)
		assert.Equal(t, time.Duration(0), cfg.Lifecycle.GracePeriod)
		assert.Equal(t, "@every 1h", cfg.Lifecycle.SweepSchedule)
		assert.Empty(t, cfg.Postgres.URL)
		assert.Empty(t, cfg.Kafka.Brokers)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("PF_DOMAINS", "haiti, chile")
		t.Setenv("PF_EXPIRY_GRACE_PERIOD", "72h")
		t.Setenv("PF_KAFKA_BROKERS", "k1:9092,k2:9092")
		t.Setenv("PF_SEARCH_MAX_RESULTS", "50")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, []string{"haiti", "chile"}, cfg.Server.Domains)
		assert.Equal(t, 72*time.Hour, cfg.Lifecycle.GracePeriod)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 50, cfg.Search.MaxResults)
		assert.Equal(t, []string{"haiti", "chile"}, cfg.Lifecycle.Domains, "sweep domains default to served domains")
	})

	t.Run("sweep domains override", func(t *testing.T) {
		t.Setenv("PF_DOMAINS", "haiti,chile")
		t.Setenv("PF_SWEEP_DOMAINS", "chile")
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, []string{"chile"}, cfg.Lifecycle.Domains)
	})

	t.Run("rejects unparsable values", func(t *testing.T) {
		t.Setenv("PF_SEARCH_FETCH_TIMEOUT", "soon")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PF_SEARCH_FETCH_TIMEOUT")
	})

	t.Run("rejects reserved domain", func(t *testing.T) {
		t.Setenv("PF_DOMAINS", "global")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("rejects max results above the hard cap", func(t *testing.T) {
		t.Setenv("PF_SEARCH_MAX_RESULTS", "500")
		_, err := FromEnv()
		require.Error(t, err)
	})
}
