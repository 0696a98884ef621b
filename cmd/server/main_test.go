package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "personfinder/internal/jwt_token"
	"personfinder/internal/platform/config"
)

func TestTokenCommand(t *testing.T) {
	t.Setenv("PF_JWT_SIGNING_KEY", "test-signing-key")
	t.Setenv("PF_JWT_ISSUER", "personfinder-test")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--subject", "japan-feed", "--write-domain", "japan", "--full-read"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	token := strings.TrimSpace(out.String())
	claims, err := jwttoken.NewJWTService("test-signing-key", "personfinder-test").ValidateToken(token)
	require.NoError(t, err)
	caller := claims.Caller()
	assert.Equal(t, "japan-feed", caller.Subject)
	assert.Equal(t, "japan", caller.WriteDomain)
	assert.True(t, caller.FullRead)
	assert.False(t, caller.Privileged)
}

func TestTokenCommandRequiresSubject(t *testing.T) {
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"token"})
	assert.Error(t, root.ExecuteContext(context.Background()))
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	cfg.Lifecycle.SweepSchedule = "every so often"

	a := &app{cfg: cfg, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	_, err = newScheduler(context.Background(), a)
	assert.Error(t, err)
}
