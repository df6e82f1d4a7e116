package container

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-map-assistant/config"
	"github.com/FACorreiaa/go-map-assistant/internal/api/mapchat"
	"github.com/FACorreiaa/go-map-assistant/internal/api/session"
	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("GOOGLE_GEMINI_API_KEY", "")
	t.Setenv("MAPCHAT_LLM_APIKEY", "")
	cfg, err := config.Embedded()
	require.NoError(t, err)
	return &cfg
}

func TestNewContainer_WithoutModel(t *testing.T) {
	cfg := testConfig(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := NewContainer(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.ChatHandler)
	assert.NotNil(t, c.OSM)

	_, err = c.ChatService.StreamTurn(context.Background(), mapchat.TurnRequest{
		Messages: []types.Turn{{Role: types.RoleUser, Content: types.TextContent("hi")}},
	})
	assert.ErrorIs(t, err, mapchat.ErrModelUnavailable)
}

func TestNewSessionCodec(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("ephemeral secret in development", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Session.Secret = ""
		codec, err := newSessionCodec(cfg, logger)
		require.NoError(t, err)
		assert.NotNil(t, codec)
	})

	t.Run("secret required in production", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Mode = "production"
		cfg.Session.Secret = ""
		_, err := newSessionCodec(cfg, logger)
		assert.ErrorIs(t, err, session.ErrMissingSecret)
	})

	t.Run("configured secret", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Mode = "production"
		cfg.Session.Secret = "s3cret"
		codec, err := newSessionCodec(cfg, logger)
		require.NoError(t, err)
		assert.NotNil(t, codec)
	})
}
