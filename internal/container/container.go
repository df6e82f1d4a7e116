package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-map-assistant/config"
	"github.com/FACorreiaa/go-map-assistant/internal/api/cache"
	generativeAI "github.com/FACorreiaa/go-map-assistant/internal/api/generative_ai"
	"github.com/FACorreiaa/go-map-assistant/internal/api/mapchat"
	"github.com/FACorreiaa/go-map-assistant/internal/api/osm"
	"github.com/FACorreiaa/go-map-assistant/internal/api/session"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *slog.Logger
	Cache       cache.Store
	OSM         *osm.Client
	ChatService *mapchat.ServiceImpl
	ChatHandler *mapchat.HandlerImpl
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	store, err := cache.New(cache.Config{
		Backend:         cfg.Cache.Backend,
		TTL:             cfg.Cache.TTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
		ValkeyAddr:      cfg.Cache.ValkeyAddr,
	})
	if err != nil {
		logger.Error("Failed to initialize response cache", slog.Any("error", err))
		return nil, err
	}

	osmClient := osm.NewClient(osm.Config{
		NominatimURL: cfg.Providers.NominatimURL,
		OverpassURL:  cfg.Providers.OverpassURL,
		UserAgent:    cfg.Providers.UserAgent,
		Timeout:      cfg.Providers.Timeout,
		CacheTTL:     cfg.Cache.TTL,
	}, store, logger)

	// Interface values stay nil when a collaborator is unavailable.
	var model mapchat.ChatModel
	aiClient, err := generativeAI.NewAIClient(ctx, generativeAI.Config{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
	})
	switch {
	case errors.Is(err, generativeAI.ErrMissingAPIKey):
		logger.Warn("No LLM API key configured, only /chat/resolve is available")
	case err != nil:
		store.Close()
		logger.Error("Failed to initialize LLM client", slog.Any("error", err))
		return nil, err
	default:
		model = aiClient
	}

	sessions, err := newSessionCodec(cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	chatService := mapchat.NewServiceImpl(
		osmClient,
		osmClient,
		osmClient,
		model,
		sessions,
		mapchat.PipelineConfig{
			UpstreamLimit:   cfg.Pipeline.UpstreamLimit,
			FallbackLimit:   cfg.Pipeline.FallbackLimit,
			ResultCap:       cfg.Pipeline.ResultCap,
			DefaultRadiusM:  cfg.Pipeline.DefaultRadiusM,
			RegionQualifier: cfg.Pipeline.RegionQualifier,
		},
		logger,
	)
	chatHandler := mapchat.NewHandlerImpl(chatService, logger)

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Cache:       store,
		OSM:         osmClient,
		ChatService: chatService,
		ChatHandler: chatHandler,
	}, nil
}

// newSessionCodec falls back to a per-process secret in development, so
// tokens stop verifying after a restart and the transcript takes over.
func newSessionCodec(cfg *config.Config, logger *slog.Logger) (mapchat.SessionCodec, error) {
	secret := cfg.Session.Secret
	if secret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("session.secret is required outside development: %w", session.ErrMissingSecret)
		}
		logger.Warn("No session secret configured, using an ephemeral one")
		secret = uuid.NewString()
	}

	codec, err := session.NewCodec(session.Config{
		Secret: secret,
		Issuer: cfg.Session.Issuer,
		TTL:    cfg.Session.TTL,
	})
	if err != nil {
		return nil, err
	}
	return codec, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Cache != nil {
		c.Cache.Close()
	}
}
