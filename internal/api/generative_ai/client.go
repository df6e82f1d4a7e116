package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

const DefaultModel = "gemini-2.0-flash"

var ErrMissingAPIKey = errors.New("generative ai: API key is not set")

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
}

type AIClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewAIClient(ctx context.Context, cfg Config) (*AIClient, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "NewAIClient")
	defer span.End()

	if cfg.APIKey == "" {
		span.RecordError(ErrMissingAPIKey)
		span.SetStatus(codes.Error, "API key not set")
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create Gemini client")
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	span.SetStatus(codes.Ok, "AI client created successfully")
	return &AIClient{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// toContents maps the transcript onto Gemini roles. System turns are dropped;
// the caller supplies its own system instruction.
func toContents(transcript []types.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(transcript))
	for _, t := range transcript {
		text := strings.TrimSpace(t.Text())
		if text == "" {
			continue
		}
		var role string
		switch t.Role {
		case types.RoleUser:
			role = "user"
		case types.RoleAssistant:
			role = "model"
		default:
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: text}},
		})
	}
	return contents
}

// StreamChat streams the model's reply to transcript as text deltas.
func (ai *AIClient) StreamChat(ctx context.Context, system string, transcript []types.Turn) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "StreamChat", trace.WithAttributes(
			attribute.String("model", ai.model),
			attribute.Int("system.length", len(system)),
			attribute.Int("transcript.turns", len(transcript)),
		))
		defer span.End()

		contents := toContents(transcript)
		if len(contents) == 0 {
			err := errors.New("transcript has no user or assistant text")
			span.RecordError(err)
			span.SetStatus(codes.Error, "Empty transcript")
			yield("", err)
			return
		}

		config := &genai.GenerateContentConfig{
			Temperature: genai.Ptr(ai.temperature),
		}
		if system != "" {
			config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
		}

		var total int
		for resp, err := range ai.client.Models.GenerateContentStream(ctx, ai.model, contents, config) {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "Stream failed")
				yield("", fmt.Errorf("model stream: %w", err))
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			total += len(text)
			if !yield(text, nil) {
				span.SetAttributes(attribute.Bool("stream.cancelled", true))
				return
			}
		}

		span.SetAttributes(attribute.Int("response.length", total))
		span.SetStatus(codes.Ok, "Stream completed")
	}
}
