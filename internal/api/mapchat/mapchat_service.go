package mapchat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-map-assistant/app/observability/metrics"
	"github.com/FACorreiaa/go-map-assistant/internal/api/query"
	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service runs one chat turn.
type Service interface {
	// ResolveTurn resolves the location and results without calling the model.
	ResolveTurn(ctx context.Context, req TurnRequest) (*TurnResult, error)
	// StreamTurn resolves the turn, then streams the model reply as events.
	StreamTurn(ctx context.Context, req TurnRequest) (*types.StreamingResponse, error)
}

// TurnRequest is the body of a chat request.
type TurnRequest struct {
	ChatID       string       `json:"id,omitempty" example:"chat-42"`
	Messages     []types.Turn `json:"messages"`
	SessionToken string       `json:"session_token,omitempty"`
}

// TurnResult is everything the pipeline produced for one turn.
type TurnResult struct {
	TurnID            string                     `json:"turn_id"`
	Query             query.Query                `json:"query"`
	Resolved          types.ResolvedContext      `json:"resolved"`
	FeatureCollection *geojson.FeatureCollection `json:"feature_collection" swaggertype:"object"`
	Block             string                     `json:"block"`
	Directive         string                     `json:"directive"`
	SessionToken      string                     `json:"session_token,omitempty"`
	ContextFrom       string                     `json:"context_from"`

	ResultSet *types.ResultSet `json:"-"`
}

// context_from values
const (
	contextFromSession    = "session"
	contextFromTranscript = "transcript"
	contextFromNone       = "none"
)

const sendTimeout = 2 * time.Second

// modelFailedMessage replaces provider error text in stream error events.
const modelFailedMessage = "Sorry, I couldn't finish that reply. Please try again."

type ServiceImpl struct {
	resolver  *Resolver
	assembler *Assembler
	model     ChatModel
	sessions  SessionCodec
	cfg       PipelineConfig
	logger    *slog.Logger
}

// NewServiceImpl wires the pipeline. model and sessions may be nil: without a
// model only ResolveTurn works, without sessions context comes from the
// transcript alone.
func NewServiceImpl(
	geocoder Geocoder,
	pois POISearcher,
	places PlaceSearcher,
	model ChatModel,
	sessions SessionCodec,
	cfg PipelineConfig,
	logger *slog.Logger,
) *ServiceImpl {
	cfg = cfg.withDefaults()
	return &ServiceImpl{
		resolver:  NewResolver(geocoder, cfg, logger),
		assembler: NewAssembler(pois, places, cfg, logger),
		model:     model,
		sessions:  sessions,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *ServiceImpl) ResolveTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	turnID := uuid.NewString()
	ctx, span := otel.Tracer("MapChatService").Start(ctx, "ResolveTurn", trace.WithAttributes(
		attribute.String("turn.id", turnID),
		attribute.Int("transcript.turns", len(req.Messages)),
		attribute.Bool("session.token", req.SessionToken != ""),
	))
	defer span.End()

	l := s.logger.With(slog.String("turn_id", turnID))
	m := metrics.Get()
	start := time.Now()

	text := types.LastUserText(req.Messages)
	if text == "" {
		span.SetStatus(codes.Error, "No user message")
		return nil, ErrNoUserMessage
	}

	q := query.Parse(text)
	l.DebugContext(ctx, "Parsed turn", slog.Any("tags", q.Tags), slog.String("location", q.Location))

	sticky, from := s.stickyContext(ctx, l, req)
	span.SetAttributes(attribute.String("context.from", from))

	fail := func(err error) (*TurnResult, error) {
		m.TurnsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Turn failed")
		l.ErrorContext(ctx, "Turn failed", slog.Any("error", err))
		return nil, err
	}

	rc, err := s.resolver.Resolve(ctx, q, sticky)
	if err != nil {
		return fail(err)
	}
	rs, err := s.assembler.Assemble(ctx, q, rc)
	if err != nil {
		return fail(err)
	}

	fc := FeatureCollection(rs)
	block, err := RenderBlock(fc)
	if err != nil {
		return fail(err)
	}

	result := &TurnResult{
		TurnID:            turnID,
		Query:             q,
		Resolved:          rc,
		FeatureCollection: fc,
		Block:             block,
		Directive:         Directive(s.cfg.RegionQualifier, block),
		ContextFrom:       from,
		ResultSet:         rs,
	}
	if s.sessions != nil {
		token, err := s.sessions.Encode(StickyFromResult(rs))
		if err != nil {
			l.WarnContext(ctx, "Failed to encode session token", slog.Any("error", err))
		}
		result.SessionToken = token
	}

	m.TurnsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	m.TurnDurationSeconds.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("source", string(rc.Source))))
	m.ResultPOIs.Record(ctx, int64(len(rs.POIs)))

	span.SetAttributes(
		attribute.String("resolved.source", string(rc.Source)),
		attribute.Int("result.pois", len(rs.POIs)),
	)
	span.SetStatus(codes.Ok, "Turn resolved")
	l.InfoContext(ctx, "Turn resolved",
		slog.String("source", string(rc.Source)),
		slog.String("name", rc.Name),
		slog.Float64("radius_m", rc.RadiusM),
		slog.Int("pois", len(rs.POIs)))
	return result, nil
}

// stickyContext prefers a valid session token and falls back to re-reading
// the transcript.
func (s *ServiceImpl) stickyContext(ctx context.Context, l *slog.Logger, req TurnRequest) (*types.StickyContext, string) {
	if req.SessionToken != "" && s.sessions != nil {
		sc, err := s.sessions.Decode(req.SessionToken)
		switch {
		case err != nil:
			l.WarnContext(ctx, "Ignoring session token", slog.Any("error", err))
		case sc != nil:
			return sc, contextFromSession
		}
	}
	if sc := ExtractStickyContext(req.Messages); sc != nil {
		return sc, contextFromTranscript
	}
	l.DebugContext(ctx, "No prior location context in transcript")
	return nil, contextFromNone
}

func (s *ServiceImpl) StreamTurn(ctx context.Context, req TurnRequest) (*types.StreamingResponse, error) {
	if s.model == nil {
		return nil, ErrModelUnavailable
	}

	result, err := s.ResolveTurn(ctx, req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	eventCh := make(chan types.StreamEvent, 32)

	go func() {
		defer close(eventCh)
		defer cancel()

		ctx, span := otel.Tracer("MapChatService").Start(ctx, "StreamTurn", trace.WithAttributes(
			attribute.String("turn.id", result.TurnID),
		))
		defer span.End()

		l := s.logger.With(slog.String("turn_id", result.TurnID))

		if !s.sendEvent(ctx, l, eventCh, types.StreamEvent{
			Type: types.EventTypeStart,
			Data: map[string]string{"turn_id": result.TurnID},
		}) {
			return
		}
		if !s.sendEvent(ctx, l, eventCh, types.StreamEvent{
			Type: types.EventTypeContext,
			Data: map[string]interface{}{
				"feature_collection": result.FeatureCollection,
				"session_token":      result.SessionToken,
				"resolved":           result.Resolved,
			},
		}) {
			return
		}

		var chars int
		for delta, err := range s.model.StreamChat(ctx, result.Directive, req.Messages) {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "Model stream failed")
				l.ErrorContext(ctx, "Model stream failed", slog.Any("error", err))
				s.sendEvent(ctx, l, eventCh, types.StreamEvent{
					Type:    types.EventTypeError,
					Error:   modelFailedMessage,
					IsFinal: true,
				})
				return
			}
			chars += len(delta)
			if !s.sendEvent(ctx, l, eventCh, types.StreamEvent{
				Type: types.EventTypeMessage,
				Data: map[string]string{"delta": delta},
			}) {
				return
			}
		}

		span.SetAttributes(attribute.Int("response.length", chars))
		span.SetStatus(codes.Ok, "Stream completed")
		s.sendEvent(ctx, l, eventCh, types.StreamEvent{
			Type:    types.EventTypeComplete,
			Data:    map[string]string{"turn_id": result.TurnID},
			IsFinal: true,
		})
	}()

	return &types.StreamingResponse{
		TurnID: result.TurnID,
		Stream: eventCh,
		Cancel: cancel,
	}, nil
}

func (s *ServiceImpl) sendEvent(ctx context.Context, l *slog.Logger, ch chan<- types.StreamEvent, event types.StreamEvent) bool {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case <-ctx.Done():
		l.WarnContext(ctx, "Context cancelled, not sending stream event", slog.String("eventType", event.Type))
		return false
	default:
	}

	select {
	case ch <- event:
		return true
	case <-ctx.Done():
		l.WarnContext(ctx, "Context cancelled while sending stream event", slog.String("eventType", event.Type))
		return false
	case <-time.After(sendTimeout):
		l.WarnContext(ctx, "Dropped stream event, consumer too slow", slog.String("eventType", event.Type))
		return false
	}
}
