package mapchat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-map-assistant/internal/api"
	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

// Shown to the user whenever a provider failure aborted the turn.
const turnFailedMessage = "Sorry, I couldn't find results for that right now. Please try again."

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Chat(w http.ResponseWriter, r *http.Request)
	Resolve(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	service Service
	logger  *slog.Logger
}

func NewHandlerImpl(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{service: service, logger: logger}
}

// Chat godoc
// @Summary      Chat with the map assistant
// @Description  Resolves the location for the latest user message, then streams the model reply as server-sent events (start, context, message, complete, error). The context event carries the FeatureCollection and the session token for the next turn.
// @Tags         Chat
// @Accept       json
// @Produce      text/event-stream
// @Param        request body TurnRequest true "Transcript and optional session token"
// @Success      200 {object} types.StreamEvent "Event stream"
// @Failure      400 {object} api.ErrorBody "Invalid request"
// @Router       /chat [post]
func (h *HandlerImpl) Chat(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("MapChatHandler").Start(r.Context(), "Chat", trace.WithAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.route", "/api/v1/chat"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Chat"))

	var req TurnRequest
	if err := api.DecodeJSONBody(w, r, &req, api.AllowUnknownFields()); err != nil {
		l.WarnContext(ctx, "Invalid chat request", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if types.LastUserText(req.Messages) == "" {
		span.SetStatus(codes.Error, "No user message")
		api.ErrorResponse(w, r, http.StatusBadRequest, "messages must contain a user message")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	streamResp, err := h.service.StreamTurn(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Turn failed")
		l.ErrorContext(ctx, "Failed to start chat stream", slog.Any("error", err))
		h.writeSSEError(w, userMessage(err))
		return
	}
	defer streamResp.Cancel()

	l = l.With(slog.String("turn_id", streamResp.TurnID))
	span.SetAttributes(attribute.String("turn.id", streamResp.TurnID))

	for {
		select {
		case event, ok := <-streamResp.Stream:
			if !ok {
				l.DebugContext(ctx, "Stream closed")
				span.SetStatus(codes.Ok, "Stream closed")
				return
			}
			if err := writeSSE(w, event); err != nil {
				l.ErrorContext(ctx, "Failed to write event", slog.Any("error", err))
				continue
			}
			flusher.Flush()

		case <-ctx.Done():
			l.InfoContext(ctx, "Client disconnected")
			return
		}
	}
}

// Resolve godoc
// @Summary      Resolve a chat turn without the model
// @Description  Runs location resolution and place search for the latest user message and returns the FeatureCollection, the fenced block, the model directive and the next session token.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request body TurnRequest true "Transcript and optional session token"
// @Success      200 {object} TurnResult "Resolved turn"
// @Failure      400 {object} api.ErrorBody "Invalid request"
// @Failure      502 {object} api.ErrorBody "Upstream provider failed"
// @Failure      500 {object} api.ErrorBody "Internal Server Error"
// @Router       /chat/resolve [post]
func (h *HandlerImpl) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("MapChatHandler").Start(r.Context(), "Resolve", trace.WithAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.route", "/api/v1/chat/resolve"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Resolve"))

	var req TurnRequest
	if err := api.DecodeJSONBody(w, r, &req, api.AllowUnknownFields()); err != nil {
		l.WarnContext(ctx, "Invalid resolve request", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.ResolveTurn(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Turn failed")
		switch {
		case errors.Is(err, ErrNoUserMessage):
			api.ErrorResponse(w, r, http.StatusBadRequest, "messages must contain a user message")
		case errors.Is(err, ErrTurnFailed):
			l.ErrorContext(ctx, "Upstream failure", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusBadGateway, turnFailedMessage)
		default:
			l.ErrorContext(ctx, "Failed to resolve turn", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to resolve turn")
		}
		return
	}

	span.SetAttributes(attribute.String("turn.id", result.TurnID))
	span.SetStatus(codes.Ok, "Turn resolved")
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrTurnFailed):
		return turnFailedMessage
	case errors.Is(err, ErrModelUnavailable):
		return "The assistant is not available right now."
	case errors.Is(err, ErrNoUserMessage):
		return "messages must contain a user message"
	default:
		return "Failed to process the message"
	}
}

func writeSSE(w http.ResponseWriter, event types.StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	fmt.Fprintf(w, "id: %s\n", event.EventID)
	fmt.Fprintf(w, "event: %s\n", event.Type)
	fmt.Fprintf(w, "data: %s\n\n", data)
	return nil
}

func (h *HandlerImpl) writeSSEError(w http.ResponseWriter, errorMsg string) {
	event := types.StreamEvent{
		Type:      types.EventTypeError,
		Error:     errorMsg,
		Timestamp: time.Now(),
		EventID:   uuid.NewString(),
		IsFinal:   true,
	}
	if err := writeSSE(w, event); err != nil {
		h.logger.Error("Failed to write error event", slog.Any("error", err))
		return
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
