package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// MaxBodyBytes caps request bodies. Transcripts carry rendered blocks, so the
// limit is generous.
const MaxBodyBytes = 4 << 20

// ErrorResponse writes an ErrorBody tagged with the chi request ID.
func ErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	WriteJSONResponse(w, r, status, ErrorBody{
		Success:   false,
		Error:     message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// WriteJSONResponse encodes data and writes it with status.
func WriteJSONResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	// 204 carries no body
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	// Marshal before writing headers so a failure can still become a 500
	js, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to marshal JSON response",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(js); err != nil {
		// status is already on the wire
		slog.ErrorContext(r.Context(), "Failed to write response body",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
}

// DecodeOption adjusts DecodeJSONBody.
type DecodeOption func(*decodeOptions)

type decodeOptions struct {
	allowUnknown bool
}

// AllowUnknownFields accepts object keys that dst does not declare. Chat UI
// clients add their own envelope fields (trigger, messageId) to every request.
func AllowUnknownFields() DecodeOption {
	return func(o *decodeOptions) { o.allowUnknown = true }
}

// DecodeJSONBody decodes exactly one JSON object into dst. Unknown fields are
// rejected unless AllowUnknownFields is passed. Bodies over MaxBodyBytes and
// trailing data are always rejected. The returned error is safe to show to
// clients.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}, opts ...DecodeOption) error {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}

	// Cap the body before the decoder touches it
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if !o.allowUnknown {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(dst); err != nil {
		return describeDecodeError(err)
	}

	// A second value after the object means the client sent two documents
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

// describeDecodeError turns encoding/json failures into client-facing text.
func describeDecodeError(err error) error {
	var (
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
		invalidErr  *json.InvalidUnmarshalError
		tooLargeErr *http.MaxBytesError
	)

	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxErr.Offset)

	// Truncated documents surface as ErrUnexpectedEOF, not a SyntaxError
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("body contains badly-formed JSON")

	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return fmt.Errorf("body contains incorrect JSON type for field %q (wanted %s)", typeErr.Field, typeErr.Type)
		}
		return fmt.Errorf("body contains incorrect JSON type (at character %d)", typeErr.Offset)

	case errors.Is(err, io.EOF):
		return errors.New("body must not be empty")

	// encoding/json has no typed error for unknown fields
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return fmt.Errorf("body contains unknown key %q", field)

	case errors.As(err, &tooLargeErr):
		return fmt.Errorf("body must not be larger than %d bytes", tooLargeErr.Limit)

	// A nil or non-pointer dst is a programming error
	case errors.As(err, &invalidErr):
		panic(fmt.Errorf("decode target: %w", err))

	default:
		return fmt.Errorf("error decoding JSON body: %w", err)
	}
}
