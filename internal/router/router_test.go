package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubChatHandler struct {
	chats, resolves int
}

func (s *stubChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	s.chats++
	w.WriteHeader(http.StatusOK)
}

func (s *stubChatHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	s.resolves++
	w.WriteHeader(http.StatusOK)
}

func TestSetupRouter(t *testing.T) {
	chat := &stubChatHandler{}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	r := SetupRouter(&Config{
		ChatHandler:    chat,
		MetricsHandler: metrics,
		AllowedOrigins: []string{"http://localhost:5173"},
	})

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/v1/ping", http.StatusOK},
		{http.MethodPost, "/api/v1/chat", http.StatusOK},
		{http.MethodPost, "/api/v1/chat/resolve", http.StatusOK},
		{http.MethodGet, "/api/v1/chat", http.StatusMethodNotAllowed},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rr.Code)
		})
	}

	assert.Equal(t, 1, chat.chats)
	assert.Equal(t, 1, chat.resolves)
}

func TestSetupRouter_RateLimit(t *testing.T) {
	r := SetupRouter(&Config{
		ChatHandler:       &stubChatHandler{},
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/resolve", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSetupRouter_CORSPreflight(t *testing.T) {
	r := SetupRouter(&Config{ChatHandler: &stubChatHandler{}, AllowedOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}
