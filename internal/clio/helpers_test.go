package clio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

var testEpoch = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time {
	return func() time.Time { return testEpoch }
}

type harness struct {
	srv    *httptest.Server
	router *mux.Router
	tokens *TokenManager
	client *Client
	api    *API
	sleeps *sleepRecorder
	logs   *observer.ObservedLogs
}

// newHarness serves router over httptest and wires a client with a seeded,
// unexpired token, a recording sleeper and an observed logger.
func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{router: mux.NewRouter(), sleeps: &sleepRecorder{}}
	h.srv = httptest.NewServer(h.router)
	t.Cleanup(h.srv.Close)

	core, logs := observer.New(zapcore.DebugLevel)
	h.logs = logs
	logger := zap.New(core)

	h.tokens = NewTokenManager(TokenConfig{
		TokenURL:     h.srv.URL + "/oauth/token",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RefreshToken: "refresh-1",
		AccessToken:  "token-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}, h.srv.Client())
	h.tokens.SetLogger(logger)

	base := []Option{
		WithHTTPClient(h.srv.Client()),
		WithSleeper(h.sleeps.sleep),
		WithClock(fixedClock()),
		WithLogger(logger),
	}
	h.client = NewClient(h.tokens, append(base, opts...)...)
	h.api = NewAPI(h.client, h.srv.URL+"/api/v4", PageSpec{Limit: 200}, nil)
	return h
}

func (h *harness) url(path string) string {
	return h.srv.URL + path
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func page(data []any, next string) map[string]any {
	paging := map[string]any{}
	if next != "" {
		paging["next"] = next
	}
	return map[string]any{"data": data, "meta": map[string]any{"paging": paging}}
}
