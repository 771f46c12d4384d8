package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"envelope-service/pkg/config"
	"envelope-service/pkg/idempotency"
	"envelope-service/pkg/metrics"
	"envelope-service/pkg/storage"
	"envelope-service/pkg/worker"
)

type testServer struct {
	router   *chi.Mux
	store    *storage.NoteStore
	recorder *metrics.Recorder
	purges   *worker.PurgeWorker
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:             0,
			RequestTimeoutMs: 5000,
			MaxBodyBytes:     1 << 20,
		},
		Store: config.StoreConfig{Driver: "sqlite3"},
		Purge: config.PurgeConfig{QueueSize: 4},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, guard idempotency.Guard) *testServer {
	t.Helper()

	store, err := storage.NewNoteStore("sqlite3", filepath.Join(t.TempDir(), "notes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	purges := worker.NewPurgeWorker(store, cfg.Purge.QueueSize)
	purges.Start()
	t.Cleanup(purges.Stop)

	rec := metrics.NewRecorder()
	h := NewHandler(cfg, store, nil)
	notes := NewNotesHandler(cfg, store, guard, purges)

	return &testServer{
		router:   NewRouter(cfg, h, notes, rec),
		store:    store,
		recorder: rec,
		purges:   purges,
	}
}

func (s *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
