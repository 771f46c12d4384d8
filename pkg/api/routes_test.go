package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"envelope-service/pkg/envelope"
	"envelope-service/pkg/idempotency"
	"envelope-service/pkg/worker"
)

type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) Claim(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockGuard) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func createNote(t *testing.T, s *testServer, body string) string {
	t.Helper()
	rec := s.do("POST", "/notes", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	note := decodeBody(t, rec)["data"].(map[string]interface{})["note"].(map[string]interface{})
	return note["id"].(string)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := s.do("GET", "/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"errors":["no route for GET /nope"],"message":"The resource was not found."}`, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := s.do("DELETE", "/health", "", nil)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Method not allowed on resource.", body["message"])
	assert.Len(t, body["errors"], 1)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := s.do("GET", "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "", body["message"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, true, data["store"].(map[string]interface{})["connected"])
}

func TestOutcomes(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := s.do("GET", "/outcomes", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeBody(t, rec)["data"].(map[string]interface{})["outcomes"].([]interface{})
	require.Len(t, rows, len(envelope.Outcomes()))
	last := rows[len(rows)-1].(map[string]interface{})
	assert.Equal(t, "not_implemented", last["outcome"])
	assert.Equal(t, float64(501), last["status"])
}

func TestSwaggerDoc(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := s.do("GET", "/swagger/doc.json", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"/notes/{id}"`)
}

func TestNoteLifecycle(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	id := createNote(t, s, `{"slug":"first-note","title":"First","body":"hello"}`)

	rec := s.do("GET", "/notes/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	note := decodeBody(t, rec)["data"].(map[string]interface{})["note"].(map[string]interface{})
	assert.Equal(t, "first-note", note["slug"])

	rec = s.do("PUT", "/notes/"+id, `{"slug":"first-note","title":"Renamed"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Note updated", decodeBody(t, rec)["message"])

	rec = s.do("GET", "/notes?limit=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Len(t, data["notes"], 1)
	assert.Equal(t, float64(1), data["pagination"].(map[string]interface{})["total"])

	rec = s.do("DELETE", "/notes/"+id, "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = s.do("GET", "/notes/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"errors":["note `+id+` does not exist"],"message":"The resource was not found."}`, rec.Body.String())

	rec = s.do("DELETE", "/notes/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateNote_Validation(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := s.do("POST", "/notes", `{"slug":"Bad Slug"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{
		"errors": ["slug must be lowercase letters, digits and single dashes", "title is required"],
		"message": "Validation failed"
	}`, rec.Body.String())
}

func TestCreateNote_BadJSON(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	for _, body := range []string{`{"slug":`, `{"slug":"a","title":"b"}{}`} {
		rec := s.do("POST", "/notes", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, []interface{}{"request body is not valid JSON"}, decodeBody(t, rec)["errors"])
	}
}

func TestCreateNote_UnknownFieldNamed(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := s.do("POST", "/notes", `{"slug":"a","title":"b","extra":1}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t,
		[]interface{}{`request body is not valid JSON: unknown field "extra"`},
		decodeBody(t, rec)["errors"])
}

func TestCreateNote_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxBodyBytes = 16
	s := newTestServer(t, cfg, nil)

	rec := s.do("POST", "/notes", `{"slug":"a","title":"a rather long title"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []interface{}{"request body too large"}, decodeBody(t, rec)["errors"])
}

func TestCreateNote_UnsupportedMediaType(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := s.do("POST", "/notes", `slug=a`, map[string]string{"Content-Type": "application/x-www-form-urlencoded"})

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestCreateNote_DuplicateSlug(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	createNote(t, s, `{"slug":"dup","title":"A"}`)

	rec := s.do("POST", "/notes", `{"slug":"dup","title":"B"}`, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, []interface{}{"slug dup is already taken"}, decodeBody(t, rec)["errors"])
}

func TestUpdateNote_Errors(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	id := createNote(t, s, `{"slug":"a","title":"A"}`)
	createNote(t, s, `{"slug":"b","title":"B"}`)

	rec := s.do("PUT", "/notes/"+id, `{"slug":"b","title":"A"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do("PUT", "/notes/missing", `{"slug":"c","title":"C"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do("PUT", "/notes/"+id, `{"slug":"","title":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decodeBody(t, rec)["errors"], 2)
}

func TestPatchNotImplemented(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := s.do("PATCH", "/notes/anything", `{"title":"x"}`, nil)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, []interface{}{"partial updates are not supported, use PUT"}, decodeBody(t, rec)["errors"])
}

func TestListNotes_BadPagination(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := s.do("GET", "/notes?limit=0&offset=-1", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Invalid pagination parameters", body["message"])
	assert.Len(t, body["errors"], 2)
}

func TestPurgeAccepted(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	createNote(t, s, `{"slug":"old","title":"Old"}`)

	cutoff := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	rec := s.do("POST", "/notes/purge", `{"olderThan":"`+cutoff+`"}`, nil)

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Purge queued", body["message"])
	job := body["data"].(map[string]interface{})["job"].(map[string]interface{})
	jobID := job["id"].(string)
	assert.Equal(t, "/jobs/"+jobID, rec.Header().Get("Location"))

	require.Eventually(t, func() bool {
		rec := s.do("GET", "/jobs/"+jobID, "", nil)
		if rec.Code != http.StatusOK {
			return false
		}
		job := decodeBody(t, rec)["data"].(map[string]interface{})["job"].(map[string]interface{})
		return job["state"] == string(worker.JobDone) && job["removed"] == float64(1)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPurge_BadCutoff(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := s.do("POST", "/notes/purge", `{"olderThan":"yesterday"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobNotFound(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := s.do("GET", "/jobs/missing", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWriteRoutesRequireKey(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.WriteKey = "w"
	cfg.Auth.ReadOnlyKey = "r"
	s := newTestServer(t, cfg, nil)

	rec := s.do("POST", "/notes", `{"slug":"a","title":"A"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do("POST", "/notes", `{"slug":"a","title":"A"}`, map[string]string{"X-Api-Key": "r"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, []interface{}{"API key is read-only"}, decodeBody(t, rec)["errors"])

	rec = s.do("POST", "/notes", `{"slug":"a","title":"A"}`, map[string]string{"X-Api-Key": "w"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do("GET", "/notes", "", map[string]string{"X-Api-Key": "r"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do("GET", "/notes", "", map[string]string{"X-Api-Key": "bogus"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIdempotencyKeyReplay(t *testing.T) {
	guard := new(MockGuard)
	guard.On("Claim", mock.Anything, "key-1").Return(nil).Once()
	guard.On("Claim", mock.Anything, "key-1").Return(idempotency.ErrInFlight).Once()
	s := newTestServer(t, testConfig(), guard)

	headers := map[string]string{"Idempotency-Key": "key-1"}
	rec := s.do("POST", "/notes", `{"slug":"a","title":"A"}`, headers)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do("POST", "/notes", `{"slug":"a","title":"A"}`, headers)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, []interface{}{"Idempotency-Key key-1 was already used"}, decodeBody(t, rec)["errors"])

	guard.AssertExpectations(t)
}

func TestIdempotencyKeyReleasedOnFailure(t *testing.T) {
	guard := new(MockGuard)
	guard.On("Claim", mock.Anything, mock.Anything).Return(nil)
	guard.On("Release", mock.Anything, "key-2").Return(nil).Once()
	s := newTestServer(t, testConfig(), guard)
	createNote(t, s, `{"slug":"taken","title":"A"}`)

	rec := s.do("POST", "/notes", `{"slug":"taken","title":"B"}`, map[string]string{"Idempotency-Key": "key-2"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	guard.AssertExpectations(t)
}

func TestIdempotencyGuardDown(t *testing.T) {
	guard := new(MockGuard)
	guard.On("Claim", mock.Anything, "key-3").Return(errors.New("redis: connection refused"))
	s := newTestServer(t, testConfig(), guard)

	rec := s.do("POST", "/notes", `{"slug":"a","title":"A"}`, map[string]string{"Idempotency-Key": "key-3"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"errors":[],"message":"An internal server error."}`, rec.Body.String())
}

func TestFlattenedShape(t *testing.T) {
	cfg := testConfig()
	cfg.Envelope.FlattenPayload = true
	s := newTestServer(t, cfg, nil)

	rec := s.do("POST", "/notes", `{"slug":"flat","title":"Flat"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.NotContains(t, body, "data")
	assert.Equal(t, "Note created", body["message"])
	assert.Equal(t, "flat", body["note"].(map[string]interface{})["slug"])

	rec = s.do("GET", "/nope", "", nil)
	assert.JSONEq(t, `{"errors":["no route for GET /nope"],"message":"The resource was not found."}`, rec.Body.String())
}

func TestRecorderCountsOutcomes(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	s.do("GET", "/health", "", nil)
	s.do("GET", "/nope", "", nil)
	s.do("PATCH", "/notes/x", "", nil)

	snap := s.recorder.Drain()
	assert.Equal(t, int64(1), snap.Counts[envelope.Success])
	assert.Equal(t, int64(1), snap.Counts[envelope.NotFound])
	assert.Equal(t, int64(1), snap.Counts[envelope.NotImplemented])
}
