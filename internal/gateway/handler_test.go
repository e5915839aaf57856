package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/intelligent-react-components/irc-server/internal/history"
	"github.com/intelligent-react-components/irc-server/internal/instruction"
	"github.com/intelligent-react-components/irc-server/internal/orchestration"
	"github.com/intelligent-react-components/irc-server/internal/request"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubGenerator answers every model call with a fixed string.
type stubGenerator struct {
	answer  string
	healthy bool
}

func (s *stubGenerator) Generate(ctx context.Context, instructions, payload string) (string, error) {
	return s.answer, nil
}

func (s *stubGenerator) IsHealthy(ctx context.Context) bool { return s.healthy }

// stubEmitter pretends every emission lands on disk.
type stubEmitter struct{}

func (stubEmitter) Emit(filename string, resp *request.AIResponse) (string, error) {
	return "dynamic/" + filename + ".js", nil
}

func (stubEmitter) Exists(filename string) bool       { return false }
func (stubEmitter) ModulePath(filename string) string { return "dynamic/" + filename + ".js" }

// stubReader serves a canned history listing.
type stubReader struct {
	records []history.Record
	err     error
}

func (s *stubReader) List(ctx context.Context, limit int) ([]history.Record, error) {
	return s.records, s.err
}

func (s *stubReader) ByFilename(ctx context.Context, filename string) ([]history.Record, error) {
	var matched []history.Record
	for _, rec := range s.records {
		if rec.Filename == filename {
			matched = append(matched, rec)
		}
	}
	return matched, s.err
}

func newTestRouter(t *testing.T, gen *stubGenerator, reader HistoryReader) *gin.Engine {
	t.Helper()
	store := instruction.NewStore("", zap.NewNop())
	assembler := instruction.NewAssembler(store, "", zap.NewNop())
	svc := orchestration.NewService(assembler, gen, stubEmitter{}, nil, nil, zap.NewNop())
	h := NewHandler(svc, reader, zap.NewNop())
	return NewRouter(h, nil, nil, zap.NewNop())
}

const handlerAnswer = `{"thoughts":"attach","response":{"eventListener":"function main(event, args) { globals.n++; }"},"error":{},"expect":"a button"}`

func postPromptToCode(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/prompt-to-code", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPromptToCode_Success(t *testing.T) {
	router := newTestRouter(t, &stubGenerator{answer: handlerAnswer, healthy: true}, nil)

	rec := postPromptToCode(t, router, `{"element":"button","prompt":"increment","filename":"counter","listener":"onClick"}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body PromptToCodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "dynamic/counter.js", body.NewFilePath)
}

func TestPromptToCode_InvalidBody(t *testing.T) {
	router := newTestRouter(t, &stubGenerator{answer: handlerAnswer}, nil)

	rec := postPromptToCode(t, router, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Invalid request body", body.Message)
}

func TestPromptToCode_ValidationError(t *testing.T) {
	router := newTestRouter(t, &stubGenerator{answer: handlerAnswer}, nil)

	rec := postPromptToCode(t, router, `{"element":"button","prompt":"","filename":"counter","listener":"onClick"}`)

	// The structured error envelope comes back with 200 so the
	// component layer can render the violation inline.
	assert.Equal(t, http.StatusOK, rec.Code)

	var parsed request.AIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.Equal(t, "MISSING_KEYS", parsed.Error.Code)
	assert.Equal(t, "required keys are missing", parsed.Error.Message)
	assert.Contains(t, parsed.Error.Details, "prompt")
	assert.Nil(t, parsed.Response)
}

func TestPromptToCode_ModelRefusalForwarded(t *testing.T) {
	refusal := `{"error":{"message":"the request is irrelevant to a button","status":400,"code":"IRRELEVANT"}}`
	router := newTestRouter(t, &stubGenerator{answer: refusal}, nil)

	rec := postPromptToCode(t, router, `{"element":"button","prompt":"write a poem","filename":"poem","listener":"onClick"}`)

	// The refusal body travels back verbatim so the component layer
	// can surface the model's own explanation.
	assert.Equal(t, http.StatusOK, rec.Code)

	var parsed request.AIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.Equal(t, "the request is irrelevant to a button", parsed.Error.Message)
}

func TestGenerations(t *testing.T) {
	now := time.Now().UTC()
	reader := &stubReader{records: []history.Record{
		{ID: "1", Filename: "counter", Status: history.StatusSucceeded, CreatedAt: now},
		{ID: "2", Filename: "toggle", Status: history.StatusFailed, CreatedAt: now},
	}}

	t.Run("lists all records", func(t *testing.T) {
		router := newTestRouter(t, &stubGenerator{}, reader)

		req := httptest.NewRequest(http.MethodGet, "/generations", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Generations []history.Record `json:"generations"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Generations, 2)
	})

	t.Run("filters by filename", func(t *testing.T) {
		router := newTestRouter(t, &stubGenerator{}, reader)

		req := httptest.NewRequest(http.MethodGet, "/generations?filename=counter", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Generations []history.Record `json:"generations"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Generations, 1)
		assert.Equal(t, "counter", body.Generations[0].Filename)
	})

	t.Run("disabled without a reader", func(t *testing.T) {
		router := newTestRouter(t, &stubGenerator{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/generations", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("storage failure maps to 500", func(t *testing.T) {
		router := newTestRouter(t, &stubGenerator{}, &stubReader{err: assert.AnError})

		req := httptest.NewRequest(http.MethodGet, "/generations", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &stubGenerator{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReady(t *testing.T) {
	t.Run("ready when the model gateway is healthy", func(t *testing.T) {
		router := newTestRouter(t, &stubGenerator{healthy: true}, nil)

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("degraded when the model gateway is down", func(t *testing.T) {
		router := newTestRouter(t, &stubGenerator{healthy: false}, nil)

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestNotFound(t *testing.T) {
	router := newTestRouter(t, &stubGenerator{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", rec.Body.String())
}
