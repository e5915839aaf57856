package orchestration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/intelligent-react-components/irc-server/internal/gemini"
	"github.com/intelligent-react-components/irc-server/internal/history"
	"github.com/intelligent-react-components/irc-server/internal/instruction"
	"github.com/intelligent-react-components/irc-server/internal/request"
)

// fakeGenerator replays canned model answers in order.
type fakeGenerator struct {
	answers []string
	errs    []error
	calls   int
	healthy bool
	// payloads captures what the model was asked, for feedback checks.
	payloads []string
}

func (f *fakeGenerator) Generate(ctx context.Context, instructions, payload string) (string, error) {
	idx := f.calls
	f.calls++
	f.payloads = append(f.payloads, payload)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.answers) {
		return f.answers[idx], nil
	}
	return "", &gemini.ModelError{StatusCode: http.StatusInternalServerError, Body: "exhausted"}
}

func (f *fakeGenerator) IsHealthy(ctx context.Context) bool { return f.healthy }

// fakeEmitter records emissions in memory.
type fakeEmitter struct {
	existing map[string]bool
	emitted  map[string]*request.AIResponse
	err      error
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{existing: map[string]bool{}, emitted: map[string]*request.AIResponse{}}
}

func (f *fakeEmitter) Emit(filename string, resp *request.AIResponse) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.emitted[filename] = resp
	f.existing[filename] = true
	return f.ModulePath(filename), nil
}

func (f *fakeEmitter) Exists(filename string) bool     { return f.existing[filename] }
func (f *fakeEmitter) ModulePath(filename string) string { return "dynamic/" + filename + ".js" }

// fakeRecorder accumulates history records.
type fakeRecorder struct {
	records []history.Record
}

func (f *fakeRecorder) Append(ctx context.Context, rec history.Record) error {
	f.records = append(f.records, rec)
	return nil
}

func newTestService(gen *fakeGenerator, em *fakeEmitter, rec Recorder) *Service {
	store := instruction.NewStore("", zap.NewNop())
	assembler := instruction.NewAssembler(store, "", zap.NewNop())
	return NewService(assembler, gen, em, rec, nil, zap.NewNop())
}

func validRequest() *request.GenerationRequest {
	return &request.GenerationRequest{
		Element:  request.ElementButton,
		Prompt:   "increment the counter",
		Filename: "counter",
		Listener: "onClick",
	}
}

const goodAnswer = `{"thoughts":"increment","response":{"eventListener":"function main(event, args) { globals.n++; }"},"error":{},"expect":"a button"}`

func TestService_Generate_Success(t *testing.T) {
	gen := &fakeGenerator{answers: []string{goodAnswer}, healthy: true}
	em := newFakeEmitter()
	rec := &fakeRecorder{}
	svc := newTestService(gen, em, rec)

	result := svc.Generate(context.Background(), validRequest())

	assert.Equal(t, OutcomeCreated, result.Outcome)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, "dynamic/counter.js", result.NewFilePath)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, gen.calls)

	require.Len(t, rec.records, 1)
	assert.Equal(t, history.StatusSucceeded, rec.records[0].Status)
	assert.Equal(t, "counter", rec.records[0].Filename)
}

func TestService_Generate_ValidationRejection(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newTestService(gen, newFakeEmitter(), nil)

	req := validRequest()
	req.Prompt = ""
	result := svc.Generate(context.Background(), req)

	// Validation failures ride the structured error envelope with HTTP
	// 200, the same channel the model's own refusals use.
	assert.Equal(t, OutcomeRejected, result.Outcome)
	assert.Equal(t, http.StatusOK, result.Status)
	require.NotNil(t, result.Response)
	assert.Equal(t, "MISSING_KEYS", result.Response.Error.Code)
	assert.Equal(t, http.StatusBadRequest, result.Response.Error.Status)
	assert.Contains(t, result.Response.Error.Details, "prompt")
	assert.Zero(t, gen.calls, "rejected requests never reach the model")
}

func TestService_Generate_CacheShortCircuit(t *testing.T) {
	gen := &fakeGenerator{}
	em := newFakeEmitter()
	em.existing["counter"] = true
	rec := &fakeRecorder{}
	svc := newTestService(gen, em, rec)

	req := validRequest()
	req.CacheResponse = true
	result := svc.Generate(context.Background(), req)

	assert.Equal(t, OutcomeCached, result.Outcome)
	assert.Equal(t, "dynamic/counter.js", result.NewFilePath)
	assert.Zero(t, gen.calls, "cache hits never reach the model")

	require.Len(t, rec.records, 1)
	assert.Equal(t, history.StatusCached, rec.records[0].Status)
}

func TestService_Generate_CacheMissStillGenerates(t *testing.T) {
	gen := &fakeGenerator{answers: []string{goodAnswer}}
	em := newFakeEmitter()
	svc := newTestService(gen, em, nil)

	req := validRequest()
	req.CacheResponse = true
	result := svc.Generate(context.Background(), req)

	assert.Equal(t, OutcomeCreated, result.Outcome)
	assert.Equal(t, 1, gen.calls)
}

func TestService_Generate_ParseErrorRetriedWithFeedback(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"not json at all", goodAnswer}}
	em := newFakeEmitter()
	svc := newTestService(gen, em, nil)

	result := svc.Generate(context.Background(), validRequest())

	assert.Equal(t, OutcomeCreated, result.Outcome)
	assert.Equal(t, 2, result.Attempts)
	require.Len(t, gen.payloads, 2)
	assert.NotContains(t, gen.payloads[0], "please resolve the errors")
	assert.Contains(t, gen.payloads[1], "please resolve the errors")
}

func TestService_Generate_RetriesExhausted(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"bad", "bad", "bad", "bad"}}
	svc := newTestService(gen, newFakeEmitter(), nil)

	result := svc.Generate(context.Background(), validRequest())

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, http.StatusUnprocessableEntity, result.Status)
	assert.Equal(t, maxAttempts, gen.calls)
}

func TestService_Generate_ModelRefusalForwarded(t *testing.T) {
	refusal := `{"error":{"message":"the request is irrelevant to a button","status":400,"code":"IRRELEVANT"}}`
	gen := &fakeGenerator{answers: []string{refusal}}
	rec := &fakeRecorder{}
	svc := newTestService(gen, newFakeEmitter(), rec)

	result := svc.Generate(context.Background(), validRequest())

	assert.Equal(t, OutcomeModelError, result.Outcome)
	assert.Equal(t, http.StatusOK, result.Status)
	require.NotNil(t, result.Response)
	assert.Equal(t, "the request is irrelevant to a button", result.Response.Error.Message)
	assert.Equal(t, 1, gen.calls, "structured refusals are not retried")

	require.Len(t, rec.records, 1)
	assert.Equal(t, history.StatusRejected, rec.records[0].Status)
}

func TestService_Generate_TerminalModelErrorNotRetried(t *testing.T) {
	gen := &fakeGenerator{errs: []error{&gemini.ModelError{StatusCode: http.StatusUnauthorized, Body: "bad key"}}}
	svc := newTestService(gen, newFakeEmitter(), nil)

	result := svc.Generate(context.Background(), validRequest())

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, http.StatusBadGateway, result.Status)
	assert.Equal(t, 1, gen.calls)
}

func TestService_Generate_TransientModelErrorRetried(t *testing.T) {
	gen := &fakeGenerator{
		answers: []string{"", goodAnswer},
		errs:    []error{&gemini.ModelError{StatusCode: http.StatusServiceUnavailable, Body: "overloaded"}},
	}
	svc := newTestService(gen, newFakeEmitter(), nil)

	result := svc.Generate(context.Background(), validRequest())

	assert.Equal(t, OutcomeCreated, result.Outcome)
	assert.Equal(t, 2, gen.calls)
}

func TestService_Generate_EmitFailureTerminal(t *testing.T) {
	gen := &fakeGenerator{answers: []string{goodAnswer, goodAnswer}}
	em := newFakeEmitter()
	em.err = assert.AnError
	rec := &fakeRecorder{}
	svc := newTestService(gen, em, rec)

	result := svc.Generate(context.Background(), validRequest())

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, http.StatusInternalServerError, result.Status)
	assert.Equal(t, 1, gen.calls, "emit failures are not retried")

	require.Len(t, rec.records, 1)
	assert.Equal(t, history.StatusFailed, rec.records[0].Status)
}

func TestService_Generate_ClientFeedbackAppended(t *testing.T) {
	gen := &fakeGenerator{answers: []string{goodAnswer}}
	svc := newTestService(gen, newFakeEmitter(), nil)

	req := validRequest()
	req.Feedback = "the previous handler threw a TypeError"
	svc.Generate(context.Background(), req)

	require.Len(t, gen.payloads, 1)
	assert.Contains(t, gen.payloads[0], "please resolve the errors: the previous handler threw a TypeError")
}

func TestService_IsHealthy(t *testing.T) {
	svc := newTestService(&fakeGenerator{healthy: true}, newFakeEmitter(), nil)
	assert.True(t, svc.IsHealthy(context.Background()))

	svc = newTestService(&fakeGenerator{healthy: false}, newFakeEmitter(), nil)
	assert.False(t, svc.IsHealthy(context.Background()))
}
