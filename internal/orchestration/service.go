// Package orchestration runs the prompt-to-code pipeline: validate the
// request, short-circuit on a cached artifact, assemble instructions,
// call the model, parse and materialize the response, and emit the
// module. Parse and transient model failures are retried with error
// feedback; materialization and filesystem failures are terminal.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/intelligent-react-components/irc-server/internal/gemini"
	"github.com/intelligent-react-components/irc-server/internal/history"
	"github.com/intelligent-react-components/irc-server/internal/instruction"
	"github.com/intelligent-react-components/irc-server/internal/metrics"
	"github.com/intelligent-react-components/irc-server/internal/request"
	"github.com/intelligent-react-components/irc-server/internal/response"
)

// maxAttempts caps the generate-parse loop per request. The feedback
// re-prompt makes later attempts strictly more informed, but a model
// that cannot produce valid JSON in four tries will not in five.
const maxAttempts = 4

// Outcome of one generation request.
const (
	OutcomeCreated    = "created"
	OutcomeCached     = "cached"
	OutcomeModelError = "model_error"
	OutcomeRejected   = "rejected"
	OutcomeFailed     = "failed"
)

// Emitter writes parsed responses to the artifact cache.
type Emitter interface {
	Emit(filename string, resp *request.AIResponse) (string, error)
	Exists(filename string) bool
	ModulePath(filename string) string
}

// Recorder persists generation outcomes. A nil Recorder disables
// history.
type Recorder interface {
	Append(ctx context.Context, rec history.Record) error
}

// Result is the outcome of one generation, ready for the transport
// layer to map onto a response.
type Result struct {
	Outcome     string
	Status      int
	NewFilePath string
	// Response carries the structured error envelope when Outcome is
	// OutcomeModelError (the model's refusal) or OutcomeRejected (a
	// validation failure).
	Response *request.AIResponse
	Message  string
	Attempts int
}

// Service orchestrates the generation pipeline.
type Service struct {
	assembler *instruction.Assembler
	generator gemini.Generator
	emitter   Emitter
	recorder  Recorder
	metrics   *metrics.GenerationMetrics
	tracer    trace.Tracer
	log       *zap.Logger
}

// NewService wires the pipeline stages together. recorder and gm may
// be nil.
func NewService(assembler *instruction.Assembler, generator gemini.Generator, emitter Emitter, recorder Recorder, gm *metrics.GenerationMetrics, log *zap.Logger) *Service {
	return &Service{
		assembler: assembler,
		generator: generator,
		emitter:   emitter,
		recorder:  recorder,
		metrics:   gm,
		tracer:    otel.Tracer("generation-service"),
		log:       log,
	}
}

// Generate runs the full pipeline for one request.
func (s *Service) Generate(ctx context.Context, req *request.GenerationRequest) *Result {
	ctx, span := s.tracer.Start(ctx, "generation.generate")
	defer span.End()

	started := time.Now()
	req.Normalize()

	span.SetAttributes(
		attribute.String("element", string(req.Element)),
		attribute.String("filename", req.Filename),
		attribute.Bool("cache_response", req.CacheResponse),
	)

	if detail := req.Validate(); detail != nil {
		span.SetAttributes(attribute.String("outcome", OutcomeRejected))
		s.log.Warn("request rejected",
			zap.String("filename", req.Filename),
			zap.String("message", detail.Message),
			zap.String("code", detail.Code))
		// Validation failures travel in the same structured error
		// envelope the model uses, with HTTP 200; the component layer
		// renders the detail inline. Non-2xx is reserved for failures
		// the caller cannot act on.
		return &Result{
			Outcome:  OutcomeRejected,
			Status:   http.StatusOK,
			Response: &request.AIResponse{Error: *detail},
		}
	}

	if s.metrics != nil {
		s.metrics.RecordStarted(ctx, string(req.Element), req.Filename)
	}

	if req.CacheResponse && s.emitter.Exists(req.Filename) {
		path := s.emitter.ModulePath(req.Filename)
		span.SetAttributes(attribute.String("outcome", OutcomeCached))
		if s.metrics != nil {
			s.metrics.RecordCacheHit(ctx, string(req.Element), req.Filename)
			s.metrics.RecordCompleted(ctx, string(req.Element), req.Filename, 0, time.Since(started))
		}
		s.record(ctx, req, history.Record{
			Status:       history.StatusCached,
			ArtifactPath: path,
			DurationMS:   time.Since(started).Milliseconds(),
		})
		s.log.Info("served from artifact cache",
			zap.String("filename", req.Filename),
			zap.String("path", path))
		return &Result{Outcome: OutcomeCached, Status: http.StatusOK, NewFilePath: path}
	}

	result := s.generate(ctx, req)
	result.finishMetrics(ctx, s, req, started)
	s.record(ctx, req, result.historyRecord(started))
	return result
}

func (s *Service) generate(ctx context.Context, req *request.GenerationRequest) *Result {
	payload, err := request.Sanitize(req)
	if err != nil {
		return &Result{
			Outcome: OutcomeFailed,
			Status:  http.StatusInternalServerError,
			Message: fmt.Sprintf("failed to serialize request: %v", err),
		}
	}

	keys, err := request.KeysOf(req)
	if err != nil {
		return &Result{
			Outcome: OutcomeFailed,
			Status:  http.StatusInternalServerError,
			Message: fmt.Sprintf("failed to inspect request: %v", err),
		}
	}

	instructions := s.assembler.Assemble(req.Element, keys, req.Prompt)

	feedback := req.Feedback
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 && s.metrics != nil {
			s.metrics.RecordRetry(ctx, string(req.Element), attempt)
		}

		userPayload := payload
		if feedback != "" {
			userPayload = payload + "\nplease resolve the errors: " + feedback
		}

		raw, err := s.generator.Generate(ctx, instructions, userPayload)
		if err != nil {
			lastErr = err
			if retryableModelError(err) {
				s.log.Warn("model call failed, retrying",
					zap.Int("attempt", attempt),
					zap.Error(err))
				feedback = err.Error()
				continue
			}
			return &Result{
				Outcome:  OutcomeFailed,
				Status:   http.StatusBadGateway,
				Message:  fmt.Sprintf("model invocation failed: %v", err),
				Attempts: attempt,
			}
		}

		parsed, err := response.Clean(raw)
		if err != nil {
			lastErr = err
			s.log.Warn("model response unparseable, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err))
			feedback = err.Error()
			continue
		}

		if parsed.HasError() {
			// The model's structured refusal is forwarded verbatim so
			// the component can surface the diagnostic.
			s.log.Info("model rejected request",
				zap.String("filename", req.Filename),
				zap.String("message", parsed.Error.Message),
				zap.Int("status", parsed.Error.Status))
			return &Result{
				Outcome:  OutcomeModelError,
				Status:   http.StatusOK,
				Response: parsed,
				Attempts: attempt,
			}
		}

		path, err := s.emitter.Emit(req.Filename, parsed)
		if err != nil {
			return &Result{
				Outcome:  OutcomeFailed,
				Status:   http.StatusInternalServerError,
				Message:  fmt.Sprintf("failed to emit artifact: %v", err),
				Attempts: attempt,
			}
		}

		s.log.Info("generation complete",
			zap.String("filename", req.Filename),
			zap.String("path", path),
			zap.Int("attempts", attempt))
		return &Result{
			Outcome:     OutcomeCreated,
			Status:      http.StatusOK,
			NewFilePath: path,
			Attempts:    attempt,
		}
	}

	return &Result{
		Outcome:  OutcomeFailed,
		Status:   http.StatusUnprocessableEntity,
		Message:  fmt.Sprintf("generation failed after %d attempts: %v", maxAttempts, lastErr),
		Attempts: maxAttempts,
	}
}

// retryableModelError reports whether another model call may help. A
// parse failure upstream is always retryable; transport errors follow
// the client's classification.
func retryableModelError(err error) bool {
	var modelErr *gemini.ModelError
	if errors.As(err, &modelErr) {
		return modelErr.Retryable()
	}
	// Breaker-open and network errors get a retry; the breaker caps
	// the damage.
	return true
}

func (r *Result) finishMetrics(ctx context.Context, s *Service, req *request.GenerationRequest, started time.Time) {
	if s.metrics == nil {
		return
	}
	switch r.Outcome {
	case OutcomeCreated:
		s.metrics.RecordCompleted(ctx, string(req.Element), req.Filename, r.Attempts, time.Since(started))
	case OutcomeModelError:
		s.metrics.RecordFailed(ctx, string(req.Element), req.Filename, "model_rejection", time.Since(started))
	case OutcomeFailed:
		s.metrics.RecordFailed(ctx, string(req.Element), req.Filename, "pipeline_error", time.Since(started))
	}
}

func (r *Result) historyRecord(started time.Time) history.Record {
	rec := history.Record{
		Attempts:     r.Attempts,
		ArtifactPath: r.NewFilePath,
		DurationMS:   time.Since(started).Milliseconds(),
	}
	switch r.Outcome {
	case OutcomeCreated:
		rec.Status = history.StatusSucceeded
	case OutcomeModelError:
		rec.Status = history.StatusRejected
		if r.Response != nil {
			rec.Error = r.Response.Error.Message
		}
	default:
		rec.Status = history.StatusFailed
		rec.Error = r.Message
	}
	return rec
}

func (s *Service) record(ctx context.Context, req *request.GenerationRequest, rec history.Record) {
	if s.recorder == nil {
		return
	}
	rec.Filename = req.Filename
	rec.Element = string(req.Element)
	rec.Prompt = req.Prompt
	if err := s.recorder.Append(ctx, rec); err != nil {
		s.log.Error("failed to record generation history", zap.Error(err))
	}
}

// IsHealthy reports readiness of the pipeline's external dependency.
func (s *Service) IsHealthy(ctx context.Context) bool {
	return s.generator.IsHealthy(ctx)
}
