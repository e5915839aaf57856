// Package gemini is the single egress point to the Gemini
// generateContent API. The rest of the pipeline sees prompts in and raw
// text out; transport, rate limiting and circuit breaking live here.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Generator produces raw model text for an instruction document and a
// serialized request payload.
type Generator interface {
	Generate(ctx context.Context, instructions, payload string) (string, error)
	IsHealthy(ctx context.Context) bool
}

// Config carries the model invocation parameters. Zero values fall
// back to the defaults below.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
	Timeout         time.Duration
}

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"
	defaultTimeout = 2 * time.Minute

	maxRetries = 3
)

// ModelError is a non-2xx answer from the API. Rate-limit and server
// errors are retryable; client errors are not.
type ModelError struct {
	StatusCode int
	Body       string
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model API returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether another attempt may succeed.
func (e *ModelError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client talks to the generateContent endpoint. A token-bucket limiter
// smooths burst traffic and a circuit breaker sheds load when the API
// is failing consistently.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	log        *zap.Logger
}

// NewClient creates a Gemini client from config.
func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	settings := gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tracer:     otel.Tracer("gemini-client"),
		breaker:    gobreaker.NewCircuitBreaker(settings),
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		log:        log,
	}
}

// SetBaseURL overrides the endpoint, used by tests.
func (c *Client) SetBaseURL(baseURL string) {
	c.cfg.BaseURL = baseURL
}

// Wire types for the generateContent endpoint.
type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the instruction document as the system instruction
// and the serialized request as the user turn, returning the raw model
// text. Rate-limit and server errors are retried with exponential
// backoff inside the call; the orchestrator's semantic retry loop sits
// above this.
func (c *Client) Generate(ctx context.Context, instructions, payload string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "gemini.generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("model", c.cfg.Model),
		attribute.Int("instructions_len", len(instructions)),
		attribute.Int("payload_len", len(payload)),
	)

	if c.cfg.APIKey == "" {
		err := fmt.Errorf("gemini API key not configured")
		span.RecordError(err)
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generateInternal(ctx, instructions, payload)
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to invoke model: %w", err)
	}

	text := result.(string)
	span.SetAttributes(attribute.Int("response_len", len(text)))
	return text, nil
}

func (c *Client) generateInternal(ctx context.Context, instructions, payload string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: payload}}},
		},
		SystemInstruction: &content{
			Parts: []part{{Text: instructions}},
		},
		GenerationConfig: generationConfig{
			Temperature:     c.cfg.Temperature,
			TopP:            c.cfg.TopP,
			TopK:            c.cfg.TopK,
			MaxOutputTokens: c.cfg.MaxOutputTokens,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.cfg.BaseURL, c.cfg.Model, c.cfg.APIKey)

	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * time.Second
			c.log.Warn("retrying model call",
				zap.Int("attempt", i),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := c.doRequest(ctx, url, jsonData)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if modelErr, ok := err.(*ModelError); ok && !modelErr.Retryable() {
			return "", err
		}
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, url string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ModelError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", &ModelError{StatusCode: parsed.Error.Code, Body: parsed.Error.Message}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no completion returned")
	}

	var b strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String()), nil
}

// IsHealthy reports whether the client is able to take traffic, using
// the breaker state as a fast signal.
func (c *Client) IsHealthy(ctx context.Context) bool {
	_, span := c.tracer.Start(ctx, "gemini.health_check")
	defer span.End()

	healthy := c.breaker.State() != gobreaker.StateOpen && c.cfg.APIKey != ""
	span.SetAttributes(attribute.Bool("healthy", healthy))
	return healthy
}
