// Package gateway is the HTTP surface of the server: the
// prompt-to-code endpoint, generation history, health probes, and the
// artifact event stream.
package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/intelligent-react-components/irc-server/internal/history"
	"github.com/intelligent-react-components/irc-server/internal/orchestration"
	"github.com/intelligent-react-components/irc-server/internal/request"
)

// HistoryReader lists recorded generations. A nil reader disables the
// history endpoints.
type HistoryReader interface {
	List(ctx context.Context, limit int) ([]history.Record, error)
	ByFilename(ctx context.Context, filename string) ([]history.Record, error)
}

// Handler handles HTTP requests for the gateway layer.
type Handler struct {
	service *orchestration.Service
	reader  HistoryReader
	log     *zap.Logger
}

// NewHandler creates a gateway handler.
func NewHandler(service *orchestration.Service, reader HistoryReader, log *zap.Logger) *Handler {
	return &Handler{
		service: service,
		reader:  reader,
		log:     log,
	}
}

// PromptToCodeResponse is the success body of POST /prompt-to-code.
type PromptToCodeResponse struct {
	NewFilePath string `json:"newFilePath"`
}

// ErrorResponse is the body of failed requests.
type ErrorResponse struct {
	Message string `json:"message"`
}

// PromptToCode handles POST /prompt-to-code. A successful generation
// (or cache hit) answers with the artifact path; validation failures
// and structured model refusals travel back as the error envelope with
// status 200 so the component layer can render the detail inline;
// everything else maps to a non-2xx message body.
func (h *Handler) PromptToCode(c *gin.Context) {
	var req request.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request body"})
		return
	}

	result := h.service.Generate(c.Request.Context(), &req)

	switch result.Outcome {
	case orchestration.OutcomeCreated, orchestration.OutcomeCached:
		c.JSON(http.StatusOK, PromptToCodeResponse{NewFilePath: result.NewFilePath})
	case orchestration.OutcomeModelError, orchestration.OutcomeRejected:
		c.JSON(http.StatusOK, result.Response)
	default:
		c.JSON(result.Status, ErrorResponse{Message: result.Message})
	}
}

// Generations handles GET /generations. The filename query parameter
// narrows the listing to one artifact; limit caps the page size.
func (h *Handler) Generations(c *gin.Context) {
	if h.reader == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Generation history is disabled"})
		return
	}

	ctx := c.Request.Context()

	if filename := c.Query("filename"); filename != "" {
		records, err := h.reader.ByFilename(ctx, filename)
		if err != nil {
			h.log.Error("failed to list generations", zap.String("filename", filename), zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Failed to list generations"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"generations": records})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	records, err := h.reader.List(ctx, limit)
	if err != nil {
		h.log.Error("failed to list generations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Failed to list generations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"generations": records})
}

// Health handles GET /health, a liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /ready. Readiness tracks the model gateway: a
// server that cannot reach the model cannot serve its one purpose.
func (h *Handler) Ready(c *gin.Context) {
	if !h.service.IsHealthy(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "reason": "model gateway unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// NotFound answers every unrouted path.
func (h *Handler) NotFound(c *gin.Context) {
	c.String(http.StatusNotFound, "Not Found")
}
