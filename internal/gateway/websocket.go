package gateway

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/intelligent-react-components/irc-server/internal/watcher"
)

var wsTracer = otel.Tracer("artifact-stream")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The stream carries filenames only and serves local dev
		// tooling on arbitrary ports.
		return true
	},
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// ArtifactStream pushes cache change events to connected clients,
// letting the component layer hot-reload regenerated handlers.
type ArtifactStream struct {
	watcher *watcher.Watcher
	tracer  trace.Tracer
	log     *zap.Logger
}

// NewArtifactStream creates the websocket endpoint over the watcher.
func NewArtifactStream(w *watcher.Watcher, log *zap.Logger) *ArtifactStream {
	return &ArtifactStream{
		watcher: w,
		tracer:  wsTracer,
		log:     log,
	}
}

// Stream handles GET /ws/artifacts. Events flow one way, server to
// client; client messages are read only to detect disconnects.
func (s *ArtifactStream) Stream(c *gin.Context) {
	_, span := s.tracer.Start(c.Request.Context(), "artifact_stream.connect")
	defer span.End()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		s.log.Warn("failed to upgrade connection", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := s.watcher.Subscribe()
	defer cancel()

	span.SetAttributes(attribute.String("remote", c.ClientIP()))
	s.log.Info("artifact stream connected", zap.String("remote", c.ClientIP()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			s.log.Info("artifact stream disconnected", zap.String("remote", c.ClientIP()))
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case event, ok := <-events:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "watcher stopped"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				s.log.Warn("artifact stream write failed", zap.Error(err))
				return
			}
		}
	}
}
