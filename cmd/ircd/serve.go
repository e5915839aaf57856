package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/intelligent-react-components/irc-server/internal/auth"
	"github.com/intelligent-react-components/irc-server/internal/config"
	"github.com/intelligent-react-components/irc-server/internal/emitter"
	"github.com/intelligent-react-components/irc-server/internal/gateway"
	"github.com/intelligent-react-components/irc-server/internal/gemini"
	"github.com/intelligent-react-components/irc-server/internal/history"
	"github.com/intelligent-react-components/irc-server/internal/instruction"
	"github.com/intelligent-react-components/irc-server/internal/logging"
	"github.com/intelligent-react-components/irc-server/internal/metrics"
	"github.com/intelligent-react-components/irc-server/internal/orchestration"
	"github.com/intelligent-react-components/irc-server/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the generation server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	tp, err := initTracer()
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	store := instruction.NewStore(cfg.Instructions.Dir, log)
	assembler := instruction.NewAssembler(store, cfg.Instructions.DebugPath, log)

	client := gemini.NewClient(gemini.Config{
		APIKey:          cfg.Gemini.APIKey,
		BaseURL:         cfg.Gemini.BaseURL,
		Model:           cfg.Gemini.Model,
		Temperature:     cfg.Gemini.Temperature,
		TopP:            cfg.Gemini.TopP,
		TopK:            cfg.Gemini.TopK,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
		Timeout:         cfg.GeminiTimeout(),
	}, log)

	writer := emitter.NewWriter(cfg.Cache.Dir, log)

	var recorder orchestration.Recorder
	var reader gateway.HistoryReader
	if cfg.History.Enabled {
		histStore, err := history.NewStore(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer histStore.Close()
		recorder = histStore
		reader = histStore
	}

	gm, err := metrics.NewGenerationMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	service := orchestration.NewService(assembler, client, writer, recorder, gm, log)
	handler := gateway.NewHandler(service, reader, log)

	var jwtManager *auth.JWTManager
	if cfg.Auth.Enabled {
		jwtManager, err = auth.NewJWTManager(cfg.Auth.Secret, cfg.Auth.Issuer)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var stream *gateway.ArtifactStream
	var artifactWatcher *watcher.Watcher
	if cfg.Cache.Watch {
		artifactWatcher, err = watcher.New(cfg.Cache.Dir, log)
		if err != nil {
			return fmt.Errorf("failed to create artifact watcher: %w", err)
		}
		defer artifactWatcher.Close()
		if err := artifactWatcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start artifact watcher: %w", err)
		}
		stream = gateway.NewArtifactStream(artifactWatcher, log)
	}

	router := gateway.NewRouter(handler, stream, jwtManager, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // generation calls are slow
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server",
			zap.Int("port", cfg.Server.Port),
			zap.String("cache_dir", cfg.Cache.Dir),
			zap.String("model", cfg.Gemini.Model),
			zap.Bool("auth", cfg.Auth.Enabled))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return tp.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server exited")
	return nil
}

// initTracer installs a stdout-exporting tracer provider.
func initTracer() (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp, nil
}
