// Command agent-worker subscribes to the LiveKit session event feed and
// drives call sessions: assistant resolution, transcript aggregation and
// end-of-call finalization with persistence and webhook delivery.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/shubhamINT/api-livekit/internal/assistant"
	"github.com/shubhamINT/api-livekit/internal/config"
	"github.com/shubhamINT/api-livekit/internal/health"
	"github.com/shubhamINT/api-livekit/internal/observe"
	"github.com/shubhamINT/api-livekit/internal/recording"
	"github.com/shubhamINT/api-livekit/internal/session"
	"github.com/shubhamINT/api-livekit/internal/store/postgres"
	"github.com/shubhamINT/api-livekit/internal/transport"
	"github.com/shubhamINT/api-livekit/internal/webhook"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "agent-worker: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "agent-worker: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("agent-worker starting",
		"config", *configPath,
		"livekit_url", cfg.LiveKit.URL,
		"agent_name", cfg.LiveKit.AgentName,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "agent-worker"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	db, err := postgres.NewStore(ctx, cfg.Database.PostgresDSN)
	if err != nil {
		slog.Error("failed to connect to database", "err", err)
		return 1
	}
	defer db.Close()

	lk, err := transport.NewClient(cfg.LiveKit.URL, cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, cfg.LiveKit.AgentName)
	if err != nil {
		slog.Error("failed to create livekit client", "err", err)
		return 1
	}
	minter, err := transport.NewTokenMinter(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret)
	if err != nil {
		slog.Error("failed to create token minter", "err", err)
		return 1
	}

	deps := session.Deps{
		Assistants: assistant.NewResolver(db),
		Webhooks:   newDispatcher(cfg.Webhook, metrics),
		Calls:      db,
		Metrics:    metrics,
	}

	// The egress lookup works without S3; the object-store fallback only
	// needs a client when a bucket is configured.
	var s3c recording.ObjectHeader
	if cfg.Recording.Bucket != "" {
		s3c, err = recording.NewS3Client(ctx, cfg.Recording)
		if err != nil {
			slog.Error("failed to create s3 client", "err", err)
			return 1
		}
	}
	deps.Recordings = recording.NewResolver(lk, s3c, cfg.Recording)

	feedURL := cfg.LiveKit.ResolvedFeedURL()
	feed, err := transport.DialFeed(ctx, feedURL, minter)
	if err != nil {
		slog.Error("failed to dial event feed", "url", feedURL, "err", err)
		return 1
	}
	defer feed.Close()
	slog.Info("subscribed to event feed", "url", feedURL)

	// Health and metrics endpoint. Readiness covers the database only; the
	// feed is re-dialled by restarting the process.
	srv := newOpsServer(cfg.Server.ListenAddr, db)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ops server error", "err", err)
		}
	}()

	manager := session.NewManager(deps)
	err = manager.Run(ctx, feed.Events())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		slog.Warn("ops server shutdown error", "err", serr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	if ferr := feed.Err(); ferr != nil {
		slog.Error("event feed failed", "err", ferr)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// newDispatcher builds the webhook dispatcher from config, falling back to
// the built-in defaults for unset values.
func newDispatcher(cfg config.WebhookConfig, metrics *observe.Metrics) *webhook.Dispatcher {
	opts := []webhook.Option{webhook.WithMetrics(metrics)}
	if cfg.MaxAttempts > 0 {
		opts = append(opts, webhook.WithMaxAttempts(cfg.MaxAttempts))
	}
	if cfg.InitialBackoff > 0 && cfg.MaxBackoff > 0 {
		opts = append(opts, webhook.WithBackoff(cfg.InitialBackoff.Std(), cfg.MaxBackoff.Std()))
	}
	if cfg.RequestTimeout > 0 {
		opts = append(opts, webhook.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout.Std()}))
	}
	return webhook.NewDispatcher(opts...)
}

func newOpsServer(addr string, db *postgres.Store) *http.Server {
	if addr == "" {
		addr = ":9090"
	}
	hc := health.New(health.Checker{Name: "database", Check: db.Ping})
	mux := http.NewServeMux()
	hc.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
