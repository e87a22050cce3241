// Command worker consumes evaluation jobs from the queue, runs the
// evaluator, and stores annotated reports.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tutorstack/essay-tutor/internal/adapter/ai/openrouter"
	"github.com/tutorstack/essay-tutor/internal/adapter/ai/stub"
	"github.com/tutorstack/essay-tutor/internal/adapter/observability"
	"github.com/tutorstack/essay-tutor/internal/adapter/queue/redpanda"
	"github.com/tutorstack/essay-tutor/internal/adapter/repo/postgres"
	"github.com/tutorstack/essay-tutor/internal/config"
	"github.com/tutorstack/essay-tutor/internal/domain"
	"github.com/tutorstack/essay-tutor/internal/report"
	"github.com/tutorstack/essay-tutor/internal/service/ratelimiter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	// Dedicated /metrics endpoint so Prometheus can scrape job metrics.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", mux); err != nil {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	pool, err := postgres.NewPool(context.Background(), cfg.DBURL)
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	jobRepo := postgres.NewJobRepo(pool)
	essayRepo := postgres.NewEssayRepo(pool)
	reportRepo := postgres.NewReportRepo(pool)

	rubric := report.DefaultRubric()
	if cfg.RubricPath != "" {
		rubric, err = report.LoadRubric(cfg.RubricPath)
		if err != nil {
			slog.Error("rubric load failed", slog.String("path", cfg.RubricPath), slog.Any("error", err))
			os.Exit(1)
		}
	}
	slog.Info("rubric loaded", slog.String("rubric_id", rubric.ID), slog.Float64("scale", rubric.Scale))

	aicl := buildAIClient(cfg)

	handler := redpanda.NewEvaluationHandler(jobRepo, essayRepo, reportRepo, aicl, rubric, cfg.AIMaxTokens)

	consumer, err := redpanda.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, handler, cfg.ConsumerMaxConcurrency)
	if err != nil {
		slog.Error("redpanda consumer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			slog.Error("failed to close consumer", slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("consumer error", slog.Any("error", err))
		}
	}()

	slog.Info("worker started, waiting for shutdown signal")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	slog.Info("signal received, shutting down", slog.String("signal", sig.String()))
	cancel()
}

// buildAIClient selects the evaluator client. Dev without an API key gets
// the deterministic stub so the full pipeline runs offline.
func buildAIClient(cfg config.Config) domain.AIClient {
	if cfg.OpenRouterAPIKey == "" && cfg.IsDev() {
		slog.Warn("no OpenRouter API key; using stub evaluator")
		return stub.New()
	}

	var limiter ratelimiter.Limiter
	if opts, err := redis.ParseURL(cfg.RedisURL); err == nil {
		rdb := redis.NewClient(opts)
		limiter = ratelimiter.NewRedisLimiter(rdb, map[string]ratelimiter.BucketConfig{
			openrouter.RateLimitKey: ratelimiter.NewBucketConfigFromPerMinute(cfg.AIRatePerMin),
		})
	} else {
		slog.Warn("invalid redis url; evaluator rate limiting disabled", slog.Any("error", err))
	}
	return openrouter.New(cfg, limiter)
}
