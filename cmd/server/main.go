package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "audioswarm/searchservice/internal/api/http"
	"audioswarm/searchservice/internal/app"
	"audioswarm/searchservice/internal/domain"
	"audioswarm/searchservice/internal/metrics"
	"audioswarm/searchservice/internal/search"
	"audioswarm/searchservice/internal/source"
	"audioswarm/searchservice/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "audioswarm-search")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "audioswarm-search"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("globalTimeout", cfg.GlobalTimeout),
		slog.Duration("fetchTimeout", cfg.FetchTimeout),
		slog.String("classifierMode", cfg.ClassifierMode),
		slog.Int("minScore", cfg.MinScore),
		slog.String("jsonbayEndpoint", cfg.JSONBayEndpoint),
		slog.String("audionexusEndpoint", cfg.AudioNexusEndpoint),
		slog.String("trackerhqEndpoint", cfg.TrackerHQEndpoint),
		slog.Bool("hasTrackerhqCredentials", cfg.TrackerHQUsername != "" && cfg.TrackerHQPassword != ""),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Duration("cacheTTL", cfg.CacheTTL),
	)

	httpClient := &http.Client{
		Timeout:   cfg.FetchTimeout + 2*time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	fetchClient := source.NewClient(httpClient, cfg.UserAgent, cfg.FetchTimeout)
	registry := source.NewRegistry(fetchClient, httpClient, cfg.UserAgent)
	source.Bootstrap(registry, cfg)

	entries := registry.Entries()
	sources := make([]search.Source, 0, len(entries))
	for _, entry := range entries {
		sources = append(sources, entry)
	}

	searchService := search.NewService(sources, search.Options{
		GlobalTimeout: cfg.GlobalTimeout,
		MinScore:      cfg.MinScore,
		EnrichMin:     cfg.EnrichMin,
		EnrichMax:     cfg.EnrichMax,
		FallbackLimit: cfg.FallbackLimit,
		Classifier:    search.NewClassifier(domain.NormalizeClassifierMode(cfg.ClassifierMode)),
	}, buildServiceOptions(cfg, logger)...)

	handler := apihttp.NewServer(searchService,
		apihttp.WithLogger(logger),
		apihttp.WithSourceToggler(registry),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.GlobalTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("search service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Duration("timeout", cfg.GlobalTimeout),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("search service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildServiceOptions(cfg app.Config, logger *slog.Logger) []search.ServiceOption {
	var opts []search.ServiceOption

	if cfg.CacheDisabled {
		opts = append(opts, search.WithCacheDisabled(true))
		return opts
	}

	if cfg.CacheTTL > 0 {
		opts = append(opts, search.WithCacheTTL(cfg.CacheTTL))
	}

	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Warn("invalid redis url, using in-memory cache only", slog.String("error", err.Error()))
			return opts
		}
		redisClient := redis.NewClient(redisOpts)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis not reachable, using in-memory cache only", slog.String("error", err.Error()))
			return opts
		}
		logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
		opts = append(opts, search.WithRedisCache(search.NewRedisCacheBackend(redisClient)))
	}

	return opts
}
