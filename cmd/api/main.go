package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/podcastai/internal/api"
	"github.com/nikhilbhutani/podcastai/internal/api/handlers"
	"github.com/nikhilbhutani/podcastai/internal/audio"
	"github.com/nikhilbhutani/podcastai/internal/cache"
	"github.com/nikhilbhutani/podcastai/internal/config"
	"github.com/nikhilbhutani/podcastai/internal/fetcher"
	"github.com/nikhilbhutani/podcastai/internal/jobstore"
	"github.com/nikhilbhutani/podcastai/internal/llm"
	"github.com/nikhilbhutani/podcastai/internal/metrics"
	"github.com/nikhilbhutani/podcastai/internal/podcast"
	"github.com/nikhilbhutani/podcastai/internal/retry"
	"github.com/nikhilbhutani/podcastai/internal/script"
	"github.com/nikhilbhutani/podcastai/internal/tts"
	"github.com/nikhilbhutani/podcastai/internal/webhook"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger, logCloser := newLogger(cfg.Log)
	slog.SetDefault(logger)
	defer logCloser.Close()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	m := metrics.New()
	checks := map[string]handlers.Pinger{}

	// Fetch cache: Redis when configured and reachable, process memory otherwise.
	var fetchCache cache.Cache = cache.NewLocalCache(cfg.Fetcher.CacheTTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		rc := cache.NewRedisCache(rdb, "podcastai:")
		if err := rc.Ping(ctx); err != nil {
			slog.Warn("redis unavailable, using in-memory fetch cache", "error", err)
		} else {
			fetchCache = rc
			checks["redis"] = rc
		}
	}

	policy := retry.DefaultPolicy()

	scriptPolicy := policy
	scriptPolicy.AttemptTimeout = cfg.LLM.CallTimeout
	scripts := script.NewSynthesizer(llm.NewGateway(cfg.LLM), script.Options{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Retry:       scriptPolicy,
	}, m)

	audioPolicy := policy
	audioPolicy.AttemptTimeout = cfg.TTS.CallTimeout
	speech := tts.NewOpenAITTS(tts.OpenAIConfig{
		APIKey:  cfg.TTS.OpenAIKey,
		BaseURL: cfg.TTS.OpenAIBaseURL,
		Model:   cfg.TTS.Model,
	})
	audioSynth := audio.NewSynthesizer(speech, audio.Options{
		VoiceHostA:    cfg.TTS.VoiceHostA,
		VoiceHostB:    cfg.TTS.VoiceHostB,
		MaxInputChars: cfg.TTS.MaxInputChars,
		Retry:         audioPolicy,
	}, m)

	var contentFetcher podcast.ContentFetcher
	if cfg.Fetcher.Enrichment == config.EnrichmentFetch {
		contentFetcher = fetcher.New(cfg.Fetcher, fetchCache, m)
	}

	var opts []podcast.Option
	var notifier *webhook.Dispatcher
	if cfg.Webhook.URL != "" {
		notifier = webhook.NewDispatcher(cfg.Webhook.URL, cfg.Webhook.Secret, cfg.Webhook.Timeout, policy)
		opts = append(opts, podcast.WithNotifier(notifier))
	}

	store := jobstore.New(cfg.Jobs.Retention)
	m.WatchStoredJobs(store.Len)
	orchestrator := podcast.New(store, scripts, audioSynth, contentFetcher, m, opts...)

	router := api.NewRouter(cfg.Server, orchestrator, store, m, checks)
	handler := router.Setup()

	srv := newServer(cfg.Addr(), handler)

	go func() {
		slog.Info("starting API server",
			"addr", cfg.Addr(),
			"llm_provider", cfg.LLM.DefaultProvider,
			"llm_model", cfg.LLM.Model,
			"url_enrichment", cfg.Fetcher.Enrichment,
			"fetch_cache", fetchCache.Name(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}

	// Jobs are held in memory, so give running pipelines a chance to finish.
	waitCtx, cancelWait := context.WithTimeout(context.Background(), cfg.Jobs.ShutdownTimeout)
	defer cancelWait()
	if err := orchestrator.Wait(waitCtx); err != nil {
		slog.Warn("abandoning in-flight podcast jobs", "error", err)
	}
	if notifier != nil {
		if err := notifier.Close(waitCtx); err != nil {
			slog.Warn("pending webhook notifications dropped", "error", err)
		}
	}
	slog.Info("server stopped")
}
