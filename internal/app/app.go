package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"speakgate/internal/assess"
	"speakgate/internal/config"
	"speakgate/internal/httpapi"
	"speakgate/internal/llm"
	"speakgate/internal/observability"
	"speakgate/internal/provider"
	"speakgate/internal/ratelimit"
)

type App struct {
	Config   config.Config
	Target   provider.Target
	LLM      *llm.Client
	Limiter  ratelimit.Limiter
	Observer *observability.RequestObserver
	Service  *assess.Service
	Handler  *httpapi.Handler

	redis *ratelimit.Redis
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	target, err := provider.Resolve(cfg.Provider.URL, cfg.Provider.APIKey)
	if err != nil {
		return nil, err
	}
	if provider.HasEmbeddedQuery(cfg.Provider.URL) {
		log.Printf("warning: provider url already carries a query string; credentials belong in provider.api_key")
	}
	log.Printf("provider %s auth=%s", target.Redacted(), target.AuthMode)

	observer := observability.NewRequestObserver(log.Default())
	client := llm.NewClient(cfg.Provider.AssessTimeout, cfg.Provider.ChatTimeout)

	a := &App{
		Config:   cfg,
		Target:   target,
		LLM:      client,
		Observer: observer,
	}

	if cfg.RateLimit.RedisURL != "" {
		rl, err := ratelimit.NewRedis(cfg.RateLimit.RedisURL, cfg.RateLimit.Max, cfg.RateLimit.Window)
		if err != nil {
			return nil, err
		}
		if err := rl.Ping(ctx); err != nil {
			log.Printf("redis ping failed, requests will not be limited until it recovers: %v", err)
		}
		a.redis = rl
		a.Limiter = rl
	} else {
		a.Limiter = ratelimit.NewMemory(cfg.RateLimit.Max, cfg.RateLimit.Window)
	}

	a.Service = assess.NewService(target, client, observer)
	a.Handler = httpapi.NewHandler(cfg, a.Service, a.Limiter, observer)
	a.Handler.Ready = a.ready
	return a, nil
}

func (a *App) ready(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Ping(ctx)
}

func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.HTTP.Addr,
		Handler:           a.Handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
