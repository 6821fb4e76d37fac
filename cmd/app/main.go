package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"bitmapadapter/internal/config"
	"bitmapadapter/internal/handler"
	"bitmapadapter/internal/janitor"
	"bitmapadapter/internal/log"
	"bitmapadapter/internal/metrics"
	"bitmapadapter/internal/middleware"
	"bitmapadapter/internal/pipeline"
	"bitmapadapter/internal/requestip"
	"bitmapadapter/internal/stage"
	"bitmapadapter/internal/storage"
	"bitmapadapter/internal/watcher"
	"bitmapadapter/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config: %v", err)
	}
	log.SetLevel(cfg.LogLevel)

	st := stage.New(cfg.Stage)
	adapter := pipeline.NewAdapter(st,
		pipeline.WithDecoder(&pipeline.ImageDecoder{MaxBytes: cfg.MaxUploadBytes, MaxDimension: cfg.MaxDimension}),
		pipeline.WithOutputFormat(cfg.OutputFormat),
		pipeline.WithMaxOutputDimension(2*cfg.MaxDimension),
	)
	store := storage.New(cfg.DataDir)
	if err := storage.EnsureDir(store.Fs, store.BaseDir); err != nil {
		log.Fatal("data dir %s: %v", cfg.DataDir, err)
	}
	m := metrics.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := worker.NewWorker(adapter, store, m)
	w.Start(ctx)

	j := janitor.New(janitor.Config{
		Jobs:         w,
		Store:        store,
		JobRetention: cfg.JobRetention,
		Interval:     cfg.JanitorInterval,
	})
	j.Start(ctx)

	var cw *watcher.Watcher
	if cfg.ConfigFile != "" {
		cw, err = watcher.New(cfg.ConfigFile, st)
		if err != nil {
			log.Fatal("watcher: %v", err)
		}
		if err := cw.Start(); err != nil {
			log.Fatal("watcher: %v", err)
		}
	}

	var guards []func(http.Handler) http.Handler
	var limiter *middleware.RateLimiter
	if cfg.RateLimit > 0 {
		resolver, err := requestip.NewResolver(cfg.TrustedProxies)
		if err != nil {
			log.Fatal("trusted proxies: %v", err)
		}
		limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit,
			LockoutDuration:   5 * time.Minute,
			Resolver:          resolver,
		})
		guards = append(guards, limiter.Middleware())
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.BodyLimit(cfg.MaxUploadBytes))
	handler.New(adapter, store, w, m, cfg).RegisterRoutes(r, guards...)

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting bitmap adapter on %s (stage %s)", cfg.ServerAddr, st.NativeSize())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server: %v", err)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	killSignal := <-interrupt
	log.Info("Received signal: %s", killSignal)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown: %v", err)
	}

	cancel()
	w.Stop()
	j.Stop()
	if cw != nil {
		cw.Stop()
	}
	if limiter != nil {
		limiter.Stop()
	}
	log.Info("Shutdown complete")
}
