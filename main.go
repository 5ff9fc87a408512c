package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relaygate.dev/internal/cacheutil"
	"relaygate.dev/internal/chk"
	"relaygate.dev/internal/config"
	"relaygate.dev/internal/httpapi"
	"relaygate.dev/internal/logger"
	"relaygate.dev/internal/publish"
)

// publishDrainGrace bounds how long ListenAndServe's shutdown waits for
// in-flight requests before forcing close.
const publishDrainGrace = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if chk.E(err) {
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	cache, err := cacheutil.OpenBadger(cfg.CacheDir)
	if chk.E(err) {
		os.Exit(1)
	}
	defer cache.Close()

	queue := publish.NewRedisQueue(cfg.RedisAddr, cfg.RedisQueueKey)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	worker := &publish.Worker{Queue: queue, Cache: cache, RelayURL: cfg.RelayURL}
	go worker.Run(ctx)

	gateway := &httpapi.Gateway{Cache: cache, Queue: queue, RelayURL: cfg.RelayURL}
	router := httpapi.NewRouter(gateway)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), publishDrainGrace)
		defer shutdownCancel()
		chk.E(srv.Shutdown(shutdownCtx))
	}()

	logger.I.F("relaygate listening on %s, relay=%s", cfg.ListenAddr, cfg.RelayURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		chk.E(err)
		os.Exit(1)
	}
}
