// Command guard is the translation guard and orchestration layer.
//
// It sits between client applications and a raw neural MT worker, freezing
// invariant spans (HTML, placeholders, URLs, emails, currency, dates,
// numbers) before translation and verifying them after, choosing a
// translation strategy (direct, spans-only, interleave, outer-HTML, pivot)
// per request, enforcing glossary/brand terms, applying per-locale style
// filters, and caching results.
//
// Two HTTP listeners are started: the public API (GuardPort) that client
// applications call, and a loopback-only admin API (ManagementPort) for
// status checks and glossary hot-reload.
//
// Usage:
//
//	./guard
//
//	# Custom ports
//	GUARD_PORT=9090 MANAGEMENT_PORT=9091 ./guard
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/askalator/trancelate-ANNI/internal/api"
	"github.com/askalator/trancelate-ANNI/internal/cache"
	"github.com/askalator/trancelate-ANNI/internal/config"
	"github.com/askalator/trancelate-ANNI/internal/glossary"
	"github.com/askalator/trancelate-ANNI/internal/logger"
	"github.com/askalator/trancelate-ANNI/internal/management"
	"github.com/askalator/trancelate-ANNI/internal/metrics"
	"github.com/askalator/trancelate-ANNI/internal/pipeline"
	"github.com/askalator/trancelate-ANNI/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New("GUARD", cfg.LogLevel)

	printBanner(cfg)

	var c *cache.Cache
	if cfg.CacheEnable {
		ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
		if cfg.CachePersistPath != "" {
			pc, err := cache.WithPersistence(cfg.CacheMax, ttl, cfg.CachePersistPath)
			if err != nil {
				log.Fatalf("STARTUP", "opening persistent cache at %s: %v", cfg.CachePersistPath, err)
			}
			c = pc
			defer func() {
				if err := c.Close(); err != nil {
					log.Warnf("SHUTDOWN", "cache close: %v", err)
				}
			}()
			log.Infof("STARTUP", "response cache enabled: max=%d ttl=%ds persist=%s", cfg.CacheMax, cfg.CacheTTLSeconds, cfg.CachePersistPath)
		} else {
			c = cache.New(cfg.CacheMax, ttl)
			log.Infof("STARTUP", "response cache enabled: max=%d ttl=%ds", cfg.CacheMax, cfg.CacheTTLSeconds)
		}
	}

	terms := glossary.LoadTerms(cfg.GlossaryPath, cfg.GlossaryTerms)
	log.Infof("STARTUP", "loaded %d glossary terms", len(terms))

	wc := worker.New(cfg)
	m := metrics.New()
	orch := pipeline.New(cfg, wc, c, terms)

	mgmt := management.New(cfg, orch)
	go func() {
		if err := mgmt.ListenAndServe(); err != nil {
			log.Fatalf("MANAGEMENT", "fatal: %v", err)
		}
	}()

	apiServer := api.New(cfg, orch, c, wc, m)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info("SHUTDOWN", "signal received, shutting down…")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := mgmt.Shutdown(ctx); err != nil {
			log.Warnf("SHUTDOWN", "management: %v", err)
		}
		if err := apiServer.Shutdown(ctx); err != nil {
			log.Warnf("SHUTDOWN", "api: %v", err)
		}
	}()

	if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("API", "fatal: %v", err)
	}
}

func printBanner(cfg *config.Config) {
	fmt.Printf(`
╔══════════════════════════════════════════════════════╗
║          TranceLate Guard                             ║
╚══════════════════════════════════════════════════════╝
  Guard port       : %d
  Management port  : %d
  MT backend       : %s
  Cache enabled    : %v
  Glossary enabled : %v
  Style filter     : %v (%v)
  Strict invariants: %v

  Translate:
    curl -X POST http://localhost:%d/translate \
      -d '{"source":"en-US","target":"de-DE","text":"Hello <b>world</b>"}'

  Check status:
    curl http://localhost:%d/health
`, cfg.GuardPort, cfg.ManagementPort,
		cfg.WorkerBaseURL(),
		cfg.CacheEnable, cfg.GlossaryEnable,
		cfg.EnableStyleFilter, cfg.StyleLangs,
		cfg.StrictInvariants,
		cfg.GuardPort, cfg.GuardPort)
}
