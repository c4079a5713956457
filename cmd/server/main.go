package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleetwatch/internal/app"
	"fleetwatch/internal/config"
	"fleetwatch/internal/mqtt"
	"fleetwatch/internal/server"
	"fleetwatch/internal/util"
	"fleetwatch/internal/web"
	"fleetwatch/pkg/auth"
	"fleetwatch/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}
	rememberTTL, err := config.ParseRememberTTL(cfg.RememberTTL)
	if err != nil {
		log.Fatalf("failed to parse remember TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)
	if cfg.UsingDefaultSessionSecret() {
		slog.Warn("using built-in session secret; set SESSION_SECRET before production use")
	}
	if cfg.UsingDefaultDatabaseURL() {
		slog.Warn("using local default database DSN; set DATABASE_URL before production use")
	}
	if !cfg.RequireIngestAuthEnabled() {
		slog.Warn("ingest authentication is disabled; any caller can post telemetry")
	}

	if cfg.RedisAddr == "" {
		log.Fatalf("config: redisAddr is required for session storage (set REDIS_ADDR)")
	}

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	dataStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	sessions := store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword)

	appCore, err := app.New(app.Config{
		Store:       dataStore,
		Sessions:    sessions,
		SessionTTL:  sessionTTL,
		RememberTTL: rememberTTL,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}
	pages, err := web.NewRenderer()
	if err != nil {
		log.Fatalf("failed to load templates: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                        appCore,
		Pages:                      pages,
		Cookies:                    auth.NewSignedCookieCodec(cfg.SessionSecret),
		RequireIngestAuth:          cfg.RequireIngestAuthEnabled(),
		IngestToken:                cfg.IngestToken,
		RememberTTL:                rememberTTL,
		TrustedProxies:             trustedProxies,
		RedisAddr:                  cfg.RedisAddr,
		RedisPassword:              cfg.RedisPassword,
		LoginRateLimitPerMinute:    cfg.LoginRateLimitPerMinute,
		RegisterRateLimitPerMinute: cfg.RegisterRateLimitPerMinute,
		IngestRateLimitPerMinute:   cfg.IngestRateLimitPerMinute,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MQTTBroker != "" {
		bridge := mqtt.NewBridge(cfg.MQTTBroker, cfg.MQTTTopic, appCore, logger)
		go func() {
			if err := bridge.Start(ctx); err != nil {
				logger.Error("mqtt bridge", "err", err)
			}
		}()
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("fleetwatch server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
}
