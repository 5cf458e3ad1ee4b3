package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ivr-platform/internal/audit"
	"ivr-platform/internal/auth"
	"ivr-platform/internal/calls"
	"ivr-platform/internal/config"
	"ivr-platform/internal/ivr"
	"ivr-platform/internal/pricing"
	"ivr-platform/internal/reporting"
	"ivr-platform/internal/storage"
	"ivr-platform/internal/telephony"
	"ivr-platform/internal/wallet"
	"ivr-platform/pkg/logger"
	"ivr-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var version = "dev"

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log, err := logger.NewWithSentry(cfg.App.Env, cfg.Sentry.DSN, version)
	if err != nil {
		log.Error("sentry init failed", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Twilio.SkipSignature {
		log.Warn("twilio signature verification disabled")
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	store, err := storage.NewS3Store(storage.S3Config{
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		Bucket:          cfg.S3.Bucket,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		PathStyle:       cfg.S3.PathStyle,
	})
	if err != nil {
		log.Error("storage init failed", "err", err)
		os.Exit(1)
	}

	callRepo := calls.NewPostgresRepo(db)
	ledger := wallet.NewService(db.DB)

	engine, err := ivr.NewEngine(ivr.Deps{
		Calls:    callRepo,
		Loader:   calls.NewLoader(callRepo, cfg.IVR.LookupAttempts, cfg.IVR.LookupDelay),
		Store:    store,
		Provider: telephony.NewTwilioClient(30 * time.Second),
		Ledger:   ledger,
		Pricing:  pricing.NewService(nil),
		Audit:    audit.NewService(audit.NewPostgresRepo(db)),
		Marker:   utils.NewRedisMarker(rdb, "ivr:"),
	}, ivr.Options{
		PublicBaseURL:   cfg.App.PublicBaseURL,
		AudioURLTTL:     cfg.IVR.AudioURLTTL,
		RecordingURLTTL: cfg.IVR.RecordingURLTTL,
		DefaultCredentials: telephony.Credentials{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
		},
	})
	if err != nil {
		log.Error("ivr engine init failed", "err", err)
		os.Exit(1)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log, "/healthz"))

	registerRoutes(r, deps{
		health: healthChecks{db: db.DB, redis: rdb},
		ivr:    ivr.Handlers{Engine: engine},
		guard: telephony.SignatureGuard{
			PublicBaseURL: cfg.App.PublicBaseURL,
			Resolve:       engine.WebhookSecret,
			Skip:          cfg.Twilio.SkipSignature,
		},
		authMW: auth.RequireAccessToken(authManager),
		calls:  callRepo,
		wallet: ledger,
		report: reporting.NewService(reporting.NewPostgresRepo(db)),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	if err := logger.ShutdownFlush(shutdownCtx, 2*time.Second); err != nil {
		log.Warn("log flush incomplete", "err", err)
	}
}
