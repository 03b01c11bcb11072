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

	"github.com/baharkarakas/coursepay/internal/api"
	"github.com/baharkarakas/coursepay/internal/api/handlers"
	"github.com/baharkarakas/coursepay/internal/auth"
	"github.com/baharkarakas/coursepay/internal/config"
	"github.com/baharkarakas/coursepay/internal/db"
	"github.com/baharkarakas/coursepay/internal/gateway"
	"github.com/baharkarakas/coursepay/internal/idgen"
	"github.com/baharkarakas/coursepay/internal/logger"
	"github.com/baharkarakas/coursepay/internal/metrics"
	"github.com/baharkarakas/coursepay/internal/middleware"
	"github.com/baharkarakas/coursepay/internal/notify"
	"github.com/baharkarakas/coursepay/internal/repository/postgres"
	"github.com/baharkarakas/coursepay/internal/services"
	"github.com/baharkarakas/coursepay/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	ids, err := idgen.NewSnowflake(cfg.NodeID)
	if err != nil {
		log.Error("id generator", "err", err)
		os.Exit(1)
	}

	var notifier notify.Notifier = notify.LogNotifier{Log: log}
	if cfg.NotifyWebhookURL != "" {
		notifier = notify.NewWebhook(cfg.NotifyWebhookURL)
	}
	if cfg.VNPay.HashSecret == "" || cfg.VNPay.TmnCode == "" {
		log.Warn("VNPay credentials missing, checkouts will fail until configured")
	}

	store := postgres.NewStore(pool)
	gw := gateway.NewVNPay(cfg.VNPay)
	wp := worker.NewPool(cfg.WorkerCount, log)
	defer wp.Stop()

	certs := services.NewCertificateTrigger(store, ids, notifier, log)
	enroll := services.NewEnrollmentEngine(store, certs, notifier, wp, log)
	h := &handlers.Handlers{
		Checkout:  services.NewCheckoutService(store, ids, gw, log),
		Callbacks: services.NewCallbackProcessor(store, gw, enroll, log),
		Enroll:    enroll,
		Txns:      services.NewTransactionService(store),
		Teardown:  services.NewCourseTeardown(store, log),
		Gateway:   gw,
		Log:       log,
	}

	tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, 15*time.Minute, 7*24*time.Hour)

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg:  cfg,
		Auth: middleware.NewAuthMiddleware(tm, cfg.Env),
		H:    h,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env, "mock_callback", cfg.MockCallback)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "err", err)
	}
}
