package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"manibot/internal/bot"
	"manibot/internal/calendar"
	"manibot/internal/config"
	"manibot/internal/database"
	"manibot/internal/events"
	"manibot/internal/google"
	"manibot/internal/ledger"
	"manibot/internal/metrics"
	"manibot/internal/notify"
	"manibot/internal/service"
	"manibot/internal/session"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	// .env is optional; real deployments pass env through the unit file.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("MANIBOT_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := ledger.Open(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open ledger error")
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	memory := session.NewMemoryStore(cfg.SessionTTL())
	go memory.StartCleanup(ctx, cfg.SessionCleanupInterval())

	var rdb *redis.Client
	var sessions session.Store = memory
	if cfg.Redis.Enabled && cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sessions = session.NewFailoverStore(session.NewRedisStore(rdb, cfg.SessionTTL()), memory, &logger)
	}

	resolver := calendar.New(cfg.BookingAnchorNextWeek())
	bus := events.NewEventBus()
	svc := service.NewRegistration(store, sessions, resolver, bus, &logger)

	notifyCfg := notify.DefaultConfig()
	if cfg.Notify.RatePerSecond > 0 {
		notifyCfg.Rate = cfg.Notify.RatePerSecond
	}
	if cfg.Notify.Burst > 0 {
		notifyCfg.Burst = cfg.Notify.Burst
	}
	if cfg.Notify.MaxRetries > 0 {
		notifyCfg.MaxRetries = cfg.Notify.MaxRetries
	}
	notifier, err := notify.New(cfg.Telegram.OrdersToken, cfg.Telegram.AdminID, notifyCfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create notifier error")
	}
	notifier.Subscribe(ctx, bus)

	if cfg.Google.Enabled {
		sheetsSvc, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.SpreadsheetID, cfg.Google.SheetName, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("create sheets journal error")
		}
		sheetsSvc.Subscribe(ctx, bus)
	}

	if cfg.Backup.Enabled {
		backupSvc := database.NewBackupService(cfg.Database.Path, database.BackupConfig{
			Interval:      cfg.BackupInterval(),
			StoragePath:   cfg.Backup.Path,
			RetentionDays: cfg.Backup.RetentionDays,
		}, &logger)
		go backupSvc.Start(ctx)
	}

	b, err := bot.New(cfg.Telegram.ClientToken, cfg.Telegram.Debug, svc, store, resolver, cfg.Telegram.AdminID, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create bot error")
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, store, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().Msg("Booking bot started")
	b.Start(ctx)
}

func startHealthServer(ctx context.Context, port int, store *ledger.Ledger, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := store.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		// Redis is degradable: sessions fail over to memory, so it does not
		// gate readiness.
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				logger.Warn().Err(err).Msg("redis unreachable")
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
