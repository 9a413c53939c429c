package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"partner-portal/internal/api"
	"partner-portal/internal/auth"
	"partner-portal/internal/bitrix"
	"partner-portal/internal/clients"
	"partner-portal/internal/commission"
	"partner-portal/internal/config"
	"partner-portal/internal/links"
	"partner-portal/internal/metrics"
	"partner-portal/internal/migrations"
	"partner-portal/internal/notifications"
	"partner-portal/internal/partners"
	"partner-portal/internal/payments"
	"partner-portal/internal/reports"
	"partner-portal/internal/scheduler"
	"partner-portal/internal/store"
	"partner-portal/internal/webhook"

	"go.uber.org/zap"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера
	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("запуск партнерского портала", zap.String("env", cfg.App.Env))

	// Инициализация базы данных
	st, err := store.NewStore(cfg, logger)
	if err != nil {
		logger.Fatal("ошибка инициализации базы данных", zap.Error(err))
	}
	defer st.Close()

	// Применение миграций
	if err := migrations.RunMigrations(cfg, logger); err != nil {
		logger.Fatal("ошибка применения миграций", zap.Error(err))
	}

	// Инициализация метрик
	metricsSystem := metrics.New(logger)

	// Инициализация клиента Bitrix24
	bitrixClient := bitrix.NewClient(&cfg.Bitrix, logger)
	logger.Info("клиент Bitrix24 инициализирован", zap.String("service_url", cfg.Bitrix.ServiceURL))

	// Инициализация сервисов
	tokens := auth.NewTokenManager(&cfg.Auth)
	partnerService := partners.NewService(st, tokens, cfg, logger)
	commissionService := commission.NewService(st, cfg.Reward.DefaultPercentage, logger)
	linkService := links.NewService(st, cfg.App.BaseURL, logger)
	clientService := clients.NewService(st, bitrixClient, commissionService, logger)
	paymentService := payments.NewService(st, logger)
	reportService := reports.NewService(st, logger)
	notificationService := notifications.NewService(st, logger)
	webhookService := webhook.NewService(st, commissionService, logger)
	syncService := bitrix.NewSyncService(st, bitrixClient, commissionService, cfg.Bitrix.SyncConcurrency, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Создание первичного администратора
	if err := partnerService.EnsureAdmin(ctx); err != nil {
		logger.Fatal("ошибка создания администратора", zap.Error(err))
	}

	// Инициализация планировщика задач
	taskScheduler := scheduler.NewScheduler(logger)
	if cfg.Scheduler.SyncEnabled {
		taskScheduler.AddJob(scheduler.NewSyncJob(syncService, metricsSystem, logger))
	}
	taskScheduler.AddJob(scheduler.NewGaugeJob(st, metricsSystem, logger))
	go taskScheduler.Start(ctx, cfg.Scheduler.SyncInterval)

	// Инициализация HTTP сервера
	server := api.NewServer(api.Deps{
		Tokens:        tokens,
		Partners:      partnerService,
		Links:         linkService,
		Clients:       clientService,
		Commission:    commissionService,
		Payments:      paymentService,
		Reports:       reportService,
		Notifications: notificationService,
		Webhook:       webhookService,
		Sync:          syncService,
		Metrics:       metricsSystem,
		Logger:        logger,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP сервер запущен", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ошибка HTTP сервера", zap.Error(err))
			cancel()
		}
	}()

	// Обработка сигналов для graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("получен сигнал завершения, начинаем graceful shutdown")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ошибка при остановке HTTP сервера", zap.Error(err))
	}

	logger.Info("приложение завершено")
}

// initLogger инициализирует логгер с уровнем из конфигурации
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.App.Env == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.App.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("некорректный уровень логирования %q: %w", cfg.App.LogLevel, err)
	}
	zapCfg.Level = level

	return zapCfg.Build()
}
