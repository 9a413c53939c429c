package store

import (
	"context"
	"fmt"
	"time"

	"partner-portal/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store представляет интерфейс для работы с базой данных
type Store interface {
	Partner() PartnerRepository
	Link() LinkRepository
	Client() ClientRepository
	PaymentRequest() PaymentRequestRepository
	Notification() NotificationRepository
	Settings() SettingsRepository
	DB() *pgxpool.Pool
	Close() error
}

// store реализует интерфейс Store
type store struct {
	db             *pgxpool.Pool
	logger         *zap.Logger
	partner        PartnerRepository
	link           LinkRepository
	client         ClientRepository
	paymentRequest PaymentRequestRepository
	notification   NotificationRepository
	settings       SettingsRepository
}

// NewStore создает новое подключение к базе данных
func NewStore(cfg *config.Config, logger *zap.Logger) (Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}

	// Настройка пула
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ошибка проверки подключения к базе данных: %w", err)
	}

	logger.Info("успешное подключение к базе данных PostgreSQL")

	s := &store{
		db:     db,
		logger: logger,
	}

	// Инициализация репозиториев
	s.partner = NewPartnerRepository(db, logger)
	s.link = NewLinkRepository(db, logger)
	s.client = NewClientRepository(db, logger)
	s.paymentRequest = NewPaymentRequestRepository(db, logger)
	s.notification = NewNotificationRepository(db, logger)
	s.settings = NewSettingsRepository(db, logger)

	return s, nil
}

// Partner возвращает репозиторий партнеров
func (s *store) Partner() PartnerRepository {
	return s.partner
}

// Link возвращает репозиторий ссылок и кликов
func (s *store) Link() LinkRepository {
	return s.link
}

// Client возвращает репозиторий клиентов
func (s *store) Client() ClientRepository {
	return s.client
}

// PaymentRequest возвращает репозиторий запросов на выплату
func (s *store) PaymentRequest() PaymentRequestRepository {
	return s.paymentRequest
}

// Notification возвращает репозиторий уведомлений и чата
func (s *store) Notification() NotificationRepository {
	return s.notification
}

// Settings возвращает репозиторий глобальных настроек вознаграждения
func (s *store) Settings() SettingsRepository {
	return s.settings
}

// DB возвращает пул подключений
func (s *store) DB() *pgxpool.Pool {
	return s.db
}

// Close закрывает подключение к базе данных
func (s *store) Close() error {
	s.db.Close()
	s.logger.Info("подключение к базе данных закрыто")
	return nil
}
