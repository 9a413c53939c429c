package store

import (
	"context"
	"errors"
	"fmt"

	"partner-portal/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettingsRepository определяет интерфейс для настроек вознаграждения.
// Настройки версионируются: каждое изменение добавляет новую строку,
// актуальной считается последняя.
type SettingsRepository interface {
	Current(ctx context.Context) (*models.RewardSetting, error)
	Update(ctx context.Context, percentage decimal.Decimal, changedBy int64) (*models.RewardSetting, error)
	History(ctx context.Context, limit int) ([]*models.RewardSetting, error)
}

// PostgresSettingsRepository реализует SettingsRepository для PostgreSQL
type PostgresSettingsRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewSettingsRepository создает новый репозиторий настроек
func NewSettingsRepository(db *pgxpool.Pool, logger *zap.Logger) SettingsRepository {
	return &PostgresSettingsRepository{
		db:     db,
		logger: logger,
	}
}

// Current возвращает действующую настройку вознаграждения.
// Возвращает nil без ошибки, если настройка еще не задавалась.
func (r *PostgresSettingsRepository) Current(ctx context.Context) (*models.RewardSetting, error) {
	query := `
		SELECT id, percentage, changed_by, created_at
		FROM reward_settings
		ORDER BY id DESC
		LIMIT 1`

	s := &models.RewardSetting{}
	err := r.db.QueryRow(ctx, query).Scan(&s.ID, &s.Percentage, &s.ChangedBy, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка получения настройки вознаграждения: %w", err)
	}
	return s, nil
}

// Update записывает новую версию настройки вознаграждения
func (r *PostgresSettingsRepository) Update(ctx context.Context, percentage decimal.Decimal, changedBy int64) (*models.RewardSetting, error) {
	query := `
		INSERT INTO reward_settings (percentage, changed_by)
		VALUES ($1, $2)
		RETURNING id, percentage, changed_by, created_at`

	s := &models.RewardSetting{}
	err := r.db.QueryRow(ctx, query, percentage, changedBy).
		Scan(&s.ID, &s.Percentage, &s.ChangedBy, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления настройки вознаграждения: %w", err)
	}

	r.logger.Info("изменен глобальный процент вознаграждения",
		zap.String("percentage", percentage.String()),
		zap.Int64("changed_by", changedBy))
	return s, nil
}

// History возвращает историю изменений настройки, новые первыми
func (r *PostgresSettingsRepository) History(ctx context.Context, limit int) ([]*models.RewardSetting, error) {
	query := `
		SELECT id, percentage, changed_by, created_at
		FROM reward_settings
		ORDER BY id DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки истории настроек: %w", err)
	}
	defer rows.Close()

	var settings []*models.RewardSetting
	for rows.Next() {
		s := &models.RewardSetting{}
		if err := rows.Scan(&s.ID, &s.Percentage, &s.ChangedBy, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения настройки: %w", err)
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}
