// Package commission содержит расчет партнерского вознаграждения.
package commission

import (
	"context"

	"partner-portal/internal/apperr"
	"partner-portal/internal/store"
	"partner-portal/pkg/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// Service реализует расчет вознаграждения и управление глобальным процентом
type Service struct {
	store             store.Store
	defaultPercentage decimal.Decimal
	logger            *zap.Logger
}

// NewService создает сервис вознаграждений.
// defaultPercentage применяется, пока администратор не задал глобальный процент.
func NewService(st store.Store, defaultPercentage decimal.Decimal, logger *zap.Logger) *Service {
	return &Service{
		store:             st,
		defaultPercentage: defaultPercentage,
		logger:            logger,
	}
}

// GlobalPercentage возвращает действующий глобальный процент вознаграждения
func (s *Service) GlobalPercentage(ctx context.Context) (decimal.Decimal, error) {
	setting, err := s.store.Settings().Current(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if setting == nil {
		return s.defaultPercentage, nil
	}
	return setting.Percentage, nil
}

// EffectivePercentage возвращает процент вознаграждения партнера:
// индивидуальный, если задан, иначе глобальный
func (s *Service) EffectivePercentage(ctx context.Context, partner *models.Partner) (decimal.Decimal, error) {
	if partner.RewardPercentage != nil {
		return *partner.RewardPercentage, nil
	}
	return s.GlobalPercentage(ctx)
}

// Suggest рассчитывает вознаграждение от суммы сделки.
// Результат округляется до двух знаков банковским округлением half-up.
func Suggest(dealAmount, percentage decimal.Decimal) decimal.Decimal {
	return dealAmount.Mul(percentage).Div(hundred).Round(2)
}

// SuggestForPartner рассчитывает вознаграждение партнера от суммы сделки
// по его действующему проценту
func (s *Service) SuggestForPartner(ctx context.Context, partner *models.Partner, dealAmount decimal.Decimal) (decimal.Decimal, error) {
	pct, err := s.EffectivePercentage(ctx, partner)
	if err != nil {
		return decimal.Zero, err
	}
	return Suggest(dealAmount, pct), nil
}

// UpdateGlobalPercentage записывает новую версию глобального процента.
// Пересчет уже рассчитанных вознаграждений не выполняется.
func (s *Service) UpdateGlobalPercentage(ctx context.Context, percentage decimal.Decimal, changedBy int64) (*models.RewardSetting, error) {
	if percentage.IsNegative() || percentage.GreaterThan(hundred) {
		return nil, apperr.Validation("процент вознаграждения должен быть в диапазоне от 0 до 100")
	}
	return s.store.Settings().Update(ctx, percentage, changedBy)
}

// History возвращает историю изменений глобального процента
func (s *Service) History(ctx context.Context, limit int) ([]*models.RewardSetting, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.Settings().History(ctx, limit)
}
