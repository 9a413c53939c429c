package commission

import (
	"context"
	"testing"

	"partner-portal/internal/apperr"
	"partner-portal/internal/store"
	"partner-portal/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSuggest(t *testing.T) {
	tests := []struct {
		name       string
		dealAmount string
		percentage string
		want       string
	}{
		{"десять процентов", "1000", "10", "100"},
		{"округление до копеек", "999.99", "10", "100"},
		{"дробный процент", "1000", "12.5", "125"},
		{"копейки в результате", "333", "10", "33.3"},
		{"нулевой процент", "1000", "0", "0"},
		{"сто процентов", "250.50", "100", "250.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Suggest(dec(tt.dealAmount), dec(tt.percentage))
			assert.True(t, dec(tt.want).Equal(got),
				"ожидалось %s, получено %s", tt.want, got)
		})
	}
}

type fakeSettingsRepo struct {
	store.SettingsRepository
	current *models.RewardSetting
}

func (f *fakeSettingsRepo) Current(ctx context.Context) (*models.RewardSetting, error) {
	return f.current, nil
}

type fakeStore struct {
	store.Store
	settings store.SettingsRepository
}

func (f *fakeStore) Settings() store.SettingsRepository { return f.settings }

func TestEffectivePercentage(t *testing.T) {
	ctx := context.Background()

	// глобальная настройка не задана, действует значение из конфигурации
	svc := NewService(&fakeStore{settings: &fakeSettingsRepo{}}, dec("10"), zap.NewNop())
	pct, err := svc.EffectivePercentage(ctx, &models.Partner{})
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(pct))

	// глобальная настройка задана
	svc = NewService(&fakeStore{settings: &fakeSettingsRepo{
		current: &models.RewardSetting{Percentage: dec("15")},
	}}, dec("10"), zap.NewNop())
	pct, err = svc.EffectivePercentage(ctx, &models.Partner{})
	require.NoError(t, err)
	assert.True(t, dec("15").Equal(pct))

	// индивидуальный процент партнера сильнее глобального
	override := dec("20")
	pct, err = svc.EffectivePercentage(ctx, &models.Partner{RewardPercentage: &override})
	require.NoError(t, err)
	assert.True(t, dec("20").Equal(pct))
}

func TestUpdateGlobalPercentageValidation(t *testing.T) {
	svc := NewService(&fakeStore{settings: &fakeSettingsRepo{}}, dec("10"), zap.NewNop())
	ctx := context.Background()

	_, err := svc.UpdateGlobalPercentage(ctx, dec("-1"), 1)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.UpdateGlobalPercentage(ctx, dec("150"), 1)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}
