package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RewardSetting представляет версию глобального процента вознаграждения.
// Изменения создают новую строку, действующее значение — последняя.
// Уже рассчитанные вознаграждения смена процента не затрагивает.
type RewardSetting struct {
	ID         int64           `json:"id" db:"id"`
	Percentage decimal.Decimal `json:"percentage" db:"percentage"`
	ChangedBy  int64           `json:"changed_by" db:"changed_by"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// UpdateRewardSettingRequest представляет запрос админа на смену процента
type UpdateRewardSettingRequest struct {
	Percentage decimal.Decimal `json:"percentage"`
}
