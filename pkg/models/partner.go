package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Роли пользователей системы
const (
	RolePartner = "partner"
	RoleAdmin   = "admin"
)

// ApprovalStatus представляет статус заявки на регистрацию партнера
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// IsValid проверяет валидность статуса заявки
func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusRejected:
		return true
	default:
		return false
	}
}

// PaymentMethod представляет сохраненный способ выплаты партнера
type PaymentMethod struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Partner представляет партнерский аккаунт
type Partner struct {
	ID               int64            `json:"id" db:"id"`
	Email            string           `json:"email" db:"email"`
	PasswordHash     string           `json:"-" db:"password_hash"`
	Name             string           `json:"name" db:"name"`
	Company          *string          `json:"company" db:"company"`
	PartnerCode      string           `json:"partner_code" db:"partner_code"`
	Role             string           `json:"role" db:"role"`
	IsActive         bool             `json:"is_active" db:"is_active"`
	ApprovalStatus   ApprovalStatus   `json:"approval_status" db:"approval_status"`
	RejectionReason  *string          `json:"rejection_reason,omitempty" db:"rejection_reason"`
	RewardPercentage *decimal.Decimal `json:"reward_percentage" db:"reward_percentage"` // nil = глобальный процент
	PaymentMethods   []PaymentMethod  `json:"payment_methods" db:"payment_details"`
	WorkflowID       *int64           `json:"workflow_id,omitempty" db:"workflow_id"`
	WebhookToken     *string          `json:"-" db:"webhook_token"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
}

// IsAdmin сообщает, является ли аккаунт администратором
func (p *Partner) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// RegisterRequest представляет запрос на регистрацию партнера
type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Company  *string `json:"company,omitempty"`
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair представляет выданную пару токенов
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// PartnerStats представляет сводку по партнеру для админки
type PartnerStats struct {
	ID               int64            `json:"id"`
	Email            string           `json:"email"`
	Name             string           `json:"name"`
	Company          *string          `json:"company"`
	PartnerCode      string           `json:"partner_code"`
	IsActive         bool             `json:"is_active"`
	RewardPercentage *decimal.Decimal `json:"reward_percentage"`
	LinksCount       int              `json:"links_count"`
	ClicksCount      int              `json:"clicks_count"`
	ClientsCount     int              `json:"clients_count"`
	PaidAmount       decimal.Decimal  `json:"paid_amount"`
	UnpaidAmount     decimal.Decimal  `json:"unpaid_amount"`
	CreatedAt        time.Time        `json:"created_at"`
}
