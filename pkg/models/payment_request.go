package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRequestStatus представляет статус запроса на выплату
type PaymentRequestStatus string

const (
	PaymentRequestStatusPending  PaymentRequestStatus = "pending"
	PaymentRequestStatusApproved PaymentRequestStatus = "approved"
	PaymentRequestStatusRejected PaymentRequestStatus = "rejected"
)

// IsValid проверяет валидность статуса запроса
func (s PaymentRequestStatus) IsValid() bool {
	switch s {
	case PaymentRequestStatusPending, PaymentRequestStatusApproved, PaymentRequestStatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal сообщает, что статус конечный. Переходов из него нет.
func (s PaymentRequestStatus) IsTerminal() bool {
	return s == PaymentRequestStatusApproved || s == PaymentRequestStatusRejected
}

// PaymentRequestClient представляет краткую сводку по клиенту внутри запроса
type PaymentRequestClient struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Email         *string          `json:"email"`
	Phone         *string          `json:"phone"`
	DealAmount    *decimal.Decimal `json:"deal_amount"`
	PartnerReward *decimal.Decimal `json:"partner_reward"`
}

// PaymentRequest представляет запрос партнера на выплату вознаграждения.
// Состав клиентов и сумма фиксируются в момент создания.
type PaymentRequest struct {
	ID             int64                  `json:"id" db:"id"`
	PartnerID      int64                  `json:"partner_id" db:"partner_id"`
	PartnerName    string                 `json:"partner_name" db:"-"`
	Status         PaymentRequestStatus   `json:"status" db:"status"`
	TotalAmount    decimal.Decimal        `json:"total_amount" db:"total_amount"`
	ClientIDs      []int64                `json:"client_ids" db:"-"`
	Comment        *string                `json:"comment" db:"comment"`
	PaymentDetails *string                `json:"payment_details" db:"payment_details"`
	AdminComment   *string                `json:"admin_comment" db:"admin_comment"`
	CreatedAt      time.Time              `json:"created_at" db:"created_at"`
	ProcessedAt    *time.Time             `json:"processed_at" db:"processed_at"`
	ProcessedBy    *int64                 `json:"processed_by" db:"processed_by"`
	Clients        []PaymentRequestClient `json:"clients_summary,omitempty" db:"-"`
}

// CreatePaymentRequestInput представляет запрос партнера на создание выплаты
type CreatePaymentRequestInput struct {
	ClientIDs      []int64 `json:"client_ids"`
	Comment        *string `json:"comment,omitempty"`
	PaymentDetails *string `json:"payment_details,omitempty"`
}

// ProcessPaymentRequestInput представляет решение администратора по запросу
type ProcessPaymentRequestInput struct {
	Status       PaymentRequestStatus `json:"status"`
	AdminComment *string              `json:"admin_comment,omitempty"`
}
