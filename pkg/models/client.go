package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClientSource представляет источник появления клиента
type ClientSource string

const (
	ClientSourceForm   ClientSource = "form"
	ClientSourceManual ClientSource = "manual"
)

// IsValid проверяет валидность источника клиента
func (s ClientSource) IsValid() bool {
	return s == ClientSourceForm || s == ClientSourceManual
}

// Client представляет лида/клиента, привязанного к партнеру
type Client struct {
	ID              int64            `json:"id" db:"id"`
	PartnerID       int64            `json:"partner_id" db:"partner_id"`
	LinkID          *int64           `json:"link_id" db:"link_id"`
	Source          ClientSource     `json:"source" db:"source"`
	Name            string           `json:"name" db:"name"`
	Phone           *string          `json:"phone" db:"phone"`
	Email           *string          `json:"email" db:"email"`
	Company         *string          `json:"company" db:"company"`
	Comment         *string          `json:"comment" db:"comment"`
	ExternalID      *string          `json:"external_id" db:"external_id"`
	WebhookSent     bool             `json:"webhook_sent" db:"webhook_sent"`
	WebhookResponse *string          `json:"-" db:"webhook_response"`
	DealAmount      *decimal.Decimal `json:"deal_amount" db:"deal_amount"`
	PartnerReward   *decimal.Decimal `json:"partner_reward" db:"partner_reward"`
	IsPaid          bool             `json:"is_paid" db:"is_paid"`
	PaidAt          *time.Time       `json:"paid_at" db:"paid_at"`
	PaymentComment  *string          `json:"payment_comment" db:"payment_comment"`
	DealStatus      *string          `json:"deal_status" db:"deal_status"`
	DealStatusName  *string          `json:"deal_status_name" db:"deal_status_name"`
	SemanticStatus  *SemanticStatus  `json:"semantic_status" db:"semantic_status"`
	AssignedByName  *string          `json:"assigned_by_name" db:"assigned_by_name"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// CreateClientRequest представляет запрос на ручное создание клиента
type CreateClientRequest struct {
	Name    string  `json:"name"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	Company *string `json:"company,omitempty"`
	Comment *string `json:"comment,omitempty"`
	LinkID  *int64  `json:"link_id,omitempty"`
}

// ClientPaymentUpdate представляет частичное обновление платежных полей клиента.
// Поле применяется, только если указатель не nil.
type ClientPaymentUpdate struct {
	DealAmount     *decimal.Decimal `json:"deal_amount,omitempty"`
	PartnerReward  *decimal.Decimal `json:"partner_reward,omitempty"`
	IsPaid         *bool            `json:"is_paid,omitempty"`
	PaymentComment *string          `json:"payment_comment,omitempty"`
}

// IsEmpty сообщает, что обновление не затрагивает ни одного поля
func (u ClientPaymentUpdate) IsEmpty() bool {
	return u.DealAmount == nil && u.PartnerReward == nil && u.IsPaid == nil && u.PaymentComment == nil
}

// BulkClientPaymentUpdate представляет массовое обновление платежных полей
type BulkClientPaymentUpdate struct {
	ClientIDs []int64 `json:"client_ids"`
	ClientPaymentUpdate
}

// CRMClientUpdate представляет событие обновления клиента из CRM.
// Уже назначенное вознаграждение и is_paid событие не затирает.
type CRMClientUpdate struct {
	ExternalID     string           `json:"external_id"`
	Name           *string          `json:"name,omitempty"`
	Phone          *string          `json:"phone,omitempty"`
	Email          *string          `json:"email,omitempty"`
	DealStatus     *string          `json:"deal_status,omitempty"`
	DealStatusName *string          `json:"deal_status_name,omitempty"`
	SemanticStatus *SemanticStatus  `json:"semantic_status,omitempty"`
	DealAmount     *decimal.Decimal `json:"deal_amount,omitempty"`
	AssignedByName *string          `json:"assigned_by_name,omitempty"`
}

// PartnerPaymentSummary представляет платежную сводку по партнеру для админки
type PartnerPaymentSummary struct {
	PartnerID       int64           `json:"partner_id"`
	PartnerName     string          `json:"partner_name"`
	TotalDealAmount decimal.Decimal `json:"total_deal_amount"`
	TotalReward     decimal.Decimal `json:"total_reward"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	UnpaidAmount    decimal.Decimal `json:"unpaid_amount"`
	Clients         []*Client       `json:"clients"`
}
