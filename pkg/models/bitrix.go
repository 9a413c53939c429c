package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SemanticStatus представляет CRM-независимый исход сделки
type SemanticStatus string

const (
	SemanticSuccess    SemanticStatus = "S" // сделка закрыта успешно
	SemanticFail       SemanticStatus = "F" // сделка провалена
	SemanticInProgress SemanticStatus = "P" // сделка в работе
)

// IsValid проверяет валидность семантического статуса
func (s SemanticStatus) IsValid() bool {
	switch s {
	case SemanticSuccess, SemanticFail, SemanticInProgress:
		return true
	default:
		return false
	}
}

// RemoteDeal представляет сделку/лид, полученные из Bitrix24
type RemoteDeal struct {
	ExternalID     string          `json:"external_id"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone,omitempty"`
	Email          string          `json:"email,omitempty"`
	StatusID       string          `json:"status_id"`
	StatusName     string          `json:"status_name"`
	SemanticID     SemanticStatus  `json:"semantic_id"`
	StageName      string          `json:"stage_name"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	AssignedByName string          `json:"assigned_by_name"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SyncError представляет ошибку обработки одной сделки внутри батча
type SyncError struct {
	ExternalID string `json:"external_id"`
	Message    string `json:"message"`
}

// SyncReport представляет итог синхронизации с CRM.
// Ошибки отдельных сделок собираются, но не прерывают батч.
type SyncReport struct {
	Processed   int             `json:"processed"`
	Created     int             `json:"created"`
	Updated     int             `json:"updated"`
	Failed      int             `json:"failed"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Errors      []SyncError     `json:"errors,omitempty"`
}

// BitrixFetchResult представляет ответ на запрос живой выгрузки из Bitrix24
type BitrixFetchResult struct {
	Success      bool            `json:"success"`
	Clients      []RemoteDeal    `json:"clients"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	TotalClients int             `json:"total_clients"`
	Conversion   *float64        `json:"conversion,omitempty"`
	Error        string          `json:"error,omitempty"`
	Sync         *SyncReport     `json:"sync,omitempty"`
}

// WebhookLeadUpdate представляет тело входящего вебхука от Bitrix24
type WebhookLeadUpdate struct {
	Bitrix24LeadID   string  `json:"bitrix24_lead_id"`
	Status           *string `json:"status,omitempty"`
	StatusName       *string `json:"status_name,omitempty"`
	StatusSemanticID *string `json:"status_semantic_id,omitempty"`
	Opportunity      *string `json:"opportunity,omitempty"`
	BecameSuccessful bool    `json:"became_successful,omitempty"`
}
