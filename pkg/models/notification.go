package models

import (
	"time"
)

// Notification представляет уведомление для партнеров.
// target_partner_id == nil означает общее уведомление для всех.
type Notification struct {
	ID              int64     `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Message         string    `json:"message" db:"message"`
	CreatedBy       int64     `json:"created_by" db:"created_by"`
	TargetPartnerID *int64    `json:"target_partner_id" db:"target_partner_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`

	IsRead bool `json:"is_read" db:"-"`
}

// CreateNotificationRequest представляет запрос админа на создание уведомления
type CreateNotificationRequest struct {
	Title           string `json:"title"`
	Message         string `json:"message"`
	TargetPartnerID *int64 `json:"target_partner_id,omitempty"`
}

// ChatMessage представляет сообщение в чате партнера с администратором
type ChatMessage struct {
	ID          int64     `json:"id" db:"id"`
	PartnerID   int64     `json:"partner_id" db:"partner_id"`
	SenderID    int64     `json:"sender_id" db:"sender_id"`
	IsFromAdmin bool      `json:"is_from_admin" db:"is_from_admin"`
	Message     string    `json:"message" db:"message"`
	IsRead      bool      `json:"is_read" db:"is_read"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ChatThread представляет сводку по переписке с партнером для админки
type ChatThread struct {
	PartnerID     int64      `json:"partner_id"`
	PartnerName   string     `json:"partner_name"`
	LastMessage   *string    `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at"`
	UnreadCount   int        `json:"unread_count"`
}
