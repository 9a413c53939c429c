package models

import (
	"time"
)

// LinkType представляет тип партнерской ссылки
type LinkType string

const (
	LinkTypeDirect  LinkType = "direct"
	LinkTypeIframe  LinkType = "iframe"
	LinkTypeLanding LinkType = "landing"
)

// IsValid проверяет валидность типа ссылки
func (t LinkType) IsValid() bool {
	switch t {
	case LinkTypeDirect, LinkTypeIframe, LinkTypeLanding:
		return true
	default:
		return false
	}
}

// Link представляет партнерскую ссылку
type Link struct {
	ID          int64     `json:"id" db:"id"`
	PartnerID   int64     `json:"partner_id" db:"partner_id"`
	Title       string    `json:"title" db:"title"`
	LinkType    LinkType  `json:"link_type" db:"link_type"`
	LinkCode    string    `json:"link_code" db:"link_code"`
	TargetURL   *string   `json:"target_url" db:"target_url"`
	LandingID   *int64    `json:"landing_id" db:"landing_id"`
	UTMSource   *string   `json:"utm_source" db:"utm_source"`
	UTMMedium   *string   `json:"utm_medium" db:"utm_medium"`
	UTMCampaign *string   `json:"utm_campaign" db:"utm_campaign"`
	UTMContent  *string   `json:"utm_content" db:"utm_content"`
	UTMTerm     *string   `json:"utm_term" db:"utm_term"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	// Счетчики, заполняются при выборке списка
	ClicksCount  int `json:"clicks_count" db:"-"`
	ClientsCount int `json:"clients_count" db:"-"`
}

// Click представляет событие перехода по ссылке. Запись неизменяемая.
type Click struct {
	ID        int64     `json:"id" db:"id"`
	LinkID    int64     `json:"link_id" db:"link_id"`
	IPAddress *string   `json:"ip_address" db:"ip_address"`
	UserAgent *string   `json:"user_agent" db:"user_agent"`
	Referer   *string   `json:"referer" db:"referer"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreateLinkRequest представляет запрос на создание ссылки
type CreateLinkRequest struct {
	Title       string   `json:"title"`
	LinkType    LinkType `json:"link_type"`
	TargetURL   *string  `json:"target_url,omitempty"`
	LandingID   *int64   `json:"landing_id,omitempty"`
	UTMSource   *string  `json:"utm_source,omitempty"`
	UTMMedium   *string  `json:"utm_medium,omitempty"`
	UTMCampaign *string  `json:"utm_campaign,omitempty"`
	UTMContent  *string  `json:"utm_content,omitempty"`
	UTMTerm     *string  `json:"utm_term,omitempty"`
}

// UpdateLinkRequest представляет частичное обновление ссылки
type UpdateLinkRequest struct {
	Title       *string `json:"title,omitempty"`
	TargetURL   *string `json:"target_url,omitempty"`
	UTMSource   *string `json:"utm_source,omitempty"`
	UTMMedium   *string `json:"utm_medium,omitempty"`
	UTMCampaign *string `json:"utm_campaign,omitempty"`
	UTMContent  *string `json:"utm_content,omitempty"`
	UTMTerm     *string `json:"utm_term,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// LinkStats представляет агрегированную статистику по ссылке
type LinkStats struct {
	LinkID         int64    `json:"link_id"`
	Title          string   `json:"title"`
	LinkType       LinkType `json:"link_type"`
	LinkCode       string   `json:"link_code"`
	ClicksCount    int      `json:"clicks_count"`
	ClientsCount   int      `json:"clients_count"`
	ConversionRate float64  `json:"conversion_rate"`
}

// DailyClicks представляет количество кликов за день
type DailyClicks struct {
	Date   string `json:"date"`
	Clicks int    `json:"clicks"`
}

// EmbedCode представляет код встраивания ссылки
type EmbedCode struct {
	LinkType           LinkType `json:"link_type"`
	LinkCode           string   `json:"link_code"`
	DirectURL          string   `json:"direct_url"`
	RedirectURLWithUTM *string  `json:"redirect_url_with_utm,omitempty"`
	IframeCode         *string  `json:"iframe_code,omitempty"`
	LandingURL         *string  `json:"landing_url,omitempty"`
}
