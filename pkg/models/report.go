package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportMetrics представляет агрегированные показатели по партнеру
// или по всем партнерам сразу. Проценты округлены до двух знаков,
// деление на ноль дает 0, а не NaN.
type ReportMetrics struct {
	TotalLeads                  int             `json:"total_leads"`
	TotalDeals                  int             `json:"total_deals"`
	TotalSuccessfulDeals        int             `json:"total_successful_deals"`
	TotalLostDeals              int             `json:"total_lost_deals"`
	ConversionLeadsToDeals      float64         `json:"conversion_leads_to_deals"`
	ConversionDealsToSuccessful float64         `json:"conversion_deals_to_successful"`
	TotalDealAmount             decimal.Decimal `json:"total_deal_amount"`
	TotalCommission             decimal.Decimal `json:"total_commission"`
	PaidCommission              decimal.Decimal `json:"paid_commission"`
	UnpaidCommission            decimal.Decimal `json:"unpaid_commission"`
	LeadsInProgress             int             `json:"leads_in_progress"`
	TotalClicks                 int             `json:"total_clicks"`
	PaymentRequestsTotal        int             `json:"payment_requests_total"`
	PaymentRequestsApproved     int             `json:"payment_requests_approved"`
	PaymentRequestsRejected     int             `json:"payment_requests_rejected"`
	PaymentRequestsPending      int             `json:"payment_requests_pending"`
	PaymentRequestsAmount       decimal.Decimal `json:"payment_requests_amount"`
}

// ReportClientRow представляет строку клиента в детальном отчете
type ReportClientRow struct {
	Name          string           `json:"name"`
	Email         *string          `json:"email"`
	Phone         *string          `json:"phone"`
	DealAmount    *decimal.Decimal `json:"deal_amount"`
	PartnerReward *decimal.Decimal `json:"partner_reward"`
	IsPaid        bool             `json:"is_paid"`
	DealStatus    string           `json:"deal_status"`
	CreatedAt     string           `json:"created_at"`
}

// PartnerReport представляет отчет по одному партнеру
type PartnerReport struct {
	PartnerID    int64             `json:"partner_id"`
	PartnerName  string            `json:"partner_name"`
	PartnerEmail string            `json:"partner_email"`
	DateFrom     *time.Time        `json:"date_from"`
	DateTo       *time.Time        `json:"date_to"`
	Metrics      ReportMetrics     `json:"metrics"`
	Clients      []ReportClientRow `json:"clients"`
}

// PartnerReportRow представляет строку сводного отчета по всем партнерам
type PartnerReportRow struct {
	PartnerID    int64         `json:"partner_id"`
	PartnerName  string        `json:"partner_name"`
	PartnerEmail string        `json:"partner_email"`
	Metrics      ReportMetrics `json:"metrics"`
}

// AllPartnersReport представляет сводный отчет по всем партнерам
type AllPartnersReport struct {
	DateFrom *time.Time         `json:"date_from"`
	DateTo   *time.Time         `json:"date_to"`
	Totals   ReportMetrics      `json:"totals"`
	Partners []PartnerReportRow `json:"partners"`
}

// AnalyticsSummary представляет краткую сводку для дашборда партнера
type AnalyticsSummary struct {
	TotalClicks    int     `json:"total_clicks"`
	TotalClients   int     `json:"total_clients"`
	ConversionRate float64 `json:"conversion_rate"`
	ClicksToday    int     `json:"clicks_today"`
	ClientsToday   int     `json:"clients_today"`
}

// DailyClientStats представляет количество клиентов за день по источникам
type DailyClientStats struct {
	Date        string `json:"date"`
	FormCount   int    `json:"form_count"`
	ManualCount int    `json:"manual_count"`
	Total       int    `json:"total"`
}
