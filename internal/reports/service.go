// Package reports содержит расчет отчетных метрик и выгрузку отчетов.
package reports

import (
	"context"
	"math"
	"time"

	"partner-portal/internal/store"
	"partner-portal/pkg/models"

	"go.uber.org/zap"
)

// Service реализует построение отчетов по партнерам
type Service struct {
	store  store.Store
	logger *zap.Logger
}

// NewService создает сервис отчетов
func NewService(st store.Store, logger *zap.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger,
	}
}

// percent возвращает долю в процентах, округленную до двух знаков.
// Нулевой знаменатель дает 0, а не NaN.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*100*100) / 100
}

// computeMetrics строит метрики по списку клиентов и счетчикам запросов
func computeMetrics(clients []*models.Client, clicks int, prc *store.PaymentRequestCounters) models.ReportMetrics {
	m := models.ReportMetrics{
		TotalLeads:  len(clients),
		TotalClicks: clicks,
	}

	for _, c := range clients {
		hasDeal := c.DealAmount != nil && c.DealAmount.IsPositive()
		if hasDeal {
			m.TotalDeals++
			m.TotalDealAmount = m.TotalDealAmount.Add(*c.DealAmount)
		}
		if c.PartnerReward != nil {
			m.TotalCommission = m.TotalCommission.Add(*c.PartnerReward)
			if c.IsPaid {
				m.PaidCommission = m.PaidCommission.Add(*c.PartnerReward)
			} else {
				m.UnpaidCommission = m.UnpaidCommission.Add(*c.PartnerReward)
			}
		}
		if c.SemanticStatus != nil {
			switch *c.SemanticStatus {
			case models.SemanticSuccess:
				m.TotalSuccessfulDeals++
			case models.SemanticFail:
				m.TotalLostDeals++
			default:
				m.LeadsInProgress++
			}
		} else {
			m.LeadsInProgress++
		}
	}

	m.ConversionLeadsToDeals = percent(m.TotalDeals, m.TotalLeads)
	m.ConversionDealsToSuccessful = percent(m.TotalSuccessfulDeals, m.TotalDeals)

	if prc != nil {
		m.PaymentRequestsTotal = prc.Total
		m.PaymentRequestsApproved = prc.Approved
		m.PaymentRequestsRejected = prc.Rejected
		m.PaymentRequestsPending = prc.Pending
		m.PaymentRequestsAmount = prc.Amount
	}
	return m
}

func clientRow(c *models.Client) models.ReportClientRow {
	row := models.ReportClientRow{
		Name:          c.Name,
		Email:         c.Email,
		Phone:         c.Phone,
		DealAmount:    c.DealAmount,
		PartnerReward: c.PartnerReward,
		IsPaid:        c.IsPaid,
		CreatedAt:     c.CreatedAt.Format("2006-01-02 15:04"),
	}
	if c.DealStatusName != nil {
		row.DealStatus = *c.DealStatusName
	} else if c.DealStatus != nil {
		row.DealStatus = *c.DealStatus
	}
	return row
}

// PartnerReport строит детальный отчет по партнеру за период.
// Нулевые границы периода означают отчет за все время.
func (s *Service) PartnerReport(ctx context.Context, partnerID int64, from, to *time.Time) (*models.PartnerReport, error) {
	partner, err := s.store.Partner().GetByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	clients, err := s.store.Client().ListForReport(ctx, partnerID, from, to)
	if err != nil {
		return nil, err
	}
	clicks, err := s.store.Link().CountClicksByPartner(ctx, partnerID, from, to)
	if err != nil {
		return nil, err
	}
	prc, err := s.store.PaymentRequest().Counters(ctx, partnerID, from, to)
	if err != nil {
		return nil, err
	}

	report := &models.PartnerReport{
		PartnerID:    partner.ID,
		PartnerName:  partner.Name,
		PartnerEmail: partner.Email,
		DateFrom:     from,
		DateTo:       to,
		Metrics:      computeMetrics(clients, clicks, prc),
		Clients:      make([]models.ReportClientRow, 0, len(clients)),
	}
	for _, c := range clients {
		report.Clients = append(report.Clients, clientRow(c))
	}
	return report, nil
}

// AllPartnersReport строит сводный отчет по всем партнерам за период
func (s *Service) AllPartnersReport(ctx context.Context, from, to *time.Time) (*models.AllPartnersReport, error) {
	partners, err := s.store.Partner().List(ctx, models.RolePartner)
	if err != nil {
		return nil, err
	}

	report := &models.AllPartnersReport{
		DateFrom: from,
		DateTo:   to,
		Partners: make([]models.PartnerReportRow, 0, len(partners)),
	}

	var allClients []*models.Client
	totalClicks := 0
	totals := &store.PaymentRequestCounters{}

	for _, partner := range partners {
		clients, err := s.store.Client().ListForReport(ctx, partner.ID, from, to)
		if err != nil {
			return nil, err
		}
		clicks, err := s.store.Link().CountClicksByPartner(ctx, partner.ID, from, to)
		if err != nil {
			return nil, err
		}
		prc, err := s.store.PaymentRequest().Counters(ctx, partner.ID, from, to)
		if err != nil {
			return nil, err
		}

		report.Partners = append(report.Partners, models.PartnerReportRow{
			PartnerID:    partner.ID,
			PartnerName:  partner.Name,
			PartnerEmail: partner.Email,
			Metrics:      computeMetrics(clients, clicks, prc),
		})

		allClients = append(allClients, clients...)
		totalClicks += clicks
		totals.Total += prc.Total
		totals.Approved += prc.Approved
		totals.Rejected += prc.Rejected
		totals.Pending += prc.Pending
		totals.Amount = totals.Amount.Add(prc.Amount)
		totals.ApprovedAmount = totals.ApprovedAmount.Add(prc.ApprovedAmount)
	}

	report.Totals = computeMetrics(allClients, totalClicks, totals)
	return report, nil
}

// PaymentSummaries строит платежные сводки по всем партнерам для админки.
// В сводку попадают только клиенты с назначенным вознаграждением.
func (s *Service) PaymentSummaries(ctx context.Context) ([]*models.PartnerPaymentSummary, error) {
	partners, err := s.store.Partner().List(ctx, models.RolePartner)
	if err != nil {
		return nil, err
	}

	summaries := make([]*models.PartnerPaymentSummary, 0, len(partners))
	for _, partner := range partners {
		clients, err := s.store.Client().ListForReport(ctx, partner.ID, nil, nil)
		if err != nil {
			return nil, err
		}

		summary := &models.PartnerPaymentSummary{
			PartnerID:   partner.ID,
			PartnerName: partner.Name,
			Clients:     make([]*models.Client, 0, len(clients)),
		}
		for _, c := range clients {
			if c.DealAmount != nil {
				summary.TotalDealAmount = summary.TotalDealAmount.Add(*c.DealAmount)
			}
			if c.PartnerReward == nil {
				continue
			}
			summary.TotalReward = summary.TotalReward.Add(*c.PartnerReward)
			if c.IsPaid {
				summary.PaidAmount = summary.PaidAmount.Add(*c.PartnerReward)
			} else {
				summary.UnpaidAmount = summary.UnpaidAmount.Add(*c.PartnerReward)
			}
			summary.Clients = append(summary.Clients, c)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Summary строит краткую сводку для дашборда партнера
func (s *Service) Summary(ctx context.Context, partnerID int64) (*models.AnalyticsSummary, error) {
	totalClicks, err := s.store.Link().CountClicksByPartner(ctx, partnerID, nil, nil)
	if err != nil {
		return nil, err
	}
	totalClients, err := s.store.Client().CountByPartner(ctx, partnerID, nil)
	if err != nil {
		return nil, err
	}

	midnight := time.Now().Truncate(24 * time.Hour)
	clicksToday, err := s.store.Link().CountClicksByPartner(ctx, partnerID, &midnight, nil)
	if err != nil {
		return nil, err
	}
	clientsToday, err := s.store.Client().CountByPartner(ctx, partnerID, &midnight)
	if err != nil {
		return nil, err
	}

	return &models.AnalyticsSummary{
		TotalClicks:    totalClicks,
		TotalClients:   totalClients,
		ConversionRate: percent(totalClients, totalClicks),
		ClicksToday:    clicksToday,
		ClientsToday:   clientsToday,
	}, nil
}

// ClientsByDay возвращает заявки по дням за последние days дней.
// Дни без заявок присутствуют в ряду с нулевыми значениями.
func (s *Service) ClientsByDay(ctx context.Context, partnerID int64, days int) ([]models.DailyClientStats, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -(days - 1))
	stats, err := s.store.Client().ClientsByDay(ctx, partnerID, since)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]models.DailyClientStats, len(stats))
	for _, stat := range stats {
		byDay[stat.Date] = stat
	}

	series := make([]models.DailyClientStats, 0, days)
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i).Format("2006-01-02")
		if stat, ok := byDay[day]; ok {
			series = append(series, stat)
		} else {
			series = append(series, models.DailyClientStats{Date: day})
		}
	}
	return series, nil
}
