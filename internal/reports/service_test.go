package reports

import (
	"testing"
	"time"

	"partner-portal/internal/store"
	"partner-portal/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func semPtr(s models.SemanticStatus) *models.SemanticStatus { return &s }

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, percent(5, 0), "деление на ноль дает 0, а не NaN")
	assert.Equal(t, 50.0, percent(1, 2))
	assert.Equal(t, 33.33, percent(1, 3))
	assert.Equal(t, 100.0, percent(7, 7))
}

func TestComputeMetrics(t *testing.T) {
	clients := []*models.Client{
		{DealAmount: decPtr("1000"), PartnerReward: decPtr("100"), IsPaid: true, SemanticStatus: semPtr(models.SemanticSuccess)},
		{DealAmount: decPtr("500"), PartnerReward: decPtr("50"), SemanticStatus: semPtr(models.SemanticFail)},
		{SemanticStatus: semPtr(models.SemanticInProgress)},
		{}, // заявка без сделки и статуса
	}
	prc := &store.PaymentRequestCounters{
		Total: 2, Approved: 1, Pending: 1,
		Amount: dec("150"), ApprovedAmount: dec("100"),
	}

	m := computeMetrics(clients, 40, prc)

	assert.Equal(t, 4, m.TotalLeads)
	assert.Equal(t, 2, m.TotalDeals)
	assert.Equal(t, 1, m.TotalSuccessfulDeals)
	assert.Equal(t, 1, m.TotalLostDeals)
	assert.Equal(t, 2, m.LeadsInProgress)
	assert.Equal(t, 40, m.TotalClicks)
	assert.Equal(t, 50.0, m.ConversionLeadsToDeals)
	assert.Equal(t, 50.0, m.ConversionDealsToSuccessful)
	assert.True(t, dec("1500").Equal(m.TotalDealAmount))
	assert.True(t, dec("150").Equal(m.TotalCommission))
	assert.True(t, dec("100").Equal(m.PaidCommission))
	assert.True(t, dec("50").Equal(m.UnpaidCommission))
	assert.Equal(t, 2, m.PaymentRequestsTotal)
	assert.True(t, dec("150").Equal(m.PaymentRequestsAmount))
}

func TestComputeMetricsEmpty(t *testing.T) {
	m := computeMetrics(nil, 0, nil)
	assert.Equal(t, 0, m.TotalLeads)
	assert.Equal(t, 0.0, m.ConversionLeadsToDeals)
	assert.Equal(t, 0.0, m.ConversionDealsToSuccessful)
	assert.True(t, m.TotalDealAmount.IsZero())
}

func TestClientRowStatusFallback(t *testing.T) {
	statusName := "В работе"
	statusID := "IN_PROCESS"

	row := clientRow(&models.Client{Name: "Иван", DealStatusName: &statusName, DealStatus: &statusID})
	assert.Equal(t, "В работе", row.DealStatus)

	// без человекочитаемого имени используется код статуса
	row = clientRow(&models.Client{Name: "Иван", DealStatus: &statusID})
	assert.Equal(t, "IN_PROCESS", row.DealStatus)
}

func TestExportPartnerXLSX(t *testing.T) {
	now := time.Now()
	report := &models.PartnerReport{
		PartnerID:    1,
		PartnerName:  "Тестовый партнер",
		PartnerEmail: "partner@example.com",
		Metrics: models.ReportMetrics{
			TotalLeads:      2,
			TotalDeals:      1,
			TotalDealAmount: dec("1000"),
			TotalCommission: dec("100"),
		},
		Clients: []models.ReportClientRow{
			{Name: "Иван", DealAmount: decPtr("1000"), PartnerReward: decPtr("100"), IsPaid: true, CreatedAt: now.Format("2006-01-02 15:04")},
			{Name: "Петр", CreatedAt: now.Format("2006-01-02 15:04")},
		},
	}

	data, err := ExportPartnerXLSX(report)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	// сигнатура zip-архива xlsx
	assert.Equal(t, []byte{0x50, 0x4b}, data[:2])
}
