// Package metrics содержит прикладные метрики Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics содержит все метрики приложения
type Metrics struct {
	logger *zap.Logger

	// Счетчики
	linkClicks      *prometheus.CounterVec
	clientsCreated  *prometheus.CounterVec
	syncDeals       *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	paymentDecision *prometheus.CounterVec

	// Гистограммы
	syncDuration prometheus.Histogram

	// Gauge метрики
	pendingPaymentRequests prometheus.Gauge
	pendingPartners        prometheus.Gauge
}

// New создает новый экземпляр метрик
func New(logger *zap.Logger) *Metrics {
	m := &Metrics{
		logger: logger,

		linkClicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "link_clicks_total",
				Help: "Общее количество переходов по партнерским ссылкам",
			},
			[]string{"link_type"}, // direct, iframe, landing
		),

		clientsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clients_created_total",
				Help: "Общее количество созданных клиентов",
			},
			[]string{"source"}, // form, manual, sync
		),

		syncDeals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_sync_deals_total",
				Help: "Общее количество сделок, обработанных синхронизацией",
			},
			[]string{"result"}, // created, updated, failed
		),

		webhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_webhook_events_total",
				Help: "Общее количество входящих событий Bitrix24",
			},
			[]string{"result"}, // applied, ignored, rejected
		),

		paymentDecision: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_requests_processed_total",
				Help: "Общее количество обработанных запросов на выплату",
			},
			[]string{"status"}, // approved, rejected
		),

		syncDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crm_sync_duration_seconds",
				Help:    "Длительность полной синхронизации с CRM в секундах",
				Buckets: prometheus.DefBuckets,
			},
		),

		pendingPaymentRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pending_payment_requests",
				Help: "Количество необработанных запросов на выплату",
			},
		),

		pendingPartners: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pending_partners",
				Help: "Количество заявок партнеров на модерации",
			},
		),
	}

	prometheus.MustRegister(
		m.linkClicks,
		m.clientsCreated,
		m.syncDeals,
		m.webhookEvents,
		m.paymentDecision,
		m.syncDuration,
		m.pendingPaymentRequests,
		m.pendingPartners,
	)

	return m
}

// Handler возвращает HTTP-обработчик выдачи метрик
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// RecordClick записывает переход по ссылке
func (m *Metrics) RecordClick(linkType string) {
	m.linkClicks.WithLabelValues(linkType).Inc()
}

// RecordClientCreated записывает создание клиента
func (m *Metrics) RecordClientCreated(source string) {
	m.clientsCreated.WithLabelValues(source).Inc()
}

// RecordSync записывает итог синхронизации с CRM
func (m *Metrics) RecordSync(created, updated, failed int, durationSeconds float64) {
	m.syncDeals.WithLabelValues("created").Add(float64(created))
	m.syncDeals.WithLabelValues("updated").Add(float64(updated))
	m.syncDeals.WithLabelValues("failed").Add(float64(failed))
	m.syncDuration.Observe(durationSeconds)
}

// RecordWebhookEvent записывает входящее событие CRM
func (m *Metrics) RecordWebhookEvent(result string) {
	m.webhookEvents.WithLabelValues(result).Inc()
}

// RecordPaymentDecision записывает решение по запросу на выплату
func (m *Metrics) RecordPaymentDecision(status string) {
	m.paymentDecision.WithLabelValues(status).Inc()
}

// SetPendingPaymentRequests обновляет число необработанных запросов
func (m *Metrics) SetPendingPaymentRequests(count int) {
	m.pendingPaymentRequests.Set(float64(count))
}

// SetPendingPartners обновляет число заявок партнеров на модерации
func (m *Metrics) SetPendingPartners(count int) {
	m.pendingPartners.Set(float64(count))
}
