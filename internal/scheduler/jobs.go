package scheduler

import (
	"context"
	"time"

	"partner-portal/internal/bitrix"
	"partner-portal/internal/metrics"
	"partner-portal/internal/store"

	"go.uber.org/zap"
)

// SyncJob периодически синхронизирует сделки всех партнеров с Bitrix24
type SyncJob struct {
	sync    *bitrix.SyncService
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewSyncJob создает задачу синхронизации с CRM
func NewSyncJob(sync *bitrix.SyncService, m *metrics.Metrics, logger *zap.Logger) *SyncJob {
	return &SyncJob{
		sync:    sync,
		metrics: m,
		logger:  logger,
	}
}

func (j *SyncJob) Name() string { return "crm_sync" }

// Run выполняет полную синхронизацию. Синхронизация идемпотентна,
// поэтому сорванный запуск безопасно перекрывается следующим.
func (j *SyncJob) Run(ctx context.Context) error {
	start := time.Now()
	report, err := j.sync.SyncAll(ctx)
	if err != nil {
		return err
	}
	j.metrics.RecordSync(report.Created, report.Updated, report.Failed, time.Since(start).Seconds())
	return nil
}

// GaugeJob периодически обновляет gauge-метрики админских очередей
type GaugeJob struct {
	store   store.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewGaugeJob создает задачу обновления gauge-метрик
func NewGaugeJob(st store.Store, m *metrics.Metrics, logger *zap.Logger) *GaugeJob {
	return &GaugeJob{
		store:   st,
		metrics: m,
		logger:  logger,
	}
}

func (j *GaugeJob) Name() string { return "queue_gauges" }

func (j *GaugeJob) Run(ctx context.Context) error {
	pendingRequests, err := j.store.PaymentRequest().CountPending(ctx)
	if err != nil {
		return err
	}
	j.metrics.SetPendingPaymentRequests(pendingRequests)

	pendingPartners, err := j.store.Partner().CountPending(ctx)
	if err != nil {
		return err
	}
	j.metrics.SetPendingPartners(pendingPartners)
	return nil
}
