package bitrix

import (
	"context"
	"fmt"
	"sync"

	"partner-portal/internal/commission"
	"partner-portal/internal/store"
	"partner-portal/pkg/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DealFetcher выгружает сделки воронки партнера из CRM
type DealFetcher interface {
	FetchDeals(ctx context.Context, workflowID int64) ([]models.RemoteDeal, error)
}

// SyncService синхронизирует сделки Bitrix24 с локальной базой.
// Синхронизация идемпотентна: повторный запуск по тем же данным
// не создает дублей и не меняет локальные платежные поля.
type SyncService struct {
	store       store.Store
	fetcher     DealFetcher
	commission  *commission.Service
	concurrency int
	logger      *zap.Logger
}

// NewSyncService создает сервис синхронизации
func NewSyncService(st store.Store, fetcher DealFetcher, comm *commission.Service, concurrency int, logger *zap.Logger) *SyncService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &SyncService{
		store:       st,
		fetcher:     fetcher,
		commission:  comm,
		concurrency: concurrency,
		logger:      logger,
	}
}

// SyncPartner синхронизирует сделки одного партнера.
// Ошибки отдельных сделок собираются в отчет и не прерывают батч.
func (s *SyncService) SyncPartner(ctx context.Context, partner *models.Partner) (*models.SyncReport, error) {
	if partner.WorkflowID == nil {
		return nil, fmt.Errorf("у партнера %d не настроена воронка CRM", partner.ID)
	}

	deals, err := s.fetcher.FetchDeals(ctx, *partner.WorkflowID)
	if err != nil {
		return nil, err
	}

	pct, err := s.commission.EffectivePercentage(ctx, partner)
	if err != nil {
		return nil, err
	}

	report := &models.SyncReport{}
	for _, deal := range deals {
		report.Processed++
		if deal.ExternalID == "" {
			report.Failed++
			report.Errors = append(report.Errors, models.SyncError{
				Message: "сделка без внешнего идентификатора пропущена",
			})
			continue
		}

		client := clientFromDeal(partner.ID, &deal, pct)
		created, err := s.store.Client().Upsert(ctx, client)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, models.SyncError{
				ExternalID: deal.ExternalID,
				Message:    err.Error(),
			})
			continue
		}

		if created {
			report.Created++
		} else {
			report.Updated++
		}
		if client.DealAmount != nil {
			report.TotalAmount = report.TotalAmount.Add(*client.DealAmount)
		}
	}

	s.logger.Info("синхронизация партнера завершена",
		zap.Int64("partner_id", partner.ID),
		zap.Int("processed", report.Processed),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed))
	return report, nil
}

// clientFromDeal строит запись клиента из сделки CRM.
// Вознаграждение рассчитывается только для сделок с суммой.
func clientFromDeal(partnerID int64, deal *models.RemoteDeal, pct decimal.Decimal) *models.Client {
	client := &models.Client{
		PartnerID:  partnerID,
		Source:     models.ClientSourceForm,
		Name:       deal.Name,
		ExternalID: &deal.ExternalID,
	}
	if deal.Phone != "" {
		client.Phone = &deal.Phone
	}
	if deal.Email != "" {
		client.Email = &deal.Email
	}
	if deal.StatusID != "" {
		client.DealStatus = &deal.StatusID
	}
	if deal.StatusName != "" {
		client.DealStatusName = &deal.StatusName
	}
	if deal.SemanticID.IsValid() {
		semantic := deal.SemanticID
		client.SemanticStatus = &semantic
	}
	if deal.AssignedByName != "" {
		client.AssignedByName = &deal.AssignedByName
	}
	if deal.Amount.IsPositive() {
		amount := deal.Amount
		client.DealAmount = &amount
		reward := commission.Suggest(amount, pct)
		client.PartnerReward = &reward
	}
	return client
}

type conversionFetcher interface {
	Conversion(ctx context.Context, workflowID int64) (*float64, error)
}

// Fetch выгружает актуальные сделки партнера из CRM и попутно
// синхронизирует их с локальной базой. Ошибки CRM не превращаются
// в HTTP-ошибку: фронт получает result.Error и продолжает работать
// с локальными данными.
func (s *SyncService) Fetch(ctx context.Context, partner *models.Partner) (*models.BitrixFetchResult, error) {
	if partner.WorkflowID == nil {
		return &models.BitrixFetchResult{Error: "воронка CRM не настроена"}, nil
	}

	deals, err := s.fetcher.FetchDeals(ctx, *partner.WorkflowID)
	if err != nil {
		s.logger.Warn("ошибка выгрузки сделок из CRM",
			zap.Int64("partner_id", partner.ID), zap.Error(err))
		return &models.BitrixFetchResult{Error: err.Error()}, nil
	}

	result := &models.BitrixFetchResult{
		Success:      true,
		Clients:      deals,
		TotalClients: len(deals),
	}
	for _, deal := range deals {
		result.TotalAmount = result.TotalAmount.Add(deal.Amount)
	}

	if cf, ok := s.fetcher.(conversionFetcher); ok {
		conv, err := cf.Conversion(ctx, *partner.WorkflowID)
		if err != nil {
			s.logger.Warn("ошибка запроса конверсии", zap.Error(err))
		} else {
			result.Conversion = conv
		}
	}

	report, err := s.SyncPartner(ctx, partner)
	if err != nil {
		s.logger.Warn("ошибка синхронизации при живой выгрузке",
			zap.Int64("partner_id", partner.ID), zap.Error(err))
	} else {
		result.Sync = report
	}
	return result, nil
}

// SyncAll синхронизирует всех партнеров с настроенной воронкой.
// Партнеры обрабатываются пулом воркеров ограниченного размера.
func (s *SyncService) SyncAll(ctx context.Context) (*models.SyncReport, error) {
	partners, err := s.store.Partner().ListWithWorkflow(ctx)
	if err != nil {
		return nil, err
	}

	total := &models.SyncReport{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.concurrency)

	for _, partner := range partners {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(p *models.Partner) {
			defer wg.Done()
			defer func() { <-sem }()

			report, err := s.SyncPartner(ctx, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Error("ошибка синхронизации партнера",
					zap.Int64("partner_id", p.ID), zap.Error(err))
				total.Failed++
				total.Errors = append(total.Errors, models.SyncError{
					Message: fmt.Sprintf("партнер %d: %v", p.ID, err),
				})
				return
			}
			total.Processed += report.Processed
			total.Created += report.Created
			total.Updated += report.Updated
			total.Failed += report.Failed
			total.TotalAmount = total.TotalAmount.Add(report.TotalAmount)
			total.Errors = append(total.Errors, report.Errors...)
		}(partner)
	}
	wg.Wait()

	s.logger.Info("синхронизация всех партнеров завершена",
		zap.Int("partners", len(partners)),
		zap.Int("processed", total.Processed),
		zap.Int("failed", total.Failed))
	return total, nil
}
