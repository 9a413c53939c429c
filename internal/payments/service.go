// Package payments содержит жизненный цикл запросов на выплату вознаграждения.
package payments

import (
	"context"
	"fmt"

	"partner-portal/internal/apperr"
	"partner-portal/internal/store"
	"partner-portal/pkg/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service реализует операции над запросами на выплату
type Service struct {
	store  store.Store
	logger *zap.Logger
}

// NewService создает сервис выплат
func NewService(st store.Store, logger *zap.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger,
	}
}

// Create создает запрос на выплату. Сумма фиксируется в момент создания
// как сумма вознаграждений включенных клиентов и далее не пересчитывается.
func (s *Service) Create(ctx context.Context, partnerID int64, input *models.CreatePaymentRequestInput) (*models.PaymentRequest, error) {
	if len(input.ClientIDs) == 0 {
		return nil, apperr.Validation("список клиентов пуст")
	}

	seen := make(map[int64]bool, len(input.ClientIDs))
	ids := make([]int64, 0, len(input.ClientIDs))
	for _, id := range input.ClientIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	clients, err := s.store.Client().GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(clients) != len(ids) {
		return nil, apperr.NotFound("часть клиентов не найдена")
	}

	total := decimal.Zero
	for _, client := range clients {
		if client.PartnerID != partnerID {
			return nil, apperr.Forbidden("клиент %d принадлежит другому партнеру", client.ID)
		}
		if client.PartnerReward == nil || client.PartnerReward.IsZero() {
			return nil, apperr.Validation("у клиента %d не рассчитано вознаграждение", client.ID)
		}
		if client.IsPaid {
			return nil, apperr.Conflict("вознаграждение за клиента %d уже выплачено", client.ID)
		}
		total = total.Add(*client.PartnerReward)
	}

	req := &models.PaymentRequest{
		PartnerID:      partnerID,
		TotalAmount:    total,
		ClientIDs:      ids,
		Comment:        input.Comment,
		PaymentDetails: input.PaymentDetails,
	}
	if err := s.store.PaymentRequest().Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("создан запрос на выплату",
		zap.Int64("request_id", req.ID),
		zap.Int64("partner_id", partnerID),
		zap.String("total_amount", total.String()),
		zap.Int("clients", len(ids)))
	return s.store.PaymentRequest().GetByID(ctx, req.ID)
}

// ListMine возвращает запросы партнера
func (s *Service) ListMine(ctx context.Context, partnerID int64) ([]*models.PaymentRequest, error) {
	return s.store.PaymentRequest().ListByPartner(ctx, partnerID)
}

// Get возвращает запрос, проверяя принадлежность партнеру
func (s *Service) Get(ctx context.Context, partnerID, requestID int64) (*models.PaymentRequest, error) {
	req, err := s.store.PaymentRequest().GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.PartnerID != partnerID {
		return nil, apperr.NotFound("запрос на выплату не найден")
	}
	return req, nil
}

// ListAll возвращает запросы всех партнеров, доступно только админу
func (s *Service) ListAll(ctx context.Context, status *models.PaymentRequestStatus) ([]*models.PaymentRequest, error) {
	if status != nil && !status.IsValid() {
		return nil, apperr.Validation("неизвестный статус: %s", *status)
	}
	return s.store.PaymentRequest().ListAll(ctx, status)
}

// Process принимает решение администратора по запросу. Одобрение помечает
// клиентов запроса выплаченными, отклонение возвращает их в оборот.
// Запрос из конечного статуса повторно обработать нельзя.
func (s *Service) Process(ctx context.Context, requestID int64, input *models.ProcessPaymentRequestInput, adminID int64) (*models.PaymentRequest, error) {
	if !input.Status.IsTerminal() {
		return nil, apperr.Validation("решение должно быть approved или rejected")
	}

	req, err := s.store.PaymentRequest().Process(ctx, requestID, *input, adminID)
	if err != nil {
		return nil, err
	}

	s.notifyPartner(ctx, req, adminID)
	return req, nil
}

// notifyPartner отправляет партнеру уведомление о решении по запросу.
// Срыв уведомления не отменяет обработку.
func (s *Service) notifyPartner(ctx context.Context, req *models.PaymentRequest, adminID int64) {
	var title, message string
	switch req.Status {
	case models.PaymentRequestStatusApproved:
		title = "Выплата одобрена"
		message = fmt.Sprintf("Запрос на выплату №%d на сумму %s одобрен.", req.ID, req.TotalAmount.StringFixed(2))
	case models.PaymentRequestStatusRejected:
		title = "Выплата отклонена"
		message = fmt.Sprintf("Запрос на выплату №%d отклонен.", req.ID)
		if req.AdminComment != nil && *req.AdminComment != "" {
			message += " Причина: " + *req.AdminComment
		}
	default:
		return
	}

	n := &models.Notification{
		Title:           title,
		Message:         message,
		CreatedBy:       adminID,
		TargetPartnerID: &req.PartnerID,
	}
	if err := s.store.Notification().Create(ctx, n); err != nil {
		s.logger.Error("ошибка отправки уведомления о выплате",
			zap.Int64("request_id", req.ID), zap.Error(err))
	}
}

// CountPending возвращает количество необработанных запросов для админки
func (s *Service) CountPending(ctx context.Context) (int, error) {
	return s.store.PaymentRequest().CountPending(ctx)
}
