// Package webhook обрабатывает входящие события Bitrix24 о смене
// статусов и сумм сделок.
package webhook

import (
	"context"
	"crypto/subtle"
	"strings"

	"partner-portal/internal/apperr"
	"partner-portal/internal/commission"
	"partner-portal/internal/store"
	"partner-portal/pkg/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service применяет события CRM к локальным клиентам
type Service struct {
	store      store.Store
	commission *commission.Service
	logger     *zap.Logger
}

// NewService создает сервис обработки вебхуков
func NewService(st store.Store, comm *commission.Service, logger *zap.Logger) *Service {
	return &Service{
		store:      st,
		commission: comm,
		logger:     logger,
	}
}

// HandleLeadUpdate обрабатывает событие обновления лида.
// Токен из URL идентифицирует партнера. Событие о неизвестной сделке
// игнорируется без ошибки: CRM может присылать чужие лиды.
func (s *Service) HandleLeadUpdate(ctx context.Context, token string, event *models.WebhookLeadUpdate) (bool, error) {
	if token == "" {
		return false, apperr.Forbidden("токен вебхука обязателен")
	}
	if event.Bitrix24LeadID == "" {
		return false, apperr.Validation("bitrix24_lead_id обязателен")
	}

	partner, err := s.store.Partner().GetByWebhookToken(ctx, token)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return false, apperr.Forbidden("недействительный токен вебхука")
		}
		return false, err
	}
	// Найденного кандидата сверяем с присланным токеном за постоянное время
	if partner.WebhookToken == nil ||
		subtle.ConstantTimeCompare([]byte(token), []byte(*partner.WebhookToken)) != 1 {
		return false, apperr.Forbidden("недействительный токен вебхука")
	}

	client, err := s.store.Client().GetByExternalID(ctx, partner.ID, event.Bitrix24LeadID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			s.logger.Debug("событие о неизвестной сделке пропущено",
				zap.Int64("partner_id", partner.ID),
				zap.String("external_id", event.Bitrix24LeadID))
			return false, nil
		}
		return false, err
	}

	upd := &models.CRMClientUpdate{
		ExternalID:     event.Bitrix24LeadID,
		DealStatus:     event.Status,
		DealStatusName: event.StatusName,
	}
	if event.StatusSemanticID != nil {
		semantic := models.SemanticStatus(*event.StatusSemanticID)
		if semantic.IsValid() {
			upd.SemanticStatus = &semantic
		}
	}

	var suggestedReward *decimal.Decimal
	if event.Opportunity != nil {
		amount, err := decimal.NewFromString(strings.TrimSpace(*event.Opportunity))
		if err != nil {
			return false, apperr.Validation("некорректная сумма сделки: %s", *event.Opportunity)
		}
		if amount.IsPositive() {
			upd.DealAmount = &amount
			reward, err := s.commission.SuggestForPartner(ctx, partner, amount)
			if err != nil {
				return false, err
			}
			suggestedReward = &reward
		}
	}

	if err := s.store.Client().ApplyCRMUpdate(ctx, client.ID, upd, suggestedReward); err != nil {
		return false, err
	}

	if s.becameSuccessful(client, event) {
		s.notifySuccess(ctx, partner, client)
	}

	s.logger.Info("событие CRM применено",
		zap.Int64("partner_id", partner.ID),
		zap.Int64("client_id", client.ID),
		zap.String("external_id", event.Bitrix24LeadID))
	return true, nil
}

// becameSuccessful сообщает, что сделка стала успешной этим событием
func (s *Service) becameSuccessful(client *models.Client, event *models.WebhookLeadUpdate) bool {
	if event.BecameSuccessful {
		return true
	}
	if event.StatusSemanticID == nil {
		return false
	}
	wasSuccessful := client.SemanticStatus != nil && *client.SemanticStatus == models.SemanticSuccess
	return models.SemanticStatus(*event.StatusSemanticID) == models.SemanticSuccess && !wasSuccessful
}

func (s *Service) notifySuccess(ctx context.Context, partner *models.Partner, client *models.Client) {
	n := &models.Notification{
		Title:           "Сделка завершена успешно",
		Message:         "Сделка по клиенту «" + client.Name + "» стала успешной. Вознаграждение доступно к выплате.",
		CreatedBy:       partner.ID,
		TargetPartnerID: &partner.ID,
	}
	if err := s.store.Notification().Create(ctx, n); err != nil {
		s.logger.Error("ошибка отправки уведомления об успешной сделке",
			zap.Int64("client_id", client.ID), zap.Error(err))
	}
}
