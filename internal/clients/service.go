// Package clients содержит бизнес-логику заявок и клиентов партнеров.
package clients

import (
	"context"
	"encoding/json"
	"strings"

	"partner-portal/internal/apperr"
	"partner-portal/internal/bitrix"
	"partner-portal/internal/commission"
	"partner-portal/internal/store"
	"partner-portal/pkg/models"

	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// LeadCreator создает лид в CRM
type LeadCreator interface {
	CreateLead(ctx context.Context, workflowID int64, lead *bitrix.CreateLeadRequest) (*bitrix.CreateLeadResponse, error)
}

// Service реализует операции над клиентами партнеров
type Service struct {
	store      store.Store
	crm        LeadCreator
	commission *commission.Service
	logger     *zap.Logger
}

// NewService создает сервис клиентов
func NewService(st store.Store, crm LeadCreator, comm *commission.Service, logger *zap.Logger) *Service {
	return &Service{
		store:      st,
		crm:        crm,
		commission: comm,
		logger:     logger,
	}
}

func validateContact(req *models.CreateClientRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return apperr.Validation("имя клиента обязательно")
	}
	hasPhone := req.Phone != nil && strings.TrimSpace(*req.Phone) != ""
	hasEmail := req.Email != nil && strings.TrimSpace(*req.Email) != ""
	if !hasPhone && !hasEmail {
		return apperr.Validation("укажите телефон или email")
	}
	return nil
}

// CreateManual создает клиента вручную от имени партнера.
// Лид передается в CRM, но ошибка передачи не отменяет создание:
// результат сохраняется и повторная передача возможна позже.
func (s *Service) CreateManual(ctx context.Context, partnerID int64, req *models.CreateClientRequest) (*models.Client, error) {
	if err := validateContact(req); err != nil {
		return nil, err
	}

	var linkCode *string
	if req.LinkID != nil {
		link, err := s.store.Link().GetByID(ctx, *req.LinkID)
		if err != nil {
			return nil, err
		}
		if link.PartnerID != partnerID {
			return nil, apperr.NotFound("ссылка не найдена")
		}
		linkCode = &link.LinkCode
	}

	client := &models.Client{
		PartnerID: partnerID,
		LinkID:    req.LinkID,
		Source:    models.ClientSourceManual,
		Name:      strings.TrimSpace(req.Name),
		Phone:     req.Phone,
		Email:     req.Email,
		Company:   req.Company,
		Comment:   req.Comment,
	}
	if err := s.store.Client().Create(ctx, client); err != nil {
		return nil, err
	}

	s.forwardLead(ctx, client, linkCode)
	return client, nil
}

// CreateFromForm создает клиента из публичной формы по ссылке
func (s *Service) CreateFromForm(ctx context.Context, link *models.Link, req *models.CreateClientRequest) (*models.Client, error) {
	if err := validateContact(req); err != nil {
		return nil, err
	}

	client := &models.Client{
		PartnerID: link.PartnerID,
		LinkID:    &link.ID,
		Source:    models.ClientSourceForm,
		Name:      strings.TrimSpace(req.Name),
		Phone:     req.Phone,
		Email:     req.Email,
		Company:   req.Company,
		Comment:   req.Comment,
	}
	if err := s.store.Client().Create(ctx, client); err != nil {
		return nil, err
	}

	s.forwardLead(ctx, client, &link.LinkCode)
	return client, nil
}

// forwardLead передает клиента в CRM и сохраняет результат передачи.
// Срыв передачи не является ошибкой создания клиента.
func (s *Service) forwardLead(ctx context.Context, client *models.Client, linkCode *string) {
	partner, err := s.store.Partner().GetByID(ctx, client.PartnerID)
	if err != nil {
		s.logger.Error("ошибка получения партнера для передачи лида",
			zap.Int64("client_id", client.ID), zap.Error(err))
		return
	}

	if partner.WorkflowID == nil {
		msg := "Bitrix24 не настроен (нет воронки)"
		s.logger.Warn("воронка CRM не настроена, лид не передан",
			zap.Int64("partner_id", partner.ID))
		if err := s.store.Client().SetWebhookResult(ctx, client.ID, false, msg, nil); err != nil {
			s.logger.Error("ошибка сохранения результата вебхука", zap.Error(err))
		}
		return
	}

	lead := &bitrix.CreateLeadRequest{
		Name:        client.Name,
		Email:       client.Email,
		Company:     client.Company,
		Comment:     client.Comment,
		Source:      string(client.Source),
		LinkCode:    linkCode,
		PartnerCode: partner.PartnerCode,
	}
	if client.Phone != nil {
		lead.Phone = *client.Phone
	}

	resp, err := s.crm.CreateLead(ctx, *partner.WorkflowID, lead)
	if err != nil {
		s.logger.Error("ошибка передачи лида в CRM",
			zap.Int64("client_id", client.ID), zap.Error(err))
		if serr := s.store.Client().SetWebhookResult(ctx, client.ID, false, err.Error(), nil); serr != nil {
			s.logger.Error("ошибка сохранения результата вебхука", zap.Error(serr))
		}
		return
	}

	raw, _ := json.Marshal(resp)
	var externalID *string
	if id := resp.ExternalID(); id != "" {
		externalID = &id
	}
	if err := s.store.Client().SetWebhookResult(ctx, client.ID, true, string(raw), externalID); err != nil {
		s.logger.Error("ошибка сохранения результата вебхука", zap.Error(err))
		return
	}
	client.WebhookSent = true
	client.ExternalID = externalID
}

// List возвращает клиентов партнера с пагинацией, новые первыми
func (s *Service) List(ctx context.Context, partnerID int64, skip, limit int) ([]*models.Client, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.store.Client().List(ctx, partnerID, skip, limit)
}

// ListAll возвращает клиентов всех партнеров, доступно только админу
func (s *Service) ListAll(ctx context.Context, skip, limit int) ([]*models.Client, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.store.Client().ListAll(ctx, skip, limit)
}

// Get возвращает клиента партнера, проверяя принадлежность
func (s *Service) Get(ctx context.Context, partnerID, clientID int64) (*models.Client, error) {
	client, err := s.store.Client().GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client.PartnerID != partnerID {
		return nil, apperr.NotFound("клиент не найден")
	}
	return client, nil
}

// suggestReward дополняет обновление расчетным вознаграждением, если
// задана сумма сделки без явного вознаграждения, а у клиента оно еще
// не назначено. Вручную назначенное вознаграждение не трогается.
func (s *Service) suggestReward(ctx context.Context, clientID int64, upd models.ClientPaymentUpdate) (models.ClientPaymentUpdate, error) {
	if upd.DealAmount == nil || !upd.DealAmount.IsPositive() || upd.PartnerReward != nil {
		return upd, nil
	}
	client, err := s.store.Client().GetByID(ctx, clientID)
	if err != nil {
		return upd, err
	}
	if client.PartnerReward != nil {
		return upd, nil
	}
	partner, err := s.store.Partner().GetByID(ctx, client.PartnerID)
	if err != nil {
		return upd, err
	}
	reward, err := s.commission.SuggestForPartner(ctx, partner, *upd.DealAmount)
	if err != nil {
		return upd, err
	}
	upd.PartnerReward = &reward
	return upd, nil
}

// UpdatePayment применяет ручное обновление платежных полей клиента.
// Операция доступна администратору.
func (s *Service) UpdatePayment(ctx context.Context, clientID int64, upd models.ClientPaymentUpdate) (*models.Client, error) {
	if upd.IsEmpty() {
		return nil, apperr.Validation("обновление не содержит ни одного поля")
	}
	if upd.DealAmount != nil && upd.DealAmount.IsNegative() {
		return nil, apperr.Validation("сумма сделки не может быть отрицательной")
	}
	if upd.PartnerReward != nil && upd.PartnerReward.IsNegative() {
		return nil, apperr.Validation("вознаграждение не может быть отрицательным")
	}

	upd, err := s.suggestReward(ctx, clientID, upd)
	if err != nil {
		return nil, err
	}
	if err := s.store.Client().UpdatePayment(ctx, clientID, upd); err != nil {
		return nil, err
	}
	return s.store.Client().GetByID(ctx, clientID)
}

// BulkUpdatePayment применяет обновление платежных полей к группе клиентов.
// Либо обновляются все, либо ни один.
func (s *Service) BulkUpdatePayment(ctx context.Context, req *models.BulkClientPaymentUpdate) error {
	if len(req.ClientIDs) == 0 {
		return apperr.Validation("список клиентов пуст")
	}
	if req.IsEmpty() {
		return apperr.Validation("обновление не содержит ни одного поля")
	}
	if req.DealAmount != nil && req.DealAmount.IsNegative() {
		return apperr.Validation("сумма сделки не может быть отрицательной")
	}
	if req.PartnerReward != nil && req.PartnerReward.IsNegative() {
		return apperr.Validation("вознаграждение не может быть отрицательным")
	}

	patches := make([]store.ClientPaymentPatch, 0, len(req.ClientIDs))
	for _, id := range req.ClientIDs {
		upd, err := s.suggestReward(ctx, id, req.ClientPaymentUpdate)
		if err != nil {
			return err
		}
		patches = append(patches, store.ClientPaymentPatch{
			ClientID: id,
			Update:   upd,
		})
	}
	return s.store.Client().BulkUpdatePayment(ctx, patches)
}
