// Package notifications содержит уведомления партнеров и чат с администратором.
package notifications

import (
	"context"
	"strings"

	"partner-portal/internal/apperr"
	"partner-portal/internal/store"
	"partner-portal/pkg/models"

	"go.uber.org/zap"
)

const chatHistoryLimit = 100

// Service реализует операции над уведомлениями и чатом
type Service struct {
	store  store.Store
	logger *zap.Logger
}

// NewService создает сервис уведомлений
func NewService(st store.Store, logger *zap.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger,
	}
}

// Create создает уведомление от имени администратора.
// Пустой target_partner_id означает рассылку всем партнерам.
func (s *Service) Create(ctx context.Context, adminID int64, req *models.CreateNotificationRequest) (*models.Notification, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperr.Validation("заголовок уведомления обязателен")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, apperr.Validation("текст уведомления обязателен")
	}
	if req.TargetPartnerID != nil {
		if _, err := s.store.Partner().GetByID(ctx, *req.TargetPartnerID); err != nil {
			return nil, err
		}
	}

	n := &models.Notification{
		Title:           strings.TrimSpace(req.Title),
		Message:         strings.TrimSpace(req.Message),
		CreatedBy:       adminID,
		TargetPartnerID: req.TargetPartnerID,
	}
	if err := s.store.Notification().Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// ListMine возвращает уведомления партнера с признаком прочтения
func (s *Service) ListMine(ctx context.Context, partnerID int64) ([]*models.Notification, error) {
	return s.store.Notification().ListForPartner(ctx, partnerID)
}

// MarkRead помечает уведомление прочитанным
func (s *Service) MarkRead(ctx context.Context, notificationID, partnerID int64) error {
	return s.store.Notification().MarkRead(ctx, notificationID, partnerID)
}

// UnreadCount возвращает количество непрочитанных уведомлений партнера
func (s *Service) UnreadCount(ctx context.Context, partnerID int64) (int, error) {
	return s.store.Notification().CountUnread(ctx, partnerID)
}

// SendMessage отправляет сообщение в чат партнера.
// Партнер пишет в свой чат, админ — в чат любого партнера.
func (s *Service) SendMessage(ctx context.Context, partnerID, senderID int64, isAdmin bool, message string) (*models.ChatMessage, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperr.Validation("сообщение не может быть пустым")
	}
	if !isAdmin && partnerID != senderID {
		return nil, apperr.Forbidden("нельзя писать в чужой чат")
	}

	m := &models.ChatMessage{
		PartnerID:   partnerID,
		SenderID:    senderID,
		IsFromAdmin: isAdmin,
		Message:     strings.TrimSpace(message),
	}
	if err := s.store.Notification().CreateChatMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// History возвращает историю чата партнера и помечает входящие
// сообщения прочитанными
func (s *Service) History(ctx context.Context, partnerID int64, asAdmin bool) ([]*models.ChatMessage, error) {
	messages, err := s.store.Notification().ListChatMessages(ctx, partnerID, chatHistoryLimit)
	if err != nil {
		return nil, err
	}
	// прочитаны сообщения противоположной стороны
	if err := s.store.Notification().MarkChatRead(ctx, partnerID, !asAdmin); err != nil {
		s.logger.Error("ошибка отметки сообщений прочитанными",
			zap.Int64("partner_id", partnerID), zap.Error(err))
	}
	return messages, nil
}

// UnreadChatCount возвращает количество непрочитанных сообщений от админа
func (s *Service) UnreadChatCount(ctx context.Context, partnerID int64) (int, error) {
	return s.store.Notification().CountUnreadChat(ctx, partnerID, true)
}

// Threads возвращает сводку переписок для админки
func (s *Service) Threads(ctx context.Context) ([]*models.ChatThread, error) {
	return s.store.Notification().ListChatThreads(ctx)
}
