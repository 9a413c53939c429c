// Package partners содержит бизнес-логику партнерских аккаунтов:
// регистрацию, вход, модерацию заявок и настройки партнера.
package partners

import (
	"context"
	"fmt"
	"strings"

	"partner-portal/internal/apperr"
	"partner-portal/internal/auth"
	"partner-portal/internal/config"
	"partner-portal/internal/store"
	"partner-portal/pkg/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	partnerCodeLength  = 8
	codeGenMaxAttempts = 5
)

// Service реализует операции над партнерскими аккаунтами
type Service struct {
	store  store.Store
	tokens *auth.TokenManager
	cfg    *config.Config
	logger *zap.Logger
}

// NewService создает сервис партнеров
func NewService(st store.Store, tokens *auth.TokenManager, cfg *config.Config, logger *zap.Logger) *Service {
	return &Service{
		store:  st,
		tokens: tokens,
		cfg:    cfg,
		logger: logger,
	}
}

func randomHex() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// generatePartnerCode генерирует уникальный код партнера с повторами при коллизии
func (s *Service) generatePartnerCode(ctx context.Context) (string, error) {
	for i := 0; i < codeGenMaxAttempts; i++ {
		code := randomHex()[:partnerCodeLength]
		_, err := s.store.Partner().GetByCode(ctx, code)
		if apperr.IsKind(err, apperr.KindNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("не удалось сгенерировать уникальный код партнера за %d попыток", codeGenMaxAttempts)
}

// Register регистрирует нового партнера. Аккаунт создается со статусом
// pending и ждет одобрения администратором.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.Partner, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return nil, apperr.Validation("некорректный email")
	}
	if len(req.Password) < 8 {
		return nil, apperr.Validation("пароль должен содержать не менее 8 символов")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.Validation("имя обязательно")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	// Отклоненная заявка не блокирует email: повторная регистрация
	// возвращает тот же аккаунт на модерацию с новыми данными.
	existing, err := s.store.Partner().GetByEmail(ctx, req.Email)
	if err == nil {
		if existing.ApprovalStatus != models.ApprovalStatusRejected {
			return nil, apperr.Conflict("партнер с email %s уже зарегистрирован", req.Email)
		}
		existing.PasswordHash = hash
		existing.Name = strings.TrimSpace(req.Name)
		existing.Company = req.Company
		existing.ApprovalStatus = models.ApprovalStatusPending
		existing.RejectionReason = nil
		if err := s.store.Partner().Update(ctx, existing); err != nil {
			return nil, err
		}
		s.logger.Info("повторная заявка отклоненного партнера",
			zap.Int64("partner_id", existing.ID))
		return existing, nil
	}
	if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	code, err := s.generatePartnerCode(ctx)
	if err != nil {
		return nil, err
	}

	webhookToken := randomHex()
	partner := &models.Partner{
		Email:          req.Email,
		PasswordHash:   hash,
		Name:           strings.TrimSpace(req.Name),
		Company:        req.Company,
		PartnerCode:    code,
		Role:           models.RolePartner,
		IsActive:       true,
		ApprovalStatus: models.ApprovalStatusPending,
		WebhookToken:   &webhookToken,
	}

	if err := s.store.Partner().Create(ctx, partner); err != nil {
		return nil, err
	}

	s.logger.Info("зарегистрирован новый партнер",
		zap.Int64("partner_id", partner.ID),
		zap.String("partner_code", partner.PartnerCode))
	return partner, nil
}

// Login проверяет учетные данные и выдает пару токенов.
// Вход разрешен только активным и одобренным аккаунтам.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenPair, error) {
	partner, err := s.store.Partner().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Forbidden("неверный email или пароль")
		}
		return nil, err
	}
	if !auth.CheckPassword(partner.PasswordHash, req.Password) {
		return nil, apperr.Forbidden("неверный email или пароль")
	}
	if !partner.IsActive {
		return nil, apperr.Forbidden("аккаунт заблокирован")
	}
	if !partner.IsAdmin() && partner.ApprovalStatus != models.ApprovalStatusApproved {
		switch partner.ApprovalStatus {
		case models.ApprovalStatusRejected:
			return nil, apperr.Forbidden("заявка на регистрацию отклонена")
		default:
			return nil, apperr.Forbidden("заявка на регистрацию еще не одобрена")
		}
	}

	return s.tokens.GenerateTokenPair(partner)
}

// Refresh выдает новую пару токенов по действующему refresh-токену
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	partner, err := s.store.Partner().GetByID(ctx, claims.PartnerID)
	if err != nil {
		return nil, err
	}
	if !partner.IsActive {
		return nil, apperr.Forbidden("аккаунт заблокирован")
	}
	return s.tokens.GenerateTokenPair(partner)
}

// Get возвращает партнера по идентификатору
func (s *Service) Get(ctx context.Context, id int64) (*models.Partner, error) {
	return s.store.Partner().GetByID(ctx, id)
}

// UpdatePaymentMethods сохраняет способы выплат партнера
func (s *Service) UpdatePaymentMethods(ctx context.Context, partnerID int64, methods []models.PaymentMethod) (*models.Partner, error) {
	partner, err := s.store.Partner().GetByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	for _, m := range methods {
		if strings.TrimSpace(m.Label) == "" || strings.TrimSpace(m.Value) == "" {
			return nil, apperr.Validation("способ выплаты должен содержать название и реквизиты")
		}
	}
	partner.PaymentMethods = methods
	if err := s.store.Partner().Update(ctx, partner); err != nil {
		return nil, err
	}
	return partner, nil
}

// ListPartners возвращает всех партнеров (без админов)
func (s *Service) ListPartners(ctx context.Context) ([]*models.Partner, error) {
	return s.store.Partner().List(ctx, models.RolePartner)
}

// ListPending возвращает заявки на регистрацию, ожидающие решения
func (s *Service) ListPending(ctx context.Context) ([]*models.Partner, error) {
	return s.store.Partner().ListPending(ctx)
}

// Approve одобряет заявку партнера
func (s *Service) Approve(ctx context.Context, partnerID int64) (*models.Partner, error) {
	partner, err := s.store.Partner().GetByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	if partner.ApprovalStatus == models.ApprovalStatusApproved {
		return nil, apperr.Conflict("партнер уже одобрен")
	}
	partner.ApprovalStatus = models.ApprovalStatusApproved
	partner.RejectionReason = nil
	if err := s.store.Partner().Update(ctx, partner); err != nil {
		return nil, err
	}

	s.logger.Info("партнер одобрен", zap.Int64("partner_id", partnerID))
	return partner, nil
}

// Reject отклоняет заявку партнера с указанием причины
func (s *Service) Reject(ctx context.Context, partnerID int64, reason string) (*models.Partner, error) {
	partner, err := s.store.Partner().GetByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	if partner.ApprovalStatus == models.ApprovalStatusApproved {
		return nil, apperr.Conflict("нельзя отклонить уже одобренного партнера")
	}
	partner.ApprovalStatus = models.ApprovalStatusRejected
	if reason != "" {
		partner.RejectionReason = &reason
	}
	if err := s.store.Partner().Update(ctx, partner); err != nil {
		return nil, err
	}

	s.logger.Info("заявка партнера отклонена",
		zap.Int64("partner_id", partnerID),
		zap.String("reason", reason))
	return partner, nil
}

// SetActive блокирует или разблокирует аккаунт партнера
func (s *Service) SetActive(ctx context.Context, partnerID int64, active bool) (*models.Partner, error) {
	partner, err := s.store.Partner().GetByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	if partner.IsAdmin() {
		return nil, apperr.Forbidden("нельзя заблокировать администратора")
	}
	partner.IsActive = active
	if err := s.store.Partner().Update(ctx, partner); err != nil {
		return nil, err
	}
	return partner, nil
}

// SetRewardPercentage задает индивидуальный процент вознаграждения партнера.
// nil сбрасывает индивидуальный процент, возвращая партнера к глобальному.
func (s *Service) SetRewardPercentage(ctx context.Context, partnerID int64, percentage *decimal.Decimal) (*models.Partner, error) {
	if percentage != nil {
		if percentage.IsNegative() || percentage.GreaterThan(decimal.NewFromInt(100)) {
			return nil, apperr.Validation("процент вознаграждения должен быть в диапазоне от 0 до 100")
		}
	}
	partner, err := s.store.Partner().GetByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	partner.RewardPercentage = percentage
	if err := s.store.Partner().Update(ctx, partner); err != nil {
		return nil, err
	}
	return partner, nil
}

// SetWorkflow привязывает партнера к воронке CRM
func (s *Service) SetWorkflow(ctx context.Context, partnerID int64, workflowID *int64) (*models.Partner, error) {
	partner, err := s.store.Partner().GetByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	partner.WorkflowID = workflowID
	if err := s.store.Partner().Update(ctx, partner); err != nil {
		return nil, err
	}
	return partner, nil
}

// Stats возвращает сводку по всем партнерам для админки
func (s *Service) Stats(ctx context.Context) ([]*models.PartnerStats, error) {
	return s.store.Partner().Stats(ctx)
}

// EnsureAdmin создает административный аккаунт из конфигурации,
// если его еще нет. Вызывается при старте приложения.
func (s *Service) EnsureAdmin(ctx context.Context) error {
	if s.cfg.Auth.AdminEmail == "" || s.cfg.Auth.AdminPassword == "" {
		s.logger.Warn("административный аккаунт не настроен, пропускаем создание")
		return nil
	}

	_, err := s.store.Partner().GetByEmail(ctx, s.cfg.Auth.AdminEmail)
	if err == nil {
		return nil
	}
	if !apperr.IsKind(err, apperr.KindNotFound) {
		return err
	}

	hash, err := auth.HashPassword(s.cfg.Auth.AdminPassword)
	if err != nil {
		return err
	}
	code, err := s.generatePartnerCode(ctx)
	if err != nil {
		return err
	}

	admin := &models.Partner{
		Email:          strings.ToLower(s.cfg.Auth.AdminEmail),
		PasswordHash:   hash,
		Name:           "Администратор",
		PartnerCode:    code,
		Role:           models.RoleAdmin,
		IsActive:       true,
		ApprovalStatus: models.ApprovalStatusApproved,
	}
	if err := s.store.Partner().Create(ctx, admin); err != nil {
		return fmt.Errorf("ошибка создания административного аккаунта: %w", err)
	}

	s.logger.Info("создан административный аккаунт", zap.String("email", admin.Email))
	return nil
}
