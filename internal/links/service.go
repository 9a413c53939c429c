// Package links содержит бизнес-логику партнерских ссылок:
// генерацию кодов, переходы, UTM-метки и статистику кликов.
package links

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"partner-portal/internal/apperr"
	"partner-portal/internal/store"
	"partner-portal/pkg/models"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	linkCodeLength     = 10
	codeGenMaxAttempts = 5
	qrCodeSize         = 256
)

// Resolution представляет результат разрешения публичного кода ссылки
type Resolution struct {
	Link        *models.Link
	RedirectURL string // пустая строка означает показ формы заявки
}

// Service реализует операции над партнерскими ссылками
type Service struct {
	store   store.Store
	baseURL string
	logger  *zap.Logger
}

// NewService создает сервис ссылок
func NewService(st store.Store, baseURL string, logger *zap.Logger) *Service {
	return &Service{
		store:   st,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// generateLinkCode генерирует уникальный код ссылки с повторами при коллизии
func (s *Service) generateLinkCode(ctx context.Context) (string, error) {
	for i := 0; i < codeGenMaxAttempts; i++ {
		code := strings.ReplaceAll(uuid.New().String(), "-", "")[:linkCodeLength]
		exists, err := s.store.Link().CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("не удалось сгенерировать уникальный код ссылки за %d попыток", codeGenMaxAttempts)
}

// Create создает партнерскую ссылку
func (s *Service) Create(ctx context.Context, partnerID int64, req *models.CreateLinkRequest) (*models.Link, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperr.Validation("название ссылки обязательно")
	}
	if !req.LinkType.IsValid() {
		return nil, apperr.Validation("неизвестный тип ссылки: %s", req.LinkType)
	}
	if req.LinkType == models.LinkTypeDirect {
		if req.TargetURL == nil || *req.TargetURL == "" {
			return nil, apperr.Validation("для прямой ссылки обязателен целевой URL")
		}
		if _, err := url.ParseRequestURI(*req.TargetURL); err != nil {
			return nil, apperr.Validation("некорректный целевой URL")
		}
	}
	if req.LinkType == models.LinkTypeLanding && req.LandingID == nil {
		return nil, apperr.Validation("для лендинга обязателен идентификатор страницы")
	}

	code, err := s.generateLinkCode(ctx)
	if err != nil {
		return nil, err
	}

	link := &models.Link{
		PartnerID:   partnerID,
		Title:       strings.TrimSpace(req.Title),
		LinkType:    req.LinkType,
		LinkCode:    code,
		TargetURL:   req.TargetURL,
		LandingID:   req.LandingID,
		UTMSource:   req.UTMSource,
		UTMMedium:   req.UTMMedium,
		UTMCampaign: req.UTMCampaign,
		UTMContent:  req.UTMContent,
		UTMTerm:     req.UTMTerm,
		IsActive:    true,
	}
	if err := s.store.Link().Create(ctx, link); err != nil {
		return nil, err
	}

	s.logger.Info("создана партнерская ссылка",
		zap.Int64("partner_id", partnerID),
		zap.String("link_code", link.LinkCode),
		zap.String("link_type", string(link.LinkType)))
	return link, nil
}

// List возвращает ссылки партнера со счетчиками кликов и заявок
func (s *Service) List(ctx context.Context, partnerID int64) ([]*models.Link, error) {
	return s.store.Link().ListByPartner(ctx, partnerID)
}

// Get возвращает ссылку партнера, проверяя принадлежность
func (s *Service) Get(ctx context.Context, partnerID, linkID int64) (*models.Link, error) {
	link, err := s.store.Link().GetByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link.PartnerID != partnerID {
		return nil, apperr.NotFound("ссылка не найдена")
	}
	return link, nil
}

// Update применяет частичное обновление ссылки
func (s *Service) Update(ctx context.Context, partnerID, linkID int64, req *models.UpdateLinkRequest) (*models.Link, error) {
	link, err := s.Get(ctx, partnerID, linkID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, apperr.Validation("название ссылки не может быть пустым")
		}
		link.Title = strings.TrimSpace(*req.Title)
	}
	if req.TargetURL != nil {
		if link.LinkType == models.LinkTypeDirect {
			if _, err := url.ParseRequestURI(*req.TargetURL); err != nil {
				return nil, apperr.Validation("некорректный целевой URL")
			}
		}
		link.TargetURL = req.TargetURL
	}
	if req.UTMSource != nil {
		link.UTMSource = req.UTMSource
	}
	if req.UTMMedium != nil {
		link.UTMMedium = req.UTMMedium
	}
	if req.UTMCampaign != nil {
		link.UTMCampaign = req.UTMCampaign
	}
	if req.UTMContent != nil {
		link.UTMContent = req.UTMContent
	}
	if req.UTMTerm != nil {
		link.UTMTerm = req.UTMTerm
	}
	if req.IsActive != nil {
		link.IsActive = *req.IsActive
	}

	if err := s.store.Link().Update(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// Deactivate выключает ссылку. История кликов и заявок сохраняется.
func (s *Service) Deactivate(ctx context.Context, partnerID, linkID int64) error {
	if _, err := s.Get(ctx, partnerID, linkID); err != nil {
		return err
	}
	return s.store.Link().Deactivate(ctx, linkID)
}

// Resolve разрешает публичный код ссылки. Деактивированные и
// несуществующие коды неразличимы для внешнего мира.
func (s *Service) Resolve(ctx context.Context, linkCode string) (*Resolution, error) {
	link, err := s.store.Link().GetByCode(ctx, linkCode)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("ссылка не найдена или деактивирована")
		}
		return nil, err
	}
	if !link.IsActive {
		return nil, apperr.NotFound("ссылка не найдена или деактивирована")
	}

	res := &Resolution{Link: link}
	if link.LinkType == models.LinkTypeDirect && link.TargetURL != nil {
		res.RedirectURL = buildURLWithUTM(*link.TargetURL, link)
	}
	return res, nil
}

// RecordClick записывает событие перехода по ссылке
func (s *Service) RecordClick(ctx context.Context, linkID int64, ip, userAgent, referer string) {
	click := &models.Click{LinkID: linkID}
	if ip != "" {
		click.IPAddress = &ip
	}
	if userAgent != "" {
		click.UserAgent = &userAgent
	}
	if referer != "" {
		click.Referer = &referer
	}
	if err := s.store.Link().RecordClick(ctx, click); err != nil {
		// переход важнее статистики, ошибку только логируем
		s.logger.Error("ошибка записи клика", zap.Int64("link_id", linkID), zap.Error(err))
	}
}

// PublicURL возвращает абсолютный публичный адрес перехода по ссылке
func (s *Service) PublicURL(linkCode string) string {
	return fmt.Sprintf("%s/api/public/r/%s", s.baseURL, linkCode)
}

// Embed возвращает коды встраивания для ссылки
func (s *Service) Embed(ctx context.Context, partnerID, linkID int64) (*models.EmbedCode, error) {
	link, err := s.Get(ctx, partnerID, linkID)
	if err != nil {
		return nil, err
	}

	directURL := s.PublicURL(link.LinkCode)
	embed := &models.EmbedCode{
		LinkType:  link.LinkType,
		LinkCode:  link.LinkCode,
		DirectURL: directURL,
	}

	if withUTM := buildURLWithUTM(directURL, link); withUTM != directURL {
		embed.RedirectURLWithUTM = &withUTM
	}

	switch link.LinkType {
	case models.LinkTypeIframe:
		iframe := fmt.Sprintf(
			`<iframe src="%s/api/public/landing/%s" width="100%%" height="600" frameborder="0"></iframe>`,
			s.baseURL, link.LinkCode)
		embed.IframeCode = &iframe
	case models.LinkTypeLanding:
		landingURL := fmt.Sprintf("%s/api/public/landing/%s", s.baseURL, link.LinkCode)
		embed.LandingURL = &landingURL
	}
	return embed, nil
}

// QRCode возвращает PNG с QR-кодом публичного адреса ссылки
func (s *Service) QRCode(ctx context.Context, partnerID, linkID int64) ([]byte, error) {
	link, err := s.Get(ctx, partnerID, linkID)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(s.PublicURL(link.LinkCode), qrcode.Medium, qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации QR-кода: %w", err)
	}
	return png, nil
}

// Stats возвращает статистику по всем ссылкам партнера.
// Конверсия считается как доля клиентов от кликов в процентах,
// округленная до двух знаков; без кликов конверсия равна нулю.
func (s *Service) Stats(ctx context.Context, partnerID int64) ([]*models.LinkStats, error) {
	stats, err := s.store.Link().Stats(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	for _, st := range stats {
		if st.ClicksCount > 0 {
			st.ConversionRate = math.Round(float64(st.ClientsCount)/float64(st.ClicksCount)*100*100) / 100
		}
	}
	return stats, nil
}

// DailyClicks возвращает клики по дням за последние days дней.
// Дни без кликов присутствуют в ряду с нулевым значением.
func (s *Service) DailyClicks(ctx context.Context, partnerID, linkID int64, days int) ([]models.DailyClicks, error) {
	if days <= 0 {
		days = 30
	}
	if _, err := s.Get(ctx, partnerID, linkID); err != nil {
		return nil, err
	}

	since := time.Now().AddDate(0, 0, -(days - 1))
	byDay, err := s.store.Link().ClicksByDay(ctx, linkID, since)
	if err != nil {
		return nil, err
	}

	series := make([]models.DailyClicks, 0, days)
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i).Format("2006-01-02")
		series = append(series, models.DailyClicks{Date: day, Clicks: byDay[day]})
	}
	return series, nil
}

// buildURLWithUTM добавляет UTM-метки ссылки к адресу, сохраняя
// существующие параметры запроса
func buildURLWithUTM(rawURL string, link *models.Link) string {
	utm := map[string]*string{
		"utm_source":   link.UTMSource,
		"utm_medium":   link.UTMMedium,
		"utm_campaign": link.UTMCampaign,
		"utm_content":  link.UTMContent,
		"utm_term":     link.UTMTerm,
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	changed := false
	for key, value := range utm {
		if value != nil && *value != "" {
			query.Set(key, *value)
			changed = true
		}
	}
	if !changed {
		return rawURL
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
