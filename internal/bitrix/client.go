// Package bitrix содержит клиент интеграционного сервиса Bitrix24
// и синхронизацию сделок с локальной базой.
package bitrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"partner-portal/internal/apperr"
	"partner-portal/internal/config"
	"partner-portal/pkg/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const internalAPIKeyHeader = "X-Internal-API-Key"

// Client представляет клиент интеграционного сервиса Bitrix24
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient создает новый клиент Bitrix24
func NewClient(cfg *config.BitrixConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.ServiceURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

func (c *Client) url(path string) string {
	return c.baseURL + "/api/v1" + path
}

// CreateLeadRequest представляет запрос на создание лида в CRM
type CreateLeadRequest struct {
	Name        string  `json:"name"`
	Phone       string  `json:"phone,omitempty"`
	Email       *string `json:"email,omitempty"`
	Company     *string `json:"company,omitempty"`
	Comment     *string `json:"comment,omitempty"`
	Source      string  `json:"source"`
	LinkCode    *string `json:"link_code,omitempty"`
	PartnerCode string  `json:"partner_code"`
}

// CreateLeadResponse представляет ответ CRM на создание лида
type CreateLeadResponse struct {
	ID             int64  `json:"id"`
	Bitrix24LeadID *int64 `json:"bitrix24_lead_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// ExternalID возвращает идентификатор лида для локального хранения
func (r *CreateLeadResponse) ExternalID() string {
	if r.Bitrix24LeadID != nil {
		return fmt.Sprintf("%d", *r.Bitrix24LeadID)
	}
	if r.ID != 0 {
		return fmt.Sprintf("%d", r.ID)
	}
	return ""
}

// statusNames — отображаемые названия стандартных статусов лида Bitrix24.
// Используется, когда интеграционный сервис не вернул название.
var statusNames = map[string]string{
	"NEW":        "Новый",
	"IN_PROCESS": "В работе",
	"PROCESSED":  "Обработан",
	"CONVERTED":  "Сконвертирован",
	"JUNK":       "Некачественный лид",
}

func statusName(statusID, name string) string {
	if name != "" {
		return name
	}
	if known, ok := statusNames[statusID]; ok {
		return known
	}
	return statusID
}

// remoteLead представляет сырой лид из интеграционного сервиса
type remoteLead struct {
	ID               int64    `json:"id"`
	Bitrix24LeadID   *int64   `json:"bitrix24_lead_id"`
	Name             string   `json:"name"`
	Phone            string   `json:"phone"`
	Email            string   `json:"email"`
	Status           string   `json:"status"`
	DealStatusName   string   `json:"deal_status_name"`
	StatusSemanticID string   `json:"status_semantic_id"`
	DealAmount       *float64 `json:"deal_amount"`
	AssignedByName   string   `json:"assigned_by_name"`
	CreatedAt        string   `json:"created_at"`
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("ошибка сериализации запроса: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set(internalAPIKeyHeader, c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Upstream(err, "сервис Bitrix24 недоступен")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperr.Upstream(
			fmt.Errorf("статус %d: %s", resp.StatusCode, string(data)),
			"сервис Bitrix24 вернул ошибку")
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return apperr.Upstream(err, "не удалось разобрать ответ сервиса Bitrix24")
		}
	}
	return nil
}

// CreateLead создает лид в воронке CRM партнера
func (c *Client) CreateLead(ctx context.Context, workflowID int64, lead *CreateLeadRequest) (*CreateLeadResponse, error) {
	var result CreateLeadResponse
	path := fmt.Sprintf("/workflows/%d/leads", workflowID)
	if err := c.doRequest(ctx, http.MethodPost, path, lead, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, apperr.Upstream(fmt.Errorf("%s", result.Error), "CRM отклонила создание лида")
	}

	c.logger.Info("лид создан в Bitrix24",
		zap.Int64("workflow_id", workflowID),
		zap.String("external_id", result.ExternalID()))
	return &result, nil
}

// FetchDeals выгружает сделки воронки партнера из Bitrix24
func (c *Client) FetchDeals(ctx context.Context, workflowID int64) ([]models.RemoteDeal, error) {
	var leads []remoteLead
	path := fmt.Sprintf("/workflows/%d/leads", workflowID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &leads); err != nil {
		return nil, err
	}

	deals := make([]models.RemoteDeal, 0, len(leads))
	for _, lead := range leads {
		deal := models.RemoteDeal{
			Name:           lead.Name,
			Phone:          lead.Phone,
			Email:          lead.Email,
			StatusID:       lead.Status,
			StatusName:     statusName(lead.Status, lead.DealStatusName),
			SemanticID:     models.SemanticStatus(lead.StatusSemanticID),
			AssignedByName: lead.AssignedByName,
			Currency:       "RUB",
		}
		if lead.Bitrix24LeadID != nil {
			deal.ExternalID = fmt.Sprintf("%d", *lead.Bitrix24LeadID)
		} else {
			deal.ExternalID = fmt.Sprintf("%d", lead.ID)
		}
		if lead.DealAmount != nil {
			deal.Amount = decimal.NewFromFloat(*lead.DealAmount)
		}
		if created, err := time.Parse(time.RFC3339, lead.CreatedAt); err == nil {
			deal.CreatedAt = created
		}
		deals = append(deals, deal)
	}
	return deals, nil
}

// Conversion возвращает конверсию воронки партнера по данным CRM
func (c *Client) Conversion(ctx context.Context, workflowID int64) (*float64, error) {
	var result struct {
		Conversion *float64 `json:"conversion"`
	}
	path := fmt.Sprintf("/workflows/%d/stats/conversion", workflowID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Conversion, nil
}

// HealthCheck проверяет доступность интеграционного сервиса
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Upstream(err, "сервис Bitrix24 недоступен")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperr.Upstream(
			fmt.Errorf("статус %d", resp.StatusCode),
			"сервис Bitrix24 не готов")
	}
	return nil
}
