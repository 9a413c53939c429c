package bitrix

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"partner-portal/internal/apperr"
	"partner-portal/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(serviceURL string) *Client {
	return NewClient(&config.BitrixConfig{
		ServiceURL: serviceURL,
		APIKey:     "test-key",
		Timeout:    5 * time.Second,
	}, zap.NewNop())
}

func TestFetchDeals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/workflows/7/leads", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Internal-API-Key"))

		amount := 15000.50
		leadID := int64(42)
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"id":                 1,
				"bitrix24_lead_id":   leadID,
				"name":               "Иван Петров",
				"phone":              "+79990001122",
				"status":             "WON",
				"deal_status_name":   "Сделка успешна",
				"status_semantic_id": "S",
				"deal_amount":        amount,
				"created_at":         "2025-06-01T10:00:00Z",
			},
			{
				"id":   2,
				"name": "Без суммы",
			},
		})
	}))
	defer srv.Close()

	deals, err := newTestClient(srv.URL).FetchDeals(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, deals, 2)

	// Внешний идентификатор берется из bitrix24_lead_id, если он есть
	assert.Equal(t, "42", deals[0].ExternalID)
	assert.Equal(t, "Иван Петров", deals[0].Name)
	assert.Equal(t, "15000.5", deals[0].Amount.String())
	assert.Equal(t, "S", string(deals[0].SemanticID))
	assert.Equal(t, 2025, deals[0].CreatedAt.Year())

	// Без bitrix24_lead_id используется внутренний id сервиса
	assert.Equal(t, "2", deals[1].ExternalID)
	assert.True(t, deals[1].Amount.IsZero())
}

func TestFetchDeals_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchDeals(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))
}

func TestFetchDeals_ServiceUnavailable(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:1").FetchDeals(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))
}

func TestCreateLead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/workflows/3/leads", r.URL.Path)

		var req CreateLeadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Новый лид", req.Name)
		assert.Equal(t, "p1", req.PartnerCode)

		leadID := int64(77)
		json.NewEncoder(w).Encode(CreateLeadResponse{ID: 5, Bitrix24LeadID: &leadID})
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).CreateLead(context.Background(), 3, &CreateLeadRequest{
		Name:        "Новый лид",
		Phone:       "+79990001122",
		Source:      "form",
		PartnerCode: "p1",
	})
	require.NoError(t, err)
	assert.Equal(t, "77", resp.ExternalID())
}

func TestCreateLead_CRMRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CreateLeadResponse{Error: "воронка не найдена"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateLead(context.Background(), 3, &CreateLeadRequest{
		Name:        "Лид",
		Source:      "form",
		PartnerCode: "p1",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))
}

func TestConversion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/workflows/9/stats/conversion", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]float64{"conversion": 37.5})
	}))
	defer srv.Close()

	conv, err := newTestClient(srv.URL).Conversion(context.Background(), 9)
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, 37.5, *conv)
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(srv.URL).HealthCheck(context.Background()))
}
