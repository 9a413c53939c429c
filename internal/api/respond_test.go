package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"partner-portal/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testServer() *Server {
	return &Server{logger: zap.NewNop()}
}

func TestRespondError_KindMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"валидация", apperr.Validation("плохой запрос"), http.StatusBadRequest},
		{"не найдено", apperr.NotFound("нет такого"), http.StatusNotFound},
		{"конфликт", apperr.Conflict("уже есть"), http.StatusConflict},
		{"запрещено", apperr.Forbidden("нельзя"), http.StatusForbidden},
		{"внешний сервис", apperr.Upstream(errors.New("timeout"), "CRM недоступна"), http.StatusBadGateway},
		{"неклассифицированная", errors.New("что-то пошло не так"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/test", nil)

			testServer().respondError(w, r, tt.err)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRespondError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)

	testServer().respondError(w, r, errors.New("pq: duplicate key value"))

	assert.NotContains(t, w.Body.String(), "duplicate key")
	assert.Contains(t, w.Body.String(), "внутренняя ошибка сервера")
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"тест"}`))
	require.NoError(t, decodeJSON(r, &dst))
	assert.Equal(t, "тест", dst.Name)

	// Пустое тело и мусор превращаются в ошибку валидации
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	err := decodeJSON(r, &dst)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	err = decodeJSON(r, &dst)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestQueryDate(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?from=2025-06-01", nil)
	from, err := queryDate(r, "from")
	require.NoError(t, err)
	require.NotNil(t, from)
	assert.Equal(t, "2025-06-01", from.Format("2006-01-02"))

	// Отсутствующий параметр — nil без ошибки
	to, err := queryDate(r, "to")
	require.NoError(t, err)
	assert.Nil(t, to)

	r = httptest.NewRequest(http.MethodGet, "/?from=01.06.2025", nil)
	_, err = queryDate(r, "from")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?days=14&bad=abc", nil)

	assert.Equal(t, 14, queryInt(r, "days", 30))
	assert.Equal(t, 30, queryInt(r, "missing", 30))
	assert.Equal(t, 30, queryInt(r, "bad", 30))
}
