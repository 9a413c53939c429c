package api

import (
	"net/http"
	"strconv"
	"time"

	"partner-portal/internal/apperr"

	"github.com/go-chi/chi/v5"
)

// pathID извлекает числовой идентификатор из пути запроса
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("некорректный идентификатор %q в пути запроса", raw)
	}
	return id, nil
}

// queryInt читает целочисленный параметр запроса, возвращая значение
// по умолчанию, если параметр не задан или некорректен
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// queryDate читает дату в формате YYYY-MM-DD. Пустое значение — nil.
func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperr.Validation("некорректная дата %q: ожидается формат YYYY-MM-DD", raw)
	}
	return &t, nil
}
