package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"partner-portal/internal/apperr"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// respondJSON отправляет ответ в формате JSON
func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("ошибка записи ответа", zap.Error(err))
	}
}

// respondError отображает ошибку в HTTP-статус по ее виду.
// Неклассифицированные ошибки не раскрываются наружу.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if e := apperr.From(err); e != nil {
		s.respondJSON(w, e.HTTPStatus(), errorResponse{
			Error: e.Message(),
			Kind:  string(e.Kind()),
		})
		return
	}

	s.logger.Error("внутренняя ошибка",
		zap.String("path", r.URL.Path),
		zap.Error(err))
	s.respondJSON(w, http.StatusInternalServerError, errorResponse{
		Error: "внутренняя ошибка сервера",
	})
}

// decodeJSON разбирает тело запроса
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("тело запроса пусто")
		}
		return apperr.Validation("некорректный JSON в теле запроса")
	}
	return nil
}
