package api

import (
	"net/http"

	"partner-portal/pkg/models"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	partner, err := s.partners.Register(r.Context(), &req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, partner)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	tokens, err := s.partners.Login(r.Context(), &req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, tokens)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	tokens, err := s.partners.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, tokens)
}

// handleMe возвращает профиль текущего партнера.
// Вебхук-токен отдается только владельцу, отдельным полем.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	partner, err := s.partners.Get(r.Context(), claims.PartnerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := struct {
		*models.Partner
		WebhookToken *string `json:"webhook_token,omitempty"`
	}{Partner: partner, WebhookToken: partner.WebhookToken}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdatePaymentMethods(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req struct {
		PaymentMethods []models.PaymentMethod `json:"payment_methods"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	partner, err := s.partners.UpdatePaymentMethods(r.Context(), claims.PartnerID, req.PaymentMethods)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, partner)
}
