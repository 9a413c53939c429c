package api

import (
	"net/http"

	"partner-portal/pkg/models"
)

func (s *Server) handleListMyPaymentRequests(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	requests, err := s.payments.ListMine(r.Context(), claims.PartnerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, requests)
}

func (s *Server) handleCreatePaymentRequest(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var input models.CreatePaymentRequestInput
	if err := decodeJSON(r, &input); err != nil {
		s.respondError(w, r, err)
		return
	}

	request, err := s.payments.Create(r.Context(), claims.PartnerID, &input)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, request)
}

func (s *Server) handleGetPaymentRequest(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	request, err := s.payments.Get(r.Context(), claims.PartnerID, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, request)
}
