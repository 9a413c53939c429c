package api

import (
	"net/http"

	"partner-portal/pkg/models"
)

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 0)
	clients, err := s.clients.List(r.Context(), claims.PartnerID, skip, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, clients)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req models.CreateClientRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	client, err := s.clients.CreateManual(r.Context(), claims.PartnerID, &req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.metrics.RecordClientCreated(string(models.ClientSourceManual))
	s.respondJSON(w, http.StatusCreated, client)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	client, err := s.clients.Get(r.Context(), claims.PartnerID, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, client)
}
