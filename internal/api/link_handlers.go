package api

import (
	"net/http"

	"partner-portal/pkg/models"
)

const defaultDailyDays = 30

func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	links, err := s.links.List(r.Context(), claims.PartnerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, links)
}

func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req models.CreateLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	link, err := s.links.Create(r.Context(), claims.PartnerID, &req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, link)
}

func (s *Server) handleGetLink(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	link, err := s.links.Get(r.Context(), claims.PartnerID, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, link)
}

func (s *Server) handleUpdateLink(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req models.UpdateLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	link, err := s.links.Update(r.Context(), claims.PartnerID, id, &req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, link)
}

func (s *Server) handleDeactivateLink(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.links.Deactivate(r.Context(), claims.PartnerID, id); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleLinkEmbed(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	embed, err := s.links.Embed(r.Context(), claims.PartnerID, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, embed)
}

// handleLinkQR отдает QR-код публичной ссылки как PNG
func (s *Server) handleLinkQR(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	png, err := s.links.QRCode(r.Context(), claims.PartnerID, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png) //nolint:errcheck
}

func (s *Server) handleLinkStats(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	stats, err := s.links.Stats(r.Context(), claims.PartnerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLinkDailyClicks(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	days := queryInt(r, "days", defaultDailyDays)
	series, err := s.links.DailyClicks(r.Context(), claims.PartnerID, id, days)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, series)
}
