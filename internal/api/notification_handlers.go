package api

import (
	"net/http"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	list, err := s.notifications.ListMine(r.Context(), claims.PartnerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

// handleUnreadCount возвращает счетчики непрочитанного для шапки портала
func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	notifCount, err := s.notifications.UnreadCount(r.Context(), claims.PartnerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	chatCount, err := s.notifications.UnreadChatCount(r.Context(), claims.PartnerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{
		"notifications": notifCount,
		"chat":          chatCount,
	})
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.notifications.MarkRead(r.Context(), id, claims.PartnerID); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	messages, err := s.notifications.History(r.Context(), claims.PartnerID, false)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, messages)
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	msg, err := s.notifications.SendMessage(r.Context(), claims.PartnerID, claims.PartnerID, false, req.Message)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, msg)
}
