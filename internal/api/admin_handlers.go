package api

import (
	"net/http"
	"time"

	"partner-portal/internal/apperr"
	"partner-portal/pkg/models"

	"github.com/shopspring/decimal"
)

func (s *Server) handleAdminListPartners(w http.ResponseWriter, r *http.Request) {
	partners, err := s.partners.ListPartners(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, partners)
}

func (s *Server) handleAdminListPending(w http.ResponseWriter, r *http.Request) {
	partners, err := s.partners.ListPending(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, partners)
}

func (s *Server) handleAdminPartnerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.partners.Stats(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAdminApprovePartner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	partner, err := s.partners.Approve(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, partner)
}

func (s *Server) handleAdminRejectPartner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	partner, err := s.partners.Reject(r.Context(), id, req.Reason)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, partner)
}

func (s *Server) handleAdminToggleActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	partner, err := s.partners.SetActive(r.Context(), id, req.IsActive)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, partner)
}

// handleAdminSetReward задает или сбрасывает индивидуальный процент партнера.
// null в теле возвращает партнера на глобальный процент.
func (s *Server) handleAdminSetReward(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req struct {
		RewardPercentage *decimal.Decimal `json:"reward_percentage"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	partner, err := s.partners.SetRewardPercentage(r.Context(), id, req.RewardPercentage)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, partner)
}

func (s *Server) handleAdminSetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req struct {
		WorkflowID *int64 `json:"workflow_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	partner, err := s.partners.SetWorkflow(r.Context(), id, req.WorkflowID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, partner)
}

func (s *Server) handleAdminListClients(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 0)

	clients, err := s.clients.ListAll(r.Context(), skip, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, clients)
}

func (s *Server) handleAdminClientPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var upd models.ClientPaymentUpdate
	if err := decodeJSON(r, &upd); err != nil {
		s.respondError(w, r, err)
		return
	}

	client, err := s.clients.UpdatePayment(r.Context(), id, upd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, client)
}

// handleAdminPaymentSummary отдает платежные сводки по всем партнерам
func (s *Server) handleAdminPaymentSummary(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.reports.PaymentSummaries(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, summaries)
}

// handleAdminBulkPayment применяет платежные изменения к набору клиентов.
// Обновление атомарно: ошибка по любому клиенту откатывает все.
func (s *Server) handleAdminBulkPayment(w http.ResponseWriter, r *http.Request) {
	var req models.BulkClientPaymentUpdate
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.clients.BulkUpdatePayment(r.Context(), &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"updated": len(req.ClientIDs),
	})
}

func (s *Server) handleAdminListPaymentRequests(w http.ResponseWriter, r *http.Request) {
	var status *models.PaymentRequestStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := models.PaymentRequestStatus(raw)
		if !st.IsValid() {
			s.respondError(w, r, apperr.Validation("неизвестный статус запроса на выплату: %q", raw))
			return
		}
		status = &st
	}

	requests, err := s.payments.ListAll(r.Context(), status)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, requests)
}

// handleAdminPendingPaymentCount отдает счетчик для бейджа в админке
func (s *Server) handleAdminPendingPaymentCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.payments.CountPending(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Server) handleAdminProcessPaymentRequest(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var input models.ProcessPaymentRequestInput
	if err := decodeJSON(r, &input); err != nil {
		s.respondError(w, r, err)
		return
	}

	request, err := s.payments.Process(r.Context(), id, &input, claims.PartnerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.metrics.RecordPaymentDecision(string(request.Status))
	s.respondJSON(w, http.StatusOK, request)
}

func (s *Server) handleAdminAllPartnersReport(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	report, err := s.reports.AllPartnersReport(r.Context(), from, to)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleAdminPartnerReport(w http.ResponseWriter, r *http.Request) {
	partnerID, err := pathID(r, "partnerID")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	from, err := queryDate(r, "from")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	report, err := s.reports.PartnerReport(r.Context(), partnerID, from, to)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleAdminPartnerReportExport(w http.ResponseWriter, r *http.Request) {
	partnerID, err := pathID(r, "partnerID")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.exportReport(w, r, partnerID)
}

func (s *Server) handleGetRewardSetting(w http.ResponseWriter, r *http.Request) {
	pct, err := s.commission.GlobalPercentage(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]decimal.Decimal{"percentage": pct})
}

func (s *Server) handleUpdateRewardSetting(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req models.UpdateRewardSettingRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	setting, err := s.commission.UpdateGlobalPercentage(r.Context(), req.Percentage, claims.PartnerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, setting)
}

func (s *Server) handleRewardSettingHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	history, err := s.commission.History(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, history)
}

// handleAdminSync запускает синхронизацию всех партнеров вне расписания
func (s *Server) handleAdminSync(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	report, err := s.sync.SyncAll(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.metrics.RecordSync(report.Created, report.Updated, report.Failed, time.Since(start).Seconds())
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleAdminCreateNotification(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req models.CreateNotificationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	notification, err := s.notifications.Create(r.Context(), claims.PartnerID, &req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, notification)
}

func (s *Server) handleAdminChatThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.notifications.Threads(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, threads)
}

func (s *Server) handleAdminChatHistory(w http.ResponseWriter, r *http.Request) {
	partnerID, err := pathID(r, "partnerID")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	messages, err := s.notifications.History(r.Context(), partnerID, true)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, messages)
}

func (s *Server) handleAdminChatSend(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	partnerID, err := pathID(r, "partnerID")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	msg, err := s.notifications.SendMessage(r.Context(), partnerID, claims.PartnerID, true, req.Message)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, msg)
}
