package api

import (
	"fmt"
	"net/http"
	"time"

	"partner-portal/internal/reports"
)

func (s *Server) handleMyReport(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

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

	report, err := s.reports.PartnerReport(r.Context(), claims.PartnerID, from, to)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleMyReportExport(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	s.exportReport(w, r, claims.PartnerID)
}

// exportReport выгружает отчет партнера в XLSX
func (s *Server) exportReport(w http.ResponseWriter, r *http.Request, partnerID int64) {
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

	data, err := reports.ExportPartnerXLSX(report)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("report_%d_%s.xlsx", partnerID, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	summary, err := s.reports.Summary(r.Context(), claims.PartnerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleClientsDaily(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	days := queryInt(r, "days", defaultDailyDays)
	series, err := s.reports.ClientsByDay(r.Context(), claims.PartnerID, days)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, series)
}

// handleBitrixFetch отдает живую выгрузку сделок партнера из CRM
func (s *Server) handleBitrixFetch(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	partner, err := s.partners.Get(r.Context(), claims.PartnerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.sync.Fetch(r.Context(), partner)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}
