// Package api содержит HTTP-слой портала: маршруты, обработчики
// и отображение ошибок бизнес-логики в статусы.
package api

import (
	"net/http"

	"partner-portal/internal/auth"
	"partner-portal/internal/bitrix"
	"partner-portal/internal/clients"
	"partner-portal/internal/commission"
	"partner-portal/internal/links"
	"partner-portal/internal/metrics"
	"partner-portal/internal/notifications"
	"partner-portal/internal/partners"
	"partner-portal/internal/payments"
	"partner-portal/internal/reports"
	"partner-portal/internal/webhook"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Server объединяет сервисы портала и HTTP-маршруты
type Server struct {
	tokens        *auth.TokenManager
	partners      *partners.Service
	links         *links.Service
	clients       *clients.Service
	commission    *commission.Service
	payments      *payments.Service
	reports       *reports.Service
	notifications *notifications.Service
	webhook       *webhook.Service
	sync          *bitrix.SyncService
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

// Deps содержит зависимости HTTP-сервера
type Deps struct {
	Tokens        *auth.TokenManager
	Partners      *partners.Service
	Links         *links.Service
	Clients       *clients.Service
	Commission    *commission.Service
	Payments      *payments.Service
	Reports       *reports.Service
	Notifications *notifications.Service
	Webhook       *webhook.Service
	Sync          *bitrix.SyncService
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

// NewServer создает HTTP-сервер портала
func NewServer(deps Deps) *Server {
	return &Server{
		tokens:        deps.Tokens,
		partners:      deps.Partners,
		links:         deps.Links,
		clients:       deps.Clients,
		commission:    deps.Commission,
		payments:      deps.Payments,
		reports:       deps.Reports,
		notifications: deps.Notifications,
		webhook:       deps.Webhook,
		sync:          deps.Sync,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
	}
}

// Router собирает все маршруты портала
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	// Публичные маршруты: переходы, формы, вебхуки CRM
	r.Route("/api/public", func(r chi.Router) {
		r.Get("/r/{linkCode}", s.handleRedirect)
		r.Get("/landing/{linkCode}", s.handleLandingPage)
		r.Post("/form/{linkCode}", s.handlePublicForm)
		r.Post("/webhook/b24/{token}", s.handleBitrixWebhook)
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
	})

	// Маршруты партнера
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/api/partners/me", s.handleMe)
		r.Put("/api/partners/me/payment-methods", s.handleUpdatePaymentMethods)

		r.Route("/api/links", func(r chi.Router) {
			r.Get("/", s.handleListLinks)
			r.Post("/", s.handleCreateLink)
			r.Get("/stats", s.handleLinkStats)
			r.Get("/{id}", s.handleGetLink)
			r.Put("/{id}", s.handleUpdateLink)
			r.Patch("/{id}", s.handleUpdateLink)
			r.Delete("/{id}", s.handleDeactivateLink)
			r.Get("/{id}/embed", s.handleLinkEmbed)
			r.Get("/{id}/qr", s.handleLinkQR)
			r.Get("/{id}/clicks-daily", s.handleLinkDailyClicks)
		})

		r.Route("/api/clients", func(r chi.Router) {
			r.Get("/", s.handleListClients)
			r.Post("/", s.handleCreateClient)
			r.Get("/{id}", s.handleGetClient)
		})

		r.Route("/api/payment-requests", func(r chi.Router) {
			r.Get("/", s.handleListMyPaymentRequests)
			r.Post("/", s.handleCreatePaymentRequest)
			r.Get("/{id}", s.handleGetPaymentRequest)
		})

		r.Route("/api/reports", func(r chi.Router) {
			r.Get("/me", s.handleMyReport)
			r.Get("/me/export", s.handleMyReportExport)
		})

		r.Route("/api/analytics", func(r chi.Router) {
			r.Get("/summary", s.handleAnalyticsSummary)
			r.Get("/clients-daily", s.handleClientsDaily)
			r.Post("/bitrix/fetch", s.handleBitrixFetch)
		})

		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Get("/unread-count", s.handleUnreadCount)
			r.Post("/{id}/read", s.handleMarkNotificationRead)
		})

		r.Route("/api/chat", func(r chi.Router) {
			r.Get("/", s.handleChatHistory)
			r.Post("/", s.handleChatSend)
		})

		// Маршруты администратора
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(s.adminMiddleware)

			r.Route("/partners", func(r chi.Router) {
				r.Get("/", s.handleAdminListPartners)
				r.Get("/pending", s.handleAdminListPending)
				r.Get("/stats", s.handleAdminPartnerStats)
				r.Post("/{id}/approve", s.handleAdminApprovePartner)
				r.Post("/{id}/reject", s.handleAdminRejectPartner)
				r.Post("/{id}/toggle-active", s.handleAdminToggleActive)
				r.Put("/{id}/reward", s.handleAdminSetReward)
				r.Put("/{id}/workflow", s.handleAdminSetWorkflow)
			})

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", s.handleAdminListClients)
				r.Get("/payment-summary", s.handleAdminPaymentSummary)
				r.Put("/payment", s.handleAdminBulkPayment)
				r.Put("/{id}/payment", s.handleAdminClientPayment)
			})

			r.Route("/payment-requests", func(r chi.Router) {
				r.Get("/", s.handleAdminListPaymentRequests)
				r.Get("/pending-count", s.handleAdminPendingPaymentCount)
				r.Post("/{id}/process", s.handleAdminProcessPaymentRequest)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", s.handleAdminAllPartnersReport)
				r.Get("/{partnerID}", s.handleAdminPartnerReport)
				r.Get("/{partnerID}/export", s.handleAdminPartnerReportExport)
			})

			r.Route("/settings/reward", func(r chi.Router) {
				r.Get("/", s.handleGetRewardSetting)
				r.Put("/", s.handleUpdateRewardSetting)
				r.Get("/history", s.handleRewardSettingHistory)
			})

			r.Post("/sync", s.handleAdminSync)
			r.Post("/notifications", s.handleAdminCreateNotification)

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", s.handleAdminChatThreads)
				r.Get("/{partnerID}", s.handleAdminChatHistory)
				r.Post("/{partnerID}", s.handleAdminChatSend)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
