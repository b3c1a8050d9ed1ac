package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/teamtask/pkg/service/hub"
	"github.com/secmon-lab/teamtask/pkg/usecase"
	"github.com/secmon-lab/teamtask/pkg/utils/logging"
)

type Server struct {
	router *chi.Mux
	uc     *usecase.UseCases
	hub    *hub.Hub
}

type Options func(*Server)

// WithHub enables the WebSocket endpoint
func WithHub(h *hub.Hub) Options {
	return func(s *Server) {
		s.hub = h
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler(uc))

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(uc.Auth))

		r.Route("/organizations", func(r chi.Router) {
			r.Post("/", s.createOrganization)
			r.Get("/", s.listOrganizations)

			r.Route("/{orgID}", func(r chi.Router) {
				r.Get("/", s.getOrganization)
				r.Get("/members", s.listMembers)
				r.Delete("/members/{userID}", s.removeMember)
				r.Post("/invitations", s.invite)

				r.Post("/tasks", s.createTask)
				r.Get("/tasks", s.listTasks)
				r.Get("/calendar", s.calendar)
				r.Get("/statistics", s.statistics)

				r.Get("/messages", s.listMessages)
				r.Post("/messages", s.sendMessage)
				r.Post("/typing", s.typing)
			})
		})

		r.Route("/invitations", func(r chi.Router) {
			r.Get("/", s.listInvitations)
			r.Post("/{invitationID}/accept", s.acceptInvitation)
			r.Post("/{invitationID}/decline", s.declineInvitation)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/urgent", s.urgentTasks)

			r.Route("/stages/{stageID}", func(r chi.Router) {
				r.Patch("/", s.updateStage)
				r.Delete("/", s.deleteStage)
				r.Post("/move", s.moveStage)
			})

			r.Route("/{taskID}", func(r chi.Router) {
				r.Get("/", s.getTask)
				r.Patch("/", s.updateTask)
				r.Delete("/", s.deleteTask)
				r.Post("/status", s.changeStatus)
				r.Put("/estimate", s.setEstimate)
				r.Get("/stages", s.listStages)
				r.Post("/stages", s.addStage)
				r.Get("/reports", s.listReports)
				r.Post("/reports", s.completeTask)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.listNotifications)
			r.Get("/reads", s.listReads)
			r.Post("/reads", s.markRead)
		})

		r.Route("/messages/{messageID}", func(r chi.Router) {
			r.Patch("/", s.editMessage)
			r.Delete("/", s.deleteMessage)
			r.Post("/reactions", s.react)
		})

		if s.hub != nil {
			r.Get("/ws/organizations/{orgID}", s.serveWebSocket)
		}
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

type healthResponse struct {
	Status string `json:"status"`
}

// healthHandler reports whether the repository backend answers
func healthHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := uc.Ping(r.Context()); err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
