package http

import (
	"net/http"
	"time"

	"github.com/meetloop/schedule-service/internal/service"
	httpmw "github.com/meetloop/schedule-service/internal/transport/http/middleware"
	"github.com/meetloop/schedule-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(h *Handler, presenceSvc *service.PresenceService, wsServer *ws.Server, cronSecret string) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-User-ID"},
	}))

	// WS endpoint
	r.Get("/ws/rooms/{id}", wsServer.HandleWS)

	// Внутренний cron-триггер: только общий секрет, без пользовательской авторизации
	r.Group(func(cr chi.Router) {
		cr.Use(httpmw.CronSecretMiddleware(cronSecret))
		cr.Post("/internal/cron/tick", h.CronTick)
	})

	// Все остальные маршруты требуют access_token и user_id
	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.AuthMiddleware)
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Route("/slots", func(sr chi.Router) {
			sr.Post("/", h.CreateSlot)
			sr.Get("/", h.ListSlots)

			sr.Route("/{id}", func(ir chi.Router) {
				ir.Get("/", h.GetSlot)
				ir.Post("/book", h.BookSlot)
				ir.Post("/cancel", h.CancelBooking)
			})
		})

		pr.Get("/feed", h.Feed)
		pr.Get("/notifications", h.ListNotifications)

		pr.Route("/rooms/{id}", func(rr chi.Router) {
			rr.Use(httpmw.HeartbeatMiddleware(presenceSvc))
			rr.Get("/participants", h.GetParticipants)
			rr.Post("/heartbeat", h.RoomHeartbeat)
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
