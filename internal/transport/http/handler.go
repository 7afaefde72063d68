package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/meetloop/schedule-service/internal/domain"
	"github.com/meetloop/schedule-service/internal/postgres"
	"github.com/meetloop/schedule-service/internal/service"
	httpmw "github.com/meetloop/schedule-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

type Handler struct {
	slotSvc     *service.SlotService
	feedSvc     *service.FeedService
	presenceSvc *service.PresenceService
	dispatcher  *service.Dispatcher
	cron        *service.CronCoordinator
	validate    *validator.Validate
}

func NewHandler(
	slotSvc *service.SlotService,
	feedSvc *service.FeedService,
	presenceSvc *service.PresenceService,
	dispatcher *service.Dispatcher,
	cron *service.CronCoordinator,
	validate *validator.Validate,
) *Handler {
	return &Handler{
		slotSvc:     slotSvc,
		feedSvc:     feedSvc,
		presenceSvc: presenceSvc,
		dispatcher:  dispatcher,
		cron:        cron,
		validate:    validate,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, name string, def int) int {
	if s := r.URL.Query().Get(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// POST /slots
func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	ownerID := httpmw.UserIDFromCtx(r.Context())
	if ownerID == 0 {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user id"})
		return
	}

	var req CreateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	slot, err := h.slotSvc.CreateSlot(r.Context(), ownerID, req.Title, req.StartAt, req.EndAt, req.Capacity)
	if err != nil {
		if errors.Is(err, domain.ErrSlotNotOpen) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		slog.Error("handler.CreateSlot:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, slotItem(domain.SlotWithBookings{Slot: *slot}))
}

// GET /slots?limit=&cursor=
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	cursor := r.URL.Query().Get("cursor")

	slots, next, err := h.slotSvc.ListSlots(r.Context(), limit, cursor)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.ListSlots:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, SlotsListResponse{
		Items:      lo.Map(slots, func(s domain.SlotWithBookings, _ int) SlotItem { return slotItem(s) }),
		NextCursor: next,
	})
}

// GET /slots/{id}
func (h *Handler) GetSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := h.slotSvc.GetSlot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrSlotNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "slot not found"})
			return
		}
		slog.Error("handler.GetSlot:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, slotItem(domain.SlotWithBookings{Slot: *slot}))
}

// POST /slots/{id}/book
func (h *Handler) BookSlot(w http.ResponseWriter, r *http.Request) {
	slotID := chi.URLParam(r, "id")
	userID := httpmw.UserIDFromCtx(r.Context())
	if userID == 0 {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user id"})
		return
	}

	err := h.slotSvc.Book(r.Context(), slotID, userID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "booked"})
	case errors.Is(err, domain.ErrSlotNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "slot not found"})
	case errors.Is(err, domain.ErrSlotFull):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "slot full"})
	case errors.Is(err, domain.ErrAlreadyBooked):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "already booked"})
	case errors.Is(err, domain.ErrSlotNotOpen):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "slot is not open for booking"})
	default:
		slog.Error("handler.BookSlot:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

// POST /slots/{id}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	slotID := chi.URLParam(r, "id")
	userID := httpmw.UserIDFromCtx(r.Context())
	if userID == 0 {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user id"})
		return
	}

	err := h.slotSvc.Cancel(r.Context(), slotID, userID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
	case errors.Is(err, domain.ErrSlotNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "slot not found"})
	case errors.Is(err, domain.ErrNotBooked):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "booking not found"})
	default:
		slog.Error("handler.CancelBooking:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

// GET /feed?q=&limit=
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	ranked, err := h.feedSvc.Search(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", 20))
	if err != nil {
		slog.Error("handler.Feed:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, FeedResponse{
		Items: lo.Map(ranked, func(rs service.RankedSlot, _ int) FeedItem {
			return FeedItem{SlotItem: slotItem(rs.SlotWithBookings), Score: rs.Score}
		}),
	})
}

// GET /rooms/{id}/participants
func (h *Handler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	ids, err := h.presenceSvc.ListActive(r.Context(), roomID)
	if err != nil {
		slog.Error("handler.GetParticipants:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ParticipantsResponse{RoomID: roomID, UserIDs: ids})
}

// POST /rooms/{id}/heartbeat — fallback для клиентов без WS
func (h *Handler) RoomHeartbeat(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	userID := httpmw.UserIDFromCtx(r.Context())
	if userID == 0 {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user id"})
		return
	}
	// no-op для отсутствующего участника — идемпотентная семантика
	if err := h.presenceSvc.Heartbeat(r.Context(), roomID, userID); err != nil {
		slog.Error("handler.RoomHeartbeat:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /notifications?limit=&cursor=
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())
	if userID == 0 {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user id"})
		return
	}

	items, next, err := h.dispatcher.History(r.Context(), userID, queryInt(r, "limit", 20), r.URL.Query().Get("cursor"))
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.ListNotifications:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, NotificationsResponse{
		Items: lo.Map(items, func(n domain.Notification, _ int) NotificationItem {
			return NotificationItem{
				ID:          n.ID,
				Kind:        n.Kind,
				Payload:     n.Payload,
				CreatedAt:   n.CreatedAt,
				DeliveredAt: n.DeliveredAt,
			}
		}),
		NextCursor: next,
	})
}

// POST /internal/cron/tick — периодический триггер; секрет проверен
// в middleware, повторный вызов за тот же тик безопасен
func (h *Handler) CronTick(w http.ResponseWriter, r *http.Request) {
	rep := h.cron.RunTick(r.Context())
	writeJSON(w, http.StatusOK, rep)
}

func slotItem(s domain.SlotWithBookings) SlotItem {
	return SlotItem{
		ID:          s.ID,
		OwnerID:     s.OwnerID,
		Title:       s.Title,
		StartAt:     s.StartAt,
		EndAt:       s.EndAt,
		Status:      string(s.Status),
		Capacity:    s.Capacity,
		BookedCount: s.BookedCount,
		CreatedAt:   s.CreatedAt,
	}
}
