package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/meetloop/schedule-service/internal/domain"
)

type CallReconcilerRepo interface {
	ListActiveCalls(ctx context.Context) ([]domain.VideoCall, error)
	DeactivateParticipants(ctx context.Context, roomID string, userIDs []int64) error
	// EndCall закрывает звонок, если он всё ещё ACTIVE; повторное закрытие
	// складывается в no-op.
	EndCall(ctx context.Context, roomID string, endedAt time.Time) error
}

// Notifier — срез диспетчера, нужный реконсайлеру.
type Notifier interface {
	Emit(ctx context.Context, n *domain.Notification) (DeliveryReport, error)
}

// CallReport — итог одного прохода по звонкам.
type CallReport struct {
	Scanned     int
	StaleMarked int
	Closed      int
	Errors      []error
}

// CallReconciler возвращает ресурсы брошенных комнат в два шага: сначала
// участники с протухшим heartbeat помечаются неактивными, затем закрываются
// звонки, в которых дольше graceWindow не было никакой активности. Две фазы
// дают пережить сетевой блип, не роняя комнату, где ещё кто-то живой.
type CallReconciler struct {
	repo        CallReconcilerRepo
	notifier    Notifier
	staleWindow time.Duration
	graceWindow time.Duration
}

func NewCallReconciler(repo CallReconcilerRepo, notifier Notifier, stale, grace time.Duration) *CallReconciler {
	if stale <= 0 {
		stale = 45 * time.Second
	}
	if grace <= 0 {
		grace = 3 * time.Minute
	}
	return &CallReconciler{
		repo:        repo,
		notifier:    notifier,
		staleWindow: stale,
		graceWindow: grace,
	}
}

// ReconcileCalls обрабатывает каждый звонок независимо; ошибка по одному
// звонку не прерывает проход.
func (r *CallReconciler) ReconcileCalls(ctx context.Context, now time.Time) (CallReport, error) {
	var rep CallReport

	calls, err := r.repo.ListActiveCalls(ctx)
	if err != nil {
		return rep, fmt.Errorf("callRepo.ListActiveCalls: %w", err)
	}
	rep.Scanned = len(calls)

	staleCutoff := now.Add(-r.staleWindow)
	graceCutoff := now.Add(-r.graceWindow)

	for _, call := range calls {
		var stale []int64
		for _, p := range call.Participants {
			if p.IsActive && p.LastSeen.Before(staleCutoff) {
				stale = append(stale, p.UserID)
			}
		}
		if len(stale) > 0 {
			if err := r.repo.DeactivateParticipants(ctx, call.RoomID, stale); err != nil {
				rep.Errors = append(rep.Errors, fmt.Errorf("call %s: deactivate: %w", call.RoomID, err))
				continue
			}
			rep.StaleMarked += len(stale)
		}

		last := call.LastActivity()
		if last.IsZero() {
			last = call.CreatedAt
		}
		if !last.Before(graceCutoff) {
			continue
		}

		if err := r.repo.EndCall(ctx, call.RoomID, now); err != nil {
			rep.Errors = append(rep.Errors, fmt.Errorf("call %s: end: %w", call.RoomID, err))
			continue
		}
		rep.Closed++
		r.notifyEnded(ctx, call)
	}

	return rep, nil
}

// notifyEnded — best-effort: участники узнают о закрытии комнаты, но сбой
// доставки не откатывает закрытие.
func (r *CallReconciler) notifyEnded(ctx context.Context, call domain.VideoCall) {
	if r.notifier == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{"room_id": call.RoomID})
	for _, p := range call.Participants {
		n := &domain.Notification{
			UserID:  p.UserID,
			Kind:    domain.NotifyCallEnded,
			Payload: payload,
		}
		if _, err := r.notifier.Emit(ctx, n); err != nil {
			slog.Debug("call ended notification failed",
				"room", call.RoomID, "user", p.UserID, "err", err)
		}
	}
}
