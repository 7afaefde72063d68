package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meetloop/schedule-service/internal/domain"
)

type SlotSchedulerRepo interface {
	// ListDue возвращает нетерминальные слоты, у которых start_at <= now.
	ListDue(ctx context.Context, now time.Time) ([]domain.SlotWithBookings, error)
	// AdvanceStatus — compare-and-set: переводит слот из from в to, если он
	// всё ещё в from. Промах по from не ошибка (параллельный прогон успел раньше).
	AdvanceStatus(ctx context.Context, id string, from, to domain.SlotStatus) error
}

// SlotReport — итог одного прохода планировщика.
type SlotReport struct {
	Scanned  int
	Advanced int
	Errors   []error
}

// SlotScheduler приводит статусы слотов в соответствие с настенными часами.
// Каждый переход — чистая функция от (start, end, брони, now), поэтому
// повторный или параллельный прогон с тем же now сходится к тому же состоянию.
type SlotScheduler struct {
	repo SlotSchedulerRepo
}

func NewSlotScheduler(repo SlotSchedulerRepo) *SlotScheduler {
	return &SlotScheduler{repo: repo}
}

// ReconcileSlots обрабатывает каждый слот независимо: ошибка по одному слоту
// пишется в отчёт и не прерывает проход. Возвращает ошибку только если не
// удалось получить сам батч.
func (s *SlotScheduler) ReconcileSlots(ctx context.Context, now time.Time) (SlotReport, error) {
	var rep SlotReport

	due, err := s.repo.ListDue(ctx, now)
	if err != nil {
		return rep, fmt.Errorf("slotRepo.ListDue: %w", err)
	}
	rep.Scanned = len(due)

	for _, sw := range due {
		next := sw.StatusAt(now, sw.BookedCount)
		if next == sw.Status {
			continue
		}
		if err := s.repo.AdvanceStatus(ctx, sw.ID, sw.Status, next); err != nil {
			slog.Warn("slot transition failed",
				"slot", sw.ID, "from", sw.Status, "to", next, "err", err)
			rep.Errors = append(rep.Errors, fmt.Errorf("slot %s: %w", sw.ID, err))
			continue
		}
		rep.Advanced++
	}

	return rep, nil
}
