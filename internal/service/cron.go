package service

import (
	"context"
	"log/slog"
	"time"
)

// TickReport — сводка одного тика: сначала слоты, потом звонки.
type TickReport struct {
	StartedAt     time.Time     `json:"started_at"`
	Elapsed       time.Duration `json:"-"`
	ElapsedMS     int64         `json:"elapsed_ms"`
	SlotsScanned  int           `json:"slots_scanned"`
	SlotsAdvanced int           `json:"slots_advanced"`
	SlotErrors    int           `json:"slot_errors"`
	CallsScanned  int           `json:"calls_scanned"`
	StaleMarked   int           `json:"stale_marked"`
	CallsClosed   int           `json:"calls_closed"`
	CallErrors    int           `json:"call_errors"`
}

// CronCoordinator — входная точка периодического триггера. Оба прохода
// идемпотентны, поэтому повторный вызов за тот же тик безопасен; отмена
// посреди батча оставляет уже применённые переходы как есть.
type CronCoordinator struct {
	slots *SlotScheduler
	calls *CallReconciler
	now   func() time.Time
}

func NewCronCoordinator(slots *SlotScheduler, calls *CallReconciler) *CronCoordinator {
	return &CronCoordinator{slots: slots, calls: calls, now: time.Now}
}

func (c *CronCoordinator) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

func (c *CronCoordinator) RunTick(ctx context.Context) TickReport {
	now := c.now()
	rep := TickReport{StartedAt: now}

	slotRep, err := c.slots.ReconcileSlots(ctx, now)
	if err != nil {
		slog.Error("slot reconciliation failed", "err", err)
		rep.SlotErrors++
	}
	rep.SlotsScanned = slotRep.Scanned
	rep.SlotsAdvanced = slotRep.Advanced
	rep.SlotErrors += len(slotRep.Errors)

	callRep, err := c.calls.ReconcileCalls(ctx, now)
	if err != nil {
		slog.Error("call reconciliation failed", "err", err)
		rep.CallErrors++
	}
	rep.CallsScanned = callRep.Scanned
	rep.StaleMarked = callRep.StaleMarked
	rep.CallsClosed = callRep.Closed
	rep.CallErrors += len(callRep.Errors)

	rep.Elapsed = time.Since(now)
	rep.ElapsedMS = rep.Elapsed.Milliseconds()
	slog.Info("cron tick",
		"slots_scanned", rep.SlotsScanned,
		"slots_advanced", rep.SlotsAdvanced,
		"slot_errors", rep.SlotErrors,
		"calls_closed", rep.CallsClosed,
		"stale_marked", rep.StaleMarked,
		"call_errors", rep.CallErrors,
		"dur_ms", rep.ElapsedMS)

	return rep
}
