package service

import (
	"context"
	"testing"
	"time"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestPresence_JoinThenLeave(t *testing.T) {
	repo := newFakeCallRepo()
	svc := NewPresenceService(repo)
	svc.SetClock(fixedClock(t0))
	ctx := context.Background()

	p, err := svc.Join(ctx, "room-1", 7)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !p.IsActive || !p.LastSeen.Equal(t0) {
		t.Fatalf("participant = %+v", p)
	}

	active, err := svc.ListActive(ctx, "room-1")
	if err != nil {
		t.Fatalf("listActive: %v", err)
	}
	if len(active) != 1 || active[0] != 7 {
		t.Fatalf("active = %v, want [7]", active)
	}

	if err := svc.Leave(ctx, "room-1", 7); err != nil {
		t.Fatalf("leave: %v", err)
	}
	active, _ = svc.ListActive(ctx, "room-1")
	for _, id := range active {
		if id == 7 {
			t.Fatalf("user 7 still active after leave: %v", active)
		}
	}
}

func TestPresence_FirstJoinerCreatesCall(t *testing.T) {
	repo := newFakeCallRepo()
	svc := NewPresenceService(repo)
	svc.SetClock(fixedClock(t0))

	if _, err := svc.Join(context.Background(), "fresh-room", 1); err != nil {
		t.Fatalf("join: %v", err)
	}
	call, err := svc.GetCall(context.Background(), "fresh-room")
	if err != nil {
		t.Fatalf("call record not created: %v", err)
	}
	if len(call.Participants) != 1 {
		t.Fatalf("participants = %d, want 1", len(call.Participants))
	}
}

func TestPresence_RejoinReactivates(t *testing.T) {
	repo := newFakeCallRepo()
	svc := NewPresenceService(repo)
	svc.SetClock(fixedClock(t0))
	ctx := context.Background()

	_, _ = svc.Join(ctx, "room-1", 7)
	_ = svc.Leave(ctx, "room-1", 7)

	later := t0.Add(5 * time.Minute)
	svc.SetClock(fixedClock(later))
	p, err := svc.Join(ctx, "room-1", 7)
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if !p.IsActive || !p.LastSeen.Equal(later) {
		t.Fatalf("participant after rejoin = %+v", p)
	}
}

func TestPresence_HeartbeatUpdatesLastSeen(t *testing.T) {
	repo := newFakeCallRepo()
	svc := NewPresenceService(repo)
	svc.SetClock(fixedClock(t0))
	ctx := context.Background()

	_, _ = svc.Join(ctx, "room-1", 7)

	later := t0.Add(time.Minute)
	svc.SetClock(fixedClock(later))
	if err := svc.Heartbeat(ctx, "room-1", 7); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	call, _ := svc.GetCall(ctx, "room-1")
	if !call.Participants[0].LastSeen.Equal(later) {
		t.Fatalf("last_seen = %v, want %v", call.Participants[0].LastSeen, later)
	}
}

func TestPresence_LateHeartbeatIsSilentNoop(t *testing.T) {
	repo := newFakeCallRepo()
	svc := NewPresenceService(repo)
	svc.SetClock(fixedClock(t0))
	ctx := context.Background()

	// ни комнаты, ни участника — heartbeat и leave не ошибки
	if err := svc.Heartbeat(ctx, "ghost-room", 99); err != nil {
		t.Fatalf("late heartbeat must be a no-op, got: %v", err)
	}
	if err := svc.Leave(ctx, "ghost-room", 99); err != nil {
		t.Fatalf("late leave must be a no-op, got: %v", err)
	}
}

func TestPresence_StaleParticipantExcludedAfterReconcile(t *testing.T) {
	repo := newFakeCallRepo()
	svc := NewPresenceService(repo)
	ctx := context.Background()

	svc.SetClock(fixedClock(t0.Add(-10 * time.Minute)))
	_, _ = svc.Join(ctx, "room-1", 1)

	now := t0
	svc.SetClock(fixedClock(now))
	_, _ = svc.Join(ctx, "room-1", 2)

	rec := NewCallReconciler(repo, nil, testStale, testGrace)
	if _, err := rec.ReconcileCalls(ctx, now); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	active, _ := svc.ListActive(ctx, "room-1")
	if len(active) != 1 || active[0] != 2 {
		t.Fatalf("active = %v, want [2]", active)
	}
}
