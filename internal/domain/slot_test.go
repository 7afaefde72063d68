package domain

import (
	"testing"
	"time"
)

func TestStatusAt_Exhaustive(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	slot := Slot{StartAt: start, EndAt: end, Status: SlotUpcoming}

	for _, booked := range []int64{0, 1, 3} {
		for _, tc := range []struct {
			now  time.Time
			want SlotStatus
		}{
			{start.Add(-time.Second), SlotUpcoming},
			{start, SlotOngoing},
			{end.Add(-time.Second), SlotOngoing},
			{end, SlotCompleted},
			{end.Add(time.Hour), SlotCompleted},
		} {
			want := tc.want
			if want == SlotCompleted && booked == 0 {
				want = SlotExpired
			}
			if got := slot.StatusAt(tc.now, booked); got != want {
				t.Errorf("StatusAt(now=%v, booked=%d) = %s, want %s", tc.now, booked, got, want)
			}
		}
	}
}

func TestStatusAt_TerminalIsSticky(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, status := range []SlotStatus{SlotCompleted, SlotExpired} {
		slot := Slot{StartAt: start, EndAt: start.Add(time.Hour), Status: status}
		// время внутри окна не возвращает терминальный слот в ONGOING
		if got := slot.StatusAt(start.Add(30*time.Minute), 1); got != status {
			t.Errorf("terminal %s became %s", status, got)
		}
	}
}

func TestLastActivity(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	call := VideoCall{Participants: []CallParticipant{
		{UserID: 1, LastSeen: base},
		{UserID: 2, LastSeen: base.Add(5 * time.Minute)},
		{UserID: 3, LastSeen: base.Add(-time.Hour), IsActive: false},
	}}
	if got := call.LastActivity(); !got.Equal(base.Add(5 * time.Minute)) {
		t.Fatalf("last activity = %v", got)
	}

	var empty VideoCall
	if !empty.LastActivity().IsZero() {
		t.Fatal("empty call must have zero last activity")
	}
}
