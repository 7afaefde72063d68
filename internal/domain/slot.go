package domain

import "time"

type SlotStatus string

const (
	SlotUpcoming  SlotStatus = "UPCOMING"
	SlotOngoing   SlotStatus = "ONGOING"
	SlotCompleted SlotStatus = "COMPLETED"
	SlotExpired   SlotStatus = "EXPIRED"
)

// IsTerminal — COMPLETED и EXPIRED из планировщика больше не выходят.
func (s SlotStatus) IsTerminal() bool {
	return s == SlotCompleted || s == SlotExpired
}

type Slot struct {
	ID        string     `db:"id"`
	OwnerID   int64      `db:"owner_id"`
	Title     string     `db:"title"`
	StartAt   time.Time  `db:"start_at"`
	EndAt     time.Time  `db:"end_at"`
	Status    SlotStatus `db:"status"`
	Capacity  int64      `db:"capacity"`
	CreatedAt time.Time  `db:"created_at"`
}

// SlotWithBookings — слот вместе со счётчиком броней (для планировщика и фида).
type SlotWithBookings struct {
	Slot
	BookedCount int64
}

// StatusAt возвращает статус слота как чистую функцию от (start, end, брони, now).
// Терминальные статусы не пересматриваются; повторный вызов с тем же now сходится
// к тому же значению.
func (s *Slot) StatusAt(now time.Time, bookedCount int64) SlotStatus {
	if s.Status.IsTerminal() {
		return s.Status
	}
	switch {
	case now.Before(s.StartAt):
		return SlotUpcoming
	case now.Before(s.EndAt):
		return SlotOngoing
	case bookedCount > 0:
		return SlotCompleted
	default:
		return SlotExpired
	}
}
