package domain

import (
	"encoding/json"
	"time"
)

// Типы уведомлений, которые порождает ядро.
const (
	NotifySlotBooked   = "slot_booked"
	NotifySlotCanceled = "slot_canceled"
	NotifySlotStarted  = "slot_started"
	NotifyCallEnded    = "call_ended"
)

// Notification живёт в сторе независимо от того, удалось ли доставить её
// вживую: офлайн-получатель заберёт её при следующем поллинге.
type Notification struct {
	ID          string          `db:"id"`
	UserID      int64           `db:"user_id"`
	Kind        string          `db:"kind"`
	Payload     json.RawMessage `db:"payload"`
	CreatedAt   time.Time       `db:"created_at"`
	DeliveredAt *time.Time      `db:"delivered_at"`
}
