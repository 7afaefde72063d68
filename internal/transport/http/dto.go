package http

import (
	"encoding/json"
	"time"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateSlotRequest struct {
	Title    string    `json:"title" validate:"required,min=1,max=200"`
	StartAt  time.Time `json:"start_at" validate:"required"`
	EndAt    time.Time `json:"end_at" validate:"required,gtfield=StartAt"`
	Capacity int64     `json:"capacity" validate:"omitempty,min=1,max=100"`
}

type SlotItem struct {
	ID          string    `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Title       string    `json:"title"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Status      string    `json:"status"`
	Capacity    int64     `json:"capacity"`
	BookedCount int64     `json:"booked_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type SlotsListResponse struct {
	Items      []SlotItem `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

type FeedItem struct {
	SlotItem
	Score float64 `json:"score"`
}

type FeedResponse struct {
	Items []FeedItem `json:"items"`
}

type ParticipantsResponse struct {
	RoomID  string  `json:"room_id"`
	UserIDs []int64 `json:"user_ids"`
}

type NotificationItem struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	DeliveredAt *time.Time      `json:"delivered_at,omitempty"`
}

type NotificationsResponse struct {
	Items      []NotificationItem `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
}
