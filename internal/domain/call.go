package domain

import "time"

type CallStatus string

const (
	CallActive CallStatus = "ACTIVE"
	CallEnded  CallStatus = "ENDED"
)

type CallParticipant struct {
	RoomID   string    `db:"room_id"`
	UserID   int64     `db:"user_id"`
	JoinedAt time.Time `db:"joined_at"`
	LastSeen time.Time `db:"last_seen"`
	IsActive bool      `db:"is_active"`
}

// VideoCall — живая (или завершённая) комната вместе с участниками.
// Запись не удаляется при закрытии: ended_at остаётся для истории.
type VideoCall struct {
	RoomID       string     `db:"room_id"`
	Status       CallStatus `db:"status"`
	CreatedAt    time.Time  `db:"created_at"`
	EndedAt      *time.Time `db:"ended_at"`
	Participants []CallParticipant
}

// LastActivity — самый свежий last_seen среди всех участников (и активных,
// и уже помеченных неактивными). Нулевое время, если участников нет.
func (c *VideoCall) LastActivity() time.Time {
	var last time.Time
	for _, p := range c.Participants {
		if p.LastSeen.After(last) {
			last = p.LastSeen
		}
	}
	return last
}
