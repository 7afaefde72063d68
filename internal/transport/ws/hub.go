package ws

import (
	"sync"

	"github.com/meetloop/schedule-service/internal/service"
)

type Conn interface {
	Send(msg Message) error
	Close() error
	UserID() int64
	RoomID() string
}

// Hub — реестр открытых соединений с двумя индексами: по комнате (для
// broadcast событий присутствия) и по пользователю (для адресной доставки
// уведомлений). Записи снимаются сразу на любом пути закрытия соединения —
// протухших записей после дисконнекта не остаётся.
type Hub struct {
	mu     sync.RWMutex
	byRoom map[string]map[Conn]struct{}
	byUser map[int64]map[Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		byRoom: make(map[string]map[Conn]struct{}),
		byUser: make(map[int64]map[Conn]struct{}),
	}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.byRoom[c.RoomID()]
	if !ok {
		rs = make(map[Conn]struct{})
		h.byRoom[c.RoomID()] = rs
	}
	rs[c] = struct{}{}

	us, ok := h.byUser[c.UserID()]
	if !ok {
		us = make(map[Conn]struct{})
		h.byUser[c.UserID()] = us
	}
	us[c] = struct{}{}
}

func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rs, ok := h.byRoom[c.RoomID()]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.byRoom, c.RoomID())
		}
	}
	if us, ok := h.byUser[c.UserID()]; ok {
		delete(us, c)
		if len(us) == 0 {
			delete(h.byUser, c.UserID())
		}
	}
}

func (h *Hub) BroadcastRoom(roomID string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if rs, ok := h.byRoom[roomID]; ok {
		for c := range rs {
			_ = c.Send(msg) // best-effort
		}
	}
}

// Connections реализует service.ConnRegistry для диспетчера уведомлений.
func (h *Hub) Connections(userID int64) []service.PushConn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	us, ok := h.byUser[userID]
	if !ok {
		return nil
	}
	out := make([]service.PushConn, 0, len(us))
	for c := range us {
		out = append(out, pushConn{c})
	}
	return out
}

// CloseAll рвёт все соединения при остановке сервиса.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, rs := range h.byRoom {
		for c := range rs {
			_ = c.Close()
		}
	}
	h.byRoom = make(map[string]map[Conn]struct{})
	h.byUser = make(map[int64]map[Conn]struct{})
}

type pushConn struct {
	c Conn
}

func (p pushConn) Push(kind string, payload any) error {
	return p.c.Send(Message{Type: TypeNotification, Payload: NotificationPayload{
		Kind: kind,
		Data: payload,
	}})
}
