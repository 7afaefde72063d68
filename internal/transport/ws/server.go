package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/meetloop/schedule-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type PresenceSvc interface {
	Join(ctx context.Context, roomID string, userID int64) (*domain.CallParticipant, error)
	Heartbeat(ctx context.Context, roomID string, userID int64) error
	Leave(ctx context.Context, roomID string, userID int64) error
	ListActive(ctx context.Context, roomID string) ([]int64, error)
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	presence PresenceSvc

	pingEvery time.Duration
}

func NewServer(hub *Hub, presence PresenceSvc) *Server {
	return &Server{
		hub:      hub,
		presence: presence,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws/rooms/{id}?access_token=...&user_id=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if strings.TrimSpace(q.Get("access_token")) == "" {
		http.Error(w, "missing access_token", http.StatusUnauthorized)
		return
	}
	uid, err := strconv.ParseInt(strings.TrimSpace(q.Get("user_id")), 10, 64)
	if err != nil || uid <= 0 {
		http.Error(w, "invalid user_id", http.StatusUnauthorized)
		return
	}
	roomID := chi.URLParam(r, "id")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	// Присутствие фиксируется до регистрации соединения: первый joiner
	// создаёт запись звонка.
	if _, err := s.presence.Join(r.Context(), roomID, uid); err != nil {
		slog.Warn("ws join failed", "room", roomID, "user", uid, "err", err)
		_ = conn.Close()
		return
	}

	c := newWsConn(conn, roomID, uid)
	s.hub.Add(c)

	if err := s.sendState(r.Context(), c); err != nil {
		slog.Warn("ws send initial state failed", "room", roomID, "user", uid, "err", err)
	}

	s.hub.BroadcastRoom(roomID, Message{
		Type:    TypePeerJoined,
		Payload: PeerEventPayload{RoomID: roomID, UserID: uid},
	})

	go s.writeLoop(r.Context(), c)
	s.readLoop(r.Context(), c)

	// Единственная точка выхода: снять регистрацию, зафиксировать leave,
	// оповестить комнату. Remove идёт первым — протухшая запись в реестре
	// не должна пережить дисконнект.
	s.hub.Remove(c)

	if err := s.presence.Leave(r.Context(), roomID, uid); err != nil {
		slog.Debug("ws leave failed", "room", roomID, "user", uid, "err", err)
	}
	s.hub.BroadcastRoom(roomID, Message{
		Type:    TypePeerLeft,
		Payload: PeerEventPayload{RoomID: roomID, UserID: uid},
	})

	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "room", roomID, "user", uid, "err", err)
	}
}

func (s *Server) sendState(ctx context.Context, c *wsConn) error {
	ids, err := s.presence.ListActive(ctx, c.roomID)
	if err != nil {
		return err
	}
	return c.Send(Message{
		Type:    TypeState,
		Payload: StatePayload{RoomID: c.roomID, UserIDs: ids},
	})
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		_ = s.presence.Heartbeat(ctx, c.roomID, c.userID)
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case TypeHeartbeat:
			_ = s.presence.Heartbeat(ctx, c.roomID, c.userID)
		default:
			// ignore
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

type wsConn struct {
	conn   *websocket.Conn
	roomID string
	userID int64
	sendMu chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

func newWsConn(c *websocket.Conn, roomID string, userID int64) *wsConn {
	return &wsConn{
		conn:   c,
		roomID: roomID,
		userID: userID,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) Send(msg Message) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(msg)
}

// Close безопасен при повторных вызовах: его зовут и read-loop, и
// точка выхода хендлера, и CloseAll при остановке.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.conn.Close()
}

func (c *wsConn) UserID() int64  { return c.userID }
func (c *wsConn) RoomID() string { return c.roomID }
