package ws

// Типы событий в WS-канале
const (
	TypeState        = "state"        // снапшот активных участников
	TypePeerJoined   = "peer_joined"  // пользователь появился в комнате
	TypePeerLeft     = "peer_left"    // пользователь ушёл
	TypeHeartbeat    = "heartbeat"    // явный heartbeat от клиента
	TypeNotification = "notification" // адресное уведомление
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatePayload struct {
	RoomID  string  `json:"room_id"`
	UserIDs []int64 `json:"user_ids"`
}

type PeerEventPayload struct {
	RoomID string `json:"room_id"`
	UserID int64  `json:"user_id"`
}

type NotificationPayload struct {
	Kind string      `json:"kind"`
	Data interface{} `json:"data"`
}
