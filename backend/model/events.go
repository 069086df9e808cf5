package model

// Events that are pushed by server over client's channel.
const (
	EventConnected      = "connected"
	EventRoomCreated    = "room-created"
	EventRoomJoined     = "room-joined"
	EventUserJoined     = "user-joined"
	EventUserLeft       = "user-left"
	EventRoomError      = "room-error"
	EventVideoChanged   = "video-changed"
	EventPlay           = "play"
	EventPause          = "pause"
	EventSeek           = "seek"
	EventReceiveMessage = "receive-message"
)

// RoomClosedMessage is sent with room-error when room is dissolved.
const RoomClosedMessage = "Host left. Room closed."

// Event is a single outbound channel message.
type Event struct {
	Name string
	Data any
}

// Envelope is the websocket framing of an Event.
// SSE uses event name and data lines instead.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type Connected struct {
	ClientID string `json:"clientId"`
}

// RoomState is used for room-created, room-joined and reconnection snapshot.
type RoomState struct {
	RoomCode     string   `json:"roomCode"`
	Users        []string `json:"users"`
	CurrentVideo *Video   `json:"currentVideo"`
	IsHost       bool     `json:"isHost,omitempty"`
}

// UserChange is used for user-joined and user-left.
type UserChange struct {
	Username string   `json:"username"`
	Users    []string `json:"users"`
}

type RoomError struct {
	Message string `json:"message"`
}

type Playback struct {
	Timestamp float64 `json:"timestamp"`
}

type ChatMessage struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
