package model

// Action requests. Every request carries identity of the client issuing it.

type CreateRoomRequest struct {
	ClientID string `json:"clientId"`
	Username string `json:"username"`
}

type JoinRoomRequest struct {
	ClientID string `json:"clientId"`
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

type LeaveRoomRequest struct {
	ClientID string `json:"clientId"`
}

type VideoChangedRequest struct {
	ClientID  string   `json:"clientId"`
	VideoID   string   `json:"videoId"`
	Timestamp *float64 `json:"timestamp"`
}

// PlaybackRequest is used for play, pause and seek.
type PlaybackRequest struct {
	ClientID  string   `json:"clientId"`
	Timestamp *float64 `json:"timestamp"`
}

type SendMessageRequest struct {
	ClientID string `json:"clientId"`
	Message  string `json:"message"`
}

// GenericResponse wraps every action response.
type GenericResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type Health struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
}
