//go:generate mockgen -destination=mock_contract_test.go -package=${GOPACKAGE} -source=contract.go
package http

import (
	"github.com/adwski/syncwatch/backend/model"
	sw "github.com/adwski/syncwatch/backend/switch"
)

type SessionService interface {
	Connect(clientID string) *sw.Channel
	Disconnect(ch *sw.Channel)
	CreateRoom(clientID, username string) (model.RoomState, error)
	JoinRoom(clientID, roomCode, username string) (model.RoomState, error)
	LeaveRoom(clientID string) error
	ChangeVideo(clientID, videoID string, timestamp float64) error
	Play(clientID string, timestamp float64) error
	Pause(clientID string, timestamp float64) error
	Seek(clientID string, timestamp float64) error
	SendMessage(clientID, text string) error
	Health() model.Health
}
