package memory

import (
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/adwski/syncwatch/backend/model"
)

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength   = 6

	maxCodeAttempts = 1000
)

var (
	ErrRoomNotFound  = errors.New("room is not found")
	ErrNotAMember    = errors.New("client is not a member of any room")
	ErrCodeExhausted = errors.New("unable to allocate unique room code")
)

// CodeGenerator produces room code candidates. Uniqueness is checked by the store.
type CodeGenerator func() string

// RandomCode returns 6 random characters from [A-Z0-9].
func RandomCode() string {
	b := make([]byte, roomCodeLength)
	for i := range b {
		b[i] = roomCodeAlphabet[rand.IntN(len(roomCodeAlphabet))]
	}
	return string(b)
}

// Departure describes result of removing a member.
type Departure struct {
	Room      *model.Room // room after removal
	Username  string
	Dissolved bool
	Remaining []model.Member // members that were still in room when it was dissolved
}

// MemStore is a room directory together with client->room affiliations.
type MemStore struct {
	mx      *sync.Mutex
	db      map[string]*model.Room
	members map[string]string
	codeGen CodeGenerator
}

func NewMemStore() *MemStore {
	return NewMemStoreWithCodes(RandomCode)
}

func NewMemStoreWithCodes(gen CodeGenerator) *MemStore {
	return &MemStore{
		mx:      &sync.Mutex{},
		db:      make(map[string]*model.Room),
		members: make(map[string]string),
		codeGen: gen,
	}
}

// CreateRoom allocates fresh code and makes hostID the host and the only member.
func (ms *MemStore) CreateRoom(hostID, name string) (*model.Room, error) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	code, err := ms.allocateCode()
	if err != nil {
		return nil, err
	}
	room := &model.Room{
		Code:    code,
		Host:    hostID,
		Members: []model.Member{{ClientID: hostID, Name: name}},
	}
	ms.db[code] = room
	ms.members[hostID] = code
	return room.Clone(), nil
}

func (ms *MemStore) allocateCode() (string, error) {
	for range maxCodeAttempts {
		code := ms.codeGen()
		if _, ok := ms.db[code]; !ok {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}

// JoinRoom adds member to the room. Joining again only updates display name.
func (ms *MemStore) JoinRoom(code, clientID, name string) (*model.Room, error) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	room, ok := ms.db[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	updated := false
	for i := range room.Members {
		if room.Members[i].ClientID == clientID {
			room.Members[i].Name = name
			updated = true
			break
		}
	}
	if !updated {
		room.Members = append(room.Members, model.Member{ClientID: clientID, Name: name})
	}
	ms.members[clientID] = code
	return room.Clone(), nil
}

func (ms *MemStore) GetRoom(code string) (*model.Room, error) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	room, ok := ms.db[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.Clone(), nil
}

// RoomOf resolves current room of the client.
func (ms *MemStore) RoomOf(clientID string) (*model.Room, error) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	room := ms.roomOf(clientID)
	if room == nil {
		return nil, ErrNotAMember
	}
	return room.Clone(), nil
}

func (ms *MemStore) roomOf(clientID string) *model.Room {
	code, ok := ms.members[clientID]
	if !ok {
		return nil
	}
	room, ok := ms.db[code]
	if !ok {
		// stale affiliation
		delete(ms.members, clientID)
		return nil
	}
	return room
}

// SetVideo updates last known playback position of the room.
func (ms *MemStore) SetVideo(code string, video model.Video) (*model.Room, error) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	room, ok := ms.db[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.CurrentVideo = &video
	return room.Clone(), nil
}

// RemoveMember deletes client from its room. Room is dissolved when it becomes empty
// or when departing client is the host; all remaining affiliations are cleared then.
func (ms *MemStore) RemoveMember(clientID string) (*Departure, error) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	room := ms.roomOf(clientID)
	if room == nil {
		return nil, ErrNotAMember
	}
	delete(ms.members, clientID)

	dep := &Departure{}
	for i, m := range room.Members {
		if m.ClientID == clientID {
			dep.Username = m.Name
			room.Members = append(room.Members[:i], room.Members[i+1:]...)
			break
		}
	}

	if len(room.Members) == 0 || room.Host == clientID {
		dep.Dissolved = true
		dep.Remaining = make([]model.Member, len(room.Members))
		copy(dep.Remaining, room.Members)
		for _, m := range room.Members {
			delete(ms.members, m.ClientID)
		}
		delete(ms.db, room.Code)
	}
	dep.Room = room.Clone()
	return dep, nil
}

// Count returns number of live rooms.
func (ms *MemStore) Count() int {
	ms.mx.Lock()
	defer ms.mx.Unlock()
	return len(ms.db)
}
