package service

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/adwski/syncwatch/backend/model"
	"github.com/adwski/syncwatch/backend/storage/memory"
	sw "github.com/adwski/syncwatch/backend/switch"
	"github.com/rs/zerolog"
)

const (
	DefaultGracePeriod      = 10 * time.Second
	DefaultMaxMessageLength = 500

	defaultHostName  = "Host"
	defaultGuestName = "Guest"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid request")

	ErrCreate = errors.New("unable to create room")

	errRoomNotFound  = fmt.Errorf("%w: room not found", ErrNotFound)
	errNotInRoom     = fmt.Errorf("%w: not in a room", ErrNotFound)
	errHostOnlyVideo = fmt.Errorf("%w: only host can change video", ErrForbidden)
	errHostOnlyPlay  = fmt.Errorf("%w: only host can control playback", ErrForbidden)
	errNoClientID    = fmt.Errorf("%w: client id is required", ErrInvalid)
	errNoRoomCode    = fmt.Errorf("%w: room code is required", ErrInvalid)
	errNoVideoID     = fmt.Errorf("%w: video id is required", ErrInvalid)
	errBadTimestamp  = fmt.Errorf("%w: timestamp must be a non-negative number", ErrInvalid)
	errEmptyMessage  = fmt.Errorf("%w: message is empty", ErrInvalid)
)

type (
	RoomStore interface {
		CreateRoom(hostID, name string) (*model.Room, error)
		JoinRoom(code, clientID, name string) (*model.Room, error)
		GetRoom(code string) (*model.Room, error)
		RoomOf(clientID string) (*model.Room, error)
		SetVideo(code string, video model.Video) (*model.Room, error)
		RemoveMember(clientID string) (*memory.Departure, error)
		Count() int
	}

	Switch interface {
		Register(clientID string) *sw.Channel
		Unregister(ch *sw.Channel) bool
		IsConnected(clientID string) bool
		Send(clientID string, ev model.Event) bool
		Multicast(clientIDs []string, ev model.Event, exclude string) int
		Count() int
	}

	Metrics interface {
		SetRooms(n int)
		SetChannels(n int)
		Action(action, result string)
		GraceExpired()
	}

	// Service owns room directory and channel registry. Every mutation together
	// with its fan-out happens under single lock, so events reach members
	// in the order actions were accepted.
	Service struct {
		store   RoomStore
		sw      Switch
		metrics Metrics
		logger  zerolog.Logger

		gracePeriod   time.Duration
		maxMessageLen int
		now           func() time.Time

		mx    *sync.Mutex
		grace map[string]*graceTimer
	}

	Config struct {
		RoomStore        RoomStore
		Switch           Switch
		Metrics          Metrics
		Logger           *zerolog.Logger
		GracePeriod      time.Duration
		MaxMessageLength int
		Now              func() time.Time
	}

	graceTimer struct {
		*time.Timer
	}
)

func NewService(cfg Config) *Service {
	svc := &Service{
		store:         cfg.RoomStore,
		sw:            cfg.Switch,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger.With().Str("component", "session").Logger(),
		gracePeriod:   cfg.GracePeriod,
		maxMessageLen: cfg.MaxMessageLength,
		now:           cfg.Now,
		mx:            &sync.Mutex{},
		grace:         make(map[string]*graceTimer),
	}
	if svc.metrics == nil {
		svc.metrics = nopMetrics{}
	}
	if svc.gracePeriod <= 0 {
		svc.gracePeriod = DefaultGracePeriod
	}
	if svc.maxMessageLen <= 0 {
		svc.maxMessageLen = DefaultMaxMessageLength
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Connect registers client's channel. Channel first gets connected event and,
// if client is still a room member, a room-joined snapshot.
func (svc *Service) Connect(clientID string) *sw.Channel {
	svc.mx.Lock()
	defer svc.mx.Unlock()

	if svc.cancelGrace(clientID) {
		svc.logger.Info().Str("clientID", clientID).Msg("client reconnected within grace period")
	}
	ch := svc.sw.Register(clientID)
	svc.sw.Send(clientID, model.Event{
		Name: model.EventConnected,
		Data: model.Connected{ClientID: clientID},
	})

	if room, err := svc.store.RoomOf(clientID); err == nil {
		svc.sw.Send(clientID, model.Event{
			Name: model.EventRoomJoined,
			Data: room.State(clientID),
		})
		svc.logger.Debug().
			Str("clientID", clientID).
			Str("roomCode", room.Code).
			Msg("room snapshot replayed")
	}
	svc.metrics.SetChannels(svc.sw.Count())
	return ch
}

// Disconnect unregisters channel. If it was the current channel of a room member,
// membership is kept for grace period.
func (svc *Service) Disconnect(ch *sw.Channel) {
	svc.mx.Lock()
	defer svc.mx.Unlock()

	clientID := ch.ClientID()
	if !svc.sw.Unregister(ch) {
		// superseded by newer registration
		return
	}
	svc.metrics.SetChannels(svc.sw.Count())

	room, err := svc.store.RoomOf(clientID)
	if err != nil {
		return
	}
	svc.scheduleGrace(clientID)
	svc.logger.Debug().
		Str("clientID", clientID).
		Str("roomCode", room.Code).
		Dur("grace", svc.gracePeriod).
		Msg("channel closed, waiting for reconnect")
}

func (svc *Service) scheduleGrace(clientID string) {
	svc.cancelGrace(clientID)
	gt := &graceTimer{}
	gt.Timer = time.AfterFunc(svc.gracePeriod, func() {
		svc.expireGrace(clientID, gt)
	})
	svc.grace[clientID] = gt
}

func (svc *Service) cancelGrace(clientID string) bool {
	gt, ok := svc.grace[clientID]
	if !ok {
		return false
	}
	gt.Stop()
	delete(svc.grace, clientID)
	return true
}

func (svc *Service) expireGrace(clientID string, gt *graceTimer) {
	svc.mx.Lock()
	defer svc.mx.Unlock()

	if svc.grace[clientID] != gt {
		// canceled or rescheduled
		return
	}
	delete(svc.grace, clientID)
	if svc.sw.IsConnected(clientID) {
		return
	}
	svc.logger.Warn().Str("clientID", clientID).Msg("client did not reconnect, removing from room")
	svc.metrics.GraceExpired()
	svc.removeMember(clientID)
}

// CreateRoom makes client the host of a fresh room.
func (svc *Service) CreateRoom(clientID, username string) (model.RoomState, error) {
	state, err := svc.createRoom(clientID, username)
	return state, svc.observe("create-room", err)
}

func (svc *Service) createRoom(clientID, username string) (model.RoomState, error) {
	if clientID == "" {
		return model.RoomState{}, errNoClientID
	}
	if username == "" {
		username = defaultHostName
	}

	svc.mx.Lock()
	defer svc.mx.Unlock()

	svc.leaveCurrentRoom(clientID, "")
	room, err := svc.store.CreateRoom(clientID, username)
	if err != nil {
		return model.RoomState{}, errors.Join(ErrCreate, err)
	}
	state := room.State(clientID)
	svc.sw.Send(clientID, model.Event{Name: model.EventRoomCreated, Data: state})
	svc.metrics.SetRooms(svc.store.Count())

	svc.logger.Info().
		Str("clientID", clientID).
		Str("roomCode", room.Code).
		Str("username", username).
		Msg("room created")
	return state, nil
}

// JoinRoom adds client to existing room and notifies other members.
func (svc *Service) JoinRoom(clientID, roomCode, username string) (model.RoomState, error) {
	state, err := svc.joinRoom(clientID, roomCode, username)
	return state, svc.observe("join-room", err)
}

func (svc *Service) joinRoom(clientID, roomCode, username string) (model.RoomState, error) {
	roomCode = strings.ToUpper(strings.TrimSpace(roomCode))
	if clientID == "" {
		return model.RoomState{}, errNoClientID
	}
	if roomCode == "" {
		return model.RoomState{}, errNoRoomCode
	}
	if username == "" {
		username = defaultGuestName
	}

	svc.mx.Lock()
	defer svc.mx.Unlock()

	if _, err := svc.store.GetRoom(roomCode); err != nil {
		return model.RoomState{}, errRoomNotFound
	}
	svc.leaveCurrentRoom(clientID, roomCode)

	room, err := svc.store.JoinRoom(roomCode, clientID, username)
	if err != nil {
		return model.RoomState{}, errRoomNotFound
	}
	state := room.State(clientID)
	svc.sw.Send(clientID, model.Event{Name: model.EventRoomJoined, Data: state})
	svc.sw.Multicast(memberIDs(room.Members), model.Event{
		Name: model.EventUserJoined,
		Data: model.UserChange{Username: username, Users: room.Roster()},
	}, clientID)

	svc.logger.Info().
		Str("clientID", clientID).
		Str("roomCode", roomCode).
		Str("username", username).
		Msg("user joined room")
	return state, nil
}

// LeaveRoom is voluntary departure. Leaving while not in a room is not an error.
func (svc *Service) LeaveRoom(clientID string) error {
	if clientID == "" {
		return svc.observe("leave-room", errNoClientID)
	}
	svc.mx.Lock()
	defer svc.mx.Unlock()

	svc.cancelGrace(clientID)
	svc.removeMember(clientID)
	return svc.observe("leave-room", nil)
}

// ChangeVideo records new video position of the room and relays it to members.
func (svc *Service) ChangeVideo(clientID, videoID string, timestamp float64) error {
	err := svc.changeVideo(clientID, videoID, timestamp)
	return svc.observe(model.EventVideoChanged, err)
}

func (svc *Service) changeVideo(clientID, videoID string, timestamp float64) error {
	if videoID == "" {
		return errNoVideoID
	}
	if !validTimestamp(timestamp) {
		return errBadTimestamp
	}
	video := model.Video{VideoID: videoID, Timestamp: timestamp}
	return svc.hostCommand(clientID, errHostOnlyVideo, model.Event{
		Name: model.EventVideoChanged,
		Data: video,
	}, func(room *model.Room) error {
		_, err := svc.store.SetVideo(room.Code, video)
		return err
	})
}

func (svc *Service) Play(clientID string, timestamp float64) error {
	return svc.playback(model.EventPlay, clientID, timestamp)
}

func (svc *Service) Pause(clientID string, timestamp float64) error {
	return svc.playback(model.EventPause, clientID, timestamp)
}

func (svc *Service) Seek(clientID string, timestamp float64) error {
	return svc.playback(model.EventSeek, clientID, timestamp)
}

func (svc *Service) playback(name, clientID string, timestamp float64) error {
	if !validTimestamp(timestamp) {
		return svc.observe(name, errBadTimestamp)
	}
	err := svc.hostCommand(clientID, errHostOnlyPlay, model.Event{
		Name: name,
		Data: model.Playback{Timestamp: timestamp},
	}, nil)
	return svc.observe(name, err)
}

// hostCommand checks host authority, applies optional update and relays event
// to everyone in the room except the sender.
func (svc *Service) hostCommand(clientID string, forbidden error, ev model.Event, update func(*model.Room) error) error {
	svc.mx.Lock()
	defer svc.mx.Unlock()

	room, err := svc.store.RoomOf(clientID)
	if err != nil || !room.IsHost(clientID) {
		return forbidden
	}
	if update != nil {
		if err = update(room); err != nil {
			return errRoomNotFound
		}
	}
	svc.sw.Multicast(memberIDs(room.Members), ev, clientID)

	svc.logger.Debug().
		Str("roomCode", room.Code).
		Str("event", ev.Name).
		Msg("host command relayed")
	return nil
}

// SendMessage relays chat message to every member including sender.
func (svc *Service) SendMessage(clientID, text string) error {
	err := svc.sendMessage(clientID, text)
	return svc.observe("send-message", err)
}

func (svc *Service) sendMessage(clientID, text string) error {
	if strings.TrimSpace(text) == "" {
		return errEmptyMessage
	}

	svc.mx.Lock()
	defer svc.mx.Unlock()

	room, err := svc.store.RoomOf(clientID)
	if err != nil {
		return errNotInRoom
	}
	username, _ := room.MemberName(clientID)
	svc.sw.Multicast(memberIDs(room.Members), model.Event{
		Name: model.EventReceiveMessage,
		Data: model.ChatMessage{
			Username:  username,
			Message:   truncate(text, svc.maxMessageLen),
			Timestamp: svc.now().UnixMilli(),
		},
	}, "")

	svc.logger.Debug().
		Str("roomCode", room.Code).
		Str("username", username).
		Msg("chat message relayed")
	return nil
}

// Health reports number of live rooms and open channels.
func (svc *Service) Health() model.Health {
	return model.Health{
		Status:      "ok",
		Rooms:       svc.store.Count(),
		Connections: svc.sw.Count(),
	}
}

// Close stops pending grace timers.
func (svc *Service) Close() {
	svc.mx.Lock()
	defer svc.mx.Unlock()

	for id := range svc.grace {
		svc.cancelGrace(id)
	}
}

// leaveCurrentRoom removes client from room it is currently in, unless it is keep.
func (svc *Service) leaveCurrentRoom(clientID, keep string) {
	room, err := svc.store.RoomOf(clientID)
	if err != nil || room.Code == keep {
		return
	}
	svc.removeMember(clientID)
}

// removeMember is shared by voluntary leave and grace expiration.
func (svc *Service) removeMember(clientID string) {
	dep, err := svc.store.RemoveMember(clientID)
	if err != nil {
		return
	}
	logger := svc.logger.With().
		Str("clientID", clientID).
		Str("roomCode", dep.Room.Code).
		Str("username", dep.Username).
		Logger()

	if dep.Dissolved {
		ids := memberIDs(dep.Remaining)
		for _, id := range ids {
			svc.cancelGrace(id)
		}
		svc.sw.Multicast(ids, model.Event{
			Name: model.EventRoomError,
			Data: model.RoomError{Message: model.RoomClosedMessage},
		}, "")
		svc.metrics.SetRooms(svc.store.Count())
		logger.Info().Int("remaining", len(ids)).Msg("room closed")
		return
	}

	svc.sw.Multicast(memberIDs(dep.Room.Members), model.Event{
		Name: model.EventUserLeft,
		Data: model.UserChange{Username: dep.Username, Users: dep.Room.Roster()},
	}, "")
	logger.Info().Msg("user left room")
}

func (svc *Service) observe(action string, err error) error {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case errors.Is(err, ErrForbidden):
		result = "forbidden"
	case errors.Is(err, ErrInvalid):
		result = "invalid"
	default:
		result = "error"
	}
	svc.metrics.Action(action, result)
	return err
}

func memberIDs(members []model.Member) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ClientID)
	}
	return ids
}

func validTimestamp(ts float64) bool {
	return ts >= 0 && !math.IsNaN(ts) && !math.IsInf(ts, 0)
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type nopMetrics struct{}

func (nopMetrics) SetRooms(int) {}
func (nopMetrics) SetChannels(int) {}
func (nopMetrics) Action(string, string) {}
func (nopMetrics) GraceExpired() {}
