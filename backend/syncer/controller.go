package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/adwski/syncwatch/backend/model"
	"github.com/rs/zerolog"
)

const (
	defaultLatency   = 0.15
	maxLatency       = 0.5
	processingBuffer = 0.05

	driftThreshold     = 0.5
	playDriftThreshold = 0.3

	playSettle  = 150 * time.Millisecond
	pauseApply  = 30 * time.Millisecond
	pauseSettle = 50 * time.Millisecond

	playLease  = 200 * time.Millisecond
	pauseLease = 130 * time.Millisecond
	seekLease  = 150 * time.Millisecond
	videoLease = 100 * time.Millisecond

	reconnectValidity = 10 * time.Second
	actionTimeout     = 5 * time.Second

	defaultWatchURL = "https://www.youtube.com/watch"
)

type (
	// Actions are upstream requests issued on behalf of this client.
	Actions interface {
		CreateRoom(ctx context.Context, username string) (model.RoomState, error)
		JoinRoom(ctx context.Context, roomCode, username string) (model.RoomState, error)
		LeaveRoom(ctx context.Context) error
		ChangeVideo(ctx context.Context, videoID string, timestamp float64) error
		Play(ctx context.Context, timestamp float64) error
		Pause(ctx context.Context, timestamp float64) error
		Seek(ctx context.Context, timestamp float64) error
		SendMessage(ctx context.Context, text string) error
	}

	Navigator interface {
		Navigate(videoURL string) error
	}

	// Display renders what a user should see.
	Display interface {
		Notice(text string)
		Chat(msg model.ChatMessage)
		Roster(users []string)
	}

	Config struct {
		Logger    *zerolog.Logger
		Player    Player
		Navigator Navigator
		Store     TransientStore
		Actions   Actions
		Display   Display
		Username  string
		WatchURL  string
		Now       func() time.Time
		AfterFunc func(d time.Duration, f func())
	}

	// Controller converges local player to the host's playback and relays
	// host's own player events upstream.
	Controller struct {
		logger  zerolog.Logger
		player  Player
		nav     Navigator
		store   TransientStore
		actions Actions
		display Display

		watchURL  string
		now       func() time.Time
		afterFunc func(d time.Duration, f func())
		lease     *lease

		mx           *sync.Mutex
		st           state
		connected    bool
		latency      float64
		connectStart time.Time
	}

	state struct {
		inRoom   bool
		isHost   bool
		username string
		roomCode string
		users    []string
	}

	// Snapshot is a point-in-time view of the controller.
	Snapshot struct {
		Connected bool
		InRoom    bool
		IsHost    bool
		Username  string
		RoomCode  string
		Users     []string
		Latency   float64
		VideoID   string
		Position  float64
		Paused    bool
	}
)

func NewController(cfg Config) *Controller {
	c := &Controller{
		logger:    cfg.Logger.With().Str("component", "syncer").Logger(),
		player:    cfg.Player,
		nav:       cfg.Navigator,
		store:     cfg.Store,
		actions:   cfg.Actions,
		display:   cfg.Display,
		watchURL:  cfg.WatchURL,
		now:       cfg.Now,
		afterFunc: cfg.AfterFunc,
		mx:        &sync.Mutex{},
		latency:   defaultLatency,
		st: state{
			username: cfg.Username,
		},
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.afterFunc == nil {
		c.afterFunc = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	if c.display == nil {
		c.display = nopDisplay{}
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}
	if c.watchURL == "" {
		c.watchURL = defaultWatchURL
	}
	c.lease = newLease(c.now)
	return c
}

// Restore consumes reconnect record left before navigation.
// Record younger than reconnect validity restores display name.
func (c *Controller) Restore() bool {
	b, ok := c.store.Get(keyReconnect)
	if !ok {
		return false
	}
	c.store.Delete(keyReconnect)

	var rec ReconnectRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		c.logger.Warn().Err(err).Msg("malformed reconnect record")
		return false
	}
	age := c.now().Sub(time.UnixMilli(rec.Timestamp))
	if age < 0 || age >= reconnectValidity || !rec.InRoom {
		c.logger.Debug().Dur("age", age).Msg("reconnect record is stale")
		return false
	}
	c.mx.Lock()
	if rec.Username != "" {
		c.st.username = rec.Username
	}
	c.mx.Unlock()
	c.logger.Info().Str("username", rec.Username).Msg("reconnecting after video change")
	return true
}

func (c *Controller) SetUsername(name string) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if name != "" {
		c.st.username = name
	}
}

func (c *Controller) Latency() float64 {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.latency
}

func (c *Controller) Snapshot() Snapshot {
	c.mx.Lock()
	s := Snapshot{
		Connected: c.connected,
		InRoom:    c.st.inRoom,
		IsHost:    c.st.isHost,
		Username:  c.st.username,
		RoomCode:  c.st.roomCode,
		Users:     append([]string(nil), c.st.users...),
		Latency:   c.latency,
	}
	c.mx.Unlock()

	if c.player != nil {
		s.VideoID = c.player.VideoID()
		s.Position = c.player.Position()
		s.Paused = c.player.Paused()
	}
	return s
}

// BeginConnect marks the moment channel connection is initiated.
func (c *Controller) BeginConnect() {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.connectStart = c.now()
}

// Disconnected is called by channel when stream is lost.
func (c *Controller) Disconnected(err error) {
	c.mx.Lock()
	c.connected = false
	c.mx.Unlock()

	c.logger.Warn().Err(err).Msg("connection lost, reconnecting")
	c.display.Notice("Connection lost. Reconnecting...")
}

// Dispatch decodes channel event and applies it.
func (c *Controller) Dispatch(name string, data json.RawMessage) error {
	var err error
	switch name {
	case model.EventConnected:
		var v model.Connected
		if err = json.Unmarshal(data, &v); err == nil {
			c.OnConnected(v.ClientID)
		}
	case model.EventRoomCreated:
		var v model.RoomState
		if err = json.Unmarshal(data, &v); err == nil {
			c.OnRoomCreated(v)
		}
	case model.EventRoomJoined:
		var v model.RoomState
		if err = json.Unmarshal(data, &v); err == nil {
			c.OnRoomJoined(v)
		}
	case model.EventUserJoined:
		var v model.UserChange
		if err = json.Unmarshal(data, &v); err == nil {
			c.onRosterChange(v, "joined")
		}
	case model.EventUserLeft:
		var v model.UserChange
		if err = json.Unmarshal(data, &v); err == nil {
			c.onRosterChange(v, "left")
		}
	case model.EventRoomError:
		var v model.RoomError
		if err = json.Unmarshal(data, &v); err == nil {
			c.OnRoomError(v.Message)
		}
	case model.EventVideoChanged:
		var v model.Video
		if err = json.Unmarshal(data, &v); err == nil {
			c.OnVideoChanged(v)
		}
	case model.EventPlay, model.EventPause, model.EventSeek:
		var v model.Playback
		if err = json.Unmarshal(data, &v); err == nil {
			c.onPlayback(name, v.Timestamp)
		}
	case model.EventReceiveMessage:
		var v model.ChatMessage
		if err = json.Unmarshal(data, &v); err == nil {
			c.display.Chat(v)
		}
	default:
		c.logger.Debug().Str("event", name).Msg("ignoring unknown event")
	}
	if err != nil {
		return fmt.Errorf("malformed %s event: %w", name, err)
	}
	return nil
}

// OnConnected takes the single latency sample of this session.
func (c *Controller) OnConnected(clientID string) {
	c.mx.Lock()
	if !c.connectStart.IsZero() {
		c.latency = math.Min(c.now().Sub(c.connectStart).Seconds(), maxLatency)
	}
	c.connected = true
	latency := c.latency
	c.mx.Unlock()

	c.logger.Info().
		Str("clientID", clientID).
		Dur("latency", time.Duration(latency*float64(time.Second))).
		Msg("connected to server")
	c.display.Notice("Connected to server!")
}

func (c *Controller) OnRoomCreated(rs model.RoomState) {
	c.mx.Lock()
	c.st.inRoom = true
	c.st.isHost = true
	c.st.roomCode = rs.RoomCode
	c.st.users = rs.Users
	c.mx.Unlock()

	c.display.Roster(rs.Users)
	c.display.Notice("Room created! Share code: " + rs.RoomCode)
}

// OnRoomJoined handles both join reply and reconnection snapshot.
func (c *Controller) OnRoomJoined(rs model.RoomState) {
	c.mx.Lock()
	c.st.inRoom = true
	c.st.isHost = rs.IsHost
	c.st.roomCode = rs.RoomCode
	c.st.users = rs.Users
	c.mx.Unlock()

	c.display.Roster(rs.Users)
	c.display.Notice("Joined room: " + rs.RoomCode)
	if rs.CurrentVideo != nil && !rs.IsHost {
		c.applyVideo(*rs.CurrentVideo)
	}
}

func (c *Controller) onRosterChange(uc model.UserChange, verb string) {
	c.mx.Lock()
	c.st.users = uc.Users
	c.mx.Unlock()

	c.display.Roster(uc.Users)
	c.display.Notice(uc.Username + " " + verb + " the room")
}

// OnRoomError is terminal for current room.
func (c *Controller) OnRoomError(message string) {
	c.resetRoom()
	c.logger.Warn().Str("message", message).Msg("room closed")
	c.display.Notice(message)
}

func (c *Controller) resetRoom() {
	c.mx.Lock()
	c.st.inRoom = false
	c.st.isHost = false
	c.st.roomCode = ""
	c.st.users = nil
	c.mx.Unlock()
}

func (c *Controller) OnVideoChanged(v model.Video) {
	if c.isHost() {
		return
	}
	c.applyVideo(v)
}

func (c *Controller) applyVideo(v model.Video) {
	if c.player == nil {
		return
	}
	if c.player.VideoID() == v.VideoID {
		c.lease.acquire(videoLease)
		c.seekGated(v.Timestamp)
		return
	}

	c.mx.Lock()
	rec := ReconnectRecord{
		InRoom:    c.st.inRoom,
		Username:  c.st.username,
		Timestamp: c.now().UnixMilli(),
	}
	c.mx.Unlock()
	if b, err := json.Marshal(&rec); err == nil {
		c.store.Set(keyReconnect, b)
	}

	target := WatchURL(c.watchURL, v)
	c.logger.Info().Str("videoID", v.VideoID).Str("url", target).Msg("navigating to host video")
	if c.nav == nil {
		return
	}
	if err := c.nav.Navigate(target); err != nil {
		c.logger.Error().Err(err).Msg("navigation failed")
	}
}

func (c *Controller) onPlayback(name string, ts float64) {
	if c.isHost() || c.player == nil {
		return
	}
	switch name {
	case model.EventPlay:
		c.OnPlay(ts)
	case model.EventPause:
		c.OnPause(ts)
	case model.EventSeek:
		c.OnSeek(ts)
	}
}

// OnPlay seeks coarsely and starts playback at once, then corrects drift
// after playback settles.
func (c *Controller) OnPlay(ts float64) {
	target := ts + c.Latency() + processingBuffer
	c.lease.acquire(playLease)

	c.player.Seek(target)
	if err := c.player.Play(); err != nil {
		c.logger.Error().Err(err).Msg("playback blocked")
		c.display.Notice("Playback blocked, start video to enable sync")
		return
	}
	c.logger.Debug().Float64("timestamp", ts).Float64("target", target).Msg("remote play applied")

	c.afterFunc(playSettle, func() {
		if c.player.Paused() || !c.inRoomGuest() {
			return
		}
		drift := c.player.Position() - target - playSettle.Seconds()
		if math.Abs(drift) > playDriftThreshold {
			c.logger.Debug().Float64("drift", drift).Msg("correcting drift")
			c.lease.acquire(videoLease)
			c.player.Seek(target + playSettle.Seconds())
		}
	})
}

// OnPause seeks to compensated position, pauses, then re-asserts position.
func (c *Controller) OnPause(ts float64) {
	target := ts + c.Latency()
	c.lease.acquire(pauseLease)

	c.player.Seek(target)
	c.afterFunc(pauseApply, func() {
		c.player.Pause()
		c.afterFunc(pauseSettle, func() {
			c.player.Seek(target)
		})
	})
}

func (c *Controller) OnSeek(ts float64) {
	target := ts + c.Latency()
	c.lease.acquire(seekLease)
	c.seekGated(target)
}

// seekGated moves player head only when drift is noticeable.
func (c *Controller) seekGated(target float64) bool {
	drift := math.Abs(c.player.Position() - target)
	if drift <= driftThreshold {
		c.logger.Trace().Float64("drift", drift).Msg("drift acceptable")
		return false
	}
	c.player.Seek(target)
	c.logger.Debug().Float64("drift", drift).Float64("target", target).Msg("seeked")
	return true
}

func (c *Controller) LocalPlay() {
	c.emitLocal(model.EventPlay, c.actions.Play)
}

func (c *Controller) LocalPause() {
	c.emitLocal(model.EventPause, c.actions.Pause)
}

func (c *Controller) LocalSeeked() {
	c.emitLocal(model.EventSeek, c.actions.Seek)
}

// LocalVideoLoaded reports host's newly loaded video to the room.
func (c *Controller) LocalVideoLoaded() {
	if !c.mayEmit() {
		return
	}
	videoID := c.player.VideoID()
	if videoID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	if err := c.actions.ChangeVideo(ctx, videoID, c.player.Position()); err != nil {
		c.actionFailed(model.EventVideoChanged, err)
	}
}

func (c *Controller) emitLocal(name string, send func(ctx context.Context, ts float64) error) {
	if !c.mayEmit() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	if err := send(ctx, c.player.Position()); err != nil {
		c.actionFailed(name, err)
	}
}

// mayEmit reports whether native player event was initiated by host locally.
func (c *Controller) mayEmit() bool {
	if c.lease.held() {
		return false
	}
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.st.isHost && c.st.inRoom
}

func (c *Controller) Create(ctx context.Context) error {
	rs, err := c.actions.CreateRoom(ctx, c.username())
	if err != nil {
		c.actionFailed("create-room", err)
		return err
	}
	c.OnRoomCreated(rs)
	if c.player != nil && c.player.VideoID() != "" {
		c.LocalVideoLoaded()
	}
	return nil
}

func (c *Controller) Join(ctx context.Context, roomCode string) error {
	roomCode = strings.ToUpper(strings.TrimSpace(roomCode))
	if roomCode == "" {
		return errors.New("room code is required")
	}
	rs, err := c.actions.JoinRoom(ctx, roomCode, c.username())
	if err != nil {
		c.actionFailed("join-room", err)
		return err
	}
	c.OnRoomJoined(rs)
	return nil
}

func (c *Controller) Leave(ctx context.Context) error {
	err := c.actions.LeaveRoom(ctx)
	c.resetRoom()
	c.store.Delete(keyReconnect)
	if err != nil {
		c.actionFailed("leave-room", err)
	}
	return err
}

func (c *Controller) Say(ctx context.Context, text string) error {
	if err := c.actions.SendMessage(ctx, text); err != nil {
		c.actionFailed("send-message", err)
		return err
	}
	return nil
}

func (c *Controller) actionFailed(action string, err error) {
	c.logger.Error().Err(err).Str("action", action).Msg("action failed")
	c.display.Notice(err.Error())
}

func (c *Controller) isHost() bool {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.st.isHost
}

func (c *Controller) inRoomGuest() bool {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.st.inRoom && !c.st.isHost
}

func (c *Controller) username() string {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.st.username
}

// WatchURL builds navigation target with start offset in whole seconds.
func WatchURL(base string, v model.Video) string {
	q := url.Values{}
	q.Set("v", v.VideoID)
	return fmt.Sprintf("%s?%s&t=%ds", base, q.Encode(), int64(math.Floor(v.Timestamp)))
}

type nopDisplay struct{}

func (nopDisplay) Notice(string) {}
func (nopDisplay) Chat(model.ChatMessage) {}
func (nopDisplay) Roster([]string) {}
