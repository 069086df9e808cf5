package syncer

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adwski/syncwatch/backend/model"
	api "github.com/adwski/syncwatch/backend/server/http"
	ws "github.com/adwski/syncwatch/backend/server/websocket"
	"github.com/adwski/syncwatch/backend/service"
	"github.com/adwski/syncwatch/backend/storage/memory"
	sw "github.com/adwski/syncwatch/backend/switch"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	svc   *service.Service
	apiTS *httptest.Server
	wsTS  *httptest.Server
}

func newBackend(t *testing.T) *backend {
	t.Helper()

	logger := zerolog.Nop()
	svc := service.NewService(service.Config{
		RoomStore:   memory.NewMemStoreWithCodes(func() string { return "AB12C9" }),
		Switch:      sw.NewSwitch(&logger),
		Logger:      &logger,
		GracePeriod: time.Minute,
	})
	apiSrv := api.NewServer(api.Config{Logger: &logger, SessionService: svc})
	wsSrv := ws.NewServer(ws.Config{Logger: &logger, ChannelService: svc})

	b := &backend{
		svc:   svc,
		apiTS: httptest.NewServer(apiSrv.Handler),
		wsTS:  httptest.NewServer(wsSrv.Handler),
	}
	t.Cleanup(func() {
		b.apiTS.Close()
		b.wsTS.Close()
		svc.Close()
	})
	return b
}

func (b *backend) wsURL() string {
	return "ws" + strings.TrimPrefix(b.wsTS.URL, "http") + "/ws"
}

func TestAPIClient(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	host := NewAPIClient(b.apiTS.URL+"/", "a")
	guest := NewAPIClient(b.apiTS.URL, "b")

	rs, err := host.CreateRoom(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, model.RoomState{RoomCode: "AB12C9", Users: []string{"A"}, IsHost: true}, rs)

	_, err = guest.JoinRoom(ctx, "NOPE00", "B")
	assert.ErrorIs(t, err, ErrNotFound)

	rs, err = guest.JoinRoom(ctx, "ab12c9", "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, rs.Users)

	require.NoError(t, host.ChangeVideo(ctx, "xyz123", 12.5))
	assert.ErrorIs(t, guest.Play(ctx, 1), ErrForbidden)
	assert.ErrorIs(t, host.Seek(ctx, -1), ErrInvalid)
	require.NoError(t, host.Play(ctx, 12.5))
	require.NoError(t, host.Pause(ctx, 13))
	require.NoError(t, guest.SendMessage(ctx, "hi"))
	require.NoError(t, guest.LeaveRoom(ctx))
	assert.ErrorIs(t, guest.SendMessage(ctx, "hi"), ErrNotFound)
}

type recordingHandler struct {
	mx     *sync.Mutex
	events []string
	begins int
	drops  int
}

func (h *recordingHandler) BeginConnect() {
	h.mx.Lock()
	defer h.mx.Unlock()
	h.begins++
}

func (h *recordingHandler) Dispatch(name string, _ json.RawMessage) error {
	h.mx.Lock()
	defer h.mx.Unlock()
	h.events = append(h.events, name)
	return nil
}

func (h *recordingHandler) Disconnected(error) {
	h.mx.Lock()
	defer h.mx.Unlock()
	h.drops++
}

func (h *recordingHandler) count(name string) int {
	h.mx.Lock()
	defer h.mx.Unlock()
	n := 0
	for _, ev := range h.events {
		if ev == name {
			n++
		}
	}
	return n
}

func TestChannel_Reconnect(t *testing.T) {
	b := newBackend(t)
	logger := zerolog.Nop()
	h := &recordingHandler{mx: &sync.Mutex{}}

	ch, err := NewChannel(ChannelConfig{
		Logger:   &logger,
		URL:      b.wsURL(),
		ClientID: "a",
		Handler:  h,
		Backoff:  50 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- ch.Run(ctx)
	}()

	require.Eventually(t, func() bool { return h.count(model.EventConnected) == 1 },
		2*time.Second, 10*time.Millisecond)

	_, err = b.svc.CreateRoom("a", "A")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.count(model.EventRoomCreated) == 1 },
		2*time.Second, 10*time.Millisecond)

	// requested reconnect skips backoff and gets the snapshot
	ch.Reconnect()
	require.Eventually(t, func() bool { return h.count(model.EventRoomJoined) == 1 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, h.count(model.EventConnected))
	assert.Equal(t, 1, b.svc.Health().Rooms)

	cancel()
	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not stop")
	}
}

func TestChannel_BackoffOnFailure(t *testing.T) {
	logger := zerolog.Nop()
	h := &recordingHandler{mx: &sync.Mutex{}}
	ts := httptest.NewServer(nil)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ts.Close()

	ch, err := NewChannel(ChannelConfig{
		Logger:   &logger,
		URL:      url,
		ClientID: "a",
		Handler:  h,
		Backoff:  20 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, ch.Run(ctx))

	h.mx.Lock()
	defer h.mx.Unlock()
	assert.Greater(t, h.drops, 2)
	// last attempt may be cut by context without a drop notification
	assert.GreaterOrEqual(t, h.begins, h.drops)
}
