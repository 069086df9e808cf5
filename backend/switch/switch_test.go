package _switch

import (
	"sync"
	"testing"

	"github.com/adwski/syncwatch/backend/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSwitch(size int) *Switch {
	logger := zerolog.Nop()
	return NewSwitchWithBuffer(&logger, size)
}

func drain(ch *Channel) []model.Event {
	var out []model.Event
	for {
		select {
		case ev := <-ch.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestSwitch_SendRegistered(t *testing.T) {
	sw := newTestSwitch(4)
	ch := sw.Register("a")

	assert.True(t, sw.IsConnected("a"))
	assert.True(t, sw.Send("a", model.Event{Name: model.EventPlay}))
	assert.False(t, sw.Send("b", model.Event{Name: model.EventPlay}))

	events := drain(ch)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventPlay, events[0].Name)
}

func TestSwitch_SendDropsWhenFull(t *testing.T) {
	sw := newTestSwitch(1)
	ch := sw.Register("a")

	assert.True(t, sw.Send("a", model.Event{Name: "first"}))
	assert.False(t, sw.Send("a", model.Event{Name: "second"}))
	assert.Len(t, drain(ch), 1)
}

func TestSwitch_Multicast(t *testing.T) {
	sw := newTestSwitch(4)
	a := sw.Register("a")
	b := sw.Register("b")

	n := sw.Multicast([]string{"a", "b", "offline"}, model.Event{Name: model.EventSeek}, "a")
	assert.Equal(t, 1, n)
	assert.Empty(t, drain(a))
	assert.Len(t, drain(b), 1)
}

func TestSwitch_SupersededChannel(t *testing.T) {
	sw := newTestSwitch(4)
	old := sw.Register("a")
	cur := sw.Register("a")

	select {
	case <-old.Done():
	default:
		t.Fatal("old channel must be closed")
	}

	// stale close must not drop the fresh registration
	assert.False(t, sw.Unregister(old))
	assert.True(t, sw.IsConnected("a"))

	assert.True(t, sw.Send("a", model.Event{Name: model.EventPause}))
	assert.Len(t, drain(cur), 1)

	assert.True(t, sw.Unregister(cur))
	assert.False(t, sw.IsConnected("a"))
	assert.Equal(t, 0, sw.Count())
}

func TestSwitch_SendConcurrentWithUnregister(t *testing.T) {
	sw := newTestSwitch(8)
	wg := &sync.WaitGroup{}
	for i := 0; i < 50; i++ {
		ch := sw.Register("a")
		wg.Add(2)
		go func() {
			defer wg.Done()
			sw.Send("a", model.Event{Name: model.EventPlay})
		}()
		go func() {
			defer wg.Done()
			sw.Unregister(ch)
		}()
	}
	wg.Wait()
}
