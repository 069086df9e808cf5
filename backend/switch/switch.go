package _switch

import (
	"sync"

	"github.com/adwski/syncwatch/backend/model"
	"github.com/rs/zerolog"
)

const (
	defaultChannelBuffer = 64
)

// Channel is an outbound event stream of a single client.
// Transport drains Events() until Done() is closed.
type Channel struct {
	clientID string
	tx       chan model.Event
	done     chan struct{}
	once     sync.Once
}

func newChannel(clientID string, size int) *Channel {
	return &Channel{
		clientID: clientID,
		tx:       make(chan model.Event, size),
		done:     make(chan struct{}),
	}
}

func (ch *Channel) ClientID() string { return ch.clientID }

func (ch *Channel) Events() <-chan model.Event { return ch.tx }

func (ch *Channel) Done() <-chan struct{} { return ch.done }

func (ch *Channel) close() {
	ch.once.Do(func() { close(ch.done) })
}

// Switch maps client identity to its currently open channel.
type Switch struct {
	logger  zerolog.Logger
	mx      *sync.RWMutex
	fwd     map[string]*Channel
	bufSize int
}

func NewSwitch(logger *zerolog.Logger) *Switch {
	return NewSwitchWithBuffer(logger, defaultChannelBuffer)
}

func NewSwitchWithBuffer(logger *zerolog.Logger, size int) *Switch {
	if size <= 0 {
		size = defaultChannelBuffer
	}
	return &Switch{
		logger:  logger.With().Str("component", "switch").Logger(),
		mx:      &sync.RWMutex{},
		fwd:     make(map[string]*Channel),
		bufSize: size,
	}
}

// Register opens new channel for the client. Previous channel of the same client
// is superseded and closed.
func (sw *Switch) Register(clientID string) *Channel {
	ch := newChannel(clientID, sw.bufSize)

	sw.mx.Lock()
	old, ok := sw.fwd[clientID]
	sw.fwd[clientID] = ch
	sw.mx.Unlock()

	if ok {
		old.close()
		sw.logger.Debug().Str("clientID", clientID).Msg("previous channel superseded")
	}
	sw.logger.Debug().Str("clientID", clientID).Msg("channel registered")
	return ch
}

// Unregister removes the channel if it is still the current one for its client.
// It reports whether registration was actually removed.
func (sw *Switch) Unregister(ch *Channel) bool {
	sw.mx.Lock()
	cur, ok := sw.fwd[ch.clientID]
	current := ok && cur == ch
	if current {
		delete(sw.fwd, ch.clientID)
	}
	sw.mx.Unlock()

	ch.close()
	if current {
		sw.logger.Debug().Str("clientID", ch.clientID).Msg("channel unregistered")
	}
	return current
}

func (sw *Switch) IsConnected(clientID string) bool {
	sw.mx.RLock()
	defer sw.mx.RUnlock()

	_, ok := sw.fwd[clientID]
	return ok
}

// Count returns number of open channels.
func (sw *Switch) Count() int {
	sw.mx.RLock()
	defer sw.mx.RUnlock()
	return len(sw.fwd)
}

// Send delivers event if client has open channel. It never blocks:
// event is dropped if client is not connected or its buffer is full.
func (sw *Switch) Send(clientID string, ev model.Event) bool {
	sw.mx.RLock()
	ch, ok := sw.fwd[clientID]
	sw.mx.RUnlock()

	if !ok {
		sw.logger.Trace().
			Str("clientID", clientID).
			Str("event", ev.Name).
			Msg("cannot forward, client is not connected")
		return false
	}
	return send(ch, ev, &sw.logger)
}

// Multicast sends event to every listed client except the excluded one.
func (sw *Switch) Multicast(clientIDs []string, ev model.Event, exclude string) int {
	var sent int
	for _, id := range clientIDs {
		if id == exclude {
			continue
		}
		if sw.Send(id, ev) {
			sent++
		}
	}
	if sent == 0 && len(clientIDs) > 0 {
		sw.logger.Debug().
			Str("event", ev.Name).
			Msg("multicast did not reach anyone")
	}
	return sent
}

func send(ch *Channel, ev model.Event, logger *zerolog.Logger) bool {
	select {
	case <-ch.done:
		return false
	default:
	}
	select {
	case ch.tx <- ev:
		logger.Trace().
			Str("clientID", ch.clientID).
			Str("event", ev.Name).
			Msg("event is forwarded")
		return true
	default:
		logger.Error().
			Str("clientID", ch.clientID).
			Str("event", ev.Name).
			Msg("channel buffer is full, event dropped")
		return false
	}
}
