package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	DefaultReconnectBackoff = 3 * time.Second

	defaultHandshakeTimeout = 5 * time.Second
	defaultReadWait         = 15 * time.Second
	defaultControlDeadline  = 2 * time.Second
	defaultMaxEventSize     = 1 << 16
)

var errReconnect = errors.New("reconnect requested")

type (
	// EventHandler consumes events of the channel.
	EventHandler interface {
		BeginConnect()
		Dispatch(name string, data json.RawMessage) error
		Disconnected(err error)
	}

	ChannelConfig struct {
		Logger   *zerolog.Logger
		URL      string
		ClientID string
		Handler  EventHandler
		Backoff  time.Duration
	}

	// Channel keeps event stream open, reconnecting forever with fixed backoff.
	Channel struct {
		logger   zerolog.Logger
		url      string
		handler  EventHandler
		backoff  time.Duration
		dialer   *websocket.Dialer
		reconnCh chan struct{}

		mx   *sync.Mutex
		conn *websocket.Conn
	}

	envelope struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
)

func NewChannel(cfg ChannelConfig) (*Channel, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid channel url: %w", err)
	}
	q := u.Query()
	q.Set("clientId", cfg.ClientID)
	u.RawQuery = q.Encode()

	ch := &Channel{
		logger:  cfg.Logger.With().Str("component", "channel").Logger(),
		url:     u.String(),
		handler: cfg.Handler,
		backoff: cfg.Backoff,
		dialer: &websocket.Dialer{
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		reconnCh: make(chan struct{}, 1),
		mx:       &sync.Mutex{},
	}
	if ch.backoff <= 0 {
		ch.backoff = DefaultReconnectBackoff
	}
	return ch, nil
}

// Run blocks until ctx is done.
func (ch *Channel) Run(ctx context.Context) error {
	for {
		err := ch.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, errReconnect) {
			ch.logger.Debug().Msg("reconnecting on request")
			continue
		}
		ch.handler.Disconnected(err)

		select {
		case <-ctx.Done():
			return nil
		case <-ch.reconnCh:
		case <-time.After(ch.backoff):
		}
	}
}

// Reconnect drops current stream and opens new one without backoff.
func (ch *Channel) Reconnect() {
	select {
	case ch.reconnCh <- struct{}{}:
	default:
	}
	ch.mx.Lock()
	if ch.conn != nil {
		_ = ch.conn.Close()
	}
	ch.mx.Unlock()
}

func (ch *Channel) session(ctx context.Context) error {
	ch.handler.BeginConnect()
	conn, _, err := ch.dialer.DialContext(ctx, ch.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	ch.mx.Lock()
	ch.conn = conn
	ch.mx.Unlock()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(defaultControlDeadline))
		_ = conn.Close()
	})
	defer func() {
		stop()
		ch.mx.Lock()
		ch.conn = nil
		ch.mx.Unlock()
		_ = conn.Close()
	}()

	conn.SetReadLimit(defaultMaxEventSize)
	if err = conn.SetReadDeadline(time.Now().Add(defaultReadWait)); err != nil {
		return err
	}
	conn.SetPingHandler(func(data string) error {
		if err := conn.SetReadDeadline(time.Now().Add(defaultReadWait)); err != nil {
			return err
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(defaultControlDeadline))
	})
	ch.logger.Debug().Str("url", ch.url).Msg("channel connected")

	for {
		var env envelope
		if err = conn.ReadJSON(&env); err != nil {
			select {
			case <-ch.reconnCh:
				return errReconnect
			default:
			}
			return fmt.Errorf("read failed: %w", err)
		}
		if err = conn.SetReadDeadline(time.Now().Add(defaultReadWait)); err != nil {
			return err
		}
		if err = ch.handler.Dispatch(env.Event, env.Data); err != nil {
			ch.logger.Error().Err(err).Msg("cannot handle event")
		}
	}
}
