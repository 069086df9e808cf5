package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/adwski/syncwatch/backend/model"
	sw "github.com/adwski/syncwatch/backend/switch"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	defaultShutdownDeadline = 10 * time.Second

	defaultWebsocketReadBufferSize     = 4096
	defaultWebsocketWriteBufferSize    = 4096
	defaultWebSocketMaxMessageSize     = 1024
	defaultWebSocketHandshakeTimeout   = 3 * time.Second
	defaultWebSocketCloseWriteDeadline = 2 * time.Second
	defaultWebSocketWriteDeadline      = 5 * time.Second

	// defaultPongWait - defaultPingInterval == is how long we give client to respond
	defaultPingInterval = 5 * time.Second
	defaultPongWait     = 7 * time.Second
)

var (
	ErrUnexpected = errors.New("unexpected server error")
)

type (
	ChannelService interface {
		Connect(clientID string) *sw.Channel
		Disconnect(ch *sw.Channel)
	}

	Config struct {
		Logger         *zerolog.Logger
		ChannelService ChannelService
		ListenAddr     string
	}

	// Server delivers client's event channel over websocket.
	// Inbound messages are not part of the protocol, actions go through API server.
	Server struct {
		svc ChannelService
		ws  *websocket.Upgrader
		*http.Server

		logger zerolog.Logger

		baseCtx    context.Context
		cancelBase context.CancelFunc
	}
)

func NewServer(cfg Config) *Server {
	srv := &Server{
		logger: cfg.Logger.With().Str("component", "websocket-server").Logger(),
		svc:    cfg.ChannelService,
		ws: &websocket.Upgrader{
			HandshakeTimeout: defaultWebSocketHandshakeTimeout,
			ReadBufferSize:   defaultWebsocketReadBufferSize,
			WriteBufferSize:  defaultWebsocketWriteBufferSize,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
	}
	srv.baseCtx, srv.cancelBase = context.WithCancel(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.events)

	srv.Server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: defaultWebSocketHandshakeTimeout,
	}
	return srv
}

func (srv *Server) Run(ctx context.Context, wg *sync.WaitGroup, errc chan<- error) {
	defer func() {
		srv.logger.Debug().Msg("server stopped")
		wg.Done()
	}()

	errSrv := make(chan error)
	go func() {
		errSrv <- srv.ListenAndServe()
	}()

	srv.logger.Info().Str("addr", srv.Addr).Msg("server started")

	select {
	case err := <-errSrv:
		if !errors.Is(err, http.ErrServerClosed) {
			errc <- errors.Join(ErrUnexpected, err)
		}
	case <-ctx.Done():
		// hijacked connections are not tracked by Shutdown
		srv.cancelBase()
		shCtx, shCancel := context.WithTimeout(context.Background(), defaultShutdownDeadline)
		defer shCancel()
		if err := srv.Shutdown(shCtx); err != nil {
			srv.logger.Error().Err(err).Msg("server shutdown failed")
		}
	}
}

func (srv *Server) events(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = "client_" + uuid.NewString()
	}

	conn, err := srv.ws.Upgrade(w, r, nil)
	if err != nil {
		// upgrader already replied with error status
		srv.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	ch := srv.svc.Connect(clientID)
	srv.logger.Debug().
		Str("clientID", clientID).
		Msg("event channel opened")

	ctx, cancel := context.WithCancel(srv.baseCtx)
	go srv.handleWSConn(ctx, cancel, conn, ch)
}

func (srv *Server) handleWSConn(
	ctx context.Context,
	cancel context.CancelFunc,
	conn *websocket.Conn,
	ch *sw.Channel,
) {
	wg := &sync.WaitGroup{}

	logger := srv.logger.With().
		Str("clientID", ch.ClientID()).
		Logger()

	wg.Add(2)
	go func() {
		webSocketReceiver(ctx, wg, conn, &logger)
		cancel()
	}()
	go func() {
		webSocketSender(ctx, wg, conn, ch, &logger)
		cancel()
		// unblock pending read
		_ = conn.SetReadDeadline(time.Now())
	}()

	wg.Wait()
	webSocketCloser(conn, &logger)
	srv.svc.Disconnect(ch)
	logger.Debug().Msg("event channel closed")
}

func webSocketSender(
	ctx context.Context,
	wg *sync.WaitGroup,
	conn *websocket.Conn,
	ch *sw.Channel,
	logger *zerolog.Logger,
) {
	pingTicker := time.NewTicker(defaultPingInterval)
	defer func() {
		pingTicker.Stop()
		wg.Done()
	}()
SendLoop:
	for {
		select {
		case <-ctx.Done():
			break SendLoop
		case <-ch.Done():
			logger.Debug().Msg("channel superseded")
			break SendLoop
		case <-pingTicker.C:
			wsErr := conn.SetWriteDeadline(time.Now().Add(defaultWebSocketWriteDeadline))
			if wsErr != nil {
				logger.Error().Err(wsErr).Msg("failed to set websocket write deadline")
				break SendLoop
			}
			wsErr = conn.WriteMessage(websocket.PingMessage, []byte{})
			if wsErr != nil {
				logger.Error().Err(wsErr).Msg("failed to send ping")
			}
			logger.Trace().Msg("ping sent")

		case ev := <-ch.Events():
			b, wsErr := json.Marshal(&model.Envelope{Event: ev.Name, Data: ev.Data})
			if wsErr != nil {
				logger.Error().Err(wsErr).Msg("failed to marshall outgoing event")
				break SendLoop
			}

			wsErr = conn.SetWriteDeadline(time.Now().Add(defaultWebSocketWriteDeadline))
			if wsErr != nil {
				logger.Error().Err(wsErr).Msg("failed to set websocket write deadline")
				break SendLoop
			}
			if wsErr = conn.WriteMessage(websocket.TextMessage, b); wsErr != nil {
				logger.Error().Err(wsErr).Msg("failed to write outgoing event")
				break SendLoop
			}
			logger.Trace().Str("event", ev.Name).Msg("event sent")
		}
	}
}

// webSocketReceiver keeps read deadline fresh and detects peer going away.
// Incoming data frames are discarded.
func webSocketReceiver(
	ctx context.Context,
	wg *sync.WaitGroup,
	conn *websocket.Conn,
	logger *zerolog.Logger,
) {
	defer wg.Done()

	conn.SetReadLimit(defaultWebSocketMaxMessageSize)
	readDeadLineFunc := func(deadline time.Duration) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	}
	conn.SetPongHandler(func(string) error {
		logger.Trace().Msg("got pong")
		return readDeadLineFunc(defaultPongWait)
	})
	err := readDeadLineFunc(defaultPongWait)
	if err != nil {
		logger.Error().Err(err).Msg("failed to set websocket read deadline")
		return
	}

RecvLoop:
	for {
		select {
		case <-ctx.Done():
			break RecvLoop
		default:
			_, _, wsErr := conn.ReadMessage()
			if wsErr != nil {
				if websocket.IsCloseError(wsErr,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway) {
					logger.Debug().Err(wsErr).Msg("connection closed")
				} else if ctx.Err() == nil {
					logger.Warn().Err(wsErr).Msg("unexpected error during receive")
				}
				break RecvLoop
			}
			logger.Trace().Msg("ignoring inbound message")
		}
	}
}

func webSocketCloser(conn *websocket.Conn, logger *zerolog.Logger) {
	wsErr := conn.SetWriteDeadline(time.Now().Add(defaultWebSocketCloseWriteDeadline))
	if wsErr != nil {
		logger.Error().Err(wsErr).Msg("failed to set websocket write deadline during closing")
	} else {
		wsErr = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if wsErr != nil {
			logger.Debug().Err(wsErr).Msg("failed to send close message")
		}
	}
	wsErr = conn.Close()
	if wsErr != nil {
		logger.Error().Err(wsErr).Msg("failed to close websocket connection")
	}
}
