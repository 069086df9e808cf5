package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/adwski/syncwatch/backend/model"
	"github.com/adwski/syncwatch/backend/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const (
	defaultShutdownDeadline  = 10 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second

	maxRequestBodySize = 1 << 16
)

var (
	ErrUnexpected = errors.New("unexpected server error")

	errMissingTimestamp = fmt.Errorf("%w: timestamp is required", service.ErrInvalid)
)

type Server struct {
	logger zerolog.Logger
	svc    SessionService
	*http.Server

	baseCtx    context.Context
	cancelBase context.CancelFunc
}

type Config struct {
	Logger         *zerolog.Logger
	SessionService SessionService
	ListenAddr     string
	CORSOrigins    []string
	Metrics        http.Handler
}

func NewServer(cfg Config) *Server {
	srv := &Server{
		logger: cfg.Logger.With().Str("component", "api-server").Logger(),
		svc:    cfg.SessionService,
	}
	srv.baseCtx, srv.cancelBase = context.WithCancel(context.Background())

	srv.Server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.router(cfg),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return srv.baseCtx },
	}
	return srv
}

func (srv *Server) router(cfg Config) http.Handler {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler)

	r.Get("/connect", srv.connect)
	r.Get("/health", srv.health)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Post("/create-room", srv.createRoom)
	r.Post("/join-room", srv.joinRoom)
	r.Post("/leave-room", srv.leaveRoom)
	r.Post("/video-changed", srv.videoChanged)
	r.Post("/play", srv.playback(srv.svc.Play))
	r.Post("/pause", srv.playback(srv.svc.Pause))
	r.Post("/seek", srv.playback(srv.svc.Seek))
	r.Post("/send-message", srv.sendMessage)
	return r
}

func (srv *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRoomRequest
	if !srv.decode(w, r, &req) {
		return
	}
	state, err := srv.svc.CreateRoom(req.ClientID, req.Username)
	srv.respond(w, state, err)
}

func (srv *Server) joinRoom(w http.ResponseWriter, r *http.Request) {
	var req model.JoinRoomRequest
	if !srv.decode(w, r, &req) {
		return
	}
	state, err := srv.svc.JoinRoom(req.ClientID, req.RoomCode, req.Username)
	srv.respond(w, state, err)
}

func (srv *Server) leaveRoom(w http.ResponseWriter, r *http.Request) {
	var req model.LeaveRoomRequest
	if !srv.decode(w, r, &req) {
		return
	}
	srv.respond(w, nil, srv.svc.LeaveRoom(req.ClientID))
}

func (srv *Server) videoChanged(w http.ResponseWriter, r *http.Request) {
	var req model.VideoChangedRequest
	if !srv.decode(w, r, &req) {
		return
	}
	if req.Timestamp == nil {
		srv.respond(w, nil, errMissingTimestamp)
		return
	}
	srv.respond(w, nil, srv.svc.ChangeVideo(req.ClientID, req.VideoID, *req.Timestamp))
}

func (srv *Server) playback(cmd func(clientID string, timestamp float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.PlaybackRequest
		if !srv.decode(w, r, &req) {
			return
		}
		if req.Timestamp == nil {
			srv.respond(w, nil, errMissingTimestamp)
			return
		}
		srv.respond(w, nil, cmd(req.ClientID, *req.Timestamp))
	}
}

func (srv *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req model.SendMessageRequest
	if !srv.decode(w, r, &req) {
		return
	}
	srv.respond(w, nil, srv.svc.SendMessage(req.ClientID, req.Message))
}

func (srv *Server) health(w http.ResponseWriter, _ *http.Request) {
	b, err := json.Marshal(srv.svc.Health())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeBytes(w, http.StatusOK, b)
}

func (srv *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	defer func() {
		_ = r.Body.Close()
	}()
	if err == nil {
		err = json.Unmarshal(body, v)
	}
	if err != nil {
		srv.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("malformed request")
		writeResponse(w, http.StatusBadRequest, &model.GenericResponse{Error: "malformed request body"})
		return false
	}
	srv.logger.Trace().Str("path", r.URL.Path).Any("request", v).Msg("got action request")
	return true
}

func (srv *Server) respond(w http.ResponseWriter, data any, err error) {
	if err != nil {
		code := statusOf(err)
		if code == http.StatusInternalServerError {
			srv.logger.Error().Err(err).Msg("action failed")
		}
		writeResponse(w, code, &model.GenericResponse{Error: err.Error()})
		return
	}
	writeResponse(w, http.StatusOK, &model.GenericResponse{Message: "OK", Data: data})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeResponse(w http.ResponseWriter, code int, resp *model.GenericResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeBytes(w, code, b)
}

func writeBytes(w http.ResponseWriter, code int, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(code)
	if _, err := w.Write(b); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func (srv *Server) Run(ctx context.Context, wg *sync.WaitGroup, errc chan<- error) {
	defer func() {
		srv.logger.Debug().Msg("server stopped")
		wg.Done()
	}()

	hErr := make(chan error)
	go func() {
		hErr <- srv.ListenAndServe()
	}()

	srv.logger.Info().Str("addr", srv.Addr).Msg("server started")

	select {
	case err := <-hErr:
		if !errors.Is(err, http.ErrServerClosed) {
			errc <- errors.Join(ErrUnexpected, err)
		}
	case <-ctx.Done():
		srv.cancelBase()
		shCtx, shCancel := context.WithTimeout(context.Background(), defaultShutdownDeadline)
		defer shCancel()
		if err := srv.Shutdown(shCtx); err != nil {
			srv.logger.Error().Err(err).Msg("server shutdown failed")
		}
	}
}
