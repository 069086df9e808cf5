package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adwski/syncwatch/backend/model"
	"github.com/google/uuid"
)

const (
	defaultKeepAliveInterval = 15 * time.Second
)

// connect serves client's event channel as server-sent events.
func (srv *Server) connect(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = "client_" + uuid.NewString()
	}
	logger := srv.logger.With().Str("clientID", clientID).Logger()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := srv.svc.Connect(clientID)
	defer srv.svc.Disconnect(ch)
	logger.Debug().Msg("event stream opened")

	keepAlive := time.NewTicker(defaultKeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug().Msg("event stream closed by client")
			return
		case <-ch.Done():
			logger.Debug().Msg("event stream superseded")
			return
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				logger.Debug().Err(err).Msg("failed to write keep-alive")
				return
			}
			flusher.Flush()
		case ev := <-ch.Events():
			if err := writeEvent(w, ev); err != nil {
				logger.Error().Err(err).Str("event", ev.Name).Msg("failed to write event")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, ev model.Event) error {
	b, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, b)
	return err
}
