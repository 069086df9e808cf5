package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adwski/syncwatch/backend/model"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxResponseSize       = 1 << 16
)

var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrInvalid    = errors.New("invalid request")
	ErrUnexpected = errors.New("unexpected server response")
)

// APIClient issues action requests on behalf of a single client identity.
type APIClient struct {
	baseURL  string
	clientID string
	http     *http.Client
}

func NewAPIClient(baseURL, clientID string) *APIClient {
	return &APIClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		http:     &http.Client{Timeout: defaultRequestTimeout},
	}
}

func (c *APIClient) CreateRoom(ctx context.Context, username string) (model.RoomState, error) {
	var rs model.RoomState
	err := c.post(ctx, "/create-room", &model.CreateRoomRequest{
		ClientID: c.clientID,
		Username: username,
	}, &rs)
	return rs, err
}

func (c *APIClient) JoinRoom(ctx context.Context, roomCode, username string) (model.RoomState, error) {
	var rs model.RoomState
	err := c.post(ctx, "/join-room", &model.JoinRoomRequest{
		ClientID: c.clientID,
		RoomCode: roomCode,
		Username: username,
	}, &rs)
	return rs, err
}

func (c *APIClient) LeaveRoom(ctx context.Context) error {
	return c.post(ctx, "/leave-room", &model.LeaveRoomRequest{ClientID: c.clientID}, nil)
}

func (c *APIClient) ChangeVideo(ctx context.Context, videoID string, timestamp float64) error {
	return c.post(ctx, "/video-changed", &model.VideoChangedRequest{
		ClientID:  c.clientID,
		VideoID:   videoID,
		Timestamp: &timestamp,
	}, nil)
}

func (c *APIClient) Play(ctx context.Context, timestamp float64) error {
	return c.playback(ctx, "/play", timestamp)
}

func (c *APIClient) Pause(ctx context.Context, timestamp float64) error {
	return c.playback(ctx, "/pause", timestamp)
}

func (c *APIClient) Seek(ctx context.Context, timestamp float64) error {
	return c.playback(ctx, "/seek", timestamp)
}

func (c *APIClient) SendMessage(ctx context.Context, text string) error {
	return c.post(ctx, "/send-message", &model.SendMessageRequest{
		ClientID: c.clientID,
		Message:  text,
	}, nil)
}

func (c *APIClient) playback(ctx context.Context, path string, timestamp float64) error {
	return c.post(ctx, path, &model.PlaybackRequest{
		ClientID:  c.clientID,
		Timestamp: &timestamp,
	}, nil)
}

func (c *APIClient) post(ctx context.Context, path string, req any, data any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("cannot marshal request: %w", err)
	}
	hReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("cannot create request: %w", err)
	}
	hReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(hReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("cannot read response: %w", err)
	}
	gr := model.GenericResponse{Data: data}
	if err = json.Unmarshal(b, &gr); err != nil {
		return errors.Join(ErrUnexpected, fmt.Errorf("status %d: %w", resp.StatusCode, err))
	}
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var kind error
	switch resp.StatusCode {
	case http.StatusNotFound:
		kind = ErrNotFound
	case http.StatusForbidden:
		kind = ErrForbidden
	case http.StatusBadRequest:
		kind = ErrInvalid
	default:
		kind = ErrUnexpected
	}
	if gr.Error == "" {
		return kind
	}
	return errors.Join(kind, errors.New(gr.Error))
}
