package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adwski/syncwatch/backend/model"
	"github.com/adwski/syncwatch/backend/syncer"
	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const (
	commandTimeout = 10 * time.Second
	leaveTimeout   = 3 * time.Second
)

var (
	errQuit       = errors.New("quit")
	errBadCommand = errors.New("bad command")
)

const usage = `commands:
  create              create room and become host
  join <code>         join room
  leave               leave room
  name <name>         set display name
  video <id> [sec]    load video (host announces it)
  play | pause        control local player (host relays to room)
  seek <sec>          seek local player
  say <text>          send chat message
  state               dump current state
  quit                leave and exit`

type session struct {
	logger zerolog.Logger
	out    io.Writer
	player *syncer.VirtualPlayer
	ctl    *syncer.Controller
}

func runSession(ctx context.Context, initial []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	store, err := newStore(viper.GetString(stateFileKey))
	if err != nil {
		return fmt.Errorf("cannot open state file: %w", err)
	}
	clientID := syncer.ClientID(store)
	logger.Debug().Str("clientID", clientID).Msg("client identity")

	out := os.Stdout
	player := syncer.NewVirtualPlayer(nil)
	nav := &navigator{player: player}
	ctl := syncer.NewController(syncer.Config{
		Logger:    &logger,
		Player:    player,
		Navigator: nav,
		Store:     store,
		Actions:   syncer.NewAPIClient(viper.GetString(apiURLKey), clientID),
		Display:   newConsoleDisplay(out),
		Username:  viper.GetString(nameKey),
		WatchURL:  viper.GetString(watchURLKey),
	})
	ctl.Restore()
	player.SetListener(ctl)

	channel, err := syncer.NewChannel(syncer.ChannelConfig{
		Logger:   &logger,
		URL:      viper.GetString(wsURLKey),
		ClientID: clientID,
		Handler:  ctl,
	})
	if err != nil {
		return err
	}
	// page reload: restore transient state and reopen channel
	nav.reload = func() {
		ctl.Restore()
		channel.Reconnect()
	}

	s := &session{
		logger: logger,
		out:    out,
		player: player,
		ctl:    ctl,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return channel.Run(gctx)
	})
	g.Go(func() error {
		return s.commands(gctx, os.Stdin, initial)
	})
	err = g.Wait()
	s.leave()
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

func newStore(path string) (syncer.TransientStore, error) {
	if path == "" {
		return syncer.NewMemoryStore(), nil
	}
	return syncer.NewFileStore(path)
}

func (s *session) commands(ctx context.Context, in io.Reader, initial []string) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	if len(initial) > 0 {
		if err := s.exec(ctx, initial); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				// stdin is gone, keep following until interrupted
				lines = nil
				continue
			}
			args := strings.Fields(line)
			if len(args) == 0 {
				continue
			}
			if err := s.exec(ctx, args); err != nil {
				if errors.Is(err, errQuit) {
					return err
				}
				fmt.Fprintf(s.out, "! %v\n", err)
			}
		}
	}
}

func (s *session) exec(ctx context.Context, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	switch args[0] {
	case "help":
		fmt.Fprintln(s.out, usage)
	case "quit", "exit":
		return errQuit
	case "create":
		return s.ctl.Create(ctx)
	case "join":
		if len(args) != 2 {
			return fmt.Errorf("%w: join <code>", errBadCommand)
		}
		return s.ctl.Join(ctx, args[1])
	case "leave":
		return s.ctl.Leave(ctx)
	case "name":
		if len(args) < 2 {
			return fmt.Errorf("%w: name <name>", errBadCommand)
		}
		s.ctl.SetUsername(strings.Join(args[1:], " "))
	case "video":
		if len(args) < 2 || len(args) > 3 {
			return fmt.Errorf("%w: video <id> [sec]", errBadCommand)
		}
		var pos float64
		if len(args) == 3 {
			var err error
			if pos, err = parseSeconds(args[2]); err != nil {
				return err
			}
		}
		s.player.Load(args[1], pos)
	case "play":
		return s.player.Play()
	case "pause":
		s.player.Pause()
	case "seek":
		if len(args) != 2 {
			return fmt.Errorf("%w: seek <sec>", errBadCommand)
		}
		pos, err := parseSeconds(args[1])
		if err != nil {
			return err
		}
		s.player.Seek(pos)
	case "say":
		if len(args) < 2 {
			return fmt.Errorf("%w: say <text>", errBadCommand)
		}
		return s.ctl.Say(ctx, strings.Join(args[1:], " "))
	case "state":
		spew.Fdump(s.out, s.ctl.Snapshot())
	default:
		return fmt.Errorf("%w: unknown command %q, type 'help'", errBadCommand, args[0])
	}
	return nil
}

func (s *session) leave() {
	if !s.ctl.Snapshot().InRoom {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	if err := s.ctl.Leave(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to leave room")
	}
}

func parseSeconds(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: invalid seconds %q", errBadCommand, s)
	}
	return v, nil
}

// navigator emulates page navigation by loading the video into the virtual
// player and reopening the channel like a reloaded page would.
type navigator struct {
	player *syncer.VirtualPlayer
	reload func()
}

func (n *navigator) Navigate(videoURL string) error {
	u, err := url.Parse(videoURL)
	if err != nil {
		return fmt.Errorf("invalid video url: %w", err)
	}
	q := u.Query()
	videoID := q.Get("v")
	if videoID == "" {
		return fmt.Errorf("video id is missing in %q", videoURL)
	}
	var start float64
	if t := q.Get("t"); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("invalid start offset %q: %w", t, err)
		}
		start = d.Seconds()
	}
	n.player.Load(videoID, start)
	if n.reload != nil {
		n.reload()
	}
	return nil
}

type consoleDisplay struct {
	mx  *sync.Mutex
	out io.Writer
}

func newConsoleDisplay(out io.Writer) *consoleDisplay {
	return &consoleDisplay{mx: &sync.Mutex{}, out: out}
}

func (d *consoleDisplay) Notice(text string) {
	d.mx.Lock()
	defer d.mx.Unlock()
	fmt.Fprintf(d.out, "* %s\n", text)
}

func (d *consoleDisplay) Chat(msg model.ChatMessage) {
	d.mx.Lock()
	defer d.mx.Unlock()
	fmt.Fprintf(d.out, "[%s] %s: %s\n",
		time.UnixMilli(msg.Timestamp).Format(time.TimeOnly), msg.Username, msg.Message)
}

func (d *consoleDisplay) Roster(users []string) {
	d.mx.Lock()
	defer d.mx.Unlock()
	fmt.Fprintf(d.out, "* users (%d): %s\n", len(users), strings.Join(users, ", "))
}
