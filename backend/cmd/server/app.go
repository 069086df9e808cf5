package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/adwski/syncwatch/backend/config"
	"github.com/adwski/syncwatch/backend/metrics"
	httpServer "github.com/adwski/syncwatch/backend/server/http"
	websocketServer "github.com/adwski/syncwatch/backend/server/websocket"
	"github.com/adwski/syncwatch/backend/service"
	store "github.com/adwski/syncwatch/backend/storage/memory"
	sw "github.com/adwski/syncwatch/backend/switch"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse loglevel")
	}
	logger = logger.Level(lvl)

	recorder := metrics.New()
	svc := service.NewService(service.Config{
		RoomStore:        store.NewMemStore(),
		Switch:           sw.NewSwitchWithBuffer(&logger, cfg.ChannelBuffer),
		Metrics:          recorder,
		Logger:           &logger,
		GracePeriod:      cfg.GracePeriod,
		MaxMessageLength: cfg.MaxMessageLength,
	})
	defer svc.Close()

	httpSrv := httpServer.NewServer(httpServer.Config{
		Logger:         &logger,
		SessionService: svc,
		ListenAddr:     cfg.APIListenAddr,
		CORSOrigins:    cfg.CORSOrigins,
		Metrics:        recorder.Handler(),
	})
	wsSrv := websocketServer.NewServer(websocketServer.Config{
		Logger:         &logger,
		ChannelService: svc,
		ListenAddr:     cfg.WSListenAddr,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		wg   = &sync.WaitGroup{}
		errc = make(chan error, 2)
	)
	wg.Add(2)
	go httpSrv.Run(ctx, wg, errc)
	go wsSrv.Run(ctx, wg, errc)

	logger.Info().
		Dur("grace", cfg.GracePeriod).
		Strs("corsOrigins", cfg.CORSOrigins).
		Msg("syncwatch started")

	select {
	case err = <-errc:
		logger.Error().Err(err).Msg("unexpected server error, shutting down")
	case <-ctx.Done():
		logger.Warn().Msg("interrupted")
	}
	cancel()
	wg.Wait()
}
