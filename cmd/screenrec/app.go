package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alkime/screenrec/internal/config"
	"github.com/alkime/screenrec/internal/history"
	"github.com/alkime/screenrec/internal/server"
	"github.com/alkime/screenrec/internal/session"
	"github.com/alkime/screenrec/internal/settings"
	"github.com/alkime/screenrec/pkg/channels"
	"golang.org/x/sync/errgroup"
)

const (
	uiEventBuffer      = 64
	historyEventBuffer = 16
	historySendTimeout = 2 * time.Second
)

// app is a running recorder: controller, event fan-out, control socket,
// history log and settings watcher.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	settings *settings.Store
	history  *history.Store

	bc         *channels.Broadcaster[session.Event]
	subs       []chan session.Event
	controller *session.Controller
	group      *errgroup.Group
}

func newApp(cfg *config.Config, logger *slog.Logger) *app {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		settings: settings.Open(cfg.SettingsPath, logger),
		bc:       channels.NewBroadcaster[session.Event](),
	}

	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		logger.Warn("history disabled", "path", cfg.HistoryPath, "error", err)
	} else {
		a.history = store
	}

	return a
}

// subscribe returns a channel that receives every controller event. It
// must be called before start and is closed once the app has stopped.
func (a *app) subscribe(size int, timeout time.Duration) (<-chan session.Event, error) {
	ch := make(chan session.Event, size)

	var err error
	if timeout > 0 {
		err = a.bc.SubscribeWithTimeout(ch, timeout)
	} else {
		err = a.bc.Subscribe(ch)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}

	a.subs = append(a.subs, ch)

	return ch, nil
}

// start launches everything in the background. Call wait to block until
// ctx is done and the last session has been stopped.
func (a *app) start(ctx context.Context) error {
	var historyC <-chan session.Event
	if a.history != nil {
		ch, err := a.subscribe(historyEventBuffer, historySendTimeout)
		if err != nil {
			return err
		}
		historyC = ch
	}

	// the fan-out outlives ctx so the final stop events are delivered
	bcCtx, stopBroadcast := context.WithCancel(context.WithoutCancel(ctx))

	input, err := a.bc.Run(bcCtx)
	if err != nil {
		stopBroadcast()
		return fmt.Errorf("failed to start event broadcaster: %w", err)
	}

	a.controller = session.New(a.settings, input, session.Options{
		RecorderBin:  a.cfg.RecorderBin,
		StartProbe:   a.cfg.StartProbe.Std(),
		StopGrace:    a.cfg.StopGrace.Std(),
		KillTimeout:  a.cfg.KillTimeout.Std(),
		TickInterval: a.cfg.TickInterval.Std(),
		Logger:       a.logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	a.group = g

	g.Go(func() error {
		err := a.controller.Run(gctx)

		// the controller has published its last event
		stopBroadcast()
		a.bc.Wait()
		for _, ch := range a.subs {
			close(ch)
		}

		return err
	})

	g.Go(func() error {
		srv := server.New(a.cfg, a.controller, a.logger)
		// the socket is optional; the controller keeps running without it
		err := srv.Serve(gctx, a.cfg.SocketPath)
		switch {
		case err == nil:
		case errors.Is(err, server.ErrAlreadyServing):
			a.logger.Warn("control socket owned by another instance", "error", err)
		default:
			a.logger.Warn("control socket disabled", "socket", a.cfg.SocketPath, "error", err)
		}

		return nil
	})

	if historyC != nil {
		rec := history.NewRecorder(a.history, a.logger)
		g.Go(func() error {
			rec.Consume(context.WithoutCancel(gctx), historyC)
			return nil
		})
	}

	err = a.settings.Watch(gctx, func(s settings.Settings) {
		a.logger.Info("settings reloaded from disk", "path", a.settings.Path(), "framerate", s.Framerate)
	})
	if err != nil {
		a.logger.Warn("settings will not follow external edits", "error", err)
	}

	return nil
}

// wait blocks until every component has stopped.
func (a *app) wait() error {
	err := a.group.Wait()

	if a.history != nil {
		if closeErr := a.history.Close(); closeErr != nil {
			a.logger.Warn("failed to close history", "error", closeErr)
		}
	}

	for i, st := range a.bc.Stats() {
		if st.Dropped > 0 {
			a.logger.Debug("event subscriber dropped messages", "subscriber", i, "dropped", st.Dropped)
		}
	}

	return err
}
