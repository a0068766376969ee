// Package daemon wires the window manager listener, the config watcher and
// the focus engine for one monitor and keeps them running.
package daemon

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/ixwindow/ixwindow/internal/config"
	"github.com/ixwindow/ixwindow/internal/engine"
	"github.com/ixwindow/ixwindow/internal/icon"
	"github.com/ixwindow/ixwindow/internal/logger"
	"github.com/ixwindow/ixwindow/internal/overlay"
	"github.com/ixwindow/ixwindow/internal/wm"
	"github.com/ixwindow/ixwindow/internal/x11"
)

// eventBuffer absorbs bursts from the listener while the engine is busy
// resolving a window name.
const eventBuffer = 64

// Options configures a Daemon.
type Options struct {
	Config  *config.Config
	Monitor string
	// Out receives label lines, normally stdout.
	Out io.Writer
	// Watch enables config hot reload.
	Watch bool
	// FailureBackoff is how long a failing listener waits before restarting.
	FailureBackoff time.Duration
}

// Daemon runs ixwindow on one monitor.
type Daemon struct {
	conn *x11.Connection
	opts Options
	log  *zerolog.Logger
}

// New creates a daemon drawing on conn.
func New(conn *x11.Connection, opts Options) *Daemon {
	if opts.FailureBackoff <= 0 {
		opts.FailureBackoff = time.Second
	}
	return &Daemon{
		conn: conn,
		opts: opts,
		log:  logger.WithComponent("daemon"),
	}
}

// Run blocks until ctx is cancelled or the engine stops. A cancelled
// context is a clean shutdown and returns nil.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := d.opts.Config
	events := make(chan wm.Event, eventBuffer)

	backend, listener, err := wm.New(cfg.WM, d.opts.Monitor, d.conn.IsFullscreen, events)
	if err != nil {
		return err
	}

	services := []suture.Service{listener}
	var reloads <-chan *config.Config
	if d.opts.Watch && cfg.Path != "" {
		watcher := config.NewWatcher(cfg.Path, cfg.WM)
		services = append(services, watcher)
		reloads = watcher.Updates()
	}

	eng := engine.New(cfg, d.opts.Monitor, engine.Deps{
		Backend:  backend,
		Windows:  d.conn,
		Icons:    icon.NewStore(d.conn, icon.OptionsFromConfig(cfg)),
		Renderer: overlay.NewRenderer(d.conn),
		Out:      d.opts.Out,
		Events:   events,
		Reloads:  reloads,
	}, engine.DefaultOptions())

	d.log.Info().
		Str("wm", string(cfg.WM)).
		Str("monitor", d.opts.Monitor).
		Str("config", cfg.Path).
		Msg("daemon started")

	err = serve(ctx, eng, d.supervisor(), services)

	d.log.Info().Msg("daemon stopped")
	return err
}

// supervisor builds the tree that restarts listeners and watchers.
func (d *Daemon) supervisor() *suture.Supervisor {
	return suture.New("ixwindow", suture.Spec{
		EventHook:      eventHook(d.log),
		FailureBackoff: d.opts.FailureBackoff,
		Timeout:        2 * time.Second,
	})
}

// serve runs services in the background under sup and the foreground loop
// until either ctx ends or the loop returns.
func serve(ctx context.Context, loop suture.Service, sup *suture.Supervisor, services []suture.Service) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, svc := range services {
		sup.Add(svc)
	}
	supDone := sup.ServeBackground(ctx)

	err := loop.Serve(ctx)
	cancel()
	<-supDone

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func eventHook(log *zerolog.Logger) suture.EventHook {
	return func(ev suture.Event) {
		entry := log.Warn()
		switch ev.Type() {
		case suture.EventTypeResume:
			entry = log.Info()
		case suture.EventTypeServicePanic:
			entry = log.Error()
		}
		entry.Fields(ev.Map()).Msg(ev.String())
	}
}
