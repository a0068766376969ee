package wm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ixwindow/ixwindow/internal/logger"
)

// bspwmSubscriptions are the events that can change the focused window.
var bspwmSubscriptions = []string{
	"node_focus",
	"node_remove",
	"node_flag",
	"node_state",
	"desktop_focus",
}

// Bspwm answers queries through bspwm's socket. Desktop ids are the hex
// ids bspwm prints, which bspc accepts back as selectors.
type Bspwm struct {
	client  *BspwmClient
	monitor string
}

// NewBspwm creates a bspwm backend for monitor.
func NewBspwm(client *BspwmClient, monitor string) *Bspwm {
	return &Bspwm{client: client, monitor: monitor}
}

func (b *Bspwm) FocusedWindow() (uint32, bool, error) {
	return b.queryNode("-N", "-m", b.monitor, "-n", "focused.window")
}

func (b *Bspwm) FocusedDesktop() (string, bool, error) {
	ids, err := b.client.Query("-D", "-m", b.monitor, "-d", "focused")
	if err != nil {
		if errors.Is(err, ErrNoReply) {
			return "", false, nil
		}
		return "", false, err
	}
	return ids[0], true, nil
}

func (b *Bspwm) FullscreenWindow(desktop string) (uint32, bool, error) {
	return b.queryNode("-N", "-d", desktop, "-n", ".fullscreen.window")
}

func (b *Bspwm) IsDesktopEmpty(desktop string) (bool, error) {
	_, ok, err := b.queryNode("-N", "-d", desktop, "-n", ".window.!hidden")
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (b *Bspwm) DesktopCount() (uint32, error) {
	ids, err := b.client.Query("-D", "-m", b.monitor)
	if err != nil {
		if errors.Is(err, ErrNoReply) {
			return 0, nil
		}
		return 0, err
	}
	return uint32(len(ids)), nil
}

// MonitorID returns bspwm's id for the backend's monitor.
func (b *Bspwm) MonitorID() (string, error) {
	ids, err := b.client.Query("-M", "-m", b.monitor)
	if err != nil {
		return "", fmt.Errorf("resolve monitor %q: %w", b.monitor, err)
	}
	return ids[0], nil
}

func (b *Bspwm) queryNode(args ...string) (uint32, bool, error) {
	ids, err := b.client.Query(args...)
	if err != nil {
		if errors.Is(err, ErrNoReply) {
			return 0, false, nil
		}
		return 0, false, err
	}
	id, err := parseNodeID(ids[0])
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// BspwmListener consumes `bspc subscribe` output.
type BspwmListener struct {
	backend *Bspwm
	out     chan<- Event
}

// NewBspwmListener creates a listener resolving follow-up queries on b.
func NewBspwmListener(b *Bspwm, out chan<- Event) *BspwmListener {
	return &BspwmListener{backend: b, out: out}
}

func (l *BspwmListener) String() string {
	return "bspwm-listener"
}

// Serve consumes the event stream until ctx ends or bspwm goes away.
func (l *BspwmListener) Serve(ctx context.Context) error {
	log := logger.WithComponent("bspwm")

	monitorID, err := l.backend.MonitorID()
	if err != nil {
		// Events from every monitor are handled when the id is unknown.
		log.Warn().Err(err).Msg("monitor filter disabled")
	}

	stream, err := l.backend.client.Subscribe(ctx, bspwmSubscriptions...)
	if err != nil {
		return err
	}
	defer stream.Close()

	scanner := bufio.NewScanner(stream)
	for scanner.Scan() {
		line := scanner.Text()
		if _, err := checkReply([]byte(line)); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		ev, err := parseBspwmEvent(line)
		if err != nil {
			log.Debug().Err(err).Msg("ignoring event")
			continue
		}
		events, err := translateBspwm(l.backend, monitorID, ev)
		if err != nil {
			log.Warn().Err(err).Str("event", ev.name).Msg("failed to translate event")
		}
		if err := send(ctx, l.out, events); err != nil {
			return err
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("bspwm event stream: %w", err)
	}
	return fmt.Errorf("bspwm event stream closed")
}

// bspwmEvent is one subscribe line, e.g.
// "node_state 0x00200002 0x00200004 0x00C00003 fullscreen on".
type bspwmEvent struct {
	name    string
	monitor string
	desktop string
	node    string
	args    []string
}

func parseBspwmEvent(line string) (bspwmEvent, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return bspwmEvent{}, fmt.Errorf("empty event")
	}

	ev := bspwmEvent{name: f[0]}
	switch ev.name {
	case "desktop_focus":
		if len(f) < 3 {
			return ev, fmt.Errorf("short %s event: %q", ev.name, line)
		}
		ev.monitor, ev.desktop = f[1], f[2]
	case "node_focus", "node_remove", "node_flag", "node_state":
		if len(f) < 4 {
			return ev, fmt.Errorf("short %s event: %q", ev.name, line)
		}
		ev.monitor, ev.desktop, ev.node = f[1], f[2], f[3]
		ev.args = f[4:]
	default:
		return ev, fmt.Errorf("unexpected event %q", ev.name)
	}
	return ev, nil
}

func translateBspwm(b Backend, monitorID string, ev bspwmEvent) ([]Event, error) {
	onMonitor := monitorID == "" || ev.monitor == monitorID

	switch ev.name {
	case "node_focus":
		if !onMonitor {
			return nil, nil
		}
		id, err := parseNodeID(ev.node)
		if err != nil {
			return nil, err
		}
		return []Event{Focused(id)}, nil

	case "node_remove":
		return focusedOrEmpty(b)

	case "node_flag":
		// A node may have become hidden, leaving the desktop empty.
		empty, err := b.IsDesktopEmpty(ev.desktop)
		if err != nil || !empty {
			return nil, err
		}
		return []Event{{Kind: DesktopEmpty}}, nil

	case "node_state":
		if len(ev.args) == 2 && ev.args[0] == "fullscreen" && ev.args[1] == "on" {
			return []Event{{Kind: FullscreenEntered}}, nil
		}
		id, err := parseNodeID(ev.node)
		if err != nil {
			return nil, err
		}
		return []Event{Focused(id)}, nil

	case "desktop_focus":
		if !onMonitor {
			return nil, nil
		}
		return emptyOrFullscreen(b, ev.desktop)
	}
	return nil, nil
}
