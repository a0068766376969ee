package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/ixwindow/ixwindow/internal/config"
	"github.com/ixwindow/ixwindow/internal/x11"
)

// infoWatcher polls one window's display name and reprints it on change.
type infoWatcher struct {
	windowID uint32
	stop     chan struct{}
	once     sync.Once
	done     chan struct{}
}

// startWatcher begins polling windowID. last is the name already printed.
func startWatcher(windows Windows, cfg *config.Config, printer *Printer, windowID uint32, last string, interval time.Duration) *infoWatcher {
	w := &infoWatcher{
		windowID: windowID,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run(windows, cfg, printer, last, interval)
	return w
}

// Stop signals the watcher and returns without waiting for it.
func (w *infoWatcher) Stop() {
	w.once.Do(func() { close(w.stop) })
}

// running reports whether the poll loop is still active. A watcher exits
// on its own when its window is destroyed.
func (w *infoWatcher) running() bool {
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

func (w *infoWatcher) run(windows Windows, cfg *config.Config, printer *Printer, last string, interval time.Duration) {
	defer close(w.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
		}

		name, typ, err := windows.DisplayName(w.windowID, cfg.PrintInfo.Types)
		if err != nil {
			if errors.Is(err, x11.ErrWindowGone) {
				return
			}
			continue
		}
		if name == "" || name == last {
			continue
		}
		printer.PrintUnlessStopped(w.stop, cfg.WindowLine(name, typ))
		last = name
	}
}
