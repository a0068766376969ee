package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/ixwindow/ixwindow/internal/x11"
)

// rebuildIcon replaces the overlay with the icon of snap. A cached icon is
// shown right away; otherwise extraction runs in the background and its
// result comes back through e.results.
func (e *Engine) rebuildIcon(snap *Snapshot) {
	e.destroyIcon()
	e.icon.missed = false

	if snap.Identity == "" {
		return
	}
	if path, ok := e.icons.Lookup(snap.Identity); ok {
		e.showIcon(path)
		return
	}

	e.iconSeq++
	go e.extract(e.iconSeq, snap.ID, snap.Identity)
}

// extract retries icon generation until it succeeds, the window goes away
// or IconTimeout passes. It never touches engine state.
func (e *Engine) extract(seq uint64, windowID uint32, identity string) {
	deadline := time.Now().Add(e.opts.IconTimeout)

	var (
		path string
		err  error
	)
	for {
		path, err = e.ensure(windowID, identity)
		if err == nil || errors.Is(err, x11.ErrWindowGone) || !time.Now().Before(deadline) {
			break
		}
		select {
		case <-time.After(e.opts.IconInterval):
		case <-e.done:
			return
		}
	}

	select {
	case e.results <- iconResult{seq: seq, identity: identity, path: path, err: err}:
	case <-e.done:
	}
}

// ensure calls the icon store, turning a panic on malformed icon data into
// an error.
func (e *Engine) ensure(windowID uint32, identity string) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("icon extraction for %#x panicked: %v", windowID, r)
		}
	}()
	return e.icons.Ensure(windowID, identity)
}

// handleResult shows a finished extraction if it is still wanted.
func (e *Engine) handleResult(r iconResult) {
	cur := e.state.Current
	if r.seq != e.iconSeq || cur == nil || cur.Identity != r.identity || !e.icon.visible || e.icon.shown {
		e.log.Debug().Str("identity", r.identity).Msg("discarding stale icon")
		return
	}
	if r.err != nil {
		e.log.Debug().Err(r.err).Str("identity", r.identity).Msg("no icon")
		return
	}
	e.showIcon(r.path)
}

func (e *Engine) showIcon(path string) {
	x := e.cfg.IconX(e.state.DesktopCount)
	handle, err := e.renderer.Show(path, x, e.cfg.Y, e.cfg.Size, e.monitor)
	if err != nil {
		e.log.Warn().Err(err).Str("icon", path).Msg("failed to show icon")
		return
	}
	e.icon.handle = handle
	e.icon.shown = true
}

// destroyIcon removes the overlay and invalidates pending extractions.
func (e *Engine) destroyIcon() {
	e.iconSeq++
	if !e.icon.shown {
		return
	}
	if err := e.renderer.Destroy(e.icon.handle); err != nil {
		e.log.Debug().Err(err).Uint32("handle", e.icon.handle).Msg("failed to destroy icon")
	}
	e.icon.handle = 0
	e.icon.shown = false
}
