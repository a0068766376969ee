package engine

import "github.com/ixwindow/ixwindow/internal/config"

// Snapshot is what the engine knows about one focused window.
type Snapshot struct {
	ID       uint32
	Name     string
	NameType config.InfoType
	Identity string
}

// Fullscreen is a flag that may not have been observed yet.
type Fullscreen uint8

const (
	FullscreenUnknown Fullscreen = iota
	FullscreenOff
	FullscreenOn
)

func fullscreenOf(on bool) Fullscreen {
	if on {
		return FullscreenOn
	}
	return FullscreenOff
}

// State is the focus state of the monitor. The previous fields always hold
// the value from just before the latest update.
type State struct {
	Previous *Snapshot
	Current  *Snapshot

	PreviousFullscreen Fullscreen
	CurrentFullscreen  Fullscreen

	DesktopCount uint32
}

func (s *State) focus(snap *Snapshot) {
	s.Previous, s.Current = s.Current, snap
}

func (s *State) clear() {
	s.Previous, s.Current = s.Current, nil
}

func (s *State) setFullscreen(on bool) {
	s.PreviousFullscreen, s.CurrentFullscreen = s.CurrentFullscreen, fullscreenOf(on)
}

// identityChanged compares the identities of the last two snapshots.
// A missing snapshot never matches.
func (s *State) identityChanged() bool {
	if s.Previous == nil || s.Current == nil {
		return true
	}
	return s.Previous.Identity != s.Current.Identity
}

// RebuildInput holds the facts the rebuild decision depends on.
type RebuildInput struct {
	PreviousFullscreen Fullscreen
	CurrentFullscreen  Fullscreen
	PositionChanged    bool
	IdentityChanged    bool
}

// ShouldRebuild decides whether the overlay must be recreated. Rules apply
// in order: leaving fullscreen, a moved icon position, a different
// application. Otherwise the existing overlay is kept.
func ShouldRebuild(in RebuildInput) bool {
	if in.PreviousFullscreen == FullscreenOn && in.CurrentFullscreen == FullscreenOff {
		return true
	}
	if in.PositionChanged {
		return true
	}
	return in.IdentityChanged
}
