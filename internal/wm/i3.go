package wm

import (
	"context"
	"fmt"
	"strconv"

	"go.i3wm.org/i3/v4"

	"github.com/ixwindow/ixwindow/internal/logger"
)

// i3Client is the subset of the i3 IPC API the backend queries.
type i3Client interface {
	GetTree() (i3.Tree, error)
	GetWorkspaces() ([]i3.Workspace, error)
}

type i3IPC struct{}

func (i3IPC) GetTree() (i3.Tree, error)              { return i3.GetTree() }
func (i3IPC) GetWorkspaces() ([]i3.Workspace, error) { return i3.GetWorkspaces() }

// I3 answers queries through i3's IPC socket. Desktop ids are workspace
// container ids.
type I3 struct {
	monitor      string
	client       i3Client
	isFullscreen FullscreenFunc
}

// NewI3 creates an i3 backend for monitor. i3 marks every workspace as
// fullscreen on its output, so the fullscreen flag of client windows is
// read from X instead.
func NewI3(monitor string, isFullscreen FullscreenFunc) *I3 {
	return &I3{monitor: monitor, client: i3IPC{}, isFullscreen: isFullscreen}
}

func (b *I3) FocusedWindow() (uint32, bool, error) {
	tree, err := b.client.GetTree()
	if err != nil {
		return 0, false, fmt.Errorf("i3 get_tree: %w", err)
	}
	for _, ws := range workspacesOnOutput(tree.Root, b.monitor) {
		if n := findNode(ws, func(n *i3.Node) bool { return n.Focused && n.Window != 0 }); n != nil {
			return uint32(n.Window), true, nil
		}
	}
	return 0, false, nil
}

func (b *I3) FocusedDesktop() (string, bool, error) {
	workspaces, err := b.client.GetWorkspaces()
	if err != nil {
		return "", false, fmt.Errorf("i3 get_workspaces: %w", err)
	}
	for _, ws := range workspaces {
		if ws.Focused && ws.Output == b.monitor {
			return strconv.FormatInt(int64(ws.ID), 10), true, nil
		}
	}
	return "", false, nil
}

func (b *I3) FullscreenWindow(desktop string) (uint32, bool, error) {
	ws, err := b.workspaceNode(desktop)
	if err != nil || ws == nil {
		return 0, false, err
	}

	var found uint32
	var lastErr error
	findNode(ws, func(n *i3.Node) bool {
		if n.Window == 0 {
			return false
		}
		full, err := b.isFullscreen(uint32(n.Window))
		if err != nil {
			lastErr = err
			return false
		}
		if full {
			found = uint32(n.Window)
		}
		return full
	})
	if found != 0 {
		return found, true, nil
	}
	if lastErr != nil {
		logger.WithComponent("i3").Debug().Err(lastErr).Str("desktop", desktop).Msg("fullscreen check failed")
	}
	return 0, false, nil
}

func (b *I3) IsDesktopEmpty(desktop string) (bool, error) {
	ws, err := b.workspaceNode(desktop)
	if err != nil {
		return false, err
	}
	if ws == nil {
		return true, nil
	}
	return len(ws.Nodes) == 0 && len(ws.FloatingNodes) == 0, nil
}

func (b *I3) DesktopCount() (uint32, error) {
	workspaces, err := b.client.GetWorkspaces()
	if err != nil {
		return 0, fmt.Errorf("i3 get_workspaces: %w", err)
	}
	var n uint32
	for _, ws := range workspaces {
		if ws.Output == b.monitor {
			n++
		}
	}
	return n, nil
}

func (b *I3) workspaceNode(desktop string) (*i3.Node, error) {
	id, err := strconv.ParseInt(desktop, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid i3 desktop id %q", desktop)
	}
	tree, err := b.client.GetTree()
	if err != nil {
		return nil, fmt.Errorf("i3 get_tree: %w", err)
	}
	return findNode(tree.Root, func(n *i3.Node) bool {
		return n.Type == i3.WorkspaceNode && int64(n.ID) == id
	}), nil
}

// workspacesOnOutput returns the workspace nodes below the named output.
func workspacesOnOutput(root *i3.Node, output string) []*i3.Node {
	out := findNode(root, func(n *i3.Node) bool {
		return n.Type == i3.OutputNode && n.Name == output
	})
	if out == nil {
		return nil
	}
	var workspaces []*i3.Node
	walk(out, func(n *i3.Node) bool {
		if n.Type == i3.WorkspaceNode {
			workspaces = append(workspaces, n)
			return false
		}
		return true
	})
	return workspaces
}

// findNode returns the first node in depth-first order matching pred.
func findNode(root *i3.Node, pred func(*i3.Node) bool) *i3.Node {
	var found *i3.Node
	walk(root, func(n *i3.Node) bool {
		if found != nil {
			return false
		}
		if pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// walk visits n and its tiling and floating children while visit returns true.
func walk(n *i3.Node, visit func(*i3.Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for _, child := range n.Nodes {
		walk(child, visit)
	}
	for _, child := range n.FloatingNodes {
		walk(child, visit)
	}
}

// I3Listener subscribes to window and workspace events.
type I3Listener struct {
	backend Backend
	out     chan<- Event
}

// NewI3Listener creates a listener resolving follow-up queries on b.
func NewI3Listener(b Backend, out chan<- Event) *I3Listener {
	return &I3Listener{backend: b, out: out}
}

func (l *I3Listener) String() string {
	return "i3-listener"
}

// Serve consumes the i3 event stream until ctx ends.
func (l *I3Listener) Serve(ctx context.Context) error {
	log := logger.WithComponent("i3")

	recv := i3.Subscribe(i3.WindowEventType, i3.WorkspaceEventType)
	stop := context.AfterFunc(ctx, func() { recv.Close() })
	defer stop()

	for recv.Next() {
		var (
			events []Event
			err    error
		)
		switch ev := recv.Event().(type) {
		case *i3.WindowEvent:
			events, err = translateI3Window(l.backend, ev)
		case *i3.WorkspaceEvent:
			events, err = translateI3Workspace(l.backend, ev)
		}
		if err != nil {
			log.Warn().Err(err).Msg("failed to translate event")
		}
		if err := send(ctx, l.out, events); err != nil {
			return err
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := recv.Close(); err != nil {
		return fmt.Errorf("i3 event stream: %w", err)
	}
	return fmt.Errorf("i3 event stream closed")
}

func translateI3Window(b Backend, ev *i3.WindowEvent) ([]Event, error) {
	id := uint32(ev.Container.Window)
	if id == 0 {
		// The container has no X window, e.g. it moved to the scratchpad.
		focused, ok, err := b.FocusedWindow()
		if err != nil {
			return nil, err
		}
		if !ok {
			return []Event{{Kind: DesktopEmpty}}, nil
		}
		id = focused
	}

	switch ev.Change {
	case "focus", "fullscreen_mode":
		return []Event{Focused(id)}, nil
	case "close":
		return focusedOrEmpty(b)
	}
	return nil, nil
}

func translateI3Workspace(b Backend, ev *i3.WorkspaceEvent) ([]Event, error) {
	switch ev.Change {
	case "focus":
		desktop, ok, err := b.FocusedDesktop()
		if err != nil || !ok {
			return nil, err
		}
		return emptyOrFullscreen(b, desktop)
	case "init":
		return []Event{{Kind: DesktopEmpty}}, nil
	}
	return nil, nil
}
