package wm

import (
	"bytes"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// fakeBspwm serves canned replies on a unix socket the way bspwm does:
// one request per connection, reply, close.
type fakeBspwm struct {
	t       *testing.T
	ln      net.Listener
	path    string
	mu      sync.Mutex
	replies map[string]string
	stream  string
	hold    chan struct{}
	seen    []string
}

func newFakeBspwm(t *testing.T, replies map[string]string) *fakeBspwm {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bspwm.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeBspwm{t: t, ln: ln, path: path, replies: replies, hold: make(chan struct{})}
	t.Cleanup(func() {
		close(f.hold)
		ln.Close()
	})
	go f.serve()
	return f
}

func (f *fakeBspwm) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeBspwm) handle(conn net.Conn) {
	defer conn.Close()

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		return
	}
	parts := bytes.Split(bytes.TrimSuffix(buf[:n], []byte{0}), []byte{0})
	args := make([]string, len(parts))
	for i, p := range parts {
		args[i] = string(p)
	}
	key := strings.Join(args, " ")

	f.mu.Lock()
	f.seen = append(f.seen, key)
	reply, ok := f.replies[key]
	stream := f.stream
	f.mu.Unlock()

	if args[0] == "subscribe" {
		conn.Write([]byte(stream))
		<-f.hold
		return
	}
	if !ok {
		reply = "\a"
	}
	conn.Write([]byte(reply))
}

func (f *fakeBspwm) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

// fakeBackend answers queries from fixed tables.
type fakeBackend struct {
	focused    uint32
	desktop    string
	empty      map[string]bool
	fullscreen map[string]uint32
	count      uint32
	err        error
}

func (f *fakeBackend) FocusedWindow() (uint32, bool, error) {
	return f.focused, f.focused != 0, f.err
}

func (f *fakeBackend) FocusedDesktop() (string, bool, error) {
	return f.desktop, f.desktop != "", f.err
}

func (f *fakeBackend) FullscreenWindow(desktop string) (uint32, bool, error) {
	id := f.fullscreen[desktop]
	return id, id != 0, f.err
}

func (f *fakeBackend) IsDesktopEmpty(desktop string) (bool, error) {
	return f.empty[desktop], f.err
}

func (f *fakeBackend) DesktopCount() (uint32, error) {
	return f.count, f.err
}
