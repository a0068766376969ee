package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherExitsWhenWindowCloses(t *testing.T) {
	windows := newFakeWindows()
	windows.add(0x20, &fakeWindow{name: "htop", identity: "kitty"})
	out := &syncBuffer{}

	w := startWatcher(windows, testConfig(), NewPrinter(out), 0x20, "htop", 5*time.Millisecond)
	defer w.Stop()
	windows.remove(0x20)

	select {
	case <-w.done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not exit")
	}
	assert.Empty(t, out.lines())
}

func TestWatcherIgnoresEmptyNames(t *testing.T) {
	windows := newFakeWindows()
	windows.add(0x20, &fakeWindow{name: "htop", identity: "kitty"})
	out := &syncBuffer{}

	w := startWatcher(windows, testConfig(), NewPrinter(out), 0x20, "htop", 5*time.Millisecond)
	defer w.Stop()

	windows.setName(0x20, "")
	time.Sleep(30 * time.Millisecond)
	windows.setName(0x20, "top")

	require.Eventually(t, func() bool {
		return len(out.lines()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"top"}, out.lines())
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	windows := newFakeWindows()
	windows.add(0x20, &fakeWindow{name: "htop"})

	w := startWatcher(windows, testConfig(), NewPrinter(&syncBuffer{}), 0x20, "htop", 5*time.Millisecond)
	w.Stop()
	w.Stop()

	select {
	case <-w.done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not exit")
	}
}
