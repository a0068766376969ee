package engine

import (
	"fmt"
	"io"
	"sync"
)

// Printer writes label lines for the status bar. It is shared between the
// engine loop and the info watcher; a line equal to the last one written is
// dropped.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	last    string
	printed bool
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Print writes line unless it repeats the previous one.
func (p *Printer) Print(line string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.printLocked(line)
}

// PrintUnlessStopped is Print for watchers: nothing is written once stop is
// closed, so a superseded watcher cannot overwrite a newer label.
func (p *Printer) PrintUnlessStopped(stop <-chan struct{}, line string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-stop:
		return false
	default:
	}
	return p.printLocked(line)
}

func (p *Printer) printLocked(line string) bool {
	if p.printed && line == p.last {
		return false
	}
	if _, err := fmt.Fprintln(p.w, line); err != nil {
		return false
	}
	p.last = line
	p.printed = true
	return true
}
