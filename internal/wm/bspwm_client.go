package wm

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ixwindow/ixwindow/internal/runtimepath"
)

// ErrNoReply is returned when a bspwm query matched nothing.
var ErrNoReply = errors.New("bspwm returned no result")

// failureByte prefixes every failed bspwm reply.
const failureByte = '\a'

// BspwmClient speaks the bspc wire protocol on bspwm's unix socket: the
// arguments are sent NUL-terminated and the reply is read until EOF.
type BspwmClient struct {
	socketPath string
	timeout    time.Duration
}

// NewBspwmClient creates a client for the socket bspc would use.
func NewBspwmClient() (*BspwmClient, error) {
	path, err := runtimepath.BspwmSocketPath()
	if err != nil {
		return nil, err
	}
	return NewBspwmClientAt(path), nil
}

// NewBspwmClientAt creates a client for an explicit socket path.
func NewBspwmClientAt(socketPath string) *BspwmClient {
	return &BspwmClient{
		socketPath: socketPath,
		timeout:    2 * time.Second,
	}
}

func (c *BspwmClient) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bspwm: %w (is bspwm running?)", err)
	}
	return conn, nil
}

// Send runs one bspc command and returns its raw output.
func (c *BspwmClient) Send(args ...string) ([]byte, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := conn.Write(encodeMessage(args)); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reply, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return checkReply(reply)
}

// Query runs a bspc query and returns the non-empty output lines.
func (c *BspwmClient) Query(args ...string) ([]string, error) {
	reply, err := c.Send(append([]string{"query"}, args...)...)
	if err != nil {
		return nil, err
	}
	lines := strings.Fields(string(reply))
	if len(lines) == 0 {
		return nil, ErrNoReply
	}
	return lines, nil
}

// Subscribe opens an event stream. The returned reader yields one event
// per line until it is closed or bspwm exits. A rejected subscription
// shows up as a single line starting with the failure byte.
func (c *BspwmClient) Subscribe(ctx context.Context, events ...string) (io.ReadCloser, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}

	conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if _, err := conn.Write(encodeMessage(append([]string{"subscribe"}, events...))); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	conn.SetWriteDeadline(time.Time{})

	// Close the stream when ctx ends so readers unblock.
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	return &subscription{Reader: bufio.NewReader(conn), conn: conn, stop: stop}, nil
}

type subscription struct {
	*bufio.Reader
	conn net.Conn
	stop func() bool
}

func (s *subscription) Close() error {
	s.stop()
	return s.conn.Close()
}

func encodeMessage(args []string) []byte {
	var buf bytes.Buffer
	for _, a := range args {
		buf.WriteString(a)
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func checkReply(reply []byte) ([]byte, error) {
	if len(reply) > 0 && reply[0] == failureByte {
		msg := strings.TrimSpace(string(reply[1:]))
		if msg == "" {
			return nil, ErrNoReply
		}
		return nil, fmt.Errorf("bspwm: %s", msg)
	}
	return reply, nil
}

// parseNodeID parses a bspwm node id such as 0x00C00003.
func parseNodeID(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid bspwm id %q", s)
	}
	return uint32(v), nil
}
