// Package relay implements the connection lifecycle of the chat relay:
// the line codec over one socket, the login/registration handshake, the
// per-member session loop, and the membership registry that fans every
// message out to the rest of the room.
package relay

import (
	"bufio"
	"net"
	"strings"
	"sync/atomic"
	"time"
)

// Conn wraps one live socket with the line codec of the wire protocol.
// One protocol "line" per SendLine/ReceiveLine call; payloads are
// newline-free printable ASCII.
type Conn struct {
	raw    net.Conn
	reader *bufio.Reader
	closed atomic.Bool
}

func NewConn(raw net.Conn) *Conn {
	return &Conn{raw: raw, reader: bufio.NewReader(raw)}
}

// SendLine writes text followed by a newline. Transport errors are
// returned as-is for the caller to classify.
func (c *Conn) SendLine(text string) error {
	_, err := c.raw.Write([]byte(text + "\n"))
	return err
}

// ReceiveLine blocks until the next newline-delimited line arrives and
// returns it with trailing whitespace removed. EOF and connection
// resets surface as the underlying transport error.
func (c *Conn) ReceiveLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, " \t\r\n"), nil
}

// SetReadTimeout bounds how long the next ReceiveLine may block.
// A non-positive duration clears the deadline. The server applies no
// read timeout; the interactive client may.
func (c *Conn) SetReadTimeout(d time.Duration) error {
	if d <= 0 {
		return c.raw.SetReadDeadline(time.Time{})
	}
	return c.raw.SetReadDeadline(time.Now().Add(d))
}

// Close shuts the transport down exactly once; later calls are no-ops.
// The write side is drained first so a final notice already in flight
// has a chance to reach the peer.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if tcp, ok := c.raw.(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
	}
	return c.raw.Close()
}

func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}
