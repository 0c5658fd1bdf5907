package relay

import (
	"bufio"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
)

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelError)
}

// drain reads lines off one end of a pipe into a channel, so tests
// observe exactly what a peer would read off the wire. The channel
// closes when the transport does.
func drain(t *testing.T, raw net.Conn) <-chan string {
	t.Helper()

	lines := make(chan string, 32)
	go func() {
		defer close(lines)
		reader := bufio.NewReader(raw)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			lines <- strings.TrimRight(line, "\n")
		}
	}()
	return lines
}

// newMember wires a Session to one end of an in-memory pipe and drains
// the peer end.
func newMember(t *testing.T, registry *Registry, username string) (*Session, <-chan string) {
	t.Helper()

	serverSide, clientSide := net.Pipe()
	conn := NewConn(serverSide)
	session := NewSession(username, conn, registry, testLogger(), 3)
	lines := drain(t, clientSide)

	t.Cleanup(func() {
		_ = conn.Close()
		_ = clientSide.Close()
	})
	return session, lines
}

// newMemberJoined is newMember plus registry insertion.
func newMemberJoined(t *testing.T, registry *Registry, username string) (*Session, <-chan string) {
	t.Helper()

	session, lines := newMember(t, registry, username)
	registry.Join(session)
	return session, lines
}

// newRunningMember is newMemberJoined with the relay loop started, for
// tests that need a live recipient.
func newRunningMember(t *testing.T, registry *Registry, username string) (*Session, <-chan string) {
	t.Helper()

	session, lines := newMemberJoined(t, registry, username)
	go session.Run()
	return session, lines
}

func recvLine(t *testing.T, lines <-chan string) string {
	t.Helper()
	select {
	case line, ok := <-lines:
		if !ok {
			t.Fatal("connection closed while expecting a line")
		}
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a line")
	}
	return ""
}

func expectSilence(t *testing.T, lines <-chan string) {
	t.Helper()
	select {
	case line, ok := <-lines:
		if ok {
			t.Fatalf("expected no traffic, received %q", line)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func expectClosed(t *testing.T, lines <-chan string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-lines:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for the connection to close")
		}
	}
}
