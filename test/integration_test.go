package test

import (
	"bufio"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"chat-relay/relay"
	"chat-relay/repositories"
	"chat-relay/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// startServer boots a full relay on an ephemeral port with a real
// Badger store, the way cmd/server wires it.
func startServer(t *testing.T) string {
	t.Helper()
	req := require.New(t)

	// Reduced value log size for testing (avoid gigabytes of preallocated storage)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelError)
	authService := services.NewAuthService(repositories.NewCredentialRepository(db))

	server := relay.NewServer(authService, relay.Options{
		Host:               "127.0.0.1",
		Port:               0,
		BindAttempts:       1,
		EmptyLineTolerance: 3,
	}, log)
	req.NoError(server.Listen())

	go func() { _ = server.Serve() }()
	t.Cleanup(func() { server.Shutdown("Server has shutdown. Disconnected.") })

	return server.Addr().String()
}

// startServerHandle is startServer for tests that drive the shutdown
// themselves.
func startServerHandle(t *testing.T) (*relay.Server, string) {
	t.Helper()
	req := require.New(t)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelError)
	authService := services.NewAuthService(repositories.NewCredentialRepository(db))

	server := relay.NewServer(authService, relay.Options{
		Host:         "127.0.0.1",
		Port:         0,
		BindAttempts: 1,
	}, log)
	req.NoError(server.Listen())
	go func() { _ = server.Serve() }()
	t.Cleanup(func() { server.Shutdown("Server has shutdown. Disconnected.") })

	return server, server.Addr().String()
}

// client plays the peer role over a real TCP socket.
type client struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

func (c *client) send(text string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(text + "\n"))
	require.NoError(c.t, err)
}

func (c *client) readLine() string {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := c.reader.ReadString('\n')
	require.NoError(c.t, err)
	return strings.TrimRight(line, "\n")
}

func (c *client) expect(want string) {
	c.t.Helper()
	require.Equal(c.t, want, c.readLine())
}

// expectSilence asserts nothing arrives for a short window.
func (c *client) expectSilence() {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, err := c.reader.ReadString('\n')
	netErr, ok := err.(net.Error)
	require.True(c.t, ok, "expected a read timeout, got %v", err)
	require.True(c.t, netErr.Timeout())
}

// expectEOF asserts the server closed the connection.
func (c *client) expectEOF() {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := c.reader.ReadString('\n')
	require.Error(c.t, err)
	if netErr, ok := err.(net.Error); ok {
		require.False(c.t, netErr.Timeout())
	}
}

// handshake answers the three server prompts.
func (c *client) handshake(mode, username, password string) {
	c.t.Helper()
	c.expect("Login or Registration? (L) (R)")
	c.send(mode)
	c.expect("Enter username")
	c.send(username)
	c.expect("Enter password")
	c.send(password)
}

// reset tears the socket down abruptly so the server sees a peer reset
// rather than an orderly close.
func (c *client) reset() {
	c.t.Helper()
	tcp, ok := c.conn.(*net.TCPConn)
	require.True(c.t, ok)
	require.NoError(c.t, tcp.SetLinger(0))
	require.NoError(c.t, tcp.Close())
}

func TestRelay_Scenarios(t *testing.T) {
	addr := startServer(t)

	// Scenario A: registration admits silently
	alice := dial(t, addr)
	alice.handshake("r", "alice", "secret")
	alice.expectSilence()

	// Scenario B: duplicate username is rejected and disconnected
	eve := dial(t, addr)
	eve.handshake("r", "alice", "other")
	eve.expect("Entry forbidden. Registration failed: username already taken")
	eve.expect("Disconnected")
	eve.expectEOF()

	// Scenario C: login with correct credentials; members see the join
	second := dial(t, addr)
	second.handshake("l", "alice", "secret")
	alice.expect("alice has joined the chatroom")

	// Scenario D: broadcast reaches the others, never the sender
	second.send("hello")
	alice.expect("alice: hello")
	second.expectSilence()

	// Scenario E: abrupt reset announces the departure exactly once
	second.reset()
	alice.expect("alice has left the chatroom")
	alice.expectSilence()
}

func TestRelay_Login_Mismatch_Is_Rejected(t *testing.T) {
	addr := startServer(t)

	alice := dial(t, addr)
	alice.handshake("r", "alice", "secret")
	alice.expectSilence()

	intruder := dial(t, addr)
	intruder.handshake("l", "alice", "wrong")
	intruder.expect("Entry forbidden. Login failed: invalid credentials")
	intruder.expect("Disconnected")
	intruder.expectEOF()
}

func TestRelay_Invalid_Selection_Is_Rejected(t *testing.T) {
	addr := startServer(t)

	stranger := dial(t, addr)
	stranger.expect("Login or Registration? (L) (R)")
	stranger.send("zzz")
	stranger.expect("Entry forbidden. Invalid selection")
	stranger.expect("Disconnected")
	stranger.expectEOF()
}

func TestRelay_Terminate_Token_Leaves_Orderly(t *testing.T) {
	addr := startServer(t)

	alice := dial(t, addr)
	alice.handshake("r", "alice", "secret")
	bob := dial(t, addr)
	bob.handshake("r", "bob", "hunter2")
	alice.expect("bob has joined the chatroom")

	bob.send("TERM")
	bob.expect("Disconnected")
	bob.expectEOF()
	alice.expect("bob has left the chatroom")
	alice.expectSilence()
}

func TestRelay_Per_Sender_Ordering(t *testing.T) {
	addr := startServer(t)

	alice := dial(t, addr)
	alice.handshake("r", "alice", "secret")
	bob := dial(t, addr)
	bob.handshake("r", "bob", "hunter2")
	alice.expect("bob has joined the chatroom")

	for _, text := range []string{"m1", "m2", "m3", "m4", "m5"} {
		bob.send(text)
	}
	for _, text := range []string{"m1", "m2", "m3", "m4", "m5"} {
		alice.expect("bob: " + text)
	}
}

func TestRelay_Shutdown_Notifies_Every_Member(t *testing.T) {
	server, addr := startServerHandle(t)

	alice := dial(t, addr)
	alice.handshake("r", "alice", "secret")
	bob := dial(t, addr)
	bob.handshake("r", "bob", "hunter2")
	alice.expect("bob has joined the chatroom")

	server.Shutdown("Server has shutdown. Disconnected.")

	alice.expect("Server has shutdown. Disconnected.")
	bob.expect("Server has shutdown. Disconnected.")
	alice.expectEOF()
	bob.expectEOF()
}
