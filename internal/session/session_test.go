// internal/session/session_test.go
package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matcharena/internal/engine"
)

// pipeConn is an in-memory line transport for driving a session without a
// socket.
type pipeConn struct {
	in  chan string
	out chan string

	once   sync.Once
	closed chan struct{}
}

func newPipeConn() *pipeConn {
	return &pipeConn{
		in:     make(chan string, 16),
		out:    make(chan string, 16),
		closed: make(chan struct{}),
	}
}

func (c *pipeConn) ReadLine(ctx context.Context) (string, error) {
	select {
	case line := <-c.in:
		return line, nil
	case <-c.closed:
		return "", errors.New("connection closed")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *pipeConn) WriteLine(_ context.Context, line string) error {
	select {
	case c.out <- line:
		return nil
	case <-c.closed:
		return errors.New("connection closed")
	}
}

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *pipeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

const testWaitTimeout = 80 * time.Millisecond

func newSessionEnv(t *testing.T) (*engine.Engine, *logrus.Logger) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return engine.New(log, testWaitTimeout), log
}

// startSession runs a session over a fresh pipe and returns the pipe plus a
// channel that closes when Serve returns.
func startSession(t *testing.T, eng *engine.Engine, log *logrus.Logger) (*pipeConn, chan struct{}) {
	t.Helper()
	conn := newPipeConn()
	sess := New(eng, conn, log, testWaitTimeout)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sess.Serve(context.Background())
	}()
	return conn, done
}

func recvLine(t *testing.T, c *pipeConn) string {
	t.Helper()
	select {
	case line := <-c.out:
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a server line")
		return ""
	}
}

func expectSilence(t *testing.T, c *pipeConn, d time.Duration) {
	t.Helper()
	select {
	case line := <-c.out:
		t.Fatalf("unexpected line: %q", line)
	case <-time.After(d):
	}
}

func TestTimeoutNoticeFiresExactlyOnce(t *testing.T) {
	eng, log := newSessionEnv(t)
	conn, _ := startSession(t, eng, log)

	conn.in <- "login,alice,US,1200"
	require.Contains(t, recvLine(t, conn), "You've successfully logged in")

	conn.in <- "match"
	require.Contains(t, recvLine(t, conn), "At the moment there is no suitable match")

	assert.Equal(t, "There is no suitable opponent. Please try later", recvLine(t, conn))
	expectSilence(t, conn, 3*testWaitTimeout)
}

func TestPairingCancelsTimeoutNotice(t *testing.T) {
	eng, log := newSessionEnv(t)
	a, _ := startSession(t, eng, log)
	b, _ := startSession(t, eng, log)

	a.in <- "login,a,US,1500"
	require.Contains(t, recvLine(t, a), "logged in")
	b.in <- "login,b,DE,1550"
	require.Contains(t, recvLine(t, b), "logged in")

	a.in <- "match"
	require.Contains(t, recvLine(t, a), "no suitable match")

	b.in <- "match"
	require.Contains(t, recvLine(t, b), "You've paired with name: a")
	require.Contains(t, recvLine(t, a), "You've paired with name: b")

	// a's armed timer was consumed by the pairing: no timeout notice, ever.
	expectSilence(t, a, 3*testWaitTimeout)
}

func TestRewaitAfterExpiry(t *testing.T) {
	eng, log := newSessionEnv(t)
	conn, _ := startSession(t, eng, log)

	conn.in <- "login,alice,US,1200"
	recvLine(t, conn)
	conn.in <- "match"
	recvLine(t, conn)
	require.Contains(t, recvLine(t, conn), "no suitable opponent")

	// The expired wait moved alice back to singles; asking again re-enters
	// the wait pool with a fresh timer and a fresh, single notice.
	conn.in <- "match"
	require.Contains(t, recvLine(t, conn), "no suitable match")
	require.Contains(t, recvLine(t, conn), "no suitable opponent")
	expectSilence(t, conn, 3*testWaitTimeout)
}

func TestLogoutFlushesReplyThenCloses(t *testing.T) {
	eng, log := newSessionEnv(t)
	conn, done := startSession(t, eng, log)

	conn.in <- "login,alice,US,1200"
	recvLine(t, conn)
	conn.in <- "logout"
	assert.Contains(t, recvLine(t, conn), "You've successfully logged out")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close after logout")
	}
	assert.True(t, conn.isClosed(), "connection must be shut down after the final flush")
	assert.False(t, eng.IsOnline("alice"))
}

func TestCommandBeforeLoginTerminatesSession(t *testing.T) {
	eng, log := newSessionEnv(t)
	conn, done := startSession(t, eng, log)

	conn.in <- "match"
	assert.Equal(t, "You must first log in into the system. Please reconnect again.", recvLine(t, conn))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close after forced logout")
	}
}

func TestDisconnectDissolvesPairing(t *testing.T) {
	eng, log := newSessionEnv(t)
	a, aDone := startSession(t, eng, log)
	b, _ := startSession(t, eng, log)

	a.in <- "login,a,US,1500"
	recvLine(t, a)
	b.in <- "login,b,DE,1550"
	recvLine(t, b)
	a.in <- "match"
	recvLine(t, a)
	b.in <- "match"
	recvLine(t, b)
	require.Contains(t, recvLine(t, a), "You've paired with name: b")

	// Peer reset: no logout command, just a dead transport.
	a.Close()
	select {
	case <-aDone:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not tear down on transport failure")
	}

	assert.Contains(t, recvLine(t, b), "Your opponent logged out from the system: name: a")
	assert.False(t, eng.IsOnline("a"))
	assert.False(t, eng.HasMatch("b"))
}

func TestOutboundWritesSerialized(t *testing.T) {
	eng, log := newSessionEnv(t)
	conn, _ := startSession(t, eng, log)

	conn.in <- "login,alice,US,1200"
	recvLine(t, conn)

	// Burst of commands; every reply must come back intact and in order.
	for i := 0; i < 10; i++ {
		conn.in <- "list_all"
	}
	for i := 0; i < 10; i++ {
		assert.Equal(t, "alice, 1200", recvLine(t, conn))
	}
}
