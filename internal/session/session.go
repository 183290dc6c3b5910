// internal/session/session.go
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"matcharena/internal/engine"
)

// Conn is the framed transport a session drives: one command line in, one
// reply or push line out. Implementations must strip the line delimiter on
// read and append it on write, and must never merge or split lines. The
// listener guarantees at most one outstanding read and one outstanding write
// per connection, which is what keeps the session's write queue correct.
type Conn interface {
	ReadLine(ctx context.Context) (string, error)
	WriteLine(ctx context.Context, line string) error
	Close() error
}

// Session binds one connection to one player profile. It owns the read loop,
// serializes all outbound lines through a single writer goroutine, and owns
// the wait-expiry timer lifecycle. Session implements engine.Player.
type Session struct {
	engine.Profile

	id   uuid.UUID
	eng  *engine.Engine
	conn Conn
	log  *logrus.Logger

	waitTimeout time.Duration

	out chan string

	mu      sync.Mutex
	timer   *time.Timer
	waitSeq uint64
	closing bool // close the connection once queued writes flush
	closed  bool // outbound queue torn down; drop further sends
}

const outboundQueueSize = 32

// New builds a session around an accepted connection. Call Serve to run it.
func New(eng *engine.Engine, conn Conn, log *logrus.Logger, waitTimeout time.Duration) *Session {
	id, _ := uuid.NewV7()
	return &Session{
		id:          id,
		eng:         eng,
		conn:        conn,
		log:         log,
		waitTimeout: waitTimeout,
		out:         make(chan string, outboundQueueSize),
	}
}

// Serve runs the session until the peer disconnects, a transport error
// occurs, or a logout closes the connection. It blocks; the listener calls it
// once per connection. Any state the player still holds in the engine is torn
// down on exit, dissolving a held pairing exactly like an explicit logout.
func (s *Session) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.log.WithField("session", s.id).Info("session started")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writePump(ctx, cancel)
	}()

	// Unblocks a pending read when the session is cancelled from either pump
	// or by server shutdown. Closing twice is harmless.
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	s.readLoop(ctx)

	s.eng.Disconnect(s)
	s.CancelWaiting()

	// Seal the queue, then let the writer drain everything still queued
	// (including a final logout reply) before the connection goes away.
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	close(s.out)

	wg.Wait()
	s.conn.Close()
	s.log.WithFields(logrus.Fields{"session": s.id, "player": s.Name()}).Info("session closed")
}

// readLoop delivers each inbound line to the engine until the transport
// fails, the session context is cancelled, or a command marked the session
// terminal. Dispatch enqueues the reply before returning, so by the time the
// closing flag is observed the final reply is already in the queue.
func (s *Session) readLoop(ctx context.Context) {
	for {
		line, err := s.conn.ReadLine(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.log.WithFields(logrus.Fields{"session": s.id, "error": err}).Debug("read loop ended")
			}
			return
		}
		s.eng.Dispatch(s, line)
		if s.isClosing() {
			return
		}
	}
}

// writePump is the only goroutine that writes to the connection. It runs
// until the queue is sealed and drained, so every line enqueued before the
// session turned terminal reaches the wire before close.
func (s *Session) writePump(ctx context.Context, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-s.out:
			if !ok {
				return
			}
			if err := s.conn.WriteLine(ctx, line); err != nil {
				s.log.WithFields(logrus.Fields{"session": s.id, "error": err}).Warn("write failed")
				cancel()
				return
			}
		}
	}
}

// SendMessage queues one line for delivery. It never blocks: if the peer has
// stalled long enough to fill the queue the line is dropped with a warning,
// so an engine lock-holder is never held up by a slow connection.
func (s *Session) SendMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.out <- msg:
	default:
		s.log.WithField("session", s.id).Warn("outbound queue full, dropping message")
	}
}

// ForceLogout marks the session terminal. The read loop stops after the
// current command, and the connection closes once the writer has flushed
// everything queued, including the reply that follows this call.
func (s *Session) ForceLogout() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
}

func (s *Session) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// WaitForMatch arms the wait-expiry timer. Arming bumps the wait sequence so
// a stale timer from an earlier wait can never deliver its notice.
func (s *Session) WaitForMatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitSeq++
	seq := s.waitSeq
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.waitTimeout, func() {
		s.expireWait(seq)
	})
}

// CancelWaiting disarms the timer. If the callback has already started it
// observes the bumped sequence and emits nothing: cancellation always wins.
func (s *Session) CancelWaiting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitSeq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// expireWait runs on natural timer expiry. It checks cancellation status
// before touching any other state, then confirms the player is still online
// and unpaired before sending the one-shot notice.
func (s *Session) expireWait(seq uint64) {
	s.mu.Lock()
	live := seq == s.waitSeq && s.timer != nil
	if live {
		s.timer = nil
	}
	s.mu.Unlock()
	if !live {
		return
	}

	if s.eng.ExpireWait(s) {
		s.SendMessage("There is no suitable opponent. Please try later")
	}
}
