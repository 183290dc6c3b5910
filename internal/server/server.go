// internal/server/server.go
package server

import (
	"bufio"
	"context"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"matcharena/internal/engine"
	"matcharena/internal/session"
)

// Server accepts TCP connections and runs one session per connection. It is
// thin plumbing: framing happens in lineConn, everything stateful lives in
// the engine and the sessions.
type Server struct {
	eng         *engine.Engine
	log         *logrus.Logger
	waitTimeout time.Duration

	ln net.Listener
}

func New(eng *engine.Engine, log *logrus.Logger, waitTimeout time.Duration) *Server {
	return &Server{eng: eng, log: log, waitTimeout: waitTimeout}
}

// Listen binds addr. Split from Serve so tests can bind port 0 and read the
// real address back.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.log.WithField("addr", ln.Addr().String()).Info("listening for incoming connections")
	return nil
}

// Addr returns the bound listener address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until the context is cancelled or the listener
// fails. Each accepted connection gets its own session goroutine.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.log.WithField("remote", conn.RemoteAddr().String()).Info("accepted connection")

		sess := session.New(s.eng, newLineConn(conn), s.log, s.waitTimeout)
		go sess.Serve(ctx)
	}
}

// lineConn frames a TCP stream into newline-delimited commands, delimiter
// stripped on the way in and restored on the way out.
type lineConn struct {
	conn net.Conn
	r    *bufio.Reader
}

func newLineConn(conn net.Conn) *lineConn {
	return &lineConn{conn: conn, r: bufio.NewReader(conn)}
}

func (c *lineConn) ReadLine(_ context.Context) (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *lineConn) WriteLine(_ context.Context, line string) error {
	_, err := c.conn.Write([]byte(line + "\n"))
	return err
}

func (c *lineConn) Close() error {
	return c.conn.Close()
}
