// internal/server/ws.go
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"matcharena/internal/engine"
	"matcharena/internal/session"
)

// Subprotocol clients must negotiate on the websocket transport.
const Subprotocol = "matchmaking"

// WSHandler exposes the same line protocol over a websocket: each text
// message carries exactly one command and each reply or push notice arrives
// as one text message. The session core behind it is identical to the TCP
// one, so a websocket client and a raw TCP client can be paired together.
func WSHandler(eng *engine.Engine, logger *logrus.Logger, waitTimeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		if c.Subprotocol() != Subprotocol {
			c.Close(websocket.StatusPolicyViolation, "client must speak the matchmaking subprotocol")
			return
		}
		logger.WithField("remote", r.RemoteAddr).Info("websocket client connected")

		sess := session.New(eng, &wsConn{c: c}, logger, waitTimeout)
		sess.Serve(r.Context())
	}
}

// wsConn adapts a websocket connection to the session's line transport.
// Message framing replaces newline framing; the delimiter never appears on
// the wire.
type wsConn struct {
	c *websocket.Conn
}

func (c *wsConn) ReadLine(ctx context.Context) (string, error) {
	for {
		typ, data, err := c.c.Read(ctx)
		if err != nil {
			return "", err
		}
		if typ != websocket.MessageText {
			continue
		}
		return string(data), nil
	}
}

func (c *wsConn) WriteLine(ctx context.Context, line string) error {
	return c.c.Write(ctx, websocket.MessageText, []byte(line))
}

func (c *wsConn) Close() error {
	return c.c.Close(websocket.StatusNormalClosure, "session closed")
}
