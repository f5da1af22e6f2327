package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"buildhub-client/src/internal/config"
	"buildhub-client/src/internal/models"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// Connection is the single realtime channel used for live features. It is
// constructed once with automatic connection disabled; ConnectWithToken is
// the only entry point that establishes connectivity. The transport reads
// handshake headers only at dial time, so the session token must be attached
// before the dial, and a token change requires closing the stale connection
// before reconnecting — otherwise the backend keeps attributing traffic to
// the old identity.
//
// There is no reconnect-on-drop policy: a dropped connection stays down
// until the next authentication transition dials again.
type Connection struct {
	url     string
	timeout time.Duration

	mu    sync.Mutex
	conn  *websocket.Conn
	token string
}

func NewConnection(cfg *config.Configuration) *Connection {
	timeout := time.Duration(cfg.Realtime.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Connection{url: cfg.Realtime.URL, timeout: timeout}
}

// ConnectWithToken dials the realtime endpoint with the session token in the
// handshake headers. Calling it while connected with the same token is a
// no-op; with a different token it re-authenticates by disconnecting first.
func (c *Connection) ConnectWithToken(ctx context.Context, token string) error {
	if token == "" {
		return models.ErrMissingToken
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		if c.token == token {
			logrus.Debug("Realtime connection already established with this token")
			return nil
		}
		logrus.Info("Session token changed, re-authenticating realtime connection")
		if err := c.conn.Close(websocket.StatusNormalClosure, "reauthenticate"); err != nil {
			logrus.WithError(err).Debug("Failed to close stale realtime connection")
		}
		c.conn = nil
		c.token = ""
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	h := http.Header{}
	h.Set("authtoken", token)

	conn, resp, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{
		HTTPHeader: h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		logrus.WithError(err).WithField("url", c.url).Warn("Realtime connect failed")
		return err
	}

	c.conn = conn
	c.token = token
	logrus.WithField("url", c.url).Info("Realtime connection established")
	return nil
}

// Disconnect closes the connection if one is established. Idempotent.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return
	}
	if err := c.conn.Close(websocket.StatusNormalClosure, "logout"); err != nil {
		logrus.WithError(err).Debug("Failed to close realtime connection")
	}
	c.conn = nil
	c.token = ""
	logrus.Info("Realtime connection closed")
}

// Connected reports whether a connection is currently established.
func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Write sends a text payload over the established connection.
func (c *Connection) Write(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return models.ErrNotConnected
	}
	return conn.Write(ctx, websocket.MessageText, payload)
}
