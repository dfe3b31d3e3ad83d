package ws

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/0-th/antenna-client/pkg/types"
)

// Conn is the persistent room channel. It only moves frames: reconnect and
// backoff policy belong to the owner, which dials a fresh Conn after a drop.
type Conn struct {
	conn   *websocket.Conn
	logger *zap.Logger
}

// Dial opens the websocket channel for one room. baseURL is the http(s) API
// origin; the scheme is switched to ws(s) for the channel path.
func Dial(ctx context.Context, baseURL, roomID, token string, logger *zap.Logger) (*Conn, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/room/" + roomID + "/channel"

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	c, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}
	c.SetReadLimit(1 << 20)

	return &Conn{conn: c, logger: logger.With(zap.String("room", roomID))}, nil
}

// Send encodes and writes one command frame.
func (c *Conn) Send(ctx context.Context, cmd types.Outbound) error {
	payload, err := types.EncodeOutbound(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

// ReadLoop delivers each inbound frame until the connection drops or ctx is
// canceled. A clean close returns nil; anything else returns the read error
// so the owner can decide whether to redial.
func (c *Conn) ReadLoop(ctx context.Context, deliver func(data []byte)) error {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Debug("read loop ended", zap.Error(err))
			return err
		}
		deliver(data)
	}
}

func (c *Conn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}
