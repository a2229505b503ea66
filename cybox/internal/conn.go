package internal

import (
	"context"
	"time"

	"github.com/coder/websocket"
)

// Conn wraps a websocket.Conn with a write deadline and text-frame
// framing. The chat protocol is text-only; binary frames are skipped.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
}

func NewConn(ws *websocket.Conn, writeTimeout time.Duration) *Conn {
	ws.SetReadLimit(1 << 20)
	return &Conn{ws: ws, writeTimeout: writeTimeout}
}

// ReadText blocks until the next text frame arrives. It returns the
// frame verbatim. Close frames and transport failures surface as errors
// from the underlying connection.
func (c *Conn) ReadText(ctx context.Context) (string, error) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return "", err
		}
		if typ != websocket.MessageText {
			continue
		}
		return string(data), nil
	}
}

// WriteText sends one text frame, bounded by the write timeout.
func (c *Conn) WriteText(ctx context.Context, text string) error {
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	return c.ws.Write(ctx, websocket.MessageText, []byte(text))
}

// Close starts the close handshake.
func (c *Conn) Close(code websocket.StatusCode, reason string) error {
	return c.ws.Close(code, reason)
}
