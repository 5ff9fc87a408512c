// Package relay drives transient WebSocket subscriptions against a Nostr
// relay: opening one REQ, draining the resulting stream under fixed time
// and count bounds, and closing it again.
package relay

import (
	"context"
	"encoding/json"

	"github.com/coder/websocket"

	"relaygate.dev/internal/chk"
)

// Connection is a single outbound gateway -> relay WebSocket. Every driver
// invocation and every publish attempt opens its own Connection and closes
// it on every exit path.
type Connection struct {
	conn *websocket.Conn
}

// Dial opens a new Connection to url. The context bounds only the
// handshake; callers pass their own context to WriteJSON/ReadFrame for the
// lifetime of the connection.
func Dial(ctx context.Context, url string) (*Connection, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(1 << 22)
	return &Connection{conn: conn}, nil
}

// WriteJSON marshals v and sends it as a single text frame.
func (c *Connection) WriteJSON(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if chk.E(err) {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// ReadFrame blocks for the next text or binary frame and returns its raw
// bytes. Control frames are handled transparently by the underlying
// library and never surface here.
func (c *Connection) ReadFrame(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	return data, err
}

// WriteRaw sends data as a single text frame verbatim, with no
// marshaling. The relay driver uses this to splice canonical filter bytes
// directly into an outgoing REQ frame: re-serializing a filter struct
// would drop unknown tag families and reorder keys.
func (c *Connection) WriteRaw(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// Close closes the Connection with a normal closure status. Best-effort:
// errors are logged, not returned, since every caller treats CLOSE as a
// best-effort courtesy to the relay rather than a condition to recover
// from.
func (c *Connection) Close() {
	chk.T(c.conn.Close(websocket.StatusNormalClosure, ""))
}
