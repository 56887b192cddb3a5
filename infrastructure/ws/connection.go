package ws

import (
	"chatroomd/domain"
	apperrors "chatroomd/errors"
	"chatroomd/infrastructure/wire"
	"chatroomd/runtime"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

// connection drives one websocket client. The read loop dispatches
// operations; a single write pump serializes request responses and
// room pushes onto the socket. When the read loop exits, for any
// reason, the session handle is released: that is the disconnect
// signal, there is no other.
type connection struct {
	gateway *Gateway
	conn    *websocket.Conn
	remote  string

	out  chan wire.Response
	sink *Sink

	session *domain.Session
	handle  *runtime.SessionHandle
}

func newConnection(gateway *Gateway, conn *websocket.Conn, remote string) *connection {
	return &connection{
		gateway: gateway,
		conn:    conn,
		remote:  remote,
		out:     make(chan wire.Response, 8),
		sink:    NewSink(gateway.bufferSize),
	}
}

func (c *connection) serve() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pump sync.WaitGroup
	pump.Add(1)
	go func() {
		defer pump.Done()
		c.writePump(ctx)
	}()

	c.readLoop(ctx)

	if c.handle != nil {
		c.handle.Release()
	}
	cancel()
	pump.Wait()
	_ = c.conn.Close()
}

func (c *connection) readLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.gateway.log.Warn("Unexpected websocket close", "remote", c.remote, "error", err)
			}
			return
		}

		var req wire.Request
		if err := json.Unmarshal(data, &req); err != nil {
			c.enqueue(ctx, wire.Response{
				Type:  wire.TypeError,
				Error: fmt.Sprintf("malformed request: %v", err),
				Code:  apperrors.CodeRejected,
			})
			continue
		}
		c.enqueue(ctx, c.dispatch(ctx, req))
	}
}

// writePump is the only goroutine writing to the socket. It funnels
// both request responses and fan-out pushes.
func (c *connection) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case resp := <-c.out:
			if !c.write(resp) {
				return
			}
		case message := <-c.sink.Events:
			push := wire.Response{Type: wire.TypeMessage, Message: lo.ToPtr(wire.FromDomainMessage(message))}
			if !c.write(push) {
				return
			}
		}
	}
}

func (c *connection) write(resp wire.Response) bool {
	data, err := json.Marshal(resp)
	if err != nil {
		c.gateway.log.Error("Response encoding failed", "remote", c.remote, "error", err)
		return true
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.gateway.writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.gateway.log.Warn("Websocket write failed", "remote", c.remote, "error", err)
		return false
	}
	return true
}

func (c *connection) enqueue(ctx context.Context, resp wire.Response) {
	select {
	case c.out <- resp:
	case <-ctx.Done():
	}
}
