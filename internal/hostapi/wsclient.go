package hostapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/gantrydata/gantry/internal/core"
)

// wsConnectionTimeout is the maximum lifetime of a guest WebSocket connection.
const wsConnectionTimeout = 5 * time.Minute

// maxWSMessageBytes is the maximum size of a single WebSocket message (64 KB).
const maxWSMessageBytes = 64 * 1024

// wsPool tracks the open guest WebSocket connections by handle id.
type wsPool struct {
	mu     sync.Mutex
	nextID int64
	conns  map[string]*wsConn
}

type wsConn struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

func (p *wsPool) add(c *wsConn) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := strconv.FormatInt(p.nextID, 10)
	p.conns[id] = c
	return id
}

func (p *wsPool) get(id string) (*wsConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.conns[id]
	if !ok {
		return nil, fmt.Errorf("no open WebSocket with handle %s", id)
	}
	return c, nil
}

func (p *wsPool) remove(id string) *wsConn {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.conns[id]
	delete(p.conns, id)
	return c
}

// wsReceiveResult frames one receive so the guest can tell data from close.
type wsReceiveResult struct {
	Closed bool   `json:"closed"`
	Data   string `json:"data"`
}

// wsJS exposes the synchronous guest WebSocket client.
const wsJS = `
__registerBuiltin('ws', function() {
	return {
		connect: function(url) {
			var id = __ws_connect(String(url));
			return {
				send: function(data) {
					__ws_send(id, String(data));
				},
				receive: function(timeoutMs) {
					var r = JSON.parse(__ws_receive(id, timeoutMs == null ? 0 : timeoutMs));
					return r.closed ? null : r.data;
				},
				close: function(code, reason) {
					__ws_close(id, code == null ? 1000 : code, reason == null ? '' : String(reason));
				}
			};
		}
	};
});
`

// setupWS registers the blocking WebSocket client backing require('ws').
// Text frames only; streaming feeds that need binary can base64 at the
// sending side.
func setupWS(rt core.ScriptRuntime, _ *Options) error {
	pool := &wsPool{conns: make(map[string]*wsConn)}

	if err := rt.RegisterFunc("__ws_connect", func(url string) (string, error) {
		ctx, cancel := context.WithTimeout(context.Background(), wsConnectionTimeout)
		conn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			cancel()
			return "", fmt.Errorf("connecting to %s: %w", url, err)
		}
		conn.SetReadLimit(maxWSMessageBytes)
		return pool.add(&wsConn{conn: conn, ctx: ctx, cancel: cancel}), nil
	}); err != nil {
		return err
	}

	if err := rt.RegisterFunc("__ws_send", func(id, data string) (string, error) {
		c, err := pool.get(id)
		if err != nil {
			return "", err
		}
		if err := c.conn.Write(c.ctx, websocket.MessageText, []byte(data)); err != nil {
			return "", fmt.Errorf("sending on WebSocket %s: %w", id, err)
		}
		return "", nil
	}); err != nil {
		return err
	}

	if err := rt.RegisterFunc("__ws_receive", func(id string, timeoutMs int) (string, error) {
		c, err := pool.get(id)
		if err != nil {
			return "", err
		}
		ctx := c.ctx
		if timeoutMs > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(c.ctx, time.Duration(timeoutMs)*time.Millisecond)
			defer cancel()
		}
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				out, _ := json.Marshal(wsReceiveResult{Closed: true})
				return string(out), nil
			}
			return "", fmt.Errorf("receiving on WebSocket %s: %w", id, err)
		}
		out, mErr := json.Marshal(wsReceiveResult{Data: string(data)})
		if mErr != nil {
			return "", mErr
		}
		return string(out), nil
	}); err != nil {
		return err
	}

	if err := rt.RegisterFunc("__ws_close", func(id string, code int, reason string) (string, error) {
		c := pool.remove(id)
		if c == nil {
			return "", nil // closing twice is not an error
		}
		err := c.conn.Close(websocket.StatusCode(code), reason)
		c.cancel()
		if err != nil {
			return "", fmt.Errorf("closing WebSocket %s: %w", id, err)
		}
		return "", nil
	}); err != nil {
		return err
	}

	return rt.Eval(wsJS)
}
