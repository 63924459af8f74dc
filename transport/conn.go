package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// Conn wraps a single client's websocket connection: one read loop and
// one ping loop, no reconnect or backoff logic (that is the client's
// responsibility per spec.md §5). Writes go through Send, which is safe
// to call from multiple goroutines; reads are delivered over Frames.
type Conn struct {
	ws *websocket.Conn

	sendMu sync.Mutex
	frames chan *ClientFrame
	errs   chan error

	closeOnce sync.Once
	done      chan struct{}
}

// NewConn wraps ws and immediately starts its read pump in a background
// goroutine. Decoded client frames arrive on Frames(); a fatal read
// error (including disconnect) arrives on Errors() and closes the
// Frames channel. The Errors channel is never closed.
func NewConn(ws *websocket.Conn) *Conn {
	c := &Conn{
		ws:     ws,
		frames: make(chan *ClientFrame, 32),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go c.readPump()
	go c.pingLoop()
	return c
}

// Frames returns the channel of successfully decoded client frames.
func (c *Conn) Frames() <-chan *ClientFrame { return c.frames }

// Errors returns the channel the first fatal connection error (read or
// ping failure) is delivered on; at most one error is delivered.
func (c *Conn) Errors() <-chan error { return c.errs }

func (c *Conn) readPump() {
	defer close(c.frames)
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}
		frame, err := DecodeClientFrame(raw)
		if err != nil {
			// A malformed frame doesn't close the connection; the relay
			// layer is expected to NOTICE and continue.
			select {
			case c.frames <- &ClientFrame{Type: FrameMalformed, DecodeErr: err}:
			case <-c.done:
				return
			}
			continue
		}
		select {
		case c.frames <- frame:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sendMu.Lock()
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.sendMu.Unlock()
			if err != nil {
				c.fail(err)
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) fail(err error) {
	select {
	case c.errs <- err:
	default:
	}
	c.Close()
}

// Send writes a pre-encoded frame to the client. Safe for concurrent
// use.
func (c *Conn) Send(payload []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Close shuts down the connection and stops both pumps. Idempotent.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}
