package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"PRelay/logger"
)

// Conn is the relay's view of one live client connection: an addressable
// endpoint events can be pushed to. The registry and group projections hold
// these; tests substitute fakes.
type Conn interface {
	ID() string
	Identity() Identity
	Deliver(event string, payload any) error
	DeliverReply(event string, id uint64, payload any) error
	Close()
}

const defaultSendQueue = 256

// wsConn wraps a gorilla connection with a buffered send queue drained by a
// single writer goroutine. All pushes go through the queue; a full queue
// drops the frame rather than blocking the caller's fan-out loop.
type wsConn struct {
	id       string
	identity Identity

	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newWSConn(id string, identity Identity, ws *websocket.Conn, queueSize int) *wsConn {
	if queueSize <= 0 {
		queueSize = defaultSendQueue
	}
	c := &wsConn{
		id:       id,
		identity: identity,
		ws:       ws,
		send:     make(chan []byte, queueSize),
		done:     make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *wsConn) ID() string         { return c.id }
func (c *wsConn) Identity() Identity { return c.identity }

func (c *wsConn) Deliver(event string, payload any) error {
	return c.DeliverReply(event, 0, payload)
}

func (c *wsConn) DeliverReply(event string, id uint64, payload any) error {
	raw, err := EncodeEventFrame(event, id, payload)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case c.send <- raw:
		return nil
	default:
		// slow client: drop instead of stalling every other subscriber
		logger.Warnf("[conn] send queue full, dropping frame conn=%s user=%s event=%s",
			c.id, c.identity.UserID, event)
		return nil
	}
}

// Close stops the writer and closes the socket. Safe to call more than once.
func (c *wsConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *wsConn) writeLoop() {
	defer func() {
		_ = c.ws.Close()
	}()
	for {
		select {
		case <-c.done:
			deadline := time.Now().Add(2 * time.Second)
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		case raw := <-c.send:
			if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
				logger.Infof("[conn] write failed conn=%s err=%v", c.id, err)
				return
			}
		}
	}
}
