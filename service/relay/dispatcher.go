package relay

import (
	"context"
	"sync"

	"PRelay/logger"
)

// ReplyFunc delivers the command's single reply. The dispatcher wraps it in
// a guard: the first call wins, later calls are dropped, so "exactly one
// reply per command" holds no matter how a handler is written.
type ReplyFunc func(data map[string]any)

type HandlerFunc func(ctx context.Context, s *Server, c Conn, args map[string]any, reply ReplyFunc)

// Dispatcher routes one named command at a time to its handler. Commands on
// the same connection are dispatched sequentially by that connection's read
// loop; the dispatcher itself holds no state that needs locking after
// registration.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	silent   map[string]bool // fire-and-forget: no reply, ever
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		silent:   make(map[string]bool),
	}
}

func (d *Dispatcher) Register(name string, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
}

// RegisterSilent registers a fire-and-forget command: its reply func is a
// no-op and errors never surface to the sender.
func (d *Dispatcher) RegisterSilent(name string, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
	d.silent[name] = true
}

func (d *Dispatcher) Dispatch(ctx context.Context, s *Server, c Conn, f *CommandFrame) {
	d.mu.RLock()
	h, ok := d.handlers[f.Event]
	silent := d.silent[f.Event]
	d.mu.RUnlock()

	reply := newReplyGuard(c, f.Event, f.ID)
	if !ok {
		logger.Infof("[dispatch] unknown command=%s conn=%s", f.Event, c.ID())
		reply(errReply("Unknown command"))
		return
	}
	if silent {
		reply = func(map[string]any) {}
	}

	h(ctx, s, c, f.Data, reply)
}

func newReplyGuard(c Conn, event string, id uint64) ReplyFunc {
	var once sync.Once
	return func(data map[string]any) {
		once.Do(func() {
			if err := c.DeliverReply(event, id, data); err != nil {
				logger.Warnf("[dispatch] reply delivery failed conn=%s event=%s err=%v", c.ID(), event, err)
			}
		})
	}
}
