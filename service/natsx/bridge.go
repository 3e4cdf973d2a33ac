package natsx

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"PRelay/logger"
)

// Envelope is one relayed broadcast. ChannelID is empty for global events
// (presence); Origin lets nodes drop their own publications.
type Envelope struct {
	Origin    string          `json:"origin"`
	ChannelID string          `json:"channel_id,omitempty"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	TS        int64           `json:"ts"`
}

// Bridge mirrors broadcasts between relay nodes over core NATS pub/sub.
// No JetStream: bridged events are as ephemeral as the broadcasts they
// mirror, a disconnected node simply misses them and clients re-sync from
// the backend-of-record on their next command. A nil bridge is valid and
// does nothing.
type Bridge struct {
	nc      *nats.Conn
	subject string
	origin  string
	sub     *nats.Subscription
}

func NewBridge(url, subject, origin string) (*Bridge, error) {
	if subject == "" {
		subject = "relay.fanout"
	}
	nc, err := nats.Connect(url,
		nats.Name("relay-bridge-"+origin),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, errors.Wrap(err, "nats connect")
	}
	return &Bridge{nc: nc, subject: subject, origin: origin}, nil
}

// Start subscribes and feeds foreign envelopes to handler. Own-origin
// messages are dropped so local broadcasts never replay into themselves.
func (b *Bridge) Start(handler func(Envelope)) error {
	if b == nil {
		return nil
	}
	sub, err := b.nc.Subscribe(b.subject, func(msg *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			logger.Warnf("[bridge] bad envelope: %v", err)
			return
		}
		if env.Origin == b.origin {
			return
		}
		handler(env)
	})
	if err != nil {
		return errors.Wrap(err, "bridge subscribe")
	}
	b.sub = sub
	return nil
}

// Publish mirrors one broadcast to the other nodes. Best-effort: a publish
// failure is logged and forgotten, local delivery already happened.
func (b *Bridge) Publish(channelID, event string, payload json.RawMessage) {
	if b == nil {
		return
	}
	env := Envelope{
		Origin:    b.origin,
		ChannelID: channelID,
		Event:     event,
		Payload:   payload,
		TS:        time.Now().UnixMilli(),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		logger.Errorf("[bridge] marshal failed event=%s err=%v", event, err)
		return
	}
	if err := b.nc.Publish(b.subject, raw); err != nil {
		logger.Warnf("[bridge] publish failed event=%s err=%v", event, err)
	}
}

// Close drains the subscription and the connection.
func (b *Bridge) Close() {
	if b == nil {
		return
	}
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	b.nc.Close()
}
