package relay

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// CommandFrame is what a client sends: a named command, an optional ack id
// the reply will echo back, and a free-form argument object.
type CommandFrame struct {
	Event string         `json:"event"`
	ID    uint64         `json:"id,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// EventFrame is what the relay pushes: replies (with the echoed id) and
// broadcasts (without one).
type EventFrame struct {
	Event string `json:"event"`
	ID    uint64 `json:"id,omitempty"`
	Data  any    `json:"data"`
}

func ParseCommandFrame(raw []byte) (*CommandFrame, error) {
	f := &CommandFrame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errors.Wrap(err, "unmarshal frame")
	}
	if f.Event == "" {
		return nil, errors.New("frame missing event")
	}
	return f, nil
}

func EncodeEventFrame(event string, id uint64, data any) ([]byte, error) {
	return json.Marshal(EventFrame{Event: event, ID: id, Data: data})
}

// Reply payload helpers. Every reply carries success; errors add the
// user-visible message and nothing else.

func okReply(extra map[string]any) map[string]any {
	out := map[string]any{"success": true}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func errReply(msg string) map[string]any {
	return map[string]any{"success": false, "error": msg}
}
