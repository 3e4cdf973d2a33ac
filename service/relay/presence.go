package relay

import (
	"context"
	"encoding/json"
	"time"

	"PRelay/logger"
	"PRelay/service/storage"
	"PRelay/tools/safe"
)

// Presence derives global online/offline transitions from registry
// refcounts and reconciles them with the backend-of-record's durable
// online-status field.
//
// The status sync is asynchronous, so by the time it resolves the user may
// have reconnected (or disconnected again). The coordinator therefore
// re-reads the registry at resolution time and broadcasts whatever is true
// *then*; a stale transition is silently replaced by the current one. A
// failed sync still broadcasts, with a relay-local timestamp: presence is
// best-effort, never a correctness guarantee.
type Presence struct {
	reg     *Registry
	backend Backend

	mirror  *storage.PresenceMirror
	publish func(event string, payload json.RawMessage)

	syncTimeout time.Duration
	now         func() time.Time
}

func NewPresence(reg *Registry, b Backend) *Presence {
	return &Presence{
		reg:         reg,
		backend:     b,
		syncTimeout: 10 * time.Second,
		now:         time.Now,
	}
}

// SetMirror attaches the optional redis presence mirror.
func (p *Presence) SetMirror(m *storage.PresenceMirror) { p.mirror = m }

// SetPublisher attaches the optional cross-node event hook.
func (p *Presence) SetPublisher(fn func(event string, payload json.RawMessage)) {
	p.publish = fn
}

// ConnectionOpened reacts to a registry admit. Only a user's first live
// connection is a transition; further devices are silent.
func (p *Presence) ConnectionOpened(ident Identity, first bool) {
	if !first {
		return
	}
	p.mirror.Online(context.Background(), ident.UserID)
	safe.Go(func() { p.syncStatus(ident, true) })
}

// ConnectionClosed reacts to a registry evict. Only the loss of the last
// connection is a transition.
func (p *Presence) ConnectionClosed(ident Identity, last bool) {
	if !last {
		return
	}
	p.mirror.Offline(context.Background(), ident.UserID)
	safe.Go(func() { p.syncStatus(ident, false) })
}

func (p *Presence) syncStatus(ident Identity, online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), p.syncTimeout)
	defer cancel()

	if err := p.backend.ChangeOnlineStatus(ctx, ident.Token, online); err != nil {
		logger.Warnf("[presence] status sync failed user=%s online=%v err=%v", ident.UserID, online, err)
	}

	// The call was a suspension point: broadcast the registry's current
	// truth, not the state that was true when the transition fired.
	current := p.reg.Online(ident.UserID)
	if current != online {
		logger.Infof("[presence] transition superseded user=%s intended=%v current=%v",
			ident.UserID, online, current)
	}

	if current {
		p.broadcast(EvtUserOnline, map[string]any{
			"user_id":      ident.UserID,
			"display_name": ident.DisplayName,
		})
	} else {
		p.broadcast(EvtUserOffline, map[string]any{
			"user_id":   ident.UserID,
			"last_seen": p.now().UTC().Format(time.RFC3339),
		})
	}
}

// broadcast pushes a presence event to every registered connection and
// mirrors it across the bridge when one is attached.
func (p *Presence) broadcast(event string, payload map[string]any) {
	for _, c := range p.reg.AllHandles() {
		if err := c.Deliver(event, payload); err != nil {
			logger.Warnf("[presence] delivery failed conn=%s event=%s err=%v", c.ID(), event, err)
		}
	}
	if p.publish != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			logger.Errorf("[presence] bridge marshal failed event=%s err=%v", event, err)
			return
		}
		p.publish(event, raw)
	}
}
