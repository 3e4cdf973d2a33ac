package relay

import (
	"encoding/json"
	"sync"

	"PRelay/logger"
)

// Groups holds the volatile channel -> connections projection. The
// backend-of-record's persisted membership is authoritative; this map is
// rebuilt from scratch as connections (re)subscribe, so losing it costs
// nothing. A dual index (channel->conns, conn->channels) keeps teardown
// proportional to the connection's own subscriptions.
type Groups struct {
	mu      sync.RWMutex
	byGroup map[string]map[string]Conn     // channelID -> connID -> Conn
	byConn  map[string]map[string]struct{} // connID -> set<channelID>

	// publish, when set, mirrors local broadcasts onto the cross-node
	// bridge. Never called under the lock.
	publish func(channelID, event string, payload json.RawMessage)
}

func NewGroups() *Groups {
	return &Groups{
		byGroup: make(map[string]map[string]Conn),
		byConn:  make(map[string]map[string]struct{}),
	}
}

// SetPublisher attaches the cross-node mirror hook. Call before serving.
func (g *Groups) SetPublisher(fn func(channelID, event string, payload json.RawMessage)) {
	g.publish = fn
}

// Subscribe is an idempotent membership toggle.
func (g *Groups) Subscribe(channelID string, c Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()

	set := g.byGroup[channelID]
	if set == nil {
		set = make(map[string]Conn)
		g.byGroup[channelID] = set
	}
	set[c.ID()] = c

	rev := g.byConn[c.ID()]
	if rev == nil {
		rev = make(map[string]struct{})
		g.byConn[c.ID()] = rev
	}
	rev[channelID] = struct{}{}
}

// Unsubscribe removes one connection from one channel. Unknown pairs are a
// no-op.
func (g *Groups) Unsubscribe(channelID string, c Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unsubscribeLocked(channelID, c.ID())
}

func (g *Groups) unsubscribeLocked(channelID, connID string) {
	if set := g.byGroup[channelID]; set != nil {
		delete(set, connID)
		if len(set) == 0 {
			delete(g.byGroup, channelID)
		}
	}
	if rev := g.byConn[connID]; rev != nil {
		delete(rev, channelID)
		if len(rev) == 0 {
			delete(g.byConn, connID)
		}
	}
}

// UnsubscribeAll removes the connection from every group it was in and
// returns the affected channel ids. Called exactly once at teardown so a
// dead connection can never appear in any future fan-out.
func (g *Groups) UnsubscribeAll(c Conn) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	rev, ok := g.byConn[c.ID()]
	if !ok {
		return nil
	}
	affected := make([]string, 0, len(rev))
	for channelID := range rev {
		affected = append(affected, channelID)
		if set := g.byGroup[channelID]; set != nil {
			delete(set, c.ID())
			if len(set) == 0 {
				delete(g.byGroup, channelID)
			}
		}
	}
	delete(g.byConn, c.ID())
	return affected
}

// Drop force-unsubscribes every connection from a channel (channel
// deletion).
func (g *Groups) Drop(channelID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	set := g.byGroup[channelID]
	for connID := range set {
		if rev := g.byConn[connID]; rev != nil {
			delete(rev, channelID)
			if len(rev) == 0 {
				delete(g.byConn, connID)
			}
		}
	}
	delete(g.byGroup, channelID)
}

// Members snapshots the connections currently subscribed to a channel.
func (g *Groups) Members(channelID string) []Conn {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set := g.byGroup[channelID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// Channels returns the channel ids a connection is subscribed to.
func (g *Groups) Channels(c Conn) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rev := g.byConn[c.ID()]
	if len(rev) == 0 {
		return nil
	}
	out := make([]string, 0, len(rev))
	for channelID := range rev {
		out = append(out, channelID)
	}
	return out
}

// Broadcast pushes event to every live subscriber of the channel,
// optionally excluding originating connections (typing indicators never
// echo back to their sender). Delivery failures are logged, never
// propagated: a half-failed fan-out must not fail the command that
// triggered it.
func (g *Groups) Broadcast(channelID, event string, payload any, exclude ...string) {
	g.localBroadcast(channelID, event, payload, exclude...)

	if g.publish != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			logger.Errorf("[groups] bridge marshal failed channel=%s event=%s err=%v", channelID, event, err)
			return
		}
		g.publish(channelID, event, raw)
	}
}

// localBroadcast fans out to this node's subscribers only. Bridge receipts
// land here so they are not re-published in a loop.
func (g *Groups) localBroadcast(channelID, event string, payload any, exclude ...string) {
	conns := g.Members(channelID)
	if len(conns) == 0 {
		return
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	for _, c := range conns {
		if _, ok := skip[c.ID()]; ok {
			continue
		}
		if err := c.Deliver(event, payload); err != nil {
			logger.Warnf("[groups] broadcast delivery failed channel=%s event=%s conn=%s err=%v",
				channelID, event, c.ID(), err)
		}
	}
}
