package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAdmitReportsFirstConnection(t *testing.T) {
	r := NewRegistry()

	c1 := newFakeConn("c1", "alice")
	c2 := newFakeConn("c2", "alice")

	assert.True(t, r.Admit("alice", c1), "first connection must report the transition")
	assert.False(t, r.Admit("alice", c2), "second device is not a transition")
	assert.Equal(t, 2, r.Count("alice"))
}

func TestRegistryAdmitSameHandleTwice(t *testing.T) {
	r := NewRegistry()
	c1 := newFakeConn("c1", "alice")

	assert.True(t, r.Admit("alice", c1))
	assert.False(t, r.Admit("alice", c1), "duplicate admit is a no-op")
	assert.Equal(t, 1, r.Count("alice"))
}

func TestRegistryEvictReportsLastConnection(t *testing.T) {
	r := NewRegistry()
	c1 := newFakeConn("c1", "alice")
	c2 := newFakeConn("c2", "alice")
	r.Admit("alice", c1)
	r.Admit("alice", c2)

	user, last := r.Evict(c1)
	assert.Equal(t, "alice", user)
	assert.False(t, last)

	user, last = r.Evict(c2)
	assert.Equal(t, "alice", user)
	assert.True(t, last, "last eviction must report the transition")
	assert.False(t, r.Online("alice"))
}

func TestRegistryEvictIsIdempotent(t *testing.T) {
	r := NewRegistry()
	c1 := newFakeConn("c1", "alice")
	r.Admit("alice", c1)

	_, last := r.Evict(c1)
	require.True(t, last)

	user, last := r.Evict(c1)
	assert.Empty(t, user, "double evict is a no-op")
	assert.False(t, last)
	assert.Zero(t, r.Count("alice"), "count never goes negative")
}

func TestRegistryEmptyEntryIsAbsent(t *testing.T) {
	r := NewRegistry()
	c1 := newFakeConn("c1", "alice")
	r.Admit("alice", c1)
	r.Evict(c1)

	// the entry must be gone, not present-and-empty
	r.mu.RLock()
	_, exists := r.byUser["alice"]
	r.mu.RUnlock()
	assert.False(t, exists)
	assert.Nil(t, r.HandlesFor("alice"))
}

func TestRegistryHandlesForReturnsAllDevices(t *testing.T) {
	r := NewRegistry()
	c1 := newFakeConn("c1", "alice")
	c2 := newFakeConn("c2", "alice")
	c3 := newFakeConn("c3", "bob")
	r.Admit("alice", c1)
	r.Admit("alice", c2)
	r.Admit("bob", c3)

	handles := r.HandlesFor("alice")
	require.Len(t, handles, 2)
	ids := []string{handles[0].ID(), handles[1].ID()}
	assert.ElementsMatch(t, []string{"c1", "c2"}, ids)

	assert.Len(t, r.AllHandles(), 3)
}

func TestRegistryAdmitEvictSequences(t *testing.T) {
	r := NewRegistry()
	c1 := newFakeConn("c1", "alice")
	c2 := newFakeConn("c2", "alice")

	// arbitrary interleavings never corrupt the count
	r.Admit("alice", c1)
	r.Admit("alice", c2)
	r.Evict(c1)
	r.Evict(c1)
	r.Admit("alice", c1)
	r.Evict(c2)
	r.Evict(c1)

	assert.Zero(t, r.Count("alice"))
	assert.False(t, r.Online("alice"))
}
