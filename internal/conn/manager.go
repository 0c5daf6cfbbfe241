// Package conn tracks which tenants currently have a live subscriber
// session and lets an operator or the quota checker broadcast a shutdown
// to every session for a tenant at once.
package conn

import (
	"hash/fnv"
	"sync"
)

// shardCount is the number of independent shard maps the tenant table is
// split across, so registrations and removals for tenants that hash to
// different shards never contend on the same mutex.
const shardCount = 32

type shard struct {
	mu sync.RWMutex
	m  map[string]*sender
}

// Manager is the concurrent, sharded table mapping tenant ID to its
// shutdown broadcast sender. The zero value is not usable — construct
// with NewManager.
type Manager struct {
	shards [shardCount]*shard
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	m := &Manager{}
	for i := range m.shards {
		m.shards[i] = &shard{m: make(map[string]*sender)}
	}
	return m
}

func (m *Manager) shardFor(tenantID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tenantID))
	return m.shards[h.Sum32()%shardCount]
}

// RegisterTeam registers a new subscriber session for tenantID, creating
// the tenant's broadcast entry if this is the first live session, and
// returns a Token scoped to that session. The insert-if-absent is atomic
// with respect to concurrent registrations for the same tenant: both
// take the same shard lock.
func (m *Manager) RegisterTeam(tenantID string) *Token {
	sh := m.shardFor(tenantID)

	sh.mu.Lock()
	snd, ok := sh.m[tenantID]
	if !ok {
		snd = newSender()
		sh.m[tenantID] = snd
	}
	snd.subscribe()
	sh.mu.Unlock()

	return newToken(tenantID, m, snd)
}

// ShutdownClient broadcasts a shutdown to every live session currently
// registered for tenantID. It is a no-op if no session is registered.
func (m *Manager) ShutdownClient(tenantID string) {
	sh := m.shardFor(tenantID)

	sh.mu.RLock()
	snd, ok := sh.m[tenantID]
	sh.mu.RUnlock()

	if ok {
		snd.trigger()
	}
}

// ListActiveTeams returns the tenant IDs with at least one live session.
// The snapshot is taken shard by shard, so it is not atomic across the
// whole table under concurrent registration/release.
func (m *Manager) ListActiveTeams() []string {
	var ids []string
	for _, sh := range m.shards {
		sh.mu.RLock()
		for id := range sh.m {
			ids = append(ids, id)
		}
		sh.mu.RUnlock()
	}
	return ids
}

// release is called exactly once by a Token when it is released. If the
// decremented observer count reaches zero, it re-checks under the shard
// lock that the map still holds this exact sender with zero observers
// before deleting — a racing RegisterTeam either reuses the still-present
// entry (bumping the count back above zero, so the delete is skipped) or
// runs after the delete and inserts a fresh sender, and both are correct.
func (m *Manager) release(tenantID string, snd *sender) {
	if snd.release() > 0 {
		return
	}

	sh := m.shardFor(tenantID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if cur, ok := sh.m[tenantID]; ok && cur == snd && cur.count() == 0 {
		delete(sh.m, tenantID)
	}
}
