package conn

import "sync"

// Token is a single subscriber session's handle on a tenant's shutdown
// broadcast. The session handler selects on Done() and must call
// Release when it exits. Calling Release more than once is safe — only
// the first call has an effect.
type Token struct {
	tenantID string
	manager  *Manager
	sender   *sender
	once     sync.Once
}

func newToken(tenantID string, manager *Manager, snd *sender) *Token {
	return &Token{tenantID: tenantID, manager: manager, sender: snd}
}

// Done returns the channel that closes when this tenant's sessions are
// told to shut down, by ShutdownClient or by the quota checker.
func (t *Token) Done() <-chan struct{} {
	return t.sender.done()
}

// TenantID returns the tenant this token was registered for.
func (t *Token) TenantID() string {
	return t.tenantID
}

// Release drops this session's reference. Once every Token for a tenant
// has been released, the manager removes the tenant's entry.
func (t *Token) Release() {
	t.once.Do(func() {
		t.manager.release(t.tenantID, t.sender)
	})
}
