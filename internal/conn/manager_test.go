package conn

import "testing"

// Seed scenario 5: registering the same tenant twice shares one map
// entry with two observers; releasing one leaves the entry in place,
// releasing the second removes it.
func TestTokenCleanup(t *testing.T) {
	m := NewManager()

	t1a := m.RegisterTeam("t1")
	t1b := m.RegisterTeam("t1")

	active := m.ListActiveTeams()
	if len(active) != 1 || active[0] != "t1" {
		t.Fatalf("active teams = %v, want [t1]", active)
	}

	t1a.Release()
	active = m.ListActiveTeams()
	if len(active) != 1 {
		t.Fatalf("active teams after first release = %v, want entry to remain", active)
	}

	t1b.Release()
	active = m.ListActiveTeams()
	if len(active) != 0 {
		t.Fatalf("active teams after second release = %v, want entry to be gone", active)
	}
}

// Releasing a token more than once must not panic or double-decrement.
func TestTokenReleaseIsIdempotent(t *testing.T) {
	m := NewManager()
	tok := m.RegisterTeam("t1")
	tok.Release()
	tok.Release()

	if active := m.ListActiveTeams(); len(active) != 0 {
		t.Fatalf("active teams = %v, want none", active)
	}
}

// ShutdownClient broadcasts to every live token for a tenant, and leaves
// other tenants untouched.
func TestShutdownClientOnlyAffectsTargetTenant(t *testing.T) {
	m := NewManager()
	t1 := m.RegisterTeam("t1")
	t2 := m.RegisterTeam("t2")

	m.ShutdownClient("t1")

	select {
	case <-t1.Done():
	default:
		t.Fatal("t1's token should have observed the shutdown broadcast")
	}

	select {
	case <-t2.Done():
		t.Fatal("t2's token should not have observed a shutdown broadcast")
	default:
	}

	// The map entry is untouched by ShutdownClient; only releasing the
	// token removes it.
	if active := m.ListActiveTeams(); len(active) != 2 {
		t.Fatalf("active teams = %v, want both still present", active)
	}

	t1.Release()
	t2.Release()
}

// A registration racing a release of the last token for the same tenant
// must either reuse the still-present entry or create a fresh one after
// removal — the entry must never end up both absent and over-referenced.
func TestRegisterRaceDuringRelease(t *testing.T) {
	m := NewManager()
	first := m.RegisterTeam("t1")

	done := make(chan *Token, 1)
	go func() {
		done <- m.RegisterTeam("t1")
	}()

	first.Release()
	second := <-done

	if active := m.ListActiveTeams(); len(active) != 1 {
		t.Fatalf("active teams = %v, want exactly one entry for t1", active)
	}

	second.Release()
	if active := m.ListActiveTeams(); len(active) != 0 {
		t.Fatalf("active teams = %v, want none after final release", active)
	}
}
