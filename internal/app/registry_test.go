package app

import (
	"testing"

	"github.com/telecord/telecord/internal/core"
	"github.com/telecord/telecord/internal/domain"
)

func bindUser(t *testing.T, reg *Registry, sid core.SessionID, id domain.UserID, name string) *fakeConn {
	t.Helper()
	conn := &fakeConn{}
	reg.Bind(sid, conn)
	reg.Authenticate(sid, domain.NewUser(id, name))
	return conn
}

func TestJoinReturnsRoommates(t *testing.T) {
	reg := NewRegistry()
	bindUser(t, reg, "sid-a", 1, "alice")
	bindUser(t, reg, "sid-b", 2, "bob")

	mates, ok := reg.Join("general", "sid-a")
	if !ok {
		t.Fatalf("join failed")
	}
	if len(mates) != 0 {
		t.Fatalf("first joiner sees %d roommates, want 0", len(mates))
	}

	mates, ok = reg.Join("general", "sid-b")
	if !ok {
		t.Fatalf("join failed")
	}
	if len(mates) != 1 || mates[0].User.ID != 1 {
		t.Fatalf("bob sees %+v, want exactly alice", mates)
	}

	// A repeat join by alice must now see exactly bob.
	mates, _ = reg.Join("general", "sid-a")
	if len(mates) != 1 || mates[0].User.ID != 2 {
		t.Fatalf("alice sees %+v, want exactly bob", mates)
	}
}

func TestJoinRequiresIdentity(t *testing.T) {
	reg := NewRegistry()
	reg.Bind("sid-x", &fakeConn{})
	if _, ok := reg.Join("general", "sid-x"); ok {
		t.Fatalf("join succeeded without identity")
	}
}

func TestRejoinReplacesMembership(t *testing.T) {
	reg := NewRegistry()
	bindUser(t, reg, "sid-a", 1, "alice")
	bindUser(t, reg, "sid-b", 2, "bob")

	reg.Join("general", "sid-a")
	reg.Join("general", "sid-b")

	// Alice reconnects and joins the same room from a new session.
	bindUser(t, reg, "sid-a2", 1, "alice")
	reg.Join("general", "sid-a2")

	mates := reg.MembersOf("general", 2)
	if len(mates) != 1 || mates[0].User.ID != 1 {
		t.Fatalf("bob's view=%+v, want exactly one alice", mates)
	}

	// The stale session disconnecting must not remove the membership
	// the new session now owns.
	if removed := reg.Disconnect("sid-a"); len(removed) != 0 {
		t.Fatalf("stale disconnect removed %+v, want nothing", removed)
	}
	mates = reg.MembersOf("general", 2)
	if len(mates) != 1 || mates[0].User.ID != 1 {
		t.Fatalf("after stale disconnect view=%+v, want alice still present", mates)
	}
}

func TestLeave(t *testing.T) {
	reg := NewRegistry()
	bindUser(t, reg, "sid-a", 1, "alice")
	reg.Join("general", "sid-a")

	if !reg.Leave("general", 1) {
		t.Fatalf("leave failed")
	}
	if n := len(reg.MembersOf("general", 0)); n != 0 {
		t.Fatalf("members=%d after leave, want 0", n)
	}
	// No-op when absent.
	if reg.Leave("general", 1) {
		t.Fatalf("second leave reported a removal")
	}
	if reg.Leave("nowhere", 1) {
		t.Fatalf("leave from unknown room reported a removal")
	}
}

func TestDisconnectSweepsAllRooms(t *testing.T) {
	reg := NewRegistry()
	bindUser(t, reg, "sid-a", 1, "alice")
	reg.Join("r1", "sid-a")
	reg.Join("r2", "sid-a")

	removed := reg.Disconnect("sid-a")
	if len(removed) != 2 {
		t.Fatalf("removed %d memberships, want 2", len(removed))
	}
	rooms := map[domain.ChannelID]bool{}
	for _, rm := range removed {
		if rm.User.ID != 1 {
			t.Fatalf("removed user=%d, want 1", rm.User.ID)
		}
		rooms[rm.Channel] = true
	}
	if !rooms["r1"] || !rooms["r2"] {
		t.Fatalf("removed rooms=%v, want r1 and r2", rooms)
	}

	if _, ok := reg.Lookup(1); ok {
		t.Fatalf("user still reachable after disconnect")
	}
	if n := len(reg.MembersOf("r1", 0)); n != 0 {
		t.Fatalf("r1 members=%d, want 0", n)
	}
	if n := len(reg.MembersOf("r2", 0)); n != 0 {
		t.Fatalf("r2 members=%d, want 0", n)
	}
}

func TestSetMuted(t *testing.T) {
	reg := NewRegistry()
	bindUser(t, reg, "sid-a", 1, "alice")
	reg.Join("general", "sid-a")

	if !reg.SetMuted("general", 1, true) {
		t.Fatalf("SetMuted failed")
	}
	mates := reg.MembersOf("general", 0)
	if len(mates) != 1 || !mates[0].Muted {
		t.Fatalf("members=%+v, want alice muted", mates)
	}
	if reg.SetMuted("general", 99, true) {
		t.Fatalf("SetMuted succeeded for absent user")
	}
}

func TestLookupFollowsLastAuthentication(t *testing.T) {
	reg := NewRegistry()
	first := bindUser(t, reg, "sid-1", 1, "alice")
	second := bindUser(t, reg, "sid-2", 1, "alice")

	conn, ok := reg.Lookup(1)
	if !ok {
		t.Fatalf("lookup failed")
	}
	if conn == first || conn != second {
		t.Fatalf("lookup returned the stale connection")
	}
}
