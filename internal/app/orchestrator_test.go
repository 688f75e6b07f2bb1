package app

import (
	"encoding/json"
	"testing"

	"github.com/telecord/telecord/internal/core"
	"github.com/telecord/telecord/internal/domain"
)

func joinAs(t *testing.T, o *Orchestrator, sid core.SessionID, id domain.UserID, name string, chs ...domain.ChannelID) *fakeConn {
	t.Helper()
	conn := bindUser(t, o.Registry, sid, id, name)
	for _, ch := range chs {
		if _, ok := o.Join(sid, ch); !ok {
			t.Fatalf("join %s failed for %s", ch, sid)
		}
	}
	return conn
}

func TestJoinBroadcastsPeerJoined(t *testing.T) {
	o := NewOrchestrator()
	connA := joinAs(t, o, "sid-a", 1, "alice", "general")
	connB := joinAs(t, o, "sid-b", 2, "bob", "general")

	joined := ofType(t, connA, EventPeerJoined)
	if len(joined) != 1 {
		t.Fatalf("alice got %d peer_joined, want 1", len(joined))
	}
	var user domain.User
	if err := json.Unmarshal(joined[0]["user"], &user); err != nil || user.ID != 2 {
		t.Fatalf("peer_joined user=%+v (err=%v), want bob", user, err)
	}

	// The joiner itself never sees its own join.
	if n := len(ofType(t, connB, EventPeerJoined)); n != 0 {
		t.Fatalf("bob got %d peer_joined, want 0", n)
	}
}

func TestDisconnectNotifiesEachRoomOnce(t *testing.T) {
	o := NewOrchestrator()
	joinAs(t, o, "sid-a", 1, "alice", "r1", "r2")
	connB := joinAs(t, o, "sid-b", 2, "bob", "r1")
	connC := joinAs(t, o, "sid-c", 3, "carol", "r2")

	o.OnDisconnect("sid-a")

	for name, conn := range map[string]*fakeConn{"bob": connB, "carol": connC} {
		left := ofType(t, conn, EventPeerLeft)
		if len(left) != 1 {
			t.Fatalf("%s got %d peer_left, want exactly 1", name, len(left))
		}
		var uid domain.UserID
		if err := json.Unmarshal(left[0]["user_id"], &uid); err != nil || uid != 1 {
			t.Fatalf("%s peer_left user_id=%v (err=%v), want 1", name, uid, err)
		}
	}
}

func TestLeaveNotifiesRoom(t *testing.T) {
	o := NewOrchestrator()
	joinAs(t, o, "sid-a", 1, "alice", "general")
	connB := joinAs(t, o, "sid-b", 2, "bob", "general")

	o.Leave("sid-a", "general")

	if n := len(ofType(t, connB, EventPeerLeft)); n != 1 {
		t.Fatalf("bob got %d peer_left, want 1", n)
	}

	// Leaving again is a no-op: no duplicate notification.
	o.Leave("sid-a", "general")
	if n := len(ofType(t, connB, EventPeerLeft)); n != 1 {
		t.Fatalf("bob got %d peer_left after repeated leave, want 1", n)
	}
}

func TestMuteBroadcast(t *testing.T) {
	o := NewOrchestrator()
	connA := joinAs(t, o, "sid-a", 1, "alice", "general")
	connB := joinAs(t, o, "sid-b", 2, "bob", "general")

	o.SetMuted("sid-a", "general", true)

	changed := ofType(t, connB, EventMuteChanged)
	if len(changed) != 1 {
		t.Fatalf("bob got %d mute_changed, want 1", len(changed))
	}
	var muted bool
	if err := json.Unmarshal(changed[0]["muted"], &muted); err != nil || !muted {
		t.Fatalf("muted=%v (err=%v), want true", muted, err)
	}
	if n := len(ofType(t, connA, EventMuteChanged)); n != 0 {
		t.Fatalf("alice got %d mute_changed about herself, want 0", n)
	}
}

// The end-to-end signaling scenario: both users join "general", user 1
// addresses an ICE candidate to user 2, and user 2 receives exactly one
// ice-candidate event with from=1 and the payload byte-verbatim.
func TestSignalScenario(t *testing.T) {
	o := NewOrchestrator()
	joinAs(t, o, "sid-1", 1, "alice", "general")
	conn2 := joinAs(t, o, "sid-2", 2, "bob", "general")

	payload := json.RawMessage(`{"candidate":"candidate:842163049 1 udp 1677729535 192.0.2.7 3478 typ srflx","sdpMid":"0","sdpMLineIndex":0}`)
	o.Signal("sid-1", KindCandidate, 2, payload)

	got := ofType(t, conn2, KindCandidate)
	if len(got) != 1 {
		t.Fatalf("bob got %d ice-candidate events, want exactly 1", len(got))
	}
	var from domain.UserID
	if err := json.Unmarshal(got[0]["from"], &from); err != nil || from != 1 {
		t.Fatalf("from=%v (err=%v), want 1", from, err)
	}
	if string(got[0]["payload"]) != string(payload) {
		t.Fatalf("payload mutated:\n got %s\nwant %s", got[0]["payload"], payload)
	}
}

func TestSignalBeforeAuthenticateIsDropped(t *testing.T) {
	o := NewOrchestrator()
	conn2 := joinAs(t, o, "sid-2", 2, "bob", "general")

	o.Registry.Bind("sid-x", &fakeConn{})
	o.Signal("sid-x", KindOffer, 2, json.RawMessage(`{}`))

	if n := len(ofType(t, conn2, KindOffer)); n != 0 {
		t.Fatalf("bob got %d offers from unauthenticated session, want 0", n)
	}
}
