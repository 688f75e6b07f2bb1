package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/telecord/telecord/internal/core"
	"github.com/telecord/telecord/internal/domain"
)

// Events emitted to channel members.
type peerJoinedEvent struct {
	Type    string           `json:"type"`
	Channel domain.ChannelID `json:"channel"`
	User    domain.User      `json:"user"`
}

type peerLeftEvent struct {
	Type    string           `json:"type"`
	Channel domain.ChannelID `json:"channel"`
	UserID  domain.UserID    `json:"user_id"`
}

type muteChangedEvent struct {
	Type    string           `json:"type"`
	Channel domain.ChannelID `json:"channel"`
	UserID  domain.UserID    `json:"user_id"`
	Muted   bool             `json:"muted"`
}

const (
	EventPeerJoined  = "peer_joined"
	EventPeerLeft    = "peer_left"
	EventMuteChanged = "mute_changed"
)

// Orchestrator ties connection events to registry mutations and relay
// dispatches. Handlers are short and non-blocking; the registry is the
// only shared state they touch.
type Orchestrator struct {
	Registry *Registry
	Relay    *Relay
}

func NewOrchestrator() *Orchestrator {
	reg := NewRegistry()
	return &Orchestrator{
		Registry: reg,
		Relay:    &Relay{Registry: reg},
	}
}

// Authenticate binds the session to an identity.
func (o *Orchestrator) Authenticate(sid core.SessionID, user *domain.User) {
	o.Registry.Authenticate(sid, user)
}

// Join registers the session's user in a channel, notifies the other
// members and returns the roommate snapshot for the joiner.
func (o *Orchestrator) Join(sid core.SessionID, ch domain.ChannelID) ([]Roommate, bool) {
	user, ok := o.Registry.UserOf(sid)
	if !ok {
		log.Warn().Str("module", "app.orch").Str("sid", string(sid)).Msg("join before authenticate")
		return nil, false
	}
	mates, ok := o.Registry.Join(ch, sid)
	if !ok {
		return nil, false
	}
	o.Relay.BroadcastToChannel(ch, peerJoinedEvent{
		Type:    EventPeerJoined,
		Channel: ch,
		User:    *user,
	}, user.ID)
	return mates, true
}

// Leave removes the membership and notifies the remaining members.
// No-op when the user was not in the channel.
func (o *Orchestrator) Leave(sid core.SessionID, ch domain.ChannelID) {
	user, ok := o.Registry.UserOf(sid)
	if !ok {
		return
	}
	if !o.Registry.Leave(ch, user.ID) {
		return
	}
	o.Relay.BroadcastToChannel(ch, peerLeftEvent{
		Type:    EventPeerLeft,
		Channel: ch,
		UserID:  user.ID,
	}, user.ID)
}

// SetMuted updates the mute flag and tells the rest of the channel.
func (o *Orchestrator) SetMuted(sid core.SessionID, ch domain.ChannelID, muted bool) {
	user, ok := o.Registry.UserOf(sid)
	if !ok {
		return
	}
	if !o.Registry.SetMuted(ch, user.ID, muted) {
		return
	}
	o.Relay.BroadcastToChannel(ch, muteChangedEvent{
		Type:    EventMuteChanged,
		Channel: ch,
		UserID:  user.ID,
		Muted:   muted,
	}, user.ID)
}

// Signal forwards a negotiation message to the target user. Unknown
// targets are dropped silently; the sender gets no confirmation.
func (o *Orchestrator) Signal(sid core.SessionID, kind string, target domain.UserID, payload json.RawMessage) {
	user, ok := o.Registry.UserOf(sid)
	if !ok {
		log.Warn().Str("module", "app.orch").Str("sid", string(sid)).Msg("signal before authenticate")
		return
	}
	o.Relay.Relay(kind, target, payload, user.ID)
}

// OnDisconnect purges every membership owned by the session and emits
// exactly one peer_left per vacated channel. Safe to call for sessions
// that never authenticated or joined anything.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	for _, rm := range o.Registry.Disconnect(sid) {
		o.Relay.BroadcastToChannel(rm.Channel, peerLeftEvent{
			Type:    EventPeerLeft,
			Channel: rm.Channel,
			UserID:  rm.User.ID,
		}, rm.User.ID)
	}
}
