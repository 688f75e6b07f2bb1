package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/telecord/telecord/internal/core"
	"github.com/telecord/telecord/internal/domain"
)

// Roommate is a read-only membership view for APIs (no transport fields).
type Roommate struct {
	User  domain.User `json:"user"`
	Muted bool        `json:"muted"`
}

// Removed reports one membership purged by a disconnect sweep.
type Removed struct {
	Channel domain.ChannelID
	User    domain.User
}

// chanMember pairs a member with the session that owns the membership.
type chanMember struct {
	member *domain.Member
	sid    core.SessionID
}

// Registry is the single mutable shared state of the signaling core: it
// tracks which connection belongs to which user and which users occupy
// which voice channels. All mutation goes through its methods.
type Registry struct {
	mu       sync.RWMutex
	conns    map[core.SessionID]core.SignalConnection
	users    map[core.SessionID]*domain.User
	byUser   map[domain.UserID]core.SessionID
	channels map[domain.ChannelID]map[domain.UserID]*chanMember
}

func NewRegistry() *Registry {
	return &Registry{
		conns:    make(map[core.SessionID]core.SignalConnection),
		users:    make(map[core.SessionID]*domain.User),
		byUser:   make(map[domain.UserID]core.SessionID),
		channels: make(map[domain.ChannelID]map[domain.UserID]*chanMember),
	}
}

// Bind registers a live transport for the session. Must be called
// before Authenticate or Join.
func (r *Registry) Bind(sid core.SessionID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[sid] = conn
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound connection")
}

// Authenticate binds the session to an identity. The last bind wins:
// a user re-authenticating on a new connection takes the mapping over.
func (r *Registry) Authenticate(sid core.SessionID, user *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[sid] = user
	r.byUser[user.ID] = sid
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Int64("user", int64(user.ID)).Msg("authenticated")
}

func (r *Registry) UserOf(sid core.SessionID) (*domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[sid]
	return u, ok
}

// Lookup returns the live connection of a user, if any.
func (r *Registry) Lookup(uid domain.UserID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.byUser[uid]
	if !ok {
		return nil, false
	}
	conn, ok := r.conns[sid]
	return conn, ok
}

// Join registers the session's user in a channel and returns the current
// roommates, excluding the joiner. A re-join by the same user replaces
// the prior membership (last join wins), so a user is never counted
// twice in one channel. Returns false if the session has no identity.
func (r *Registry) Join(ch domain.ChannelID, sid core.SessionID) ([]Roommate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[sid]
	if !ok {
		return nil, false
	}

	members, ok := r.channels[ch]
	if !ok {
		members = make(map[domain.UserID]*chanMember)
		r.channels[ch] = members
	}

	mates := make([]Roommate, 0, len(members))
	for uid, m := range members {
		if uid == user.ID {
			continue
		}
		mates = append(mates, Roommate{User: *m.member.User, Muted: m.member.Muted})
	}

	members[user.ID] = &chanMember{member: domain.NewMember(user), sid: sid}
	log.Info().Str("module", "app.registry").Str("channel", string(ch)).Int64("user", int64(user.ID)).Msg("joined channel")
	return mates, true
}

// Leave removes the user's membership; no-op when absent.
func (r *Registry) Leave(ch domain.ChannelID, uid domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.channels[ch]
	if !ok {
		return false
	}
	if _, ok := members[uid]; !ok {
		return false
	}
	delete(members, uid)
	if len(members) == 0 {
		delete(r.channels, ch)
	}
	log.Info().Str("module", "app.registry").Str("channel", string(ch)).Int64("user", int64(uid)).Msg("left channel")
	return true
}

// SetMuted flips the member's mute flag. Returns false when the user is
// not in the channel.
func (r *Registry) SetMuted(ch domain.ChannelID, uid domain.UserID, muted bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.channels[ch]
	if !ok {
		return false
	}
	m, ok := members[uid]
	if !ok {
		return false
	}
	m.member.Muted = muted
	return true
}

// MembersOf snapshots the channel's membership, excluding one user id
// (pass 0 to exclude nobody).
func (r *Registry) MembersOf(ch domain.ChannelID, exclude domain.UserID) []Roommate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.channels[ch]
	out := make([]Roommate, 0, len(members))
	for uid, m := range members {
		if uid == exclude {
			continue
		}
		out = append(out, Roommate{User: *m.member.User, Muted: m.member.Muted})
	}
	return out
}

// ConnsOf returns live connections registered in the channel, excluding
// one user. Memberships whose connection is gone should not exist by
// construction; if one is found anyway it is purged rather than served.
func (r *Registry) ConnsOf(ch domain.ChannelID, exclude domain.UserID) []core.SignalConnection {
	r.mu.RLock()
	var stale []domain.UserID
	members := r.channels[ch]
	out := make([]core.SignalConnection, 0, len(members))
	for uid, m := range members {
		conn, ok := r.conns[m.sid]
		if !ok {
			stale = append(stale, uid)
			continue
		}
		if uid == exclude {
			continue
		}
		out = append(out, conn)
	}
	r.mu.RUnlock()

	if len(stale) > 0 {
		log.Warn().Str("module", "app.registry").Str("channel", string(ch)).Int("count", len(stale)).Msg("purging memberships with dead connections")
		r.mu.Lock()
		for _, uid := range stale {
			if members, ok := r.channels[ch]; ok {
				delete(members, uid)
				if len(members) == 0 {
					delete(r.channels, ch)
				}
			}
		}
		r.mu.Unlock()
	}
	return out
}

// Disconnect drops the session's connection and identity binding and
// removes every membership the session owned, across all channels. The
// removals are returned so the caller can notify each vacated channel.
func (r *Registry) Disconnect(sid core.SessionID) []Removed {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, sid)
	user, ok := r.users[sid]
	if !ok {
		return nil
	}
	delete(r.users, sid)
	if r.byUser[user.ID] == sid {
		delete(r.byUser, user.ID)
	}

	var removed []Removed
	for ch, members := range r.channels {
		m, ok := members[user.ID]
		// A newer session may own the membership after a re-join.
		if !ok || m.sid != sid {
			continue
		}
		delete(members, user.ID)
		if len(members) == 0 {
			delete(r.channels, ch)
		}
		removed = append(removed, Removed{Channel: ch, User: *user})
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Int("rooms", len(removed)).Msg("disconnect sweep")
	return removed
}
