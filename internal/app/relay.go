package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/telecord/telecord/internal/domain"
)

// Signal kinds relayed between peers. Their payloads are opaque blobs:
// the relay never inspects SDP or candidate internals.
const (
	KindOffer     = "offer"
	KindAnswer    = "answer"
	KindCandidate = "ice-candidate"
)

// Relay forwards negotiation messages between two named participants
// and fans events out to channels. Delivery is fire-and-forget: an
// unreachable target or a backpressured connection drops the message
// with no error to the sender, no retry and no queueing.
type Relay struct {
	Registry *Registry
}

// relayEnvelope is what the target connection receives.
type relayEnvelope struct {
	Type    string          `json:"type"`
	From    domain.UserID   `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

// Relay delivers a message of the given kind to the target's live
// connection, carrying the payload verbatim plus the sender id.
func (rl *Relay) Relay(kind string, target domain.UserID, payload json.RawMessage, from domain.UserID) {
	conn, ok := rl.Registry.Lookup(target)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("kind", kind).Int64("target", int64(target)).Msg("target not connected, dropping")
		return
	}
	b, err := json.Marshal(relayEnvelope{Type: kind, From: from, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal relay envelope")
		return
	}
	if err := conn.TrySend(b); err != nil {
		log.Debug().Err(err).Str("module", "app.relay").Int64("target", int64(target)).Msg("dropping on backpressure")
	}
}

// BroadcastToChannel delivers the event to every live connection
// registered in the channel except the excluded user (0 excludes
// nobody). Slow receivers are dropped, not waited on.
func (rl *Relay) BroadcastToChannel(ch domain.ChannelID, v any, exclude domain.UserID) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal broadcast")
		return
	}
	for _, conn := range rl.Registry.ConnsOf(ch, exclude) {
		_ = conn.TrySend(b)
	}
}
