package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/telecord/telecord/internal/core"
	"github.com/telecord/telecord/internal/domain"
)

// handleRelay forwards offer/answer/ice-candidate messages to the
// target user. The payload stays an opaque blob end to end: SDP and
// candidate internals are the browsers' business, not ours.
func (ctl *Controller) handleRelay(sid core.SessionID, kind string, data []byte) {
	type relayPayload struct {
		Type    string          `json:"type"`
		Target  domain.UserID   `json:"target"`
		Payload json.RawMessage `json:"payload"`
	}
	var p relayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("kind", kind).Msg("bad relay payload")
		return
	}
	if p.Target == 0 {
		log.Warn().Str("module", "signal").Str("kind", kind).Msg("relay without target")
		return
	}
	ctl.Orch.Signal(sid, kind, p.Target, p.Payload)
}
