package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/telecord/telecord/internal/app"
	"github.com/telecord/telecord/internal/core"
	"github.com/telecord/telecord/internal/domain"
)

func (ctl *Controller) handleJoin(sid core.SessionID, c *WsSignalConn, data []byte) {
	type joinPayload struct {
		Type    string `json:"type"`
		Channel string `json:"channel"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.Channel == "" {
		ctl.sendError(c, "missing channel")
		return
	}

	user, ok := ctl.Orch.Registry.UserOf(sid)
	if !ok {
		ctl.sendError(c, "not_authenticated")
		return
	}
	if !ctl.Limiter.Allow(user.ID) {
		ctl.sendError(c, "too_many_joins")
		return
	}

	ch := domain.ChannelID(p.Channel)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("channel", p.Channel).Msg("join")

	mates, ok := ctl.Orch.Join(sid, ch)
	if !ok {
		ctl.sendError(c, "not_authenticated")
		return
	}

	// Snapshot for the joiner so the client can render the room.
	resp := struct {
		Type    string           `json:"type"`
		Channel domain.ChannelID `json:"channel"`
		Members []app.Roommate   `json:"members"`
		Count   int              `json:"count"`
	}{
		Type:    "channel_members",
		Channel: ch,
		Members: mates,
		Count:   len(mates),
	}
	ctl.sendJSON(c, resp)
}

// handleLeave removes the membership; the socket stays open.
func (ctl *Controller) handleLeave(sid core.SessionID, c *WsSignalConn, data []byte) {
	type leavePayload struct {
		Type    string `json:"type"`
		Channel string `json:"channel"`
	}
	var p leavePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad leave payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("channel", p.Channel).Msg("leave")
	ctl.Orch.Leave(sid, domain.ChannelID(p.Channel))
	ctl.sendJSON(c, map[string]any{
		"type":    "left",
		"channel": p.Channel,
	})
}

func (ctl *Controller) handleMute(sid core.SessionID, data []byte) {
	type mutePayload struct {
		Type    string `json:"type"`
		Channel string `json:"channel"`
		Muted   bool   `json:"muted"`
	}
	var p mutePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad mute payload")
		return
	}
	ctl.Orch.SetMuted(sid, domain.ChannelID(p.Channel), p.Muted)
}
