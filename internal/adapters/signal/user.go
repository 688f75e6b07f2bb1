package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/telecord/telecord/internal/core"
	"github.com/telecord/telecord/internal/domain"
)

// handleAuthenticate binds the socket to a user identity. Identity here
// is client-asserted, as in the REST layer it was already verified via
// init data; the optional session token on upgrade covers clients that
// want a server-checked binding instead.
func (ctl *Controller) handleAuthenticate(sid core.SessionID, c *WsSignalConn, data []byte) {
	type authPayload struct {
		Type     string        `json:"type"`
		UserID   domain.UserID `json:"user_id"`
		Username string        `json:"username"`
	}
	var p authPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad authenticate payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.UserID == 0 {
		ctl.sendError(c, "missing user_id")
		return
	}
	if len(p.Username) > domain.MaxUsernameLen {
		p.Username = p.Username[:domain.MaxUsernameLen]
	}

	user := domain.NewUser(p.UserID, p.Username)
	ctl.Orch.Authenticate(sid, user)
	ctl.sendAuthenticated(c, user)
}

func (ctl *Controller) sendAuthenticated(c *WsSignalConn, user *domain.User) {
	resp := struct {
		Type string      `json:"type"`
		User domain.User `json:"user"`
	}{
		Type: "authenticated",
		User: *user,
	}
	ctl.sendJSON(c, resp)
}
