package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"

	"github.com/telecord/telecord/internal/domain"
)

var ErrInvalidSignature = errors.New("invalid init data signature")

// Mode controls whether init data signatures are enforced. There is no
// implicit default: config must name one of the two values.
type Mode int

const (
	ModeEnforced Mode = iota
	ModeDisabled
)

func ParseMode(s string) (Mode, error) {
	switch s {
	case "enforced":
		return ModeEnforced, nil
	case "disabled":
		return ModeDisabled, nil
	default:
		return ModeEnforced, fmt.Errorf("unknown auth_mode %q (want enforced or disabled)", s)
	}
}

func (m Mode) String() string {
	if m == ModeDisabled {
		return "disabled"
	}
	return "enforced"
}

// Resolver turns raw init data into a domain.User.
type Resolver struct {
	botToken string
	mode     Mode
}

func NewResolver(botToken string, mode Mode) *Resolver {
	if mode == ModeDisabled {
		log.Warn().Str("module", "auth").Msg("init data verification is DISABLED; do not run this in production")
	}
	return &Resolver{botToken: botToken, mode: mode}
}

func (r *Resolver) Mode() Mode { return r.mode }

// telegramUser is the user JSON embedded in init data.
type telegramUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	PhotoURL  string `json:"photo_url"`
}

// Resolve produces an identity from optional init data.
//
// No payload at all synthesizes a test identity. A present payload with
// a bad signature is rejected when enforcement is on. A verified (or
// unenforced) payload with missing or unparseable user JSON falls back
// to a test identity rather than failing the request.
func (r *Resolver) Resolve(initData string) (*domain.User, error) {
	if initData == "" {
		u := TestUser()
		log.Info().Str("module", "auth").Int64("id", int64(u.ID)).Msg("no init data, using test user")
		return u, nil
	}

	if r.mode == ModeEnforced && !Verify(initData, r.botToken) {
		return nil, ErrInvalidSignature
	}

	values, err := ParseInitData(initData)
	if err != nil {
		// Unreachable under enforcement (Verify already parsed), but
		// disabled mode can see arbitrary payloads.
		u := TestUser()
		log.Warn().Str("module", "auth").Err(err).Msg("unparseable init data, using test user")
		return u, nil
	}

	userParam := values.Get("user")
	if userParam == "" {
		u := TestUser()
		log.Info().Str("module", "auth").Msg("no user field in init data, using test user")
		return u, nil
	}

	var tu telegramUser
	if err := json.Unmarshal([]byte(userParam), &tu); err != nil {
		u := TestUser()
		log.Warn().Str("module", "auth").Err(err).Msg("bad user JSON in init data, using test user")
		return u, nil
	}

	return &domain.User{
		ID:        domain.UserID(tu.ID),
		Username:  tu.Username,
		FirstName: tu.FirstName,
		LastName:  tu.LastName,
		Avatar:    tu.PhotoURL,
	}, nil
}

// TestUser synthesizes a clearly-marked throwaway identity for sessions
// that arrive without init data (local development, automated tests).
func TestUser() *domain.User {
	return &domain.User{
		ID:        domain.UserID(1000 + rand.Int63n(10000)),
		Username:  "TestUser",
		FirstName: "Test",
		LastName:  "User",
	}
}
