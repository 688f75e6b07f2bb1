package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/telecord/telecord/internal/auth"
	"github.com/telecord/telecord/internal/domain"
)

const userKey = "tg_user"

// TelegramAuth resolves the caller's identity from the initData field
// of the JSON body. The body is restored afterwards so handlers can
// bind their own request structs.
func TelegramAuth(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))

		var envelope struct {
			InitData string `json:"initData"`
		}
		// Missing or non-JSON body means no init data; the resolver
		// falls back to a test identity.
		_ = json.Unmarshal(raw, &envelope)

		user, err := resolver.Resolve(envelope.InitData)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidSignature) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid init data"})
				return
			}
			log.Error().Err(err).Str("module", "adapters.http").Msg("identity resolution")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth failed"})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	u, _ := c.Get(userKey)
	user, _ := u.(*domain.User)
	return user
}
