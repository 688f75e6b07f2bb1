package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/telecord/telecord/internal/adapters/signal"
	"github.com/telecord/telecord/internal/auth"
	"github.com/telecord/telecord/internal/config"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware assigns each browser a stable session id used
// as the WebSocket SessionID.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, h *Handlers, ctl *signal.Controller, resolver *auth.Resolver) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("TelecordSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/rtc/config", h.RTCConfig)
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	// REST CRUD, authenticated with Telegram init data from the body.
	authed := api.Group("", TelegramAuth(resolver))
	authed.POST("/profile", h.Profile)
	authed.POST("/profile/status", h.UpdateStatus)
	authed.POST("/servers", h.ListServers)
	authed.POST("/server", h.CreateServer)
	authed.POST("/server/join", h.JoinServer)
	authed.POST("/server/:serverId/channels", h.ListChannels)
	authed.POST("/server/:serverId/channel", h.CreateChannel)
	authed.POST("/channel/:channelId/join", h.JoinChannel)
	authed.POST("/channel/:channelId/members", h.ChannelMembers)

	return r
}
