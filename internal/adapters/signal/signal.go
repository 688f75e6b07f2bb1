package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/telecord/telecord/internal/app"
	"github.com/telecord/telecord/internal/auth"
	"github.com/telecord/telecord/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

// Controller owns the signal WebSocket endpoint: it upgrades the
// connection, binds it to the presence registry and runs the pumps.
type Controller struct {
	Orch    *app.Orchestrator
	Tokens  *auth.TokenIssuer
	Limiter *JoinRateLimiter

	ReadLimit  int64
	PingPeriod time.Duration
}

func NewController(orch *app.Orchestrator, tokens *auth.TokenIssuer) *Controller {
	return &Controller{
		Orch:       orch,
		Tokens:     tokens,
		Limiter:    NewJoinRateLimiter(10, 10*time.Second),
		ReadLimit:  32768,
		PingPeriod: 54 * time.Second,
	}
}

// WsSignalConn wraps a websocket with a buffered send channel. TrySend
// never blocks: a full buffer drops the frame.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and binds the new connection. A
// valid ?token= pre-authenticates the session; otherwise the client
// must send an authenticate message before joining anything.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.ReadLimit)

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	ctl.Orch.Registry.Bind(sid, conn)

	if token := c.Query("token"); token != "" {
		user, err := ctl.Tokens.Parse(token)
		if err != nil {
			log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("bad session token on upgrade")
		} else {
			ctl.Orch.Authenticate(sid, user)
			ctl.sendAuthenticated(conn, user)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}
