package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/codepair/collab/internal/auth"
	"github.com/codepair/collab/internal/metrics"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller owns the websocket endpoint: handshake rate limiting,
// authentication, upgrade, and the per-connection read/write pumps.
type Controller struct {
	Hub        *Hub
	Verifier   *auth.Verifier
	Handshakes *Limiter
	ReadLimit  int64
	PingPeriod time.Duration
}

// HandleWS authenticates and upgrades one realtime connection. Auth and
// rate-limit failures are refused before any state is created, with a
// deliberately generic reason.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	if ctl.Handshakes != nil && !ctl.Handshakes.Allow(c.ClientIP()) {
		metrics.HandshakesRefused.Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too many attempts"})
		return
	}

	user, err := ctl.Verifier.Authenticate(c.Request.Context(), c.Request)
	if err != nil {
		metrics.HandshakesRefused.Inc()
		log.Warn().Err(err).Str("module", "realtime.ws").Str("ip", c.ClientIP()).Msg("handshake auth failed")
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Authentication failed"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "realtime.ws").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	sender := newWSSender(ws)
	conn := NewConnection(uuid.NewString(), user, sender)
	if err := ctl.Hub.Connect(conn); err != nil {
		log.Error().Err(err).Str("module", "realtime.ws").Str("conn", conn.ID).Msg("register")
		sender.Close()
		return
	}
	log.Info().Str("module", "realtime.ws").Str("conn", conn.ID).Str("user", string(user.ID)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, cancel, sender)
	go ctl.readPump(ctx, cancel, conn, sender)
}

func (ctl *Controller) writePump(ctx context.Context, cancel context.CancelFunc, s *wsSender) {
	defer cancel()
	ping := time.NewTicker(ctl.pingPeriod())
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case data, ok := <-s.send:
			if !ok {
				return
			}
			if err := s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "realtime.ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) pingPeriod() time.Duration {
	if ctl.PingPeriod > 0 {
		return ctl.PingPeriod
	}
	return 54 * time.Second
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, conn *Connection, s *wsSender) {
	defer func() {
		log.Info().Str("module", "realtime.ws").Str("conn", conn.ID).Msg("readPump closing")
		ctl.Hub.Disconnect(context.WithoutCancel(ctx), conn)
		cancel()
		s.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := s.conn.ReadMessage()
			if err != nil {
				return
			}
			ctl.dispatch(ctx, conn, data)
		}
	}
}

// dispatch decodes the event envelope and routes to the hub. Malformed
// payloads are ignored rather than propagated; over-limit events are
// dropped silently so abusive traffic gets no feedback.
func (ctl *Controller) dispatch(ctx context.Context, conn *Connection, data []byte) {
	var env struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "realtime.ws").Str("conn", conn.ID).Msg("bad envelope")
		return
	}
	if !ctl.Hub.AllowEvent(conn.ID) {
		return
	}
	metrics.EventsTotal.WithLabelValues(env.Event).Inc()

	switch env.Event {
	case EvJoinRoom:
		var p struct {
			RoomCode string `json:"roomCode"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		ctl.Hub.HandleJoinRoom(ctx, conn, p.RoomCode)
	case EvLeaveRoom:
		ctl.Hub.HandleLeaveRoom(ctx, conn)
	case EvChatMessage:
		var p struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		ctl.Hub.HandleChat(conn, p.Message)
	case EvCodeChange:
		var p struct {
			RoomCode  string `json:"roomCode"`
			Code      string `json:"code"`
			Timestamp int64  `json:"timestamp"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		ctl.Hub.HandleCodeChange(conn, p.RoomCode, p.Code, p.Timestamp)
	case EvLanguageChange:
		var p struct {
			RoomCode string `json:"roomCode"`
			Language string `json:"language"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		ctl.Hub.HandleLanguageChange(conn, p.RoomCode, p.Language)
	case EvThemeChange:
		var p struct {
			RoomCode string `json:"roomCode"`
			Theme    string `json:"theme"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		ctl.Hub.HandleThemeChange(conn, p.RoomCode, p.Theme)
	case EvCursorChange:
		var p struct {
			RoomCode string          `json:"roomCode"`
			Position json.RawMessage `json:"position"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		ctl.Hub.HandleCursorChange(conn, p.RoomCode, p.Position)
	case EvVoiceJoin:
		ctl.Hub.HandleVoiceJoin(conn)
	case EvVoiceLeave:
		ctl.Hub.HandleVoiceLeave(conn)
	case EvVoiceMute:
		var p struct {
			Muted bool `json:"muted"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		ctl.Hub.HandleVoiceMute(conn, p.Muted)
	case EvVoiceSignal:
		var p struct {
			TargetID string          `json:"targetId"`
			Signal   json.RawMessage `json:"signal"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		ctl.Hub.HandleVoiceSignal(conn, p.TargetID, p.Signal)
	default:
		log.Warn().Str("module", "realtime.ws").Str("event", env.Event).Msg("unknown event")
	}
}
