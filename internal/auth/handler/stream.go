package handler

import (
	"time"

	"storefront/internal/authstate"
	"storefront/internal/logger"
	"storefront/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type stateMessage struct {
	User *authstate.User `json:"user"`
}

// Stream upgrades to a websocket and pushes the session's auth state:
// the current value first, then every change. Slow clients only see the
// latest state.
func (h *Handler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		logger.Debug("auth stream upgrade failed", map[string]any{"error": err.Error()})
		return
	}
	defer conn.Close()

	updates := make(chan *authstate.User, 1)
	sub := h.state.Stream(session.IDFromRequest(c.Request)).Subscribe(func(u *authstate.User) {
		latest(updates, u)
	})
	defer sub.Unsubscribe()

	closed := make(chan struct{})
	go readUntilClosed(conn, closed)

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case u := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(stateMessage{User: u}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case <-h.opts.Done:
			// hijacked connections are not drained by http.Server.Shutdown
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteWait))
			return
		}
	}
}

// latest replaces whatever is buffered in ch with u.
func latest(ch chan *authstate.User, u *authstate.User) {
	for {
		select {
		case ch <- u:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// readUntilClosed drains client frames so pongs and close frames are
// processed, and closes done when the connection goes away.
func readUntilClosed(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("auth stream closed", map[string]any{"error": err.Error()})
			}
			return
		}
	}
}
