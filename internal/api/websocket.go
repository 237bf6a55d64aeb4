package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/medreport/viewer/internal/models"
)

// WebSocket message types for the state feed
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeState = "state"
	MsgTypePong  = "pong"
	MsgTypeError = "error"
)

const writeWait = 10 * time.Second

// WSMessage is the envelope of every feed message.
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WebSocketHandler pushes a session's snapshots to a browser.
type WebSocketHandler struct {
	handler  *Handler
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new state feed handler.
func NewWebSocketHandler(h *Handler) *WebSocketHandler {
	return &WebSocketHandler{
		handler: h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

// HandleWebSocket sends the current snapshot, then one after every state
// transition until the client goes away or the session expires.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return err
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	updates, cancel := sess.Subscribe()
	defer cancel()

	log := wsh.handler.logger.With().Str("session", sess.ID).Logger()
	log.Debug().Msg("state feed connected")

	// Only this goroutine writes; the reader reports pings and disconnects.
	pings := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg WSMessage
			if err := ws.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Msg("state feed read failed")
				}
				return
			}
			if msg.Type == MsgTypePing {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	if err := wsh.sendSnapshot(ws, sess.ID, sess.State()); err != nil {
		return nil
	}

	ctx := c.Request().Context()
	for {
		select {
		case state, ok := <-updates:
			if !ok {
				wsh.closeFeed(ws, "session expired")
				return nil
			}
			if err := wsh.sendSnapshot(ws, sess.ID, state); err != nil {
				log.Debug().Err(err).Msg("state feed write failed")
				return nil
			}
		case <-pings:
			if err := wsh.send(ws, WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()}); err != nil {
				return nil
			}
		case <-done:
			log.Debug().Msg("state feed disconnected")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (wsh *WebSocketHandler) sendSnapshot(ws *websocket.Conn, sessionID string, state models.UploadState) error {
	payload, err := json.Marshal(Snapshot{
		State: state,
		Views: wsh.handler.deriveViews(sessionID, state),
	})
	if err != nil {
		return err
	}
	return wsh.send(ws, WSMessage{
		Type:      MsgTypeState,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (wsh *WebSocketHandler) send(ws *websocket.Conn, msg WSMessage) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(msg)
}

func (wsh *WebSocketHandler) closeFeed(ws *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
