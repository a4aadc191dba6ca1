package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Client -> server message types
const (
	MsgTypePing   = "ping"
	MsgTypeCancel = "cancel"
)

// Server -> client message types, besides the job events themselves
const (
	MsgTypePong  = "pong"
	MsgTypeError = "error"
)

const wsWriteWait = 10 * time.Second

// WSMessage is a control message sent by the client.
type WSMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// WebSocketHandler streams job events over WebSocket connections.
type WebSocketHandler struct {
	*launcher
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket stream handler
func NewWebSocketHandler(l *launcher) *WebSocketHandler {
	return &WebSocketHandler{
		launcher: l,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.ws.WriteJSON(v)
}

func (c *wsConn) ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// HandleJobWebSocket upgrades the connection and sends one JSON message per
// job event. Idle periods send ping frames. The client may send
// {"type":"cancel"} to cancel the job or {"type":"ping"}.
func (wsh *WebSocketHandler) HandleJobWebSocket(c echo.Context) error {
	id := c.Param("jobId")
	reader, err := wsh.jobs.Subscribe(id)
	if err != nil {
		return NewNotFoundError("job", id)
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	logCtx := wsh.logger.With("jobId", id, "transport", "websocket")
	logCtx.Info("websocket client connected")

	conn := &wsConn{ws: ws}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go wsh.readLoop(ctx, cancel, conn, id)

	for {
		ev, ok, err := reader.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			logCtx.Info("websocket client disconnected")
			return nil
		case !ok:
			if err := conn.ping(); err != nil {
				return nil
			}
			continue
		}

		if err := conn.writeJSON(ev); err != nil {
			logCtx.Warn("websocket write failed", "error", err)
			return nil
		}
		if ev.Terminal() {
			wsh.jobs.Remove(id)
			conn.mu.Lock()
			ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
			conn.mu.Unlock()
			return nil
		}
	}
}

// readLoop handles client messages and cancels ctx when the connection
// closes.
func (wsh *WebSocketHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *wsConn, id string) {
	defer cancel()
	for {
		var msg WSMessage
		if err := conn.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsh.logger.Debug("websocket read error", "jobId", id, "error", err)
			}
			return
		}

		switch msg.Type {
		case MsgTypePing:
			conn.writeJSON(WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		case MsgTypeCancel:
			if err := wsh.jobs.Cancel(id); err != nil {
				conn.writeJSON(map[string]string{"type": MsgTypeError, "message": err.Error()})
			}
		default:
			conn.writeJSON(map[string]string{"type": MsgTypeError, "message": "unknown message type: " + msg.Type})
		}

		if ctx.Err() != nil {
			return
		}
	}
}
