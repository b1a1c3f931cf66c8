package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Digital-Creators-Team/chain-slots-engine/bridge"
	"github.com/Digital-Creators-Team/chain-slots-engine/errors"
)

// BridgeHandler upgrades surface connections to WebSocket bridge sessions.
type BridgeHandler struct {
	app      *App
	upgrader websocket.Upgrader
}

// NewBridgeHandler creates a bridge handler.
func NewBridgeHandler(app *App) *BridgeHandler {
	return &BridgeHandler{
		app: app,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced before the upgrade so the surface
			// gets a structured UNAUTHORIZED_ORIGIN instead of a bare 403.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// GetConfig serves the static game configuration. No chain call involved.
func (h *BridgeHandler) GetConfig(c *gin.Context) {
	OK(c, h.app.Engine().Config().Normalize())
}

// Connect upgrades the request and runs a bridge session until the surface
// disconnects.
func (h *BridgeHandler) Connect(c *gin.Context) {
	log := h.app.Logger()

	session := bridge.NewSession(h.app.Engine(), h.app.Config().Bridge, nil, log)
	if appErr := session.Authorize(c.GetHeader("Origin")); appErr != nil {
		Error(c, errors.HTTPStatusFromCode(appErr.Code), appErr)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("bridge upgrade failed")
		return
	}
	defer conn.Close()

	sink := &wsSink{conn: conn}
	session.SetSink(sink)

	ctx := c.Request.Context()
	go session.Pump(ctx)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("bridge connection dropped")
			}
			return
		}
		session.HandleMessage(ctx, raw)
	}
}

// wsSink serializes outbound writes onto one WebSocket connection.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(msg bridge.Outbound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}
