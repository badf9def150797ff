package bridge

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/utils"
)

// WebSocket frame types.
const (
	MsgRun    = "run"
	MsgResult = "result"
	MsgError  = "error"
	MsgPing   = "ping"
	MsgPong   = "pong"
	MsgSystem = "system"
)

const writeWait = 10 * time.Second

// WSHandler bridges script runs over a websocket. Each "run" frame executes
// concurrently and is answered by a "result" or "error" frame with the same id.
type WSHandler struct {
	service  *Service
	metrics  *monitoring.Metrics
	log      *logging.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a websocket handler
func NewWSHandler(service *Service, metrics *monitoring.Metrics, logger *logging.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		metrics: metrics,
		log:     logging.OrNop(logger).Component("ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// HandleConnection handles the upgrade and the read loop
func (h *WSHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(utils.MaxPayloadSize)

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	ws := &wsConn{conn: conn}
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	h.send(ws, types.WSMessage{Type: MsgSystem, Message: "connected to script runner"})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var msg types.WSMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.send(ws, types.WSMessage{Type: MsgError, Error: "invalid message"})
			continue
		}
		h.metrics.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case MsgRun:
			wg.Add(1)
			go func(msg types.WSMessage) {
				defer wg.Done()
				h.run(ctx, ws, msg)
			}(msg)
		case MsgPing:
			h.send(ws, types.WSMessage{Type: MsgPong, ID: msg.ID})
		default:
			h.send(ws, types.WSMessage{Type: MsgError, ID: msg.ID, Error: "unknown message type"})
		}
	}
}

func (h *WSHandler) run(ctx context.Context, ws *wsConn, msg types.WSMessage) {
	merged, err := h.service.RunScript(ctx, msg.Script, msg.Context)
	if err != nil {
		h.send(ws, types.WSMessage{Type: MsgError, ID: msg.ID, Error: err.Error()})
		return
	}
	h.send(ws, types.WSMessage{Type: MsgResult, ID: msg.ID, Context: merged})
}

func (h *WSHandler) send(ws *wsConn, msg types.WSMessage) {
	data, err := sonic.Marshal(msg)
	if err != nil {
		h.log.Error("failed to encode websocket message", zap.Error(err))
		return
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	_ = ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.log.Debug("websocket write failed", zap.Error(err))
		return
	}
	h.metrics.RecordWSMessage("out", msg.Type)
}
