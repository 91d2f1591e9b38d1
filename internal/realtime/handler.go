package realtime

import (
	"net/http"
	"time"

	"lostfound_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Handler exposes ticket issuance and the websocket endpoint.
type Handler struct {
	hub      *Hub
	tickets  *TicketIssuer
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a realtime handler. Origins are enforced by the CORS layer
// and the ticket, so the upgrader accepts any origin.
func NewHandler(hub *Hub, tickets *TicketIssuer, logger *zap.Logger) *Handler {
	return &Handler{
		hub:     hub,
		tickets: tickets,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.Named("RealtimeHandler"),
	}
}

// RegisterRoutes mounts /realtime. The websocket route authenticates by ticket, not by header.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	rt := router.Group("/realtime")
	rt.POST("/ticket", authMW, h.issueTicket)
	rt.GET("/ws", h.serveWS)
}

func (h *Handler) issueTicket(c *gin.Context) {
	actor, err := common.ActorFromContext(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	ticket, expiresAt, err := h.tickets.Issue(actor.ID)
	if err != nil {
		h.logger.Error("Failed to issue realtime ticket", zap.Error(err))
		common.RespondWithError(c, common.ErrInternalServer)
		return
	}
	common.RespondOK(c, "Realtime ticket issued", gin.H{"ticket": ticket, "expires_at": expiresAt})
}

func (h *Handler) serveWS(c *gin.Context) {
	userID, err := h.tickets.Verify(c.Query("ticket"))
	if err != nil {
		h.logger.Debug("Rejected websocket upgrade", zap.Error(err))
		common.RespondWithError(c, common.ErrUnauthorized.WithMessage("Invalid or expired ticket"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(userID)
	h.hub.Register(client)
	h.logger.Debug("Websocket connected", zap.String("user_id", userID.String()))

	go h.writePump(client, conn)
	h.readPump(client, conn)
}

// readPump only services control frames; clients never send application data.
func (h *Handler) readPump(client *Client, conn *websocket.Conn) {
	defer client.Close()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(client *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case msg, ok := <-client.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				client.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.Close()
				return
			}
		}
	}
}
