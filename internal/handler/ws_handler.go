package handler

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"chatlink/backend/internal/models"
	"chatlink/backend/internal/registry"
	"chatlink/backend/internal/router"
	"chatlink/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound buffer per connection; the registry drops frames beyond it.
	sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades authenticated clients to a persistent connection,
// registers them and feeds their frames into the message router.
type WSHandler struct {
	db       *gorm.DB
	registry *registry.Registry
	router   *router.Router
}

// NewWSHandler creates a WSHandler.
func NewWSHandler(db *gorm.DB, reg *registry.Registry, rt *router.Router) *WSHandler {
	return &WSHandler{db: db, registry: reg, router: rt}
}

// Connect godoc
// @Summary      Open a real-time connection
// @Description  Upgrades to a WebSocket authenticated by the login token (query param or Bearer header).
// @Tags         ws
// @Param        token  query  string  false  "JWT issued at login"
// @Success      101
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Unknown user"
// @Router       /ws [get]
func (h *WSHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		parts := strings.Split(c.GetHeader("Authorization"), " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			token = parts[1]
		}
	}

	userID, err := jwt.ParseUserID(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WS upgrade failed for %s: %v", userID, err)
		return
	}

	client := make(registry.Client, sendBufferSize)
	h.registry.Register(userID, client)
	log.Printf("User %s connected via WS", userID)

	go h.writePump(conn, client)

	// Confirmation frame, delivered through the registry like any other send.
	_ = h.registry.Send(userID, []byte(fmt.Sprintf("Connected as %s", userID)))

	h.readPump(c, conn, userID, client)
}

// readPump drives the connection until the peer goes away. It owns the
// registry entry: registration happened in Connect, unregistration happens
// here exactly once, guarded by the handle match so a reconnect that already
// superseded this entry is left alone.
func (h *WSHandler) readPump(c *gin.Context, conn *websocket.Conn, userID string, client registry.Client) {
	defer func() {
		h.registry.Unregister(userID, client)
		conn.Close()
		log.Printf("User %s disconnected from WS", userID)
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WS read error for %s: %v", userID, err)
			}
			return
		}

		if err := h.router.Route(c.Request.Context(), userID, payload); err != nil {
			// Routing failures go back to the sender through the registry,
			// which skips the report if this connection was superseded in
			// the meantime. Never send on the captured channel directly:
			// a reconnect may have closed it already.
			_ = h.registry.Reply(userID, client, []byte(fmt.Sprintf("Error: %v", err)))
		}
	}
}

// writePump drains the client channel onto the socket and keeps the
// connection alive with pings. It exits when the channel closes, which is how
// the registry signals that this connection was superseded or torn down.
func (h *WSHandler) writePump(conn *websocket.Conn, client registry.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
