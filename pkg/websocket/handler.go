package websocket

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// NewUpgrader accepts connections from the comma-separated origins ("*" for any).
// Requests without an Origin header (non-browser clients) are always allowed.
func NewUpgrader(origins string) *websocket.Upgrader {
	allowed := make(map[string]bool)
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			allowed[trimmed] = true
		}
	}

	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed["*"] || allowed[origin]
		},
	}
}

// HandleWebSocket upgrades the request and attaches the connection to hub
func HandleWebSocket(c *gin.Context, hub *Hub, upgrader *websocket.Upgrader) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.logger.Warn("Failed to upgrade WebSocket", zap.Error(err))
		return
	}

	client := NewClient(uuid.New().String(), conn, hub, hub.logger)
	select {
	case hub.Register <- client:
	case <-hub.Done():
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
