package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/spooldock/spooldock/internal/apierr"
	"github.com/spooldock/spooldock/internal/events"
	"github.com/spooldock/spooldock/internal/logger"
	"github.com/spooldock/spooldock/internal/types"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

var wsResources = map[string]bool{
	types.ResourceVendor:   true,
	types.ResourceFilament: true,
	types.ResourceSpool:    true,
	types.ResourceSetting:  true,
}

type WSHandler struct {
	log      *logger.Logger
	hub      *events.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(log *logger.Logger, hub *events.Hub) *WSHandler {
	return &WSHandler{
		log: log.With("handler", "WSHandler"),
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Subscribe upgrades the connection and streams events for one subscription
// key until the client goes away. The subscription is released on every exit
// path.
func (wh *WSHandler) Subscribe(c *gin.Context) {
	resource := c.Param("resource")
	if !wsResources[resource] {
		RespondServiceError(c, apierr.InvalidArgument("unknown resource %q", resource))
		return
	}
	key := events.BroadcastKey(resource)
	if id := c.Param("id"); id != "" {
		key = events.InstanceKey(resource, id)
	}

	conn, err := wh.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written its reply.
		wh.log.Warn("Websocket upgrade failed", "key", key, "error", err)
		return
	}

	client := wh.hub.NewClient()
	wh.hub.Subscribe(client, key)
	wh.log.Info("Websocket subscribed", "clientID", client.ID, "key", key)

	go wh.readLoop(conn, client)
	wh.writeLoop(conn, client)
	wh.log.Info("Websocket detached", "clientID", client.ID, "key", key)
}

// readLoop discards inbound frames; its job is to notice the disconnect and
// detach the subscriber.
func (wh *WSHandler) readLoop(conn *websocket.Conn, client *events.Client) {
	defer wh.hub.CloseClient(client)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (wh *WSHandler) writeLoop(conn *websocket.Conn, client *events.Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case evt, ok := <-client.Outbound:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				wh.hub.CloseClient(client)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				wh.hub.CloseClient(client)
				return
			}
		}
	}
}
