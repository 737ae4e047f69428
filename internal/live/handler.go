package live

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yukikurage/task-tracker/internal/constants"
	apierrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/middleware"
)

// Handler upgrades authenticated requests to the task channel
type Handler struct {
	hub        *Hub
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
}

func NewHandler(hub *Hub, dispatcher *Dispatcher) *Handler {
	return &Handler{
		hub:        hub,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Serve runs the read, handle, reply loop until the client goes away.
// Messages on one connection are processed strictly in order.
func (h *Handler) Serve(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		log.Printf("live: upgrade failed for user %d: %v", userID, err)
		return
	}
	// gorilla answers an oversized frame with close code 1009 and ReadMessage fails
	conn.SetReadLimit(constants.MaxLiveMessageBytes)

	client := newClient(conn, userID)
	h.hub.Register(client)
	defer func() {
		h.hub.Unregister(client)
		_ = conn.Close()
	}()

	ctx := c.Request.Context()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) ||
				websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("live: connection for user %d closed: %v", userID, err)
			}
			return
		}

		reply := h.dispatcher.Handle(ctx, userID, raw)
		if err := client.WriteJSON(reply); err != nil {
			log.Printf("live: write to user %d failed: %v", userID, err)
			return
		}
	}
}
