package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/majex-chat/internal/config"
	"github.com/weiawesome/majex-chat/internal/hub"
	"github.com/weiawesome/majex-chat/internal/service"
	"github.com/weiawesome/majex-chat/pkg/log"
)

type WSHandler struct {
	hub      *hub.Hub
	service  service.ChatService
	wsCfg    config.WebSocketConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(h *hub.Hub, svc service.ChatService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
		wsCfg:   wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(wsCfg.AllowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

func (h *WSHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws/chat", h.HandleWebSocket)
	r.GET("/chat/ws", h.HandleWebSocket)
}

// HandleWebSocket upgrades the request and runs a chat session until the
// connection closes.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	l := log.Ctx(c.Request.Context())

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)
	c.Set(log.FieldClientID, client.ID)

	// The request context ends with this handler; the session outlives it.
	ctx := log.WithLogger(context.Background(), client.Logger())

	go client.WritePump()
	h.hub.Register(ctx, client)
	go client.ReadPump(ctx, h.service.HandleFrame)
}
