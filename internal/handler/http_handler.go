package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/majex-chat/internal/domain"
	"github.com/weiawesome/majex-chat/internal/repository"
	"github.com/weiawesome/majex-chat/internal/service"
	"github.com/weiawesome/majex-chat/pkg/log"
	"github.com/weiawesome/majex-chat/pkg/response"
)

// HealthCheck reports whether a backing dependency is usable.
type HealthCheck func(ctx context.Context) error

type HTTPHandler struct {
	history service.HistoryService
	chat    service.ChatService
	health  HealthCheck
}

func NewHTTPHandler(history service.HistoryService, chat service.ChatService, health HealthCheck) *HTTPHandler {
	return &HTTPHandler{
		history: history,
		chat:    chat,
		health:  health,
	}
}

func (h *HTTPHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/messages", h.GetMessages)
	r.GET("/messages/:id", h.GetMessage)
	r.GET("/chat/online", h.GetOnlineCount)
	r.GET("/health", h.HealthCheck)
}

// GetMessages handles GET /messages. The body is a bare JSON array, oldest
// message first.
func (h *HTTPHandler) GetMessages(c *gin.Context) {
	since := int64(-1)
	if raw := c.Query("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			response.BadRequest(c, "since must be a non-negative unix millisecond timestamp")
			return
		}
		since = parsed
	}

	messages, err := h.history.GetHistory(c.Request.Context(), since)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to get chat history")
		response.InternalError(c, "failed to get chat history")
		return
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}

	c.JSON(http.StatusOK, messages)
}

// GetMessage handles GET /messages/:id.
func (h *HTTPHandler) GetMessage(c *gin.Context) {
	msg, err := h.history.GetMessage(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "message not found")
			return
		}
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to get message")
		response.InternalError(c, "failed to get message")
		return
	}
	response.Success(c, msg)
}

func (h *HTTPHandler) GetOnlineCount(c *gin.Context) {
	response.Success(c, gin.H{"count": h.chat.OnlineCount()})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			l := log.Ctx(c.Request.Context())
			l.Warn().Err(err).Msg("health check failed")
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
