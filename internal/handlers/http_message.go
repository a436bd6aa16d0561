package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/messagely/internal/common"
	"github.com/thereayou/messagely/internal/handlers/dto"
	"github.com/thereayou/messagely/internal/logging"
	"github.com/thereayou/messagely/internal/middleware"
	"github.com/thereayou/messagely/internal/models"
	"github.com/thereayou/messagely/internal/services"
)

type HTTPMessageHandler struct {
	messages *services.MessageDirectory
	guard    *services.Guard
	log      logging.Logger
}

func NewHTTPMessageHandler(messages *services.MessageDirectory, guard *services.Guard, log logging.Logger) *HTTPMessageHandler {
	return &HTTPMessageHandler{messages: messages, guard: guard, log: log}
}

// SendMessage отправляет сообщение другому пользователю
func (h *HTTPMessageHandler) SendMessage(c *gin.Context) {
	principal, _ := middleware.Principal(c)

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), principal, req.ToUsername, req.Body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// GetMessage возвращает сообщение отправителю или получателю
func (h *HTTPMessageHandler) GetMessage(c *gin.Context) {
	principal, _ := middleware.Principal(c)

	msg, ok := h.loadMessage(c, principal)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// MarkRead отмечает сообщение прочитанным (только получатель)
func (h *HTTPMessageHandler) MarkRead(c *gin.Context) {
	principal, _ := middleware.Principal(c)

	msg, ok := h.loadMessage(c, principal)
	if !ok {
		return
	}
	if err := h.guard.RequireRecipient(principal, msg); err != nil {
		respondError(c, h.log, err)
		return
	}

	receipt, err := h.messages.MarkRead(c.Request.Context(), msg.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": receipt})
}

// loadMessage отвечает 404 и на несуществующий id, и на чужое сообщение,
// чтобы по статусу нельзя было узнать, существует ли сообщение.
func (h *HTTPMessageHandler) loadMessage(c *gin.Context, principal string) (*models.MessageDetail, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return nil, false
	}

	msg, err := h.messages.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return nil, false
	}
	if err := h.guard.RequireMessageParty(principal, msg); err != nil {
		respondError(c, h.log, common.ErrNotFound)
		return nil, false
	}
	return msg, true
}
