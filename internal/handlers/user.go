package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/messagely/internal/logging"
	"github.com/thereayou/messagely/internal/services"
)

type UserHandler struct {
	identity *services.IdentityManager
	messages *services.MessageDirectory
	log      logging.Logger
}

func NewUserHandler(identity *services.IdentityManager, messages *services.MessageDirectory, log logging.Logger) *UserHandler {
	return &UserHandler{identity: identity, messages: messages, log: log}
}

// ListUsers возвращает список всех пользователей
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.identity.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetUser возвращает профиль текущего пользователя
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.identity.GetProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// MessagesTo возвращает полученные сообщения
func (h *UserHandler) MessagesTo(c *gin.Context) {
	messages, err := h.messages.MessagesTo(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// MessagesFrom возвращает отправленные сообщения
func (h *UserHandler) MessagesFrom(c *gin.Context) {
	messages, err := h.messages.MessagesFrom(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
