package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/messagely/internal/handlers/dto"
	"github.com/thereayou/messagely/internal/logging"
	"github.com/thereayou/messagely/internal/services"
)

type AuthHandler struct {
	auth *services.AuthService
	log  logging.Logger
}

func NewAuthHandler(auth *services.AuthService, log logging.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

// Register создаёт аккаунт и возвращает токен
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.TokenResponse{Token: token})
}

// Login обновляет время входа и возвращает токен
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.TokenResponse{Token: token})
}
