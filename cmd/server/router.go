package main

import (
	"github.com/gin-gonic/gin"
	"github.com/thereayou/messagely/internal/handlers"
	"github.com/thereayou/messagely/internal/middleware"
	"github.com/thereayou/messagely/internal/services"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Users     *handlers.UserHandler
	Messages  *handlers.HTTPMessageHandler
	WebSocket *handlers.WebSocketHandler
}

// APIEndpoints mounts every route. Authorization middleware runs before any
// handler touches data.
func APIEndpoints(r *gin.Engine, h Handlers, guard *services.Guard) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
	}

	users := r.Group("/users", middleware.AuthMiddleware(guard))
	{
		users.GET("", h.Users.ListUsers)

		self := users.Group("/:username", middleware.EnsureCorrectUser(guard, "username"))
		self.GET("", h.Users.GetUser)
		self.GET("/to", h.Users.MessagesTo)
		self.GET("/from", h.Users.MessagesFrom)
	}

	messages := r.Group("/messages", middleware.AuthMiddleware(guard))
	{
		messages.POST("", h.Messages.SendMessage)
		messages.GET("/:id", h.Messages.GetMessage)
		messages.POST("/:id/read", h.Messages.MarkRead)
	}

	r.GET("/ws", middleware.WSAuthMiddleware(guard), h.WebSocket.HandleWebSocket)
}
