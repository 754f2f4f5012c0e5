package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/cvagent/internal/middleware"
)

type RouterDeps struct {
	Chat      *ChatHandler
	JWTSecret []byte
	// TurnInterval is the minimum gap between two chat turns of one client.
	TurnInterval time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/healthz", deps.Chat.Health)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/chat", middleware.RateLimit(deps.TurnInterval), deps.Chat.Chat)
	authGroup.GET("/threads/:id/messages", deps.Chat.Messages)
}
