package server

import (
	"time"

	httpHandler "robopost/interfaces/http"
	"robopost/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func InitiateRouter(
	healthHandler httpHandler.IHealthHandler,
	botHandler httpHandler.IBotHandler,
	platformAuthHandler httpHandler.IPlatformAuthHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "http://localhost:4201"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", healthHandler.Healthz)

	// OAuth bootstrap routes (operator approves once in a browser)
	if platformAuthHandler != nil {
		router.GET("/auth/x", platformAuthHandler.GetAuthURL)
		router.GET("/auth/x/callback", platformAuthHandler.Callback)
	}

	api := router.Group("api")
	api.Use(middleware.Auth())

	api.GET("/bot/status", botHandler.Status)
	api.POST("/bot/trigger", botHandler.Trigger)

	return router
}
