package main

import (
	"context"
	"log"
	"tontine-backend/config"
	"tontine-backend/database"
	"tontine-backend/directory"
	"tontine-backend/handlers"
	"tontine-backend/middleware"
	"tontine-backend/services"
	"tontine-backend/store"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	config.Load()

	// Connect to database
	database.Connect()

	// Connect to Redis (optional, won't crash if unavailable)
	database.ConnectRedis()

	// Wire collaborators
	groupStore := store.NewGormGroupStore(database.DB, database.Redis)
	alertStore := store.NewGormAlertStore(database.DB)
	userDir := directory.NewGormDirectory(database.DB)
	notifier := services.NewNotificationService(context.Background())
	groupService := services.NewGroupService(groupStore, alertStore, userDir, notifier)
	handlers.Init(groupService, userDir)

	// Setup router
	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": config.AppConfig.AppName,
		})
	})

	// ==========================================
	// AUTH ROUTES (public)
	// ==========================================
	auth := r.Group("/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
	}

	// ==========================================
	// API ROUTES (authenticated)
	// ==========================================
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	{
		// User
		api.GET("/users/me", handlers.GetProfile)
		api.PUT("/users/me", handlers.UpdateProfile)
		api.PUT("/users/me/fcm-token", handlers.UpdateFCMToken)

		// Groups
		api.POST("/groups", handlers.CreateGroup)
		api.GET("/groups", handlers.GetGroups)
		api.GET("/groups/:id", handlers.GetGroup)
		api.GET("/groups/:id/schedule", handlers.GetSchedule)
		api.DELETE("/groups/:id", handlers.DeleteGroup)
		api.POST("/groups/join", handlers.JoinGroup)
		api.POST("/groups/:id/invite", handlers.InviteToGroup)

		// Rotation
		api.POST("/groups/:id/confirm", handlers.ConfirmReception)
		api.POST("/groups/:id/give-turn", handlers.GiveTurn)

		// Alerts
		api.GET("/alerts", handlers.GetAlerts)
	}

	// Start server
	port := config.AppConfig.Port
	log.Printf("🚀 %s server starting on port %s", config.AppConfig.AppName, port)

	addr := "0.0.0.0:" + port
	log.Printf("🚀 Listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
