package main

import (
	"log"

	"taskhub-backend/config"
	"taskhub-backend/database"
	"taskhub-backend/events"
	"taskhub-backend/handlers"
	"taskhub-backend/middleware"
	"taskhub-backend/repository"
	"taskhub-backend/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	config.Load()

	// Connect to database
	database.Connect()

	// Connect to Redis (optional, won't crash if unavailable)
	database.ConnectRedis()

	// Repositories
	userRepo := repository.NewUserRepository(database.DB)
	groupRepo := repository.NewGroupRepository(database.DB)
	friendshipRepo := repository.NewFriendshipRepository(database.DB)
	invitationRepo := repository.NewInvitationRepository(database.DB)

	// Event bus with its delivery sinks
	notifications := services.NewNotificationService(userRepo, services.NotificationConfig{
		SendGridAPIKey:   config.AppConfig.SendGridAPIKey,
		SendGridFrom:     config.AppConfig.SendGridFrom,
		FirebaseCredPath: config.AppConfig.FirebaseCredPath,
		AppName:          config.AppConfig.AppName,
	})
	bus := events.NewBus(config.AppConfig.EventQueueSize,
		events.NewRedisSink(database.Redis, "taskhub.events"),
		notifications,
	)
	defer bus.Close()

	// Services
	groupService := services.NewGroupService(groupRepo, userRepo, userRepo, bus)
	socialService := services.NewSocialService(
		friendshipRepo,
		invitationRepo,
		userRepo,
		userRepo,
		groupService,
		services.AppURLGateway{BaseURL: config.AppConfig.AppURL},
		bus,
	)

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo, socialService)
	userHandler := handlers.NewUserHandler(userRepo)
	groupHandler := handlers.NewGroupHandler(groupService)
	socialHandler := handlers.NewSocialHandler(socialService)

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
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// ==========================================
	// API ROUTES (authenticated)
	// ==========================================
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	{
		// User
		api.GET("/users/me", userHandler.GetProfile)
		api.PUT("/users/me", userHandler.UpdateProfile)
		api.PUT("/users/me/fcm-token", userHandler.UpdateFCMToken)
		api.POST("/users/search", userHandler.SearchUsers)
		api.POST("/users/:uid/block", socialHandler.BlockUser)
		api.POST("/users/:uid/unblock", socialHandler.UnblockUser)

		// Groups
		api.POST("/groups", groupHandler.CreateGroup)
		api.GET("/groups", groupHandler.ListGroups)
		api.GET("/groups/search", groupHandler.SearchGroups)
		api.GET("/groups/:id", groupHandler.GetGroup)
		api.PUT("/groups/:id", groupHandler.UpdateGroup)
		api.DELETE("/groups/:id", groupHandler.DeleteGroup)
		api.GET("/groups/:id/stats", groupHandler.GetGroupStats)
		api.POST("/groups/:id/members", groupHandler.AddMember)
		api.GET("/groups/:id/members", groupHandler.GetMembers)
		api.DELETE("/groups/:id/members/:uid", groupHandler.RemoveMember)
		api.PUT("/groups/:id/members/:uid/role", groupHandler.UpdateMemberRole)

		// Friends
		api.GET("/friends", socialHandler.ListFriends)
		api.DELETE("/friends/:uid", socialHandler.RemoveFriend)
		api.GET("/friends/mutual/:uid", socialHandler.MutualFriends)
		api.POST("/friends/requests", socialHandler.SendFriendRequest)
		api.GET("/friends/requests", socialHandler.ListPendingRequests)
		api.GET("/friends/requests/sent", socialHandler.ListSentRequests)
		api.POST("/friends/requests/:id/accept", socialHandler.AcceptFriendRequest)
		api.POST("/friends/requests/:id/decline", socialHandler.DeclineFriendRequest)

		// Invitations
		api.POST("/invitations", socialHandler.CreateInvitation)
		api.GET("/invitations", socialHandler.ListSentInvitations)
		api.GET("/invitations/received", socialHandler.ListReceivedInvitations)
		api.POST("/invitations/accept", socialHandler.AcceptInvitation)
		api.POST("/invitations/:id/decline", socialHandler.DeclineInvitation)
		api.DELETE("/invitations/:id", socialHandler.CancelInvitation)
		api.GET("/invitations/:id/url", socialHandler.GenerateInviteURL)
	}

	// Start server
	port := config.AppConfig.Port
	log.Printf("🚀 %s server starting on port %s", config.AppConfig.AppName, port)

	addr := "0.0.0.0:" + port
	if err := r.Run(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
