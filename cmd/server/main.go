package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"chatlink/backend/internal/auth"
	"chatlink/backend/internal/config"
	"chatlink/backend/internal/database"
	"chatlink/backend/internal/friends"
	"chatlink/backend/internal/handler"
	"chatlink/backend/internal/registry"
	"chatlink/backend/internal/router"

	"github.com/gin-gonic/gin"

	// Swagger imports
	_ "chatlink/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func init() {
	config.LoadConfig()
}

// @title           Chatlink API
// @version         1.0
// @description     This is the API for the Chatlink service.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	// Connect to the database; no point starting without the store.
	db, err := database.Connect(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("%v", err)
	}

	// Shared state: the connection registry lives exactly as long as the
	// serving process and is drained on shutdown.
	reg := registry.New()
	friendSvc := friends.NewService(db)
	msgRouter := router.New(reg, friendSvc)

	userHandler := handler.NewUserHandler(db)
	friendHandler := handler.NewFriendHandler(friendSvc)
	wsHandler := handler.NewWSHandler(db, reg, msgRouter)

	engine := gin.Default()

	// Swagger route
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":     "pong",
			"connections": reg.Len(),
		})
	})

	// Real-time connection endpoint
	engine.GET("/ws", wsHandler.Connect)

	// API v1 routes
	apiV1 := engine.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/signup", userHandler.Signup)
			authRoutes.POST("/login", userHandler.Login)
		}

		// User routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware())
		{
			userRoutes.GET("", userHandler.SearchUsers)
			userRoutes.GET("/me", userHandler.GetMe)
			userRoutes.GET("/me/friends", friendHandler.GetFriends)

			// Friendship routes
			userRoutes.POST("/:id/request", friendHandler.SendRequest)
			userRoutes.POST("/:id/accept", friendHandler.AcceptRequest)
		}
	}

	srv := &http.Server{
		Addr:    config.AppConfig.ListenAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server is running on %s", config.AppConfig.ListenAddr)
		log.Printf("Swagger UI is available at http://%s/swagger/index.html", config.AppConfig.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}

	// Drop every live connection so cleanup does not rely on process exit.
	reg.Close()
	log.Println("Server stopped.")
}
