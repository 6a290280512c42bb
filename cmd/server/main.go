package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/andy2076/school-chat-system/internal/cache"
	"github.com/andy2076/school-chat-system/internal/handlers"
	"github.com/andy2076/school-chat-system/internal/middleware"
	"github.com/andy2076/school-chat-system/internal/models"
	"github.com/andy2076/school-chat-system/internal/repository"
	"github.com/andy2076/school-chat-system/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	sessionTTL := service.DefaultSessionTTL
	if ttlStr := os.Getenv("SESSION_TTL_HOURS"); ttlStr != "" {
		if hours, err := strconv.Atoi(ttlStr); err == nil && hours > 0 {
			sessionTTL = time.Duration(hours) * time.Hour
		}
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "School Chat Backend",
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize database connection
	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize Redis cache
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	redisCache := cache.NewRedisCache(redisAddr, redisPassword, redisDB)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running without cache.", err)
		redisCache = nil
	} else {
		log.Println("Redis cache connected successfully")
	}

	userCache := cache.NewUserCache(redisCache)
	roomCache := cache.NewRoomCache(redisCache)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	codeRepo := repository.NewEnrollmentCodeRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	pushSubRepo := repository.NewPushSubscriptionRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, codeRepo, service.AuthConfig{
		JWTSecret:  []byte(jwtSecret),
		SessionTTL: sessionTTL,
	})
	roomService := service.NewRoomService(roomRepo, messageRepo, userRepo, service.RoomPolicy{
		DeduplicateIndividual: os.Getenv("DEDUPLICATE_INDIVIDUAL_ROOMS") == "true",
	})
	messageService := service.NewMessageService(messageRepo, roomRepo)
	notificationService := service.NewNotificationService(pushSubRepo)

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(messageService, roomService, userCache, roomCache)
	authHandler := handlers.NewAuthHandler(authService)
	roomHandler := handlers.NewRoomHandler(roomService, roomCache)
	messageHandler := handlers.NewMessageHandler(messageService, roomService, roomCache, wsHandler.GetHub())
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Public routes
	api := app.Group("/api", middleware.OriginAllowed())
	auth := api.Group("/auth", limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
	}))
	auth.Post("/enroll", authHandler.Enroll)
	auth.Post("/login", authHandler.StaffLogin)
	auth.Post("/verify", middleware.AuthRequired(authService), authHandler.Verify)
	auth.Post("/logout", middleware.AuthRequired(authService), authHandler.Logout)
	auth.Post("/codes", middleware.AuthRequired(authService), middleware.RequireMinRole(models.RoleAdmin), authHandler.IssueCode)

	// Protected routes
	protected := api.Group("/", middleware.AuthRequired(authService))
	protected.Get("/rooms", roomHandler.GetRooms)
	protected.Get("/rooms/:roomId", roomHandler.GetRoom)
	protected.Post("/rooms", middleware.RequireMinRole(models.RoleTeacher), roomHandler.CreateRoom)
	protected.Put("/rooms/:roomId/members", middleware.RequireMinRole(models.RoleTeacher), roomHandler.UpdateMembers)
	protected.Delete("/rooms/:roomId", middleware.RequireMinRole(models.RoleAdmin), roomHandler.DeleteRoom)
	protected.Get("/messages/room/:roomId", messageHandler.GetRoomMessages)
	protected.Get("/messages/unread", messageHandler.GetUnread)
	protected.Post("/messages", messageHandler.SendMessage)
	protected.Put("/messages/:messageId/read", messageHandler.MarkRead)
	protected.Get("/notifications/subscribe", notificationHandler.GetSubscription)
	protected.Post("/notifications/subscribe", notificationHandler.Subscribe)
	protected.Delete("/notifications/subscribe", notificationHandler.Unsubscribe)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.OriginAllowed(),
		middleware.AuthRequired(authService),
		func(c *fiber.Ctx) error {
			// Upgrade to WebSocket
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	// Health check
	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "School chat backend is running",
		})
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s...", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
