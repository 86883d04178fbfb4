package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/Rawann0m/EcoNest-sub000/internal/cache"
	"github.com/Rawann0m/EcoNest-sub000/internal/handlers"
	"github.com/Rawann0m/EcoNest-sub000/internal/httpx"
	"github.com/Rawann0m/EcoNest-sub000/internal/middleware"
	"github.com/Rawann0m/EcoNest-sub000/internal/notify"
	"github.com/Rawann0m/EcoNest-sub000/internal/repository"
	"github.com/Rawann0m/EcoNest-sub000/internal/service"
	"github.com/Rawann0m/EcoNest-sub000/internal/storage"
	"github.com/Rawann0m/EcoNest-sub000/internal/stream"
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

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "EcoNest Messaging Backend",
		// Support image uploads up to 10MB + overhead.
		BodyLimit: 12 * 1024 * 1024, // 12MB
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-EN-CSRF",
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

	convoCache := cache.NewConvoCache(redisCache)
	feedCache := cache.NewFeedCache(redisCache)
	presenceCache := cache.NewPresenceCache(redisCache)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	communityRepo := repository.NewCommunityRepository(db)
	postRepo := repository.NewPostRepository(db)
	replyRepo := repository.NewReplyRepository(db)
	pendingEventRepo := repository.NewPendingEventRepository(db)
	versionRepo := repository.NewVersionRepository(db)

	// In-process event broker feeding the WebSocket layer.
	broker := stream.NewBroker()

	// NATS is optional; nil dispatcher no-ops every publish.
	notifier, err := notify.InitFromEnv()
	if err != nil {
		log.Printf("WARNING: NATS connection failed: %v. Running without cross-service events.", err)
	} else if notifier != nil {
		log.Println("NATS connected successfully")
		defer notifier.Close()
	}

	// Initialize S3/MinIO storage (best-effort; feature endpoints return 503 if missing)
	var s3Store *storage.S3Storage
	if cfg, err := storage.LoadS3ConfigFromEnv(); err != nil {
		log.Printf("WARNING: S3 storage not configured: %v", err)
	} else if st, err := storage.NewS3Storage(cfg); err != nil {
		log.Printf("WARNING: Failed to initialize S3 storage: %v", err)
	} else {
		s3Store = st
		log.Printf("S3 storage initialized successfully (bucket=%s)", cfg.Bucket)
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, refreshTokenRepo)
	userService := service.NewUserService(userRepo)
	messageService := service.NewMessageService(messageRepo, userRepo, broker, convoCache, notifier)
	feedService := service.NewFeedService(postRepo, replyRepo, communityRepo, broker, feedCache, notifier)
	communityService := service.NewCommunityService(communityRepo)
	avatarService := service.NewAvatarService(userRepo, s3Store)
	mediaService := service.NewMediaService(s3Store)
	versionService := service.NewVersionService(versionRepo)

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(messageService, feedService, userService, broker, pendingEventRepo, presenceCache)
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	avatarHandler := handlers.NewAvatarHandler(avatarService)
	mediaHandler := handlers.NewMediaHandler(mediaService)
	messageHandler := handlers.NewMessageHandler(messageService)
	feedHandler := handlers.NewFeedHandler(feedService)
	communityHandler := handlers.NewCommunityHandler(communityService)
	versionHandler := handlers.NewVersionHandler(versionService)

	// Public routes
	api := app.Group("/api", middleware.OriginAllowed())
	auth := api.Group("/auth", limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
	}))
	auth.Get("/csrf", authHandler.CSRF)
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh) // No CSRF required - protected by HttpOnly refresh token
	auth.Post("/logout", middleware.CSRFRequired(), authHandler.Logout)
	api.Get("/users/check-username", userHandler.CheckUsername) // Public endpoint for username check

	// Version endpoints (public - no auth required for update checks)
	api.Get("/version", versionHandler.GetVersion)
	api.Get("/version/check", versionHandler.CheckUpdate)

	// Expired tokens accumulate; prune once per day.
	go func() {
		for {
			if err := refreshTokenRepo.DeleteExpired(); err != nil {
				log.Printf("WARNING: refresh token cleanup failed: %v", err)
			}
			time.Sleep(24 * time.Hour)
		}
	}()

	// Protected routes
	protected := api.Group("/", middleware.AuthRequired(), middleware.CSRFRequired())
	protected.Post("/auth/logout-all", authHandler.LogoutAll)
	protected.Get("/users/me", userHandler.GetCurrentUser)
	protected.Put("/users/me", userHandler.UpdateProfile)
	protected.Post(
		"/users/me/avatar",
		limiter.New(limiter.Config{
			Max:        10,
			Expiration: 10 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				if uid, err := httpx.LocalUint(c, "userID"); err == nil {
					return "avatar:" + strconv.FormatUint(uint64(uid), 10)
				}
				return c.IP()
			},
		}),
		avatarHandler.UploadMyAvatar,
	)
	protected.Delete("/users/me/avatar", avatarHandler.DeleteMyAvatar)
	protected.Get("/users/me/plants", userHandler.ListFavoritePlants)
	protected.Post("/users/me/plants/:plantID", userHandler.AddFavoritePlant)
	protected.Delete("/users/me/plants/:plantID", userHandler.RemoveFavoritePlant)
	protected.Get("/users/search", userHandler.SearchUsers)
	protected.Get("/users/:identifier", userHandler.GetUser)

	// Media
	protected.Post(
		"/media/upload",
		limiter.New(limiter.Config{
			Max:        30,
			Expiration: 10 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				if uid, err := httpx.LocalUint(c, "userID"); err == nil {
					return "media:" + strconv.FormatUint(uint64(uid), 10)
				}
				return c.IP()
			},
		}),
		mediaHandler.UploadImage,
	)
	protected.Get("/media/*", mediaHandler.GetObject)

	// Direct messages
	protected.Get("/conversations", messageHandler.ListConversations)
	protected.Get("/messages/unread", messageHandler.UnreadCount)
	protected.Post("/messages", messageHandler.SendMessage)
	protected.Get("/messages/thread/:peerID", messageHandler.GetThread)
	protected.Post("/messages/thread/:peerID/read", messageHandler.MarkRead)
	protected.Delete("/messages/thread/:peerID", messageHandler.DeleteThread)

	// Communities
	protected.Post("/communities", communityHandler.CreateCommunity)
	protected.Get("/communities/mine", communityHandler.GetMyCommunities)
	protected.Get("/communities/search", communityHandler.Search)
	protected.Get("/communities/:communityID", communityHandler.GetCommunity)
	protected.Post("/communities/:communityID/join", communityHandler.Join)
	protected.Post("/communities/:communityID/leave", communityHandler.Leave)
	protected.Get("/communities/:communityID/members", communityHandler.GetMembers)

	// Community feed
	protected.Post("/posts", feedHandler.CreatePost)
	protected.Get("/feed/:communityID", feedHandler.GetFeed)
	protected.Get("/feed/:communityID/search", feedHandler.SearchPosts)
	protected.Get("/posts/:postID", feedHandler.GetPost)
	protected.Delete("/posts/:postID", feedHandler.DeletePost)
	protected.Post("/posts/:postID/like", feedHandler.ToggleLike)
	protected.Get("/posts/:postID/replies", feedHandler.GetReplies)
	protected.Post("/posts/:postID/replies", feedHandler.CreateReply)
	protected.Get("/posts/:postID/reply-count", feedHandler.GetReplyCount)
	protected.Delete("/replies/:replyID", feedHandler.DeleteReply)

	// Admin
	admin := protected.Group("/admin", middleware.RequireRole("admin"))
	admin.Post("/version", versionHandler.PublishVersion)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.OriginAllowed(),
		middleware.AuthRequired(),
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
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "EcoNest messaging is running",
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
