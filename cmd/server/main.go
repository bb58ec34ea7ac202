package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/mghostels/booking-backend/internal/config"
	"github.com/mghostels/booking-backend/internal/database"
	"github.com/mghostels/booking-backend/internal/handlers"
	"github.com/mghostels/booking-backend/internal/middleware"
	"github.com/mghostels/booking-backend/internal/services"
	"github.com/mghostels/booking-backend/internal/utils"
	"github.com/mghostels/booking-backend/pkg/jwt"
	"github.com/mghostels/booking-backend/pkg/validator"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting MG Hostels Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize Redis client for booking status events
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// Notifications are best effort, so a dead broker is not fatal.
		logger.WithError(err).Warn("Redis unreachable at startup, booking events will be dropped until it recovers")
	}

	// Initialize repositories
	bedRepository := database.NewBedRepository(db)
	bookingRepository := database.NewBookingRepository(db, cfg.Booking.ReferencePrefix, cfg.Booking.ReferenceMaxAttempts)
	residentRepository := database.NewResidentRepository(db)
	staffRepository := database.NewStaffRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	phoneValidator := validator.NewPhoneValidator()
	validationService := services.NewBookingValidationService(bedRepository, bookingRepository, residentRepository, phoneValidator, logger)
	profileService := services.NewProfileService(cfg.Profiles, residentRepository, logger)
	notificationService := services.NewNotificationService(redisClient, cfg.Redis.Channel, logger)
	bookingService := services.NewBookingService(bookingRepository, bedRepository, validationService, profileService, notificationService, logger)
	bedService := services.NewBedService(bedRepository, logger)
	authService := services.NewAuthService(staffRepository, jwtService, cfg.JWT.AccessTokenExpiry, cfg.Security.BcryptCost, logger)

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	bedHandler := handlers.NewBedHandler(bedService, logger)
	authHandler := handlers.NewAuthHandler(authService, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
		}

		// Bed directory (public read)
		beds := v1.Group("/beds")
		{
			beds.GET("", bedHandler.ListBeds)
			beds.GET("/availability", bedHandler.GetRoomAvailability)
			beds.GET("/:id", bedHandler.GetBed)
		}

		// Staff-only routes
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(jwtService))
		{
			bookings := protected.Group("/bookings")
			{
				bookings.POST("", bookingHandler.CreateBooking)
				bookings.GET("", bookingHandler.ListBookings)
				bookings.GET("/:id", bookingHandler.GetBooking)
				bookings.GET("/reference/:reference", bookingHandler.GetBookingByReference)
				bookings.POST("/:id/confirm", bookingHandler.ConfirmBooking)
				bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
			}

			maintenance := protected.Group("/beds", middleware.RequireRole("warden", "admin"))
			{
				maintenance.POST("/:id/maintenance", bedHandler.SetMaintenance)
				maintenance.DELETE("/:id/maintenance", bedHandler.ClearMaintenance)
			}

			protected.POST("/auth/password", authHandler.ChangePassword)
		}
	}

	// HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		device := utils.ParseUserAgent(c.Request.UserAgent())

		fields := logrus.Fields{
			"status":      c.Writer.Status(),
			"method":      c.Request.Method,
			"path":        path,
			"query":       query,
			"ip":          utils.GetRealIP(c),
			"latency_ms":  latency.Milliseconds(),
			"device_type": device.DeviceType,
			"os":          device.OS,
			"browser":     device.Browser,
		}

		if staffCtx, ok := middleware.GetStaffContext(c); ok {
			fields["staff"] = staffCtx.Username
		}

		entry := logger.WithFields(fields)
		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db interface{ Ping() error }) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
