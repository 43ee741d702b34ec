package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"healwise-server/internal/config"
	"healwise-server/internal/handlers"
	"healwise-server/internal/metrics"
	"healwise-server/internal/middleware"
	"healwise-server/internal/models"
	"healwise-server/internal/scheduler"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, log *zap.Logger, collector *metrics.Collector) {
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Metrics(collector))

	engine := scheduler.New(scheduler.NewGormStore(db), nil, log.Named("scheduler"))

	authHandler := handlers.NewAuthHandler(db, cfg, log.Named("auth"))
	userHandler := handlers.NewUserHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(db, engine, log.Named("appointments"), collector)
	healthRecordHandler := handlers.NewHealthRecordHandler(db, log.Named("records"))
	messageHandler := handlers.NewMessageHandler(db, collector, log.Named("messages"))
	alertHandler := handlers.NewAlertHandler(db, collector)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		authRoutes.Use(limiter.Middleware())
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// User management routes
		userRoutes := private.Group("/users")
		{
			// Doctor directory - accessible by all authenticated users for booking
			userRoutes.GET("/doctors", userHandler.GetDoctors)

			// Patient directory - doctors and admins (checked in handler)
			userRoutes.GET("/doctor-patients", userHandler.GetDoctorPatients)

			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
				adminRoutes.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			// Patients book for themselves; admins on a patient's behalf
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient, models.RoleAdmin), appointmentHandler.CreateAppointment)

			// Role-scoped listing; differentiation inside the handler
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser)

			// Slot availability and advisory conflict probe
			appointmentRoutes.GET("/availability", appointmentHandler.GetAvailableSlots)
			appointmentRoutes.GET("/conflicts", appointmentHandler.CheckConflict)

			// Party or admin access, checked in handler/engine
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)
		}

		// Health record routes
		healthRecordRoutes := private.Group("/health-records")
		{
			healthRecordRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleDoctor), healthRecordHandler.CreateHealthRecord)
			healthRecordRoutes.GET("/patient/:patientId", healthRecordHandler.GetHealthRecordsForPatient)
			healthRecordRoutes.GET("/:id", healthRecordHandler.GetHealthRecordByID)
			healthRecordRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), healthRecordHandler.UpdateHealthRecord)
			healthRecordRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), healthRecordHandler.DeleteHealthRecord)
		}

		// Messaging routes
		messageRoutes := private.Group("/messages")
		{
			messageRoutes.POST("/send", messageHandler.SendMessage)
			messageRoutes.GET("", messageHandler.GetMessagesForUser)
			messageRoutes.GET("/new", messageHandler.GetNewMessages)
			messageRoutes.GET("/conversations", messageHandler.GetConversations)
			messageRoutes.PATCH("/:messageId/read", messageHandler.MarkMessageAsRead)
		}

		// Administrative alerting routes
		alertRoutes := private.Group("/alerts")
		{
			alertRoutes.GET("/active", alertHandler.GetActiveAlerts)

			adminAlertRoutes := alertRoutes.Group("")
			adminAlertRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminAlertRoutes.POST("", alertHandler.CreateAlert)
				adminAlertRoutes.GET("", alertHandler.GetAlerts)
				adminAlertRoutes.PATCH("/:id/deactivate", alertHandler.DeactivateAlert)
			}
		}
	}

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
