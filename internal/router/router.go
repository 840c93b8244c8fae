// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/healthbridge/enroll-backend/internal/carrier"
	"github.com/healthbridge/enroll-backend/internal/config"
	"github.com/healthbridge/enroll-backend/internal/handlers"
	"github.com/healthbridge/enroll-backend/internal/middleware"
	"github.com/healthbridge/enroll-backend/internal/services"
	"github.com/healthbridge/enroll-backend/internal/utils"
	"github.com/healthbridge/enroll-backend/internal/vault"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Carrier adapters. Adding a carrier means implementing carrier.Adapter
	// and registering it here.
	registry := carrier.NewRegistry()
	registry.Register(carrier.NewHorizonAdapter(cfg.Carrier))

	paymentVault, err := vault.NewSecretsManagerVault(cfg.Vault)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize payment vault")
	}

	// Initialize services
	store := services.NewSubmissionStore(db)
	resolver := services.NewSecretResolver(paymentVault, store, cfg.Encryption.Key, !cfg.IsProduction())
	rater := services.NewRatingClient(cfg.RateEngine)

	authService := services.NewAuthService(db, cfg)
	applicationService := services.NewApplicationService(db)
	submissionService := services.NewSubmissionService(store, resolver, rater, registry)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	applicationHandler := handlers.NewApplicationHandler(applicationService)
	submissionHandler := handlers.NewSubmissionHandler(submissionService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/login", authHandler.Login)
		}

		// Application routes
		applications := v1.Group("/applications")
		applications.Use(middleware.AuthRequired())
		{
			applications.GET("", applicationHandler.GetApplications)
			applications.GET("/:id", applicationHandler.GetApplication)
			applications.GET("/:id/payment", applicationHandler.GetPaymentSummary)
			applications.GET("/:id/submissions", applicationHandler.GetSubmissionHistory)

			applications.POST("/:id/submit",
				middleware.SubmitterRequired(),
				middleware.SubmitRateLimit(),
				submissionHandler.SubmitApplication)
		}
	}

	return r
}
