// internal/router/router.go
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/javajoker/insurance-backend/internal/config"
	"github.com/javajoker/insurance-backend/internal/handlers"
	"github.com/javajoker/insurance-backend/internal/middleware"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/services"
	"github.com/javajoker/insurance-backend/internal/store"
	"github.com/javajoker/insurance-backend/internal/utils"
)

// Dependencies are the wired services the HTTP layer exposes.
type Dependencies struct {
	Applications *services.ApplicationService
	Payments     *services.PaymentService
	Views        *services.ViewCounterService
	Reports      *services.ReportService
	AuditLogs    store.AuditLogStore
	// Ready reports whether backing stores are reachable; nil means always ready.
	Ready func(ctx context.Context) error
}

// Initialize builds the engine. Background goroutines owned by the router stop when ctx
// is cancelled.
func Initialize(ctx context.Context, cfg *config.Config, deps Dependencies) *gin.Engine {
	// Unknown request fields are a validation error, not silently dropped
	binding.EnableDecoderDisallowUnknownFields = true

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	applicationHandler := handlers.NewApplicationHandler(deps.Applications)
	paymentHandler := handlers.NewPaymentHandler(deps.Payments)
	webhookHandler := handlers.NewWebhookHandler(deps.Payments)
	viewHandler := handlers.NewViewHandler(deps.Views, cfg.ViewCounter.PollInterval)
	adminHandler := handlers.NewAdminHandler(deps.Reports)

	generalLimiter := middleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	viewLimiter := middleware.NewRateLimiter(ctx, rate.Every(time.Minute/time.Duration(max(cfg.RateLimit.ViewRequestsPerMinute, 1))), cfg.RateLimit.ViewBurst)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		if deps.Ready != nil {
			if err := deps.Ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/v1")
	v1.Use(generalLimiter.Middleware())
	{
		// Processor callbacks authenticate by signature
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/stripe", webhookHandler.StripeWebhook)
		}

		// View counters are public; anonymous visitors are throttled instead of authenticated
		views := v1.Group("/views")
		{
			views.POST("/:resource_id", viewLimiter.Middleware(), viewHandler.IncrementViews)
			views.GET("/:resource_id", viewHandler.GetViews)
			views.GET("/:resource_id/stream", viewHandler.StreamViews)
		}

		authed := v1.Group("")
		authed.Use(middleware.AuthRequired(), middleware.AuditLogMiddleware(deps.AuditLogs))

		// Application routes
		applications := authed.Group("/applications")
		{
			applications.POST("", applicationHandler.SubmitApplication)
			applications.GET("", applicationHandler.ListApplications)
			applications.GET("/:id", applicationHandler.GetApplication)
			applications.PUT("/:id/review", applicationHandler.ReviewApplication)
		}

		// Payment routes
		payments := authed.Group("/payments")
		{
			payments.POST("/intent", paymentHandler.CreatePaymentIntent)
			payments.POST("/confirm", paymentHandler.ConfirmPayment)
			payments.GET("/history", paymentHandler.GetPaymentHistory)
			payments.POST("/:intent_id/confirm-token", paymentHandler.ConfirmWithToken)
			payments.GET("/:intent_id/status", paymentHandler.GetPaymentStatus)
		}

		// Admin routes
		admin := authed.Group("/admin")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("/revenue", adminHandler.GetRevenue)
			admin.POST("/revenue/export", adminHandler.ExportRevenue)
		}
	}

	return r
}
