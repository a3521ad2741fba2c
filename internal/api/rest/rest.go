package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/fanvault/reconciler/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Balance reconciliation (requires authentication)
		v1.POST("/balances/reconcile", middleware.Auth(authCfg), handler.ReconcileBalances)
	}
}
