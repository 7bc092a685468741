package main

import (
	"net/http"

	"mcn-dashboard/auth"
	"mcn-dashboard/internal/audit"
	"mcn-dashboard/internal/channel"
	"mcn-dashboard/internal/config"
	"mcn-dashboard/internal/dashboard"
	"mcn-dashboard/internal/dimension"
	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/health"
	"mcn-dashboard/internal/metrics"
	"mcn-dashboard/internal/middleware"
	"mcn-dashboard/internal/project"
	"mcn-dashboard/internal/staff"
	"mcn-dashboard/internal/task"
	"mcn-dashboard/internal/youtube"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routes struct {
	authMiddleware gin.HandlerFunc
	staff          *staff.Handler
	dashboard      *dashboard.Handler
	teams          *dimension.Handler[domain.Team, *domain.Team]
	networks       *dimension.Handler[domain.Network, *domain.Network]
	projects       *project.Handler
	tasks          *task.Handler
	channels       *channel.Handler
	youtube        *youtube.Handler
	audit          *audit.Handler
	health         *health.Monitor
}

func newRouter(cfg config.Config, r routes) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), metrics.Middleware())

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
	}
	if cfg.Environment == "development" {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	router.Use(cors.New(corsConfig))
	router.Use(middleware.ErrorHandler())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", r.health.Handler())

	api := router.Group("/api")
	adminOnly := auth.RequireRole(domain.RoleAdmin)

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.POST("/register", r.staff.Register)
	authGroup.POST("/login", r.staff.Login)
	authGroup.POST("/refresh", r.staff.RefreshToken)
	authGroup.POST("/logout", r.authMiddleware, r.staff.Logout)
	authGroup.GET("/me", r.authMiddleware, r.staff.Me)

	// Google redirects the browser here without our bearer token.
	api.GET("/youtube/oauth2/callback", r.youtube.Callback)

	authed := api.Group("", r.authMiddleware)

	r.dashboard.RegisterRoutes(authed.Group("/dashboard"))
	r.teams.RegisterRoutes(authed.Group("/teams"), adminOnly)
	r.networks.RegisterRoutes(authed.Group("/networks"), adminOnly)
	r.projects.RegisterRoutes(authed.Group("/projects"), adminOnly)
	r.tasks.RegisterRoutes(authed.Group("/tasks"))
	r.channels.RegisterRoutes(authed.Group("/channels"), adminOnly)
	r.youtube.RegisterRoutes(authed.Group("/youtube"), adminOnly)

	staffGroup := authed.Group("/staff", adminOnly)
	staffGroup.GET("", r.staff.List)
	staffGroup.POST("", r.staff.Create)
	staffGroup.PATCH("/:id/role", r.staff.ChangeRole)
	staffGroup.DELETE("/:id", r.staff.Delete)

	authed.GET("/audit", adminOnly, r.audit.List)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	return router
}
