package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/arvand/learnhub/config"
	"github.com/arvand/learnhub/controllers"
	"github.com/arvand/learnhub/middleware"
	"github.com/arvand/learnhub/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, buf utils.VisitBuffer) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	courseController := controllers.NewCourseController(db)
	articleController := controllers.NewArticleController(db)
	commentController := controllers.NewCommentController(db)
	visitController := controllers.NewVisitController(buf)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	coursesGroup := api.Group("/courses")
	coursesGroup.GET("", courseController.List)
	coursesGroup.GET("/:slug", courseController.Get)

	articlesGroup := api.Group("/articles")
	articlesGroup.GET("", articleController.List)
	articlesGroup.GET("/:slug", articleController.Get)

	// Comment feed is public; requester identity only affects ordering.
	api.GET("/targets/:target_type/:target_slug/comments", middleware.AuthOptional(), commentController.List)

	// View tracking is anonymous-friendly and rate limited.
	api.POST("/targets/:target_type/:target_slug/visit", middleware.RateLimitMiddleware(), visitController.TrackView)

	// Public stats endpoint
	api.GET("/stats", statsController.GetStats)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/courses", courseController.Create)
	protected.PATCH("/courses/:id/publish", courseController.Publish)
	protected.DELETE("/courses/:id", courseController.Delete)
	protected.POST("/articles", articleController.Create)
	protected.PATCH("/articles/:id/publish", articleController.Publish)
	protected.DELETE("/articles/:id", articleController.Delete)
	protected.POST("/comments/create", commentController.Create)
	protected.DELETE("/comments/delete/:id", commentController.Delete)
	protected.PATCH("/comments/:id/approve", commentController.Approve)
	protected.PATCH("/comments/:id/demote", commentController.Demote)
	protected.GET("/comments/pending", commentController.Pending)
	protected.GET("/comments/:id/history", commentController.History)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
