package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/branchline/branchline/src/api/config"
)

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, rdb *redis.Client) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	secret := []byte(cfg.JWTSecret)
	ttl := time.Duration(cfg.TokenTTLMin) * time.Minute

	authH := NewAuth(db, rdb, secret, ttl)
	chapterH := NewChapters(db)
	eventH := NewEvents(db)
	timelineH := NewTimeline(db)

	limiter := NewRateLimiter(10, time.Minute)

	v1 := r.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.Use(RateLimitMiddleware(limiter))
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)
		// Logout stays outside the JWT middleware so it is idempotent even
		// with an expired token.
		auth.POST("/logout", authH.Logout)

		secured := v1.Group("")
		secured.Use(JWTMiddleware(secret, rdb))

		secured.GET("/chapters", chapterH.List)
		secured.POST("/chapters", chapterH.Create)
		secured.GET("/chapters/:id", chapterH.Get)
		secured.PUT("/chapters/:id", chapterH.Update)
		secured.PATCH("/chapters/:id", chapterH.Update)
		secured.DELETE("/chapters/:id", chapterH.Delete)

		secured.GET("/events", eventH.List)
		secured.POST("/events", eventH.Create)
		secured.GET("/events/:id", eventH.Get)
		secured.PUT("/events/:id", eventH.Update)
		secured.PATCH("/events/:id", eventH.Update)
		secured.DELETE("/events/:id", eventH.Delete)

		secured.GET("/timeline", timelineH.Data)
	}
}
