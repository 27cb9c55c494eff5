package routes

import (
	"debatearena/middlewares"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterOptions configures SetupRouter.
type RouterOptions struct {
	JWTSecret      string
	AllowedOrigins []string
	// Spectate serves the websocket feed; nil disables it.
	Spectate gin.HandlerFunc
	// StanceLimiter throttles stance writes per voter; nil disables it.
	StanceLimiter middlewares.Limiter
}

func SetupRouter(h *DebateHandler, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.SetTrustedProxies([]string{"127.0.0.1"})

	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
		}))
	}

	// Public reads
	router.GET("/debates/:id", h.GetDebateHandler)
	router.GET("/debates/:id/rounds", h.GetRoundsHandler)
	router.GET("/debates/:id/arguments", h.GetArgumentsHandler)
	router.GET("/users/:id/progress", h.GetProgressHandler)
	if h.Ratings != nil {
		router.GET("/leaderboard", h.GetLeaderboardHandler)
		router.GET("/users/:id/rating-history", h.GetRatingHistoryHandler)
	}
	if opts.Spectate != nil {
		router.GET("/debates/:id/ws", opts.Spectate)
	}

	// Protected routes (JWT auth)
	auth := router.Group("/")
	auth.Use(middlewares.AuthMiddleware(opts.JWTSecret))
	{
		auth.POST("/debates", h.CreateDebateHandler)
		auth.POST("/debates/:id/join", h.JoinDebateHandler)
		auth.POST("/debates/:id/arguments", h.SubmitArgumentHandler)
		stances := []gin.HandlerFunc{h.RecordStanceHandler}
		if opts.StanceLimiter != nil {
			stances = append([]gin.HandlerFunc{middlewares.RateLimit(opts.StanceLimiter, h.Logger)}, stances...)
		}
		auth.POST("/debates/:id/stances", stances...)
	}

	return router
}
