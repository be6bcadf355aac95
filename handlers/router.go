package handlers

import (
	"time"

	"mazeserver/auth"
	"mazeserver/lobby"
	"mazeserver/middlewares"
	"mazeserver/relay"
	"mazeserver/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter は全てのHTTPルートを登録したgin.Engineを返します。
func NewRouter(allowOrigins []string, lb *lobby.Lobby, tm *auth.TokenManager, rs *relay.Server, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	//リクエストロガーを起動
	router.Use(gin.Recovery(), utils.RequestLogger(logger))

	//CORS（Cross-Origin Resource Sharing）ポリシーを設定
	router.Use(cors.New(corsConfig(allowOrigins)))

	router.GET("/checkUsername", func(c *gin.Context) {
		CheckUsername(c, lb, tm, logger)
	})
	router.DELETE("/reset-username", func(c *gin.Context) {
		ResetUsername(c, lb, logger)
	})
	router.GET("/get-invite-code", func(c *gin.Context) {
		GetInviteCode(c, lb)
	})
	router.PUT("/setPending", func(c *gin.Context) {
		SetPending(c, lb, logger)
	})
	router.GET("/matchmaking", func(c *gin.Context) {
		Matchmaking(c, lb, logger)
	})
	router.POST("/character-selection", func(c *gin.Context) {
		CharacterSelection(c, lb, logger)
	})
	router.GET("/ready", func(c *gin.Context) {
		Ready(c, lb, logger)
	})
	router.GET("/start", func(c *gin.Context) {
		Start(c, lb)
	})
	router.GET("/maze", func(c *gin.Context) {
		Maze(c, lb)
	})
	router.GET("/stats", func(c *gin.Context) {
		Stats(c, lb, rs.Hub())
	})
	router.GET("/ws", middlewares.TokenAuthentication(tm, logger), func(c *gin.Context) {
		rs.ServeWS(c.Writer, c.Request)
	})

	return router
}

// corsConfig は許可するオリジンが空か"*"を含む場合、全てのオリジンを許可します。
func corsConfig(allowOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range allowOrigins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(allowOrigins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = allowOrigins
	return cfg
}
