package handlers

import (
	"errors"
	"net/http"
	"strings"

	"mazeserver/auth"
	"mazeserver/lobby"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UsernameRequest struct {
	Username string `json:"username" binding:"required"`
}

// CheckUsername はユーザー名が空いていれば登録し、WebSocket接続用のトークンを返します。
func CheckUsername(c *gin.Context, lb *lobby.Lobby, tm *auth.TokenManager, logger *zap.Logger) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "username is required"})
		return
	}

	err := lb.Register(username)
	switch {
	case errors.Is(err, lobby.ErrInvalidUsername):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	case errors.Is(err, lobby.ErrNameTaken):
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Username already taken."})
		return
	case err != nil:
		logger.Error("Failed to register username", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
		return
	}

	token, err := tm.GenerateToken(username)
	if err != nil {
		logger.Error("Token generation error", zap.Error(err))
		// 登録を取り消してから失敗を返す
		_ = lb.Unregister(username)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

// ResetUsername はユーザー名の登録を解除します。
func ResetUsername(c *gin.Context, lb *lobby.Lobby, logger *zap.Logger) {
	var req UsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Request binding error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if err := lb.Unregister(req.Username); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Reset not allowed."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Reset allowed."})
}
