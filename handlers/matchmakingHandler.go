package handlers

import (
	"net/http"

	"mazeserver/lobby"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetInviteCode は未使用の招待コードを発行します。
func GetInviteCode(c *gin.Context, lb *lobby.Lobby) {
	c.JSON(http.StatusOK, gin.H{"id": lb.AllocateInviteCode(), "success": true})
}

// SetPending はランダムマッチングの待機状態にします。
func SetPending(c *gin.Context, lb *lobby.Lobby, logger *zap.Logger) {
	var req UsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Request binding error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if err := lb.SetPending(req.Username); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Matchmaking はクライアントから定期的に呼ばれ、対戦相手が見つかれば割り当てを返します。
func Matchmaking(c *gin.Context, lb *lobby.Lobby, logger *zap.Logger) {
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "username is required"})
		return
	}

	res, err := lb.Poll(username)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
		return
	}

	switch {
	case res.Assignment != nil:
		c.JSON(http.StatusOK, gin.H{"match": res.Assignment, "success": true})
	case res.Expired:
		// 待機状態がタイムアウトなどで解除されている
		c.JSON(http.StatusOK, gin.H{"available": true, "success": false})
	default:
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Waiting for an opponent."})
	}
}
