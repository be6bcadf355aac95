package handlers

import (
	"net/http"

	"mazeserver/lobby"
	"mazeserver/relay"

	"github.com/gin-gonic/gin"
)

// Stats は状態ごとのユーザー数、対戦数、接続数を返します。
func Stats(c *gin.Context, lb *lobby.Lobby, hub *relay.Hub) {
	st := lb.Stats()
	c.JSON(http.StatusOK, gin.H{
		"totalUsers":  st.TotalUsers,
		"users":       st.Users,
		"matches":     st.Matches,
		"connections": hub.Count(),
		"success":     true,
	})
}
