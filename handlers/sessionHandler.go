package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"mazeserver/lobby"
	"mazeserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CharacterSelectionRequest struct {
	Username  string  `json:"username" binding:"required"`
	Character string  `json:"character" binding:"required"`
	Match     *uint64 `json:"match" binding:"required"`
	PlayerNum *int    `json:"playerNum" binding:"required"`
}

// slotQuery はクエリのmatchとplayerを解釈します。
func slotQuery(c *gin.Context) (uint64, int, bool) {
	matchID, err := strconv.ParseUint(c.Query("match"), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	playerNum, err := strconv.Atoi(c.Query("player"))
	if err != nil {
		return 0, 0, false
	}
	return matchID, playerNum, true
}

func matchNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Match not found."})
}

// CharacterSelection はキャラクターを選択します。
func CharacterSelection(c *gin.Context, lb *lobby.Lobby, logger *zap.Logger) {
	var req CharacterSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Request binding error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	err := lb.SelectCharacter(*req.Match, *req.PlayerNum, req.Username, models.Character(req.Character))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": req.Character + " assigned to " + req.Username})
	case errors.Is(err, lobby.ErrAlreadySelected):
		c.JSON(http.StatusOK, gin.H{"success": false, "selectedFromYou": false, "message": "Character already selected by the other player."})
	case errors.Is(err, lobby.ErrCharacterLocked):
		c.JSON(http.StatusOK, gin.H{"success": false, "selectedFromYou": true, "message": "You already chose a character."})
	case errors.Is(err, lobby.ErrMatchNotFound):
		matchNotFound(c)
	case errors.Is(err, lobby.ErrInvalidCharacter):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
	}
}

// Ready は準備完了を記録します。最初の準備完了で迷路が生成されます。
func Ready(c *gin.Context, lb *lobby.Lobby, logger *zap.Logger) {
	matchID, playerNum, ok := slotQuery(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "match and player are required"})
		return
	}

	err := lb.MarkReady(matchID, playerNum, c.Query("username"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "You are ready to play."})
	case errors.Is(err, lobby.ErrMatchNotFound):
		matchNotFound(c)
	default:
		logger.Info("Ready rejected", zap.Uint64("MatchID", matchID), zap.Int("Player", playerNum), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
	}
}

// Start は相手が準備完了したかを返します。対戦が無くなっていれば相手の切断とみなします。
func Start(c *gin.Context, lb *lobby.Lobby) {
	matchID, playerNum, ok := slotQuery(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "match and player are required"})
		return
	}

	st, err := lb.Start(matchID, playerNum, c.Query("username"))
	switch {
	case errors.Is(err, lobby.ErrMatchNotFound):
		c.JSON(http.StatusOK, gin.H{"success": false, "disconnection": true, "message": "Your opponent disconnected."})
	case err != nil:
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
	case st.OtherReady:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": st.OtherPlayer + " is ready to play."})
	default:
		c.JSON(http.StatusOK, gin.H{"success": false, "message": st.OtherPlayer + " is not ready yet."})
	}
}

// Maze は生成済みの迷路を返します。
func Maze(c *gin.Context, lb *lobby.Lobby) {
	matchID, err := strconv.ParseUint(c.Query("match"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "match is required"})
		return
	}

	m, err := lb.Maze(matchID)
	switch {
	case errors.Is(err, lobby.ErrMatchNotFound):
		matchNotFound(c)
	case errors.Is(err, lobby.ErrMazeNotReady):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "The maze has not been generated!"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
	default:
		c.JSON(http.StatusOK, gin.H{"maze": m, "success": true})
	}
}
