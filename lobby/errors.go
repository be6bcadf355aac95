package lobby

import (
	"errors"
	"fmt"

	"mazeserver/models"
)

var (
	ErrInvalidUsername  = errors.New("invalid username")
	ErrNameTaken        = errors.New("username already taken")
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyBound     = errors.New("user is bound to another connection")
	ErrInviteSelf       = errors.New("cannot invite yourself")
	ErrReceiverOffline  = errors.New("receiver is not online")
	ErrReceiverBusy     = errors.New("receiver is already playing")
	ErrAlreadyInvited   = errors.New("receiver already invited")
	ErrInviteNotFound   = errors.New("invitation not found")
	ErrSenderBusy       = errors.New("sender is already playing")
	ErrNotAvailable     = errors.New("user is not available")
	ErrAlreadySelected  = errors.New("character already selected by the opponent")
	ErrCharacterLocked  = errors.New("character already chosen")
	ErrInvalidCharacter = errors.New("invalid character")
	ErrMatchNotFound    = errors.New("match not found")
	ErrNotInMatch       = errors.New("user is not a player of this match")
	ErrMazeNotReady     = errors.New("maze not generated yet")
	// 状態遷移表に反する操作
	ErrInvalidTransition = models.ErrIllegalTransition
)

// InviteErrorMessage は招待関連のエラーをクライアント向けの文言に変換します。
func InviteErrorMessage(err error, receiver string) string {
	switch {
	case errors.Is(err, ErrInviteSelf):
		return "Failed: You can't invite yourself."
	case errors.Is(err, ErrReceiverOffline):
		return "Failed: Your friend is not online."
	case errors.Is(err, ErrReceiverBusy):
		return fmt.Sprintf("Failed: %s is already playing.", receiver)
	case errors.Is(err, ErrAlreadyInvited):
		return fmt.Sprintf("Failed: You already invited %s.", receiver)
	case errors.Is(err, ErrInviteNotFound):
		return "Failed: Your friend disconnected."
	case errors.Is(err, ErrSenderBusy):
		return "Failed: Your friend is already playing."
	case errors.Is(err, ErrNotAvailable):
		return "Failed: You are already playing."
	default:
		return "Failed: " + err.Error()
	}
}
