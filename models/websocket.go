package models

import "encoding/json"

// Envelope はWebSocketで送受信するメッセージ
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// 受信イベント
const (
	EventSetUsername = "set-username"
	EventSendInvite  = "send-invite"
	EventAccepted    = "accepted"
	EventRefused     = "refused"
	EventSetRoom     = "set-room"
	EventMove        = "move"
	EventStop        = "stop"
	EventUpdate      = "update"
	EventHit         = "hit"
	EventGameover    = "gameover"
	EventEscaped     = "escaped"
)

// 送信イベント
const (
	EventSession              = "session"
	EventInviteAccepted       = "invite-accepted"
	EventLobbyJoined          = "lobby-joined"
	EventInviteRefused        = "invite-refused"
	EventInviteError          = "invite-error"
	EventSent                 = "sent"
	EventReceiveInvite        = "receive-invite"
	EventMatchFound           = "matchFound"
	EventGetRoom              = "get-room"
	EventStartMoving          = "startMoving"
	EventStopMoving           = "stopMoving"
	EventUpdateSurvivor       = "updateSurvivor"
	EventUpdateEntity         = "updateEntity"
	EventGotHit               = "gotHit"
	EventSetGameover          = "setGameover"
	EventSetEscaped           = "setEscaped"
	EventOpponentDisconnected = "opponent-disconnected"
	EventServerOffline        = "server-offline"
)

type SetUsernamePayload struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

type InvitePayload struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Code     int    `json:"code"`
}

// InviteReplyPayload はaccepted/refusedで送られる
type InviteReplyPayload struct {
	InviteCode int `json:"inviteCode"`
}

// MatchRef はリレーイベントのうちマッチの存在確認に使う部分
type MatchRef struct {
	Match  uint64 `json:"match"`
	Player int    `json:"player"`
	Name   string `json:"name"`
}

// InviteAcceptedPayload は招待を送った側（枠1）に届く
type InviteAcceptedPayload struct {
	Receiver   string `json:"receiver"`
	PlayerNum  int    `json:"playerNum"`
	MatchIndex uint64 `json:"matchIndex"`
}

// LobbyJoinedPayload は招待を受けた側（枠2）に届く
type LobbyJoinedPayload struct {
	Sender     string `json:"sender"`
	PlayerNum  int    `json:"playerNum"`
	MatchIndex uint64 `json:"matchIndex"`
}

type ReceiveInvitePayload struct {
	Sender string `json:"sender"`
	Code   int    `json:"code"`
}

type SessionPayload struct {
	SessionID string `json:"sessionID"`
	Username  string `json:"username,omitempty"`
}
