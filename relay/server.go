package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mazeserver/lobby"
	"mazeserver/models"
)

// Coordinator はリレーから呼び出すロビー側の操作。lobby.Lobbyが実装します。
type Coordinator interface {
	BindConnection(username, connID string) error
	Resume(username, connID string) error
	Disconnect(username, connID string)
	SendInvite(sender, receiver string, code int) error
	Accept(receiver string, code int) (models.Assignment, error)
	Refuse(receiver string, code int) error
	JoinRoom(username, connID, room string) error
	RoomFor(matchID uint64, username string) (string, error)
	ReportGameOver(matchID uint64, username string, loserSlot int, connID string) error
	ReportEscaped(matchID uint64, username, connID string) error
}

// SessionStore は再接続用のセッションIDを保存します。
type SessionStore interface {
	Create(ctx context.Context, username string) (string, error)
	Lookup(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

// TokenVerifier は/checkUsernameで発行したトークンを検証します。
type TokenVerifier interface {
	ParseToken(tokenString string) (*models.MyClaims, error)
	IsValidToken(tokenString, username string) (bool, error)
}

var (
	errUnauthorized   = errors.New("unauthorized")
	errSessionInvalid = errors.New("invalid or expired session")
)

type Config struct {
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	AllowOrigins   []string
}

func DefaultConfig() Config {
	return Config{
		PingPeriod:     10 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 16 * 1024,
	}
}

// Server はWebSocket接続を受け付け、受信イベントをロビーとルームに振り分けます。
type Server struct {
	hub      *Hub
	lobby    Coordinator
	sessions SessionStore
	tokens   TokenVerifier
	upgrader websocket.Upgrader
	cfg      Config
	logger   *zap.Logger
}

func NewServer(hub *Hub, coordinator Coordinator, sessions SessionStore, tokens TokenVerifier, cfg Config, logger *zap.Logger) *Server {
	s := &Server{
		hub:      hub,
		lobby:    coordinator,
		sessions: sessions,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowOrigins) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// identity は接続要求から判明したユーザー
type identity struct {
	username  string
	sessionID string // 再接続の場合の旧セッションID
}

// identify はトークンまたはセッションIDから接続のユーザー名を決定します。
// どちらも無い場合は匿名の接続として受け付け、後からset-usernameで名前を設定する
func (s *Server) identify(ctx context.Context, r *http.Request) (identity, error) {
	q := r.URL.Query()
	token := q.Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token != "" {
		claims, err := s.tokens.ParseToken(token)
		if err != nil {
			return identity{}, errUnauthorized
		}
		return identity{username: claims.Subject}, nil
	}
	if sessionID := q.Get("session"); sessionID != "" {
		username, err := s.sessions.Lookup(ctx, sessionID)
		if err != nil {
			return identity{}, errSessionInvalid
		}
		return identity{username: username, sessionID: sessionID}, nil
	}
	return identity{}, nil
}

// claim はユーザーを接続に紐づけます。再接続の場合は切断時に削除された登録を戻し、
// 使い終わった旧セッションを削除します。
func (s *Server) claim(ctx context.Context, id identity, connID string) error {
	if id.sessionID == "" {
		return s.lobby.BindConnection(id.username, connID)
	}
	if err := s.lobby.Resume(id.username, connID); err != nil {
		return err
	}
	// 旧セッションの削除
	if err := s.sessions.Delete(ctx, id.sessionID); err != nil {
		s.logger.Warn("Failed to delete old session", zap.Error(err))
	}
	return nil
}

// ServeWS はWebSocket接続を処理します。
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	id, err := s.identify(r.Context(), r)
	if err != nil {
		s.logger.Warn("Rejected WebSocket connection", zap.Error(err))
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	connID := uuid.New().String()
	if id.username != "" {
		if err := s.claim(r.Context(), id, connID); err != nil {
			s.logger.Warn("Rejected WebSocket connection",
				zap.String("Username", id.username), zap.Bool("Resume", id.sessionID != ""), zap.Error(err))
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgradeがエラーレスポンスを書き込み済み
		s.logger.Error("Error upgrading WebSocket", zap.Error(err))
		s.lobby.Disconnect(id.username, connID)
		return
	}

	c := newConn(connID, ws, s.logger)
	s.hub.register(c)
	s.logger.Info("New client added", zap.String("ConnID", c.ID), zap.String("Username", id.username))

	go c.writePump(s.cfg.PingPeriod, s.cfg.WriteWait)

	if id.username != "" {
		c.setUsername(id.username)
		s.issueSession(c, id.username)
	}

	go func() {
		c.readPump(s.cfg.PongWait, s.cfg.MaxMessageSize, func(msg []byte) { s.dispatch(c, msg) })
		s.hub.unregister(c)
		c.close()
		s.lobby.Disconnect(c.Username(), c.ID)
		s.logger.Info("Client removed", zap.String("ConnID", c.ID), zap.String("Username", c.Username()))
	}()
}

// issueSession は再接続用のセッションIDを発行して送ります。
func (s *Server) issueSession(c *Conn, username string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sessionID, err := s.sessions.Create(ctx, username)
	if err != nil {
		s.logger.Error("Failed to generate or store session ID", zap.Error(err))
		return
	}
	s.hub.Emit(c.ID, models.EventSession, models.SessionPayload{SessionID: sessionID, Username: username})
}

// dispatch は受信したイベントを種類ごとに処理します。
func (s *Server) dispatch(c *Conn, msg []byte) {
	var env models.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		s.logger.Warn("Malformed message", zap.String("ConnID", c.ID), zap.Error(err))
		return
	}

	switch env.Event {
	case models.EventSetUsername:
		s.handleSetUsername(c, env.Data)
	case models.EventSendInvite:
		s.handleSendInvite(c, env.Data)
	case models.EventAccepted:
		s.handleInviteReply(c, env.Data, true)
	case models.EventRefused:
		s.handleInviteReply(c, env.Data, false)
	case models.EventSetRoom:
		s.handleSetRoom(c, env.Data)
	case models.EventMove:
		s.forward(c, env.Data, models.EventStartMoving)
	case models.EventStop:
		s.forward(c, env.Data, models.EventStopMoving)
	case models.EventHit:
		s.forward(c, env.Data, models.EventGotHit)
	case models.EventUpdate:
		s.handleUpdate(c, env.Data)
	case models.EventEscaped:
		s.handleEscaped(c, env.Data)
	case models.EventGameover:
		s.handleGameover(c, env.Data)
	default:
		s.logger.Debug("Unknown event", zap.String("Event", env.Event), zap.String("ConnID", c.ID))
	}
}

func (s *Server) decode(c *Conn, data json.RawMessage, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("Malformed event data", zap.String("ConnID", c.ID), zap.Error(err))
		return false
	}
	return true
}

func (s *Server) handleSetUsername(c *Conn, data json.RawMessage) {
	var p models.SetUsernamePayload
	if !s.decode(c, data, &p) {
		return
	}
	ok, err := s.tokens.IsValidToken(p.Token, p.Username)
	if err != nil || !ok {
		s.logger.Warn("Invalid token for set-username", zap.String("Username", p.Username), zap.Error(err))
		return
	}
	// 紐づけ済みの接続は別のユーザーになれない
	current := c.Username()
	if current == p.Username {
		return
	}
	if current != "" {
		s.logger.Warn("Rejected set-username on bound connection", zap.String("From", current), zap.String("To", p.Username))
		return
	}
	if err := s.lobby.BindConnection(p.Username, c.ID); err != nil {
		s.logger.Warn("Connection not bound", zap.String("Username", p.Username), zap.Error(err))
		return
	}
	s.logger.Info("Username set", zap.String("Username", p.Username), zap.String("ConnID", c.ID))
	c.setUsername(p.Username)
	s.issueSession(c, p.Username)
}

func (s *Server) inviteError(c *Conn, err error, receiver string) {
	s.hub.Emit(c.ID, models.EventInviteError, lobby.InviteErrorMessage(err, receiver))
}

func (s *Server) handleSendInvite(c *Conn, data json.RawMessage) {
	var p models.InvitePayload
	if !s.decode(c, data, &p) {
		return
	}
	// 送信者は接続に紐づいたユーザー名
	sender := c.Username()
	if sender == "" {
		sender = p.Sender
	}
	if err := s.lobby.SendInvite(sender, p.Receiver, p.Code); err != nil {
		s.logger.Info("Invitation not sent", zap.String("Sender", sender), zap.String("Receiver", p.Receiver), zap.Error(err))
		s.inviteError(c, err, p.Receiver)
	}
}

func (s *Server) handleInviteReply(c *Conn, data json.RawMessage, accepted bool) {
	var p models.InviteReplyPayload
	if !s.decode(c, data, &p) {
		return
	}
	var err error
	if accepted {
		_, err = s.lobby.Accept(c.Username(), p.InviteCode)
	} else {
		err = s.lobby.Refuse(c.Username(), p.InviteCode)
	}
	if err != nil {
		s.logger.Info("Invitation reply failed", zap.String("Username", c.Username()), zap.Bool("Accepted", accepted), zap.Error(err))
		s.inviteError(c, err, "")
	}
}

func (s *Server) handleSetRoom(c *Conn, data json.RawMessage) {
	var room string
	if !s.decode(c, data, &room) {
		return
	}
	if err := s.lobby.JoinRoom(c.Username(), c.ID, room); err != nil {
		s.logger.Warn("Rejected set-room", zap.String("Username", c.Username()), zap.String("Room", room), zap.Error(err))
	}
}

// room はイベントが参照する対戦のルームを返します。対戦が存在しなければ破棄する
func (s *Server) room(c *Conn, data json.RawMessage) (models.MatchRef, string, bool) {
	var ref models.MatchRef
	if !s.decode(c, data, &ref) {
		return ref, "", false
	}
	room, err := s.lobby.RoomFor(ref.Match, c.Username())
	if err != nil {
		s.logger.Debug("Dropping relay event", zap.Uint64("MatchID", ref.Match), zap.Error(err))
		return ref, "", false
	}
	return ref, room, true
}

// forward は受信データをそのままルームの相手に転送します。
func (s *Server) forward(c *Conn, data json.RawMessage, outbound string) {
	if _, room, ok := s.room(c, data); ok {
		s.hub.EmitRoomRaw(room, c.ID, outbound, data)
	}
}

func (s *Server) handleUpdate(c *Conn, data json.RawMessage) {
	ref, room, ok := s.room(c, data)
	if !ok {
		return
	}
	switch models.Character(ref.Name) {
	case models.Survivor:
		s.hub.EmitRoomRaw(room, c.ID, models.EventUpdateSurvivor, data)
	case models.Monster:
		s.hub.EmitRoomRaw(room, c.ID, models.EventUpdateEntity, data)
	}
}

func (s *Server) handleEscaped(c *Conn, data json.RawMessage) {
	var ref models.MatchRef
	if !s.decode(c, data, &ref) {
		return
	}
	if err := s.lobby.ReportEscaped(ref.Match, c.Username(), c.ID); err != nil {
		s.logger.Debug("Dropping escaped", zap.Uint64("MatchID", ref.Match), zap.Error(err))
	}
}

func (s *Server) handleGameover(c *Conn, data json.RawMessage) {
	var ref models.MatchRef
	if !s.decode(c, data, &ref) {
		return
	}
	if err := s.lobby.ReportGameOver(ref.Match, c.Username(), ref.Player, c.ID); err != nil {
		s.logger.Debug("Dropping gameover", zap.Uint64("MatchID", ref.Match), zap.Error(err))
	}
}

// Shutdown は全ての接続にserver-offlineを通知し、猶予時間の後に切断します。
func (s *Server) Shutdown(ctx context.Context, grace time.Duration) {
	s.logger.Info("Server shutting down, disconnecting users", zap.Int("Connections", s.hub.Count()))
	s.hub.BroadcastAll(models.EventServerOffline, nil)

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	s.hub.CloseAll()
	s.logger.Info("Users disconnected")
}
