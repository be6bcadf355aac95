package client

import (
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mazeserver/models"
)

// Socket はリレーサーバーへのWebSocket接続
type Socket struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// websocketURL はHTTPのベースURLを/wsのURLに変換します。
func websocketURL(baseURL string, query url.Values) string {
	u := strings.TrimSuffix(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	u += "/ws"
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Dial はトークンで接続します。トークンが空の場合は匿名で接続します。
func (c *Client) Dial(token string) (*Socket, error) {
	q := url.Values{}
	if token != "" {
		q.Set("token", token)
	}
	return dial(websocketURL(c.baseURL, q))
}

// Resume は以前のセッションIDで再接続します。
func (c *Client) Resume(sessionID string) (*Socket, error) {
	return dial(websocketURL(c.baseURL, url.Values{"session": {sessionID}}))
}

func dial(u string) (*Socket, error) {
	ws, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		return nil, err
	}
	return &Socket{ws: ws}, nil
}

// Send はイベントを送信します。
func (s *Socket) Send(event string, data any) error {
	env := models.Envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		env.Data = raw
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws.WriteJSON(env)
}

// Read は次のイベントを待ちます。
func (s *Socket) Read(timeout time.Duration) (models.Envelope, error) {
	var env models.Envelope
	if err := s.ws.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return env, err
	}
	err := s.ws.ReadJSON(&env)
	return env, err
}

// WaitFor は指定イベントが届くまで他のイベントを読み捨てます。
func (s *Socket) WaitFor(event string, timeout time.Duration) (models.Envelope, error) {
	deadline := time.Now().Add(timeout)
	for {
		env, err := s.Read(time.Until(deadline))
		if err != nil {
			return env, err
		}
		if env.Event == event {
			return env, nil
		}
	}
}

func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.ws.Close()
}
