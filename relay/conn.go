package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const sendBufferSize = 256

// Conn は1つのWebSocket接続
type Conn struct {
	ID   string
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}

	mu       sync.Mutex
	username string

	closeOnce sync.Once
	logger    *zap.Logger
}

func newConn(id string, ws *websocket.Conn, logger *zap.Logger) *Conn {
	return &Conn{
		ID:     id,
		ws:     ws,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

func (c *Conn) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

func (c *Conn) setUsername(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
}

// enqueue は送信キューに積みます。キューが一杯の場合は破棄します。
func (c *Conn) enqueue(msg []byte) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		c.logger.Warn("Send buffer full, dropping message", zap.String("ConnID", c.ID))
	}
}

// close はwritePumpに終了を通知します。WebSocket自体はwritePumpが送信キューを空にしてから閉じる
func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// writePump は送信キューの内容を書き込み、定期的にPingを送ります。
func (c *Conn) writePump(pingPeriod, writeWait time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("Write failed", zap.String("ConnID", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("Error sending ping", zap.String("ConnID", c.ID), zap.Error(err))
				return
			}
		case <-c.done:
			// 残っているメッセージを送ってから閉じる
			for {
				select {
				case msg := <-c.send:
					c.ws.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				default:
					c.ws.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
					return
				}
			}
		}
	}
}

// readPump はメッセージを受信してhandleに渡します。接続が切れると戻ります。
func (c *Conn) readPump(pongWait time.Duration, maxMessageSize int64, handle func([]byte)) {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	// Pongメッセージを受信したら読み取りデッドラインを更新
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info("WebSocket closed unexpectedly", zap.String("ConnID", c.ID), zap.Error(err))
			}
			return
		}
		handle(msg)
	}
}
