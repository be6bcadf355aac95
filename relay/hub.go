package relay

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"mazeserver/models"
)

// Hub は全ての接続とルームを管理し、イベントを配送します。
// ルームは対戦ごとに作られ、roomID -> connID -> Connの2段のマップで保持する
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	rooms  map[string]map[string]*Conn
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]*Conn),
		rooms:  make(map[string]map[string]*Conn),
		logger: logger,
	}
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID] = c
}

// unregister は接続を全てのルームから外します。
func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if actual, ok := h.conns[c.ID]; ok && actual == c {
		delete(h.conns, c.ID)
	}
	for room, members := range h.rooms {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// encode はイベント名とデータをEnvelopeに詰めます。dataがnilの場合はdataを省略します。
func encode(event string, data any) ([]byte, error) {
	env := models.Envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

func encodeRaw(event string, raw json.RawMessage) ([]byte, error) {
	return json.Marshal(models.Envelope{Event: event, Data: raw})
}

// Emit は1つの接続にイベントを送ります。
func (h *Hub) Emit(connID, event string, data any) {
	msg, err := encode(event, data)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("Event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	c := h.conns[connID]
	h.mu.RUnlock()
	if c != nil {
		c.enqueue(msg)
	}
}

func (h *Hub) JoinRoom(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.conns[connID]
	if c == nil {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Conn)
	}
	h.rooms[room][connID] = c
}

// EmitRoom はルーム内のexceptConnID以外の接続にイベントを送ります。
func (h *Hub) EmitRoom(room, exceptConnID, event string, data any) {
	msg, err := encode(event, data)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("Event", event), zap.Error(err))
		return
	}
	h.broadcast(room, exceptConnID, msg)
}

// EmitRoomRaw は受信したデータを解釈せずにそのまま転送します。
func (h *Hub) EmitRoomRaw(room, exceptConnID, event string, raw json.RawMessage) {
	msg, err := encodeRaw(event, raw)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("Event", event), zap.Error(err))
		return
	}
	h.broadcast(room, exceptConnID, msg)
}

func (h *Hub) broadcast(room, exceptConnID string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, c := range h.rooms[room] {
		if id == exceptConnID {
			continue
		}
		c.enqueue(msg)
	}
}

// CloseRoom はルームを解散します。接続自体は閉じません。
func (h *Hub) CloseRoom(room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, room)
}

// BroadcastAll は全ての接続にイベントを送ります。
func (h *Hub) BroadcastAll(event string, data any) {
	msg, err := encode(event, data)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("Event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.conns {
		c.enqueue(msg)
	}
}

// CloseAll は全ての接続を強制的に閉じます。
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.close()
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// RoomMembers はルームに参加している接続IDの数を返します。
func (h *Hub) RoomMembers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
