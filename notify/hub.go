// Package notify 实现连接注册表（websocket hub）与通知派发器。
// 注册表纯内存：掉线只会延迟推送，不丢通知行。
package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBuffer     = 16
)

// Hub 用户 id → 在线连接集合。同一用户可以多开（多标签页/多设备）。
type Hub struct {
	mu       sync.RWMutex
	conns    map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

func NewHub(log *logrus.Logger, checkOrigin func(r *http.Request) bool) *Hub {
	if log == nil {
		log = logrus.New()
	}
	return &Hub{
		conns: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		log: log,
	}
}

type client struct {
	userID string
	ws     *websocket.Conn

	mu     sync.Mutex // 保护 send 的关闭与写入：二者可能来自不同 goroutine
	send   chan []byte
	closed bool
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// trySend 非阻塞入队。连接已关或缓冲已满都返回 false，
// 绝不向已关闭的 channel 写（断线与推送并发时会 panic）。
func (c *client) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Attach 升级连接并以认证后的 userID 注册。
// 身份来自会话中间件，不信任客户端自报的 id。
func (h *Hub) Attach(w http.ResponseWriter, r *http.Request, userID string) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{userID: userID, ws: ws, send: make(chan []byte, sendBuffer)}
	h.register(c)
	go c.writePump()
	go c.readPump(h)
	return nil
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.conns[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if set, ok := h.conns[c.userID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.conns, c.userID)
			}
			h.mu.Unlock()
			c.close()
			return
		}
	}
	h.mu.Unlock()
}

// Channels 某用户当前在线连接数
func (h *Hub) Channels(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// Push 向某用户所有在线连接投递，非阻塞、at-most-once。
// 写缓冲满的慢连接直接丢这一条。返回实际入队的连接数。
func (h *Hub) Push(userID string, payload []byte) int {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.trySend(payload) {
			delivered++
		} else {
			h.log.WithField("userId", userID).Debug("websocket gone or slow, push dropped")
		}
	}
	return delivered
}

// Broadcast 向一组用户广播（如全体在线安保）
func (h *Hub) Broadcast(userIDs []string, payload []byte) {
	for _, id := range userIDs {
		h.Push(id, payload)
	}
}

// readPump 只用于感知断线和应答心跳；该通道不承载权威状态
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		_ = c.ws.Close()
	}()
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
