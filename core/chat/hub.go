package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"resona/cache"
	"resona/logger"

	"github.com/gorilla/websocket"
)

// GroupName 返回用户私聊组的组名。每个用户恰好拥有一个组，
// 发给该用户的消息都投递到这个组的所有连接上。
func GroupName(userID int64) string {
	return fmt.Sprintf("chat_%d", userID)
}

// Client 一条 WebSocket 连接
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	UserID   int64
	Username string
}

// publication 投递到某个组的一条消息
type publication struct {
	Group   string
	Message []byte
}

// Hub 聊天 WebSocket 管理中心。
// 组 -> 客户端集合；注册、注销、投递都经由通道在 Run 循环内串行处理。
// 同一用户可以同时持有多条连接（多设备/多标签页），组内保存全部存活连接。
type Hub struct {
	// 组 -> 客户端集合
	groups map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	publish    chan *publication

	mu sync.RWMutex

	// 在线状态缓存，可为 nil（测试环境）
	presence *cache.PresenceCache

	done chan struct{}
}

// NewHub 创建聊天 Hub。presence 可为 nil，此时不追踪在线状态。
func NewHub(presence *cache.PresenceCache) *Hub {
	return &Hub{
		groups:     make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan *publication, 256),
		presence:   presence,
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 主循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case pub := <-h.publish:
			h.deliver(pub)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub
func (h *Hub) Stop() {
	close(h.done)
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish 向指定组投递消息
func (h *Hub) Publish(group string, message []byte) {
	h.publish <- &publication{Group: group, Message: message}
}

// registerClient 注册客户端并订阅其私聊组
func (h *Hub) registerClient(client *Client) {
	group := GroupName(client.UserID)

	h.mu.Lock()
	if h.groups[group] == nil {
		h.groups[group] = make(map[*Client]bool)
	}
	h.groups[group][client] = true
	h.mu.Unlock()

	// redis 调用可能阻塞，不能放在锁内
	if h.presence != nil {
		if err := h.presence.UpdateUserPresence(context.Background(), client.UserID); err != nil {
			logger.Warn("failed to update user presence on register",
				logger.ErrorField(err),
				logger.Int64("user", client.UserID))
		}
	}

	logger.Info("chat client registered",
		logger.String("group", group),
		logger.Int64("user", client.UserID),
		logger.String("username", client.Username))
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	removed, last := h.removeClient(client)
	h.mu.Unlock()

	h.finishRemoval(client, removed, last)
}

// removeClient 从组中移除客户端，只做 map 变更，调用方需持有写锁。
// 重复调用无副作用。返回是否真正移除，以及该用户是否已无存活连接。
func (h *Hub) removeClient(client *Client) (removed, last bool) {
	group := GroupName(client.UserID)

	clients, ok := h.groups[group]
	if !ok || !clients[client] {
		return false, false
	}

	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.groups, group)
		return true, true
	}
	return true, false
}

// finishRemoval 移除后的收尾（在线状态、日志），在锁外执行。
// 只有用户最后一条连接断开时才清除在线状态。
func (h *Hub) finishRemoval(client *Client, removed, last bool) {
	if !removed {
		return
	}

	if last && h.presence != nil {
		if err := h.presence.RemoveUserPresence(context.Background(), client.UserID); err != nil {
			logger.Warn("failed to remove user presence on unregister",
				logger.ErrorField(err),
				logger.Int64("user", client.UserID))
		}
	}

	logger.Info("chat client unregistered",
		logger.String("group", GroupName(client.UserID)),
		logger.Int64("user", client.UserID))
}

// deliver 把消息投递给组内所有客户端
func (h *Hub) deliver(pub *publication) {
	h.mu.RLock()
	clients, ok := h.groups[pub.Group]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// 复制客户端列表以避免长时间持有锁
	clientList := make([]*Client, 0, len(clients))
	for client := range clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	for _, client := range clientList {
		select {
		case client.Send <- pub.Message:
		default:
			// 发送缓冲区满，就地移除。不能回写 unregister 通道：
			// Run 循环是它唯一的接收方，回写会让 Hub 自锁。
			h.mu.Lock()
			removed, last := h.removeClient(client)
			h.mu.Unlock()
			h.finishRemoval(client, removed, last)
		}
	}
}

// cleanup 清理所有连接
func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.groups {
		for client := range clients {
			close(client.Send)
		}
	}
	h.groups = make(map[string]map[*Client]bool)
}

// GroupClientCount 获取组内客户端数量
func (h *Hub) GroupClientCount(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.groups[group])
}

// IsConnected 用户当前是否有活跃连接
func (h *Hub) IsConnected(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.groups[GroupName(userID)]) > 0
}

// ========== Client 方法 ==========

// ReadPump 读取消息循环。每收到一帧调用 handler；
// 非法 JSON 只记日志并继续，不会断开连接。
func (c *Client) ReadPump(ctx context.Context, handler func(ctx context.Context, client *Client, frame *InboundFrame)) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4096) // 4KB
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		// pong 周期内刷新在线状态
		if c.Hub.presence != nil {
			if err := c.Hub.presence.UpdateUserPresence(ctx, c.UserID); err != nil {
				logger.Warn("failed to refresh user presence",
					logger.ErrorField(err),
					logger.Int64("user", c.UserID))
			}
		}
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, message, err := c.Conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Warn("websocket read error",
						logger.ErrorField(err),
						logger.Int64("user", c.UserID))
				}
				return
			}

			var frame InboundFrame
			if err := json.Unmarshal(message, &frame); err != nil {
				logger.Warn("invalid chat frame",
					logger.ErrorField(err),
					logger.Int64("user", c.UserID))
				continue
			}

			handler(ctx, c, &frame)
		}
	}
}

// WritePump 写入消息循环
func (c *Client) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub 关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// 合并发送队列中的消息
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendRaw 直接把一条消息放入发送队列，缓冲区满时丢弃
func (c *Client) SendRaw(message []byte) {
	select {
	case c.Send <- message:
	default:
	}
}
