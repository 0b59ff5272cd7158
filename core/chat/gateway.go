package chat

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"resona/logger"
	"resona/repository"
)

// InboundFrame 客户端发来的一帧：消息内容 + 接收者用户名
type InboundFrame struct {
	Message  string `json:"message"`
	Receiver string `json:"receiver"`
}

// ChatPayload 投递给双方组的消息体
type ChatPayload struct {
	Content   string `json:"content"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Timestamp string `json:"timestamp"` // RFC 3339
}

// ErrorFrame 只发给发送者的错误帧
type ErrorFrame struct {
	Error string `json:"error"`
}

// Gateway 处理聊天消息：先落库，再向发送者和接收者的组各投递一次。
// 发送者自己的组也收到一份，同一用户的其他设备因此能同步看到消息。
type Gateway struct {
	hub      *Hub
	users    repository.UserRepository
	messages repository.MessageRepository
}

func NewGateway(hub *Hub, users repository.UserRepository, messages repository.MessageRepository) *Gateway {
	return &Gateway{hub: hub, users: users, messages: messages}
}

// Hub 返回网关使用的 Hub
func (g *Gateway) Hub() *Hub {
	return g.hub
}

// HandleFrame 是 ReadPump 的消息处理器
func (g *Gateway) HandleFrame(ctx context.Context, client *Client, frame *InboundFrame) {
	content := strings.TrimSpace(frame.Message)
	if content == "" {
		return
	}

	receiver, err := g.users.GetUserByUsername(frame.Receiver)
	if err != nil {
		logger.Error("failed to resolve receiver",
			logger.ErrorField(err),
			logger.String("receiver", frame.Receiver))
		g.sendError(client, "Internal server error")
		return
	}
	if receiver == nil {
		// 不存在的接收者：只回发送者一帧错误，不落库不投递
		g.sendError(client, "Receiver not found")
		return
	}

	// 先持久化，成功后才投递
	msg, err := g.messages.CreateMessage(ctx, client.UserID, receiver.ID, content)
	if err != nil {
		logger.Error("failed to persist chat message",
			logger.ErrorField(err),
			logger.Int64("sender", client.UserID),
			logger.Int64("receiver", receiver.ID))
		g.sendError(client, "Internal server error")
		return
	}

	payload := &ChatPayload{
		Content:   msg.Content,
		Sender:    client.Username,
		Receiver:  receiver.Username,
		Timestamp: msg.Timestamp.Format(time.RFC3339),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal chat payload", logger.ErrorField(err))
		return
	}

	g.hub.Publish(GroupName(receiver.ID), data)
	if receiver.ID != client.UserID {
		g.hub.Publish(GroupName(client.UserID), data)
	}

	logger.Debug("chat message delivered",
		logger.Int64("sender", client.UserID),
		logger.Int64("receiver", receiver.ID),
		logger.Int64("messageId", msg.ID))
}

func (g *Gateway) sendError(client *Client, message string) {
	data, err := json.Marshal(&ErrorFrame{Error: message})
	if err != nil {
		return
	}
	client.SendRaw(data)
}
