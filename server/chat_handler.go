package server

import (
	"context"
	"net/http"

	"resona/core/auth"
	"resona/core/chat"
	"resona/logger"

	"github.com/gorilla/websocket"
)

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// ChatWebSocketHandler 聊天连接握手。
// 浏览器的 WebSocket API 无法自定义请求头，token 经查询参数传入。
// 任何一步失败都在升级前返回 401，不留下半注册状态。
func (h *APIHandler) ChatWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ParseToken(token)
	if err != nil {
		logger.Warn("Invalid WebSocket token", logger.ErrorField(err))
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	// token 可能在用户被删除后仍在有效期内
	user, err := h.userRepo.GetUserByID(claims.UserID)
	if err != nil {
		logger.Error("Failed to load websocket user", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := chatUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade websocket", logger.ErrorField(err))
		return
	}

	hub := h.gateway.Hub()
	client := &chat.Client{
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		UserID:   user.ID,
		Username: user.Username,
	}
	hub.Register(client)

	// 请求上下文在 ServeHTTP 返回时取消，pump 需要独立的生命周期
	go client.WritePump()
	go client.ReadPump(context.Background(), h.gateway.HandleFrame)
}
