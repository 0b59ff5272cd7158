package server

import (
	"net/http"
	"strings"

	"resona/logger"

	"github.com/gorilla/mux"
)

// SearchUsersHandler 按用户名搜索其他用户（不含自己）
func (h *APIHandler) SearchUsersHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("search"))
	users, err := h.userRepo.SearchUsers(query, userID)
	if err != nil {
		logger.Error("Failed to search users", logger.String("query", query), logger.ErrorField(err))
		http.Error(w, "Failed to search users", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// RecentChatsHandler 返回当前用户有过私聊的用户列表
func (h *APIHandler) RecentChatsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	peers, err := h.messageRepo.GetRecentPeers(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to get recent chats", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Failed to get recent chats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, peers)
}

// MessageHistoryHandler 返回当前用户与指定用户的完整会话，按时间升序
func (h *APIHandler) MessageHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	peerName := mux.Vars(r)["username"]
	peer, err := h.userRepo.GetUserByUsername(peerName)
	if err != nil {
		logger.Error("Failed to resolve chat peer", logger.String("username", peerName), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if peer == nil {
		writeJSONError(w, http.StatusNotFound, "User not found")
		return
	}

	messages, err := h.messageRepo.GetConversation(r.Context(), userID, peer.ID)
	if err != nil {
		logger.Error("Failed to get conversation",
			logger.Int64("userId", userID),
			logger.Int64("peerId", peer.ID),
			logger.ErrorField(err))
		http.Error(w, "Failed to get messages", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}
