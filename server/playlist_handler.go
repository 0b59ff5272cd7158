package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"resona/logger"
	"resona/model"
)

// PlaylistRequest 创建/重命名歌单的请求体
type PlaylistRequest struct {
	Name string `json:"name"`
}

// PlaylistSongRequest 歌单加/减歌曲的请求体
type PlaylistSongRequest struct {
	SongID int64 `json:"song_id"`
}

// ListPlaylistsHandler 列出当前用户的歌单
func (h *APIHandler) ListPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	playlists, err := h.playlistRepo.GetPlaylistsByUserID(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to list playlists", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Failed to get playlists", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

// CreatePlaylistHandler 创建歌单
func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req PlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	playlist := &model.Playlist{Name: req.Name, UserID: userID}
	id, err := h.playlistRepo.CreatePlaylist(r.Context(), playlist)
	if err != nil {
		logger.Error("Failed to create playlist", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Failed to create playlist", http.StatusInternalServerError)
		return
	}
	playlist.ID = id

	logger.Info("playlist created", logger.Int64("playlistId", id), logger.Int64("userId", userID))
	writeJSON(w, http.StatusCreated, playlist)
}

// getOwnedPlaylist 加载属于当前用户的歌单，处理所有错误响应。
// 返回 nil 表示响应已写出。
func (h *APIHandler) getOwnedPlaylist(w http.ResponseWriter, r *http.Request) *model.Playlist {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil
	}

	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid playlist ID", http.StatusBadRequest)
		return nil
	}

	playlist, err := h.playlistRepo.GetPlaylistByID(r.Context(), id, userID)
	if err != nil {
		logger.Error("Failed to get playlist", logger.Int64("playlistId", id), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil
	}
	if playlist == nil {
		writeJSONError(w, http.StatusNotFound, "Playlist not found")
		return nil
	}
	return playlist
}

// GetPlaylistHandler 获取歌单及其歌曲
func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlist := h.getOwnedPlaylist(w, r)
	if playlist == nil {
		return
	}

	songIDs, err := h.playlistRepo.GetSongIDs(r.Context(), playlist.ID)
	if err != nil {
		logger.Error("Failed to get playlist songs", logger.Int64("playlistId", playlist.ID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	songs, err := h.songRepo.GetSongsByIDs(r.Context(), songIDs)
	if err != nil {
		logger.Error("Failed to load playlist songs", logger.Int64("playlistId", playlist.ID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	views, err := h.catalog.SongViews(r.Context(), songs)
	if err != nil {
		logger.Error("Failed to build song views", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, &model.PlaylistWithSongs{Playlist: *playlist, Songs: views})
}

// RenamePlaylistHandler 重命名歌单
func (h *APIHandler) RenamePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlist := h.getOwnedPlaylist(w, r)
	if playlist == nil {
		return
	}

	var req PlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	if err := h.playlistRepo.RenamePlaylist(r.Context(), playlist.ID, playlist.UserID, req.Name); err != nil {
		logger.Error("Failed to rename playlist", logger.Int64("playlistId", playlist.ID), logger.ErrorField(err))
		http.Error(w, "Failed to rename playlist", http.StatusInternalServerError)
		return
	}

	playlist.Name = req.Name
	writeJSON(w, http.StatusOK, playlist)
}

// DeletePlaylistHandler 删除歌单
func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlist := h.getOwnedPlaylist(w, r)
	if playlist == nil {
		return
	}

	if err := h.playlistRepo.DeletePlaylist(r.Context(), playlist.ID, playlist.UserID); err != nil {
		logger.Error("Failed to delete playlist", logger.Int64("playlistId", playlist.ID), logger.ErrorField(err))
		http.Error(w, "Failed to delete playlist", http.StatusInternalServerError)
		return
	}

	logger.Info("playlist deleted", logger.Int64("playlistId", playlist.ID))
	w.WriteHeader(http.StatusNoContent)
}

// AddPlaylistSongHandler 向歌单加入歌曲（幂等）
func (h *APIHandler) AddPlaylistSongHandler(w http.ResponseWriter, r *http.Request) {
	playlist := h.getOwnedPlaylist(w, r)
	if playlist == nil {
		return
	}

	var req PlaylistSongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	song, err := h.songRepo.GetSongByID(r.Context(), req.SongID)
	if err != nil {
		logger.Error("Failed to get song", logger.Int64("songId", req.SongID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if song == nil {
		writeJSONError(w, http.StatusNotFound, "Song not found")
		return
	}

	if err := h.playlistRepo.AddSong(r.Context(), playlist.ID, req.SongID); err != nil {
		logger.Error("Failed to add song to playlist",
			logger.Int64("playlistId", playlist.ID),
			logger.Int64("songId", req.SongID),
			logger.ErrorField(err))
		http.Error(w, "Failed to add song", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemovePlaylistSongHandler 从歌单移除歌曲（幂等）
func (h *APIHandler) RemovePlaylistSongHandler(w http.ResponseWriter, r *http.Request) {
	playlist := h.getOwnedPlaylist(w, r)
	if playlist == nil {
		return
	}

	songID, err := pathID(r, "song_id")
	if err != nil {
		http.Error(w, "Invalid song ID", http.StatusBadRequest)
		return
	}

	if err := h.playlistRepo.RemoveSong(r.Context(), playlist.ID, songID); err != nil {
		logger.Error("Failed to remove song from playlist",
			logger.Int64("playlistId", playlist.ID),
			logger.Int64("songId", songID),
			logger.ErrorField(err))
		http.Error(w, "Failed to remove song", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
