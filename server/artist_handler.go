package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"resona/logger"
)

// ListArtistsHandler 列出所有艺术家
func (h *APIHandler) ListArtistsHandler(w http.ResponseWriter, r *http.Request) {
	artists, err := h.artistRepo.ListArtists(r.Context())
	if err != nil {
		logger.Error("Failed to list artists", logger.ErrorField(err))
		http.Error(w, "Failed to get artists", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, artists)
}

// CreateArtistHandler 创建艺术家，名字已存在时返回已有记录
func (h *APIHandler) CreateArtistHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	id, err := h.artistRepo.CreateArtist(r.Context(), req.Name)
	if err != nil {
		logger.Error("Failed to create artist", logger.ErrorField(err))
		http.Error(w, "Failed to create artist", http.StatusInternalServerError)
		return
	}

	artist, err := h.artistRepo.GetArtistByID(r.Context(), id)
	if err != nil || artist == nil {
		logger.Error("Failed to load created artist", logger.Int64("artistId", id), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, artist)
}

// GetArtistHandler 获取单个艺术家
func (h *APIHandler) GetArtistHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid artist ID", http.StatusBadRequest)
		return
	}

	artist, err := h.artistRepo.GetArtistByID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to get artist", logger.Int64("artistId", id), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if artist == nil {
		writeJSONError(w, http.StatusNotFound, "Artist not found")
		return
	}
	writeJSON(w, http.StatusOK, artist)
}
