package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"resona/core/catalog"
	"resona/logger"
	"resona/model"
)

// AlbumRequest 创建/更新专辑的请求体
type AlbumRequest struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	ReleaseDate string `json:"releaseDate"` // YYYY-MM-DD，可空
	CoverPath   string `json:"coverPath"`
}

// AddSongsRequest 专辑歌曲集合重整的请求体
type AddSongsRequest struct {
	SongIDs []int64 `json:"song_ids"`
}

// ListAlbumsHandler 列出所有专辑
func (h *APIHandler) ListAlbumsHandler(w http.ResponseWriter, r *http.Request) {
	albums, err := h.albumRepo.ListAlbums(r.Context())
	if err != nil {
		logger.Error("Failed to list albums", logger.ErrorField(err))
		http.Error(w, "Failed to get albums", http.StatusInternalServerError)
		return
	}

	views := make([]*model.AlbumView, 0, len(albums))
	for _, album := range albums {
		view, err := h.catalog.AlbumView(r.Context(), album)
		if err != nil {
			logger.Error("Failed to build album view", logger.ErrorField(err))
			http.Error(w, "Failed to get albums", http.StatusInternalServerError)
			return
		}
		views = append(views, view)
	}

	writeJSON(w, http.StatusOK, views)
}

// CreateAlbumHandler 创建新专辑
func (h *APIHandler) CreateAlbumHandler(w http.ResponseWriter, r *http.Request) {
	var req AlbumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Artist) == "" {
		http.Error(w, "Title and artist are required", http.StatusBadRequest)
		return
	}

	artistID, err := h.artistRepo.CreateArtist(r.Context(), strings.TrimSpace(req.Artist))
	if err != nil {
		logger.Error("Failed to resolve album artist", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	album := &model.Album{
		Title:    strings.TrimSpace(req.Title),
		ArtistID: artistID,
	}
	if req.ReleaseDate != "" {
		date, err := time.Parse("2006-01-02", req.ReleaseDate)
		if err != nil {
			http.Error(w, "Invalid release date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		album.ReleaseDate = sql.NullTime{Time: date, Valid: true}
	}
	if req.CoverPath != "" {
		album.CoverPath = sql.NullString{String: req.CoverPath, Valid: true}
	}

	id, err := h.albumRepo.CreateAlbum(r.Context(), album)
	if err != nil {
		logger.Error("Failed to create album", logger.ErrorField(err))
		http.Error(w, "Failed to create album", http.StatusInternalServerError)
		return
	}
	album.ID = id

	logger.Info("album created", logger.Int64("albumId", id), logger.String("title", album.Title))

	view, err := h.catalog.AlbumView(r.Context(), album)
	if err != nil {
		logger.Error("Failed to build album view", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GetAlbumHandler 获取单张专辑及其歌曲
func (h *APIHandler) GetAlbumHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid album ID", http.StatusBadRequest)
		return
	}

	album, err := h.albumRepo.GetAlbumByID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to get album", logger.Int64("albumId", id), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if album == nil {
		writeJSONError(w, http.StatusNotFound, "Album not found")
		return
	}

	view, err := h.catalog.AlbumWithSongs(r.Context(), album)
	if err != nil {
		logger.Error("Failed to build album view", logger.Int64("albumId", id), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateAlbumHandler 更新专辑信息
func (h *APIHandler) UpdateAlbumHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid album ID", http.StatusBadRequest)
		return
	}

	album, err := h.albumRepo.GetAlbumByID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to get album", logger.Int64("albumId", id), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if album == nil {
		writeJSONError(w, http.StatusNotFound, "Album not found")
		return
	}

	var req AlbumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Title) != "" {
		album.Title = strings.TrimSpace(req.Title)
	}
	if strings.TrimSpace(req.Artist) != "" {
		artistID, err := h.artistRepo.CreateArtist(r.Context(), strings.TrimSpace(req.Artist))
		if err != nil {
			logger.Error("Failed to resolve album artist", logger.ErrorField(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		album.ArtistID = artistID
	}
	if req.ReleaseDate != "" {
		date, err := time.Parse("2006-01-02", req.ReleaseDate)
		if err != nil {
			http.Error(w, "Invalid release date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		album.ReleaseDate = sql.NullTime{Time: date, Valid: true}
	}
	if req.CoverPath != "" {
		album.CoverPath = sql.NullString{String: req.CoverPath, Valid: true}
	}

	if err := h.albumRepo.UpdateAlbum(r.Context(), album); err != nil {
		logger.Error("Failed to update album", logger.Int64("albumId", id), logger.ErrorField(err))
		http.Error(w, "Failed to update album", http.StatusInternalServerError)
		return
	}

	view, err := h.catalog.AlbumView(r.Context(), album)
	if err != nil {
		logger.Error("Failed to build album view", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DeleteAlbumHandler 删除专辑（歌曲保留，专辑引用被清空）
func (h *APIHandler) DeleteAlbumHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid album ID", http.StatusBadRequest)
		return
	}

	album, err := h.albumRepo.GetAlbumByID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to get album", logger.Int64("albumId", id), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if album == nil {
		writeJSONError(w, http.StatusNotFound, "Album not found")
		return
	}

	if err := h.albumRepo.DeleteAlbum(r.Context(), id); err != nil {
		logger.Error("Failed to delete album", logger.Int64("albumId", id), logger.ErrorField(err))
		http.Error(w, "Failed to delete album", http.StatusInternalServerError)
		return
	}

	logger.Info("album deleted", logger.Int64("albumId", id))
	w.WriteHeader(http.StatusNoContent)
}

// GetAlbumSongsHandler 获取专辑当前拥有的歌曲
func (h *APIHandler) GetAlbumSongsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid album ID", http.StatusBadRequest)
		return
	}

	album, err := h.albumRepo.GetAlbumByID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to get album", logger.Int64("albumId", id), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if album == nil {
		writeJSONError(w, http.StatusNotFound, "Album not found")
		return
	}

	songs, err := h.songRepo.GetSongsByAlbumID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to get album songs", logger.Int64("albumId", id), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	views, err := h.catalog.SongViews(r.Context(), songs)
	if err != nil {
		logger.Error("Failed to build song views", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// AddSongsToAlbumHandler 把专辑的歌曲集合重整为请求给出的目标集合。
// 请求中缺失的已有歌曲会被摘除；引用了其他专辑的歌曲时整个请求被拒绝。
func (h *APIHandler) AddSongsToAlbumHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid album ID", http.StatusBadRequest)
		return
	}

	var req AddSongsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SongIDs == nil {
		http.Error(w, "song_ids is required", http.StatusBadRequest)
		return
	}

	result, err := h.reconciler.ReconcileAlbumSongs(r.Context(), id, req.SongIDs)
	if err != nil {
		var conflict *catalog.ConflictError
		switch {
		case errors.Is(err, catalog.ErrAlbumNotFound):
			writeJSONError(w, http.StatusNotFound, "Album not found")
		case errors.As(err, &conflict):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":    "Songs already assigned to another album or not found",
				"song_ids": conflict.SongIDs,
			})
		default:
			logger.Error("Failed to reconcile album songs",
				logger.Int64("albumId", id), logger.ErrorField(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	// 搜索结果里带专辑信息，专辑归属变化后缓存失效
	h.invalidateSearchCache(r)

	writeJSON(w, http.StatusOK, result)
}
