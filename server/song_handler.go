package server

import (
	"database/sql"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"resona/logger"
	"resona/model"
	"resona/storage"
)

// ListSongsHandler 列出所有歌曲
func (h *APIHandler) ListSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.songRepo.ListSongs(r.Context())
	if err != nil {
		logger.Error("Failed to list songs", logger.ErrorField(err))
		http.Error(w, "Failed to get songs", http.StatusInternalServerError)
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

// CreateSongHandler handles song uploads and metadata.
// Expected multipart form fields:
// - title: song title (required)
// - artists: comma separated artist names
// - duration: HH:MM:SS (optional)
// - audioFile: the audio file (optional)
// - coverFile: cover art image (optional)
// - videoFile: music video file (optional)
func (h *APIHandler) CreateSongHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max memory
		http.Error(w, fmt.Sprintf("Failed to parse multipart form: %v", err), http.StatusBadRequest)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}

	song := &model.Song{Title: title}

	if raw := strings.TrimSpace(r.FormValue("duration")); raw != "" {
		duration, err := model.ParseDuration(raw)
		if err != nil {
			http.Error(w, "Invalid duration, expected HH:MM:SS", http.StatusBadRequest)
			return
		}
		song.Duration = duration
	}

	// 解析艺术家名单，逐个 get-or-create
	var artistIDs []int64
	for _, name := range strings.Split(r.FormValue("artists"), ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id, err := h.artistRepo.CreateArtist(r.Context(), name)
		if err != nil {
			logger.Error("Failed to resolve song artist", logger.String("artist", name), logger.ErrorField(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		artistIDs = append(artistIDs, id)
	}

	uploads := []struct {
		field  string
		prefix string
		target *sql.NullString
	}{
		{"coverFile", "covers", &song.CoverPath},
		{"audioFile", "audio", &song.AudioPath},
		{"videoFile", "videos", &song.VideoPath},
	}
	for _, up := range uploads {
		path, err := h.uploadFormFile(r, up.field, up.prefix)
		if err != nil {
			logger.Error("Failed to upload file",
				logger.String("field", up.field), logger.ErrorField(err))
			http.Error(w, fmt.Sprintf("Failed to upload %s", up.field), http.StatusInternalServerError)
			return
		}
		if path != "" {
			*up.target = sql.NullString{String: path, Valid: true}
		}
	}

	id, err := h.songRepo.CreateSong(r.Context(), song, artistIDs)
	if err != nil {
		logger.Error("Failed to create song", logger.ErrorField(err))
		http.Error(w, "Failed to create song", http.StatusInternalServerError)
		return
	}
	song.ID = id

	h.invalidateSearchCache(r)

	view, err := h.catalog.SongView(r.Context(), song)
	if err != nil {
		logger.Error("Failed to build song view", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// uploadFormFile 把表单里的文件传到对象存储，返回对象路径。
// 字段缺失时返回空串，不算错误。
func (h *APIHandler) uploadFormFile(r *http.Request, field, prefix string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return "", nil
		}
		return "", err
	}
	defer func(f multipart.File) { f.Close() }(file)

	return storage.UploadObject(r.Context(), prefix, header.Filename, file, header.Size)
}

// GetSongHandler 获取单首歌曲
func (h *APIHandler) GetSongHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid song ID", http.StatusBadRequest)
		return
	}

	song, err := h.songRepo.GetSongByID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to get song", logger.Int64("songId", id), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if song == nil {
		writeJSONError(w, http.StatusNotFound, "Song not found")
		return
	}

	view, err := h.catalog.SongView(r.Context(), song)
	if err != nil {
		logger.Error("Failed to build song view", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateSongHandler 更新歌曲元数据（multipart，字段与创建一致，均可选）
func (h *APIHandler) UpdateSongHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid song ID", http.StatusBadRequest)
		return
	}

	song, err := h.songRepo.GetSongByID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to get song", logger.Int64("songId", id), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if song == nil {
		writeJSONError(w, http.StatusNotFound, "Song not found")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse multipart form: %v", err), http.StatusBadRequest)
		return
	}

	if title := strings.TrimSpace(r.FormValue("title")); title != "" {
		song.Title = title
	}
	if raw := strings.TrimSpace(r.FormValue("duration")); raw != "" {
		duration, err := model.ParseDuration(raw)
		if err != nil {
			http.Error(w, "Invalid duration, expected HH:MM:SS", http.StatusBadRequest)
			return
		}
		song.Duration = duration
	}

	// artists 字段缺失时保留原有关联
	var artistIDs []int64
	if _, ok := r.MultipartForm.Value["artists"]; ok {
		artistIDs = []int64{}
		for _, name := range strings.Split(r.FormValue("artists"), ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			artistID, err := h.artistRepo.CreateArtist(r.Context(), name)
			if err != nil {
				logger.Error("Failed to resolve song artist", logger.String("artist", name), logger.ErrorField(err))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			artistIDs = append(artistIDs, artistID)
		}
	}

	uploads := []struct {
		field  string
		prefix string
		target *sql.NullString
	}{
		{"coverFile", "covers", &song.CoverPath},
		{"audioFile", "audio", &song.AudioPath},
		{"videoFile", "videos", &song.VideoPath},
	}
	for _, up := range uploads {
		path, err := h.uploadFormFile(r, up.field, up.prefix)
		if err != nil {
			logger.Error("Failed to upload file",
				logger.String("field", up.field), logger.ErrorField(err))
			http.Error(w, fmt.Sprintf("Failed to upload %s", up.field), http.StatusInternalServerError)
			return
		}
		if path != "" {
			*up.target = sql.NullString{String: path, Valid: true}
		}
	}

	if err := h.songRepo.UpdateSong(r.Context(), song, artistIDs); err != nil {
		logger.Error("Failed to update song", logger.Int64("songId", id), logger.ErrorField(err))
		http.Error(w, "Failed to update song", http.StatusInternalServerError)
		return
	}

	h.invalidateSearchCache(r)

	view, err := h.catalog.SongView(r.Context(), song)
	if err != nil {
		logger.Error("Failed to build song view", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DeleteSongHandler 删除歌曲及其关联
func (h *APIHandler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid song ID", http.StatusBadRequest)
		return
	}

	song, err := h.songRepo.GetSongByID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to get song", logger.Int64("songId", id), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if song == nil {
		writeJSONError(w, http.StatusNotFound, "Song not found")
		return
	}

	if err := h.songRepo.DeleteSong(r.Context(), id); err != nil {
		logger.Error("Failed to delete song", logger.Int64("songId", id), logger.ErrorField(err))
		http.Error(w, "Failed to delete song", http.StatusInternalServerError)
		return
	}

	h.invalidateSearchCache(r)

	logger.Info("song deleted", logger.Int64("songId", id))
	w.WriteHeader(http.StatusNoContent)
}

// SearchHandler 按标题、艺术家、专辑或时长文本搜索歌曲
func (h *APIHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	if h.searchCache != nil && strings.TrimSpace(query) != "" {
		if cached, err := h.searchCache.Get(r.Context(), query); err != nil {
			logger.Warn("search cache lookup failed", logger.ErrorField(err))
		} else if cached != nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	results, err := h.catalog.Search(r.Context(), query)
	if err != nil {
		logger.Error("Search failed", logger.String("query", query), logger.ErrorField(err))
		http.Error(w, "Search failed", http.StatusInternalServerError)
		return
	}

	if h.searchCache != nil && strings.TrimSpace(query) != "" {
		if err := h.searchCache.Set(r.Context(), query, results); err != nil {
			logger.Warn("search cache store failed", logger.ErrorField(err))
		}
	}

	writeJSON(w, http.StatusOK, results)
}

func (h *APIHandler) invalidateSearchCache(r *http.Request) {
	if h.searchCache == nil {
		return
	}
	if err := h.searchCache.Invalidate(r.Context()); err != nil {
		logger.Warn("failed to invalidate search cache", logger.ErrorField(err))
	}
}
