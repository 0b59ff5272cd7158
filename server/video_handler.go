package server

import (
	"fmt"
	"net/http"
	"strings"

	"resona/logger"
	"resona/model"
)

// ListVideosHandler 列出所有视频
func (h *APIHandler) ListVideosHandler(w http.ResponseWriter, r *http.Request) {
	videos, err := h.videoRepo.ListVideos(r.Context())
	if err != nil {
		logger.Error("Failed to list videos", logger.ErrorField(err))
		http.Error(w, "Failed to get videos", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

// GetVideoHandler 获取单个视频
func (h *APIHandler) GetVideoHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid video ID", http.StatusBadRequest)
		return
	}

	video, err := h.videoRepo.GetVideoByID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to get video", logger.Int64("videoId", id), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if video == nil {
		writeJSONError(w, http.StatusNotFound, "Video not found")
		return
	}
	writeJSON(w, http.StatusOK, video)
}

// CreateVideoHandler handles video uploads.
// Expected multipart form fields: title, artist, duration (seconds),
// videoFile (required), thumbnailFile (optional).
func (h *APIHandler) CreateVideoHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil { // 64MB max memory
		http.Error(w, fmt.Sprintf("Failed to parse multipart form: %v", err), http.StatusBadRequest)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}

	videoPath, err := h.uploadFormFile(r, "videoFile", "videos")
	if err != nil {
		logger.Error("Failed to upload video file", logger.ErrorField(err))
		http.Error(w, "Failed to upload video file", http.StatusInternalServerError)
		return
	}
	if videoPath == "" {
		http.Error(w, "Missing 'videoFile' in form", http.StatusBadRequest)
		return
	}

	thumbnailPath, err := h.uploadFormFile(r, "thumbnailFile", "thumbnails")
	if err != nil {
		logger.Error("Failed to upload thumbnail", logger.ErrorField(err))
		http.Error(w, "Failed to upload thumbnail", http.StatusInternalServerError)
		return
	}

	video := &model.Video{
		Title:         title,
		Artist:        strings.TrimSpace(r.FormValue("artist")),
		VideoPath:     videoPath,
		ThumbnailPath: thumbnailPath,
	}
	if raw := r.FormValue("duration"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &video.Duration); err != nil {
			http.Error(w, "Invalid duration, expected seconds", http.StatusBadRequest)
			return
		}
	}

	id, err := h.videoRepo.CreateVideo(r.Context(), video)
	if err != nil {
		logger.Error("Failed to create video", logger.ErrorField(err))
		http.Error(w, "Failed to create video", http.StatusInternalServerError)
		return
	}
	video.ID = id

	logger.Info("video created", logger.Int64("videoId", id), logger.String("title", title))
	writeJSON(w, http.StatusCreated, video)
}

// DeleteVideoHandler 删除视频
func (h *APIHandler) DeleteVideoHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid video ID", http.StatusBadRequest)
		return
	}

	video, err := h.videoRepo.GetVideoByID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to get video", logger.Int64("videoId", id), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if video == nil {
		writeJSONError(w, http.StatusNotFound, "Video not found")
		return
	}

	if err := h.videoRepo.DeleteVideo(r.Context(), id); err != nil {
		logger.Error("Failed to delete video", logger.Int64("videoId", id), logger.ErrorField(err))
		http.Error(w, "Failed to delete video", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
