package server

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"resona/logger"
	"resona/storage"
)

// StaticHandler 从对象存储代理封面、音频和视频文件
func (h *APIHandler) StaticHandler(w http.ResponseWriter, r *http.Request) {
	objectPath := strings.TrimPrefix(r.URL.Path, "/static/")
	if objectPath == "" {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	object, err := storage.GetObject(ctx, objectPath)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer object.Close()

	var contentType string
	switch {
	case strings.HasPrefix(objectPath, "covers/"), strings.HasPrefix(objectPath, "thumbnails/"):
		contentType = "image/jpeg"
	case strings.HasPrefix(objectPath, "audio/"):
		contentType = "audio/mpeg"
	case strings.HasPrefix(objectPath, "videos/"):
		contentType = "video/mp4"
	default:
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000") // 缓存一年

	if _, err := io.Copy(w, object); err != nil {
		logger.Warn("Error serving file from MinIO",
			logger.String("object", objectPath), logger.ErrorField(err))
	}
}
