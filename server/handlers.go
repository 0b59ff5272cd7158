package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"resona/cache"
	"resona/config"
	"resona/core/auth"
	"resona/core/catalog"
	"resona/core/chat"
	"resona/repository"

	"github.com/gorilla/mux"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	userRepo     repository.UserRepository
	artistRepo   repository.ArtistRepository
	albumRepo    repository.AlbumRepository
	songRepo     repository.SongRepository
	playlistRepo repository.PlaylistRepository
	favoriteRepo repository.FavoriteRepository
	videoRepo    repository.VideoRepository
	messageRepo  repository.MessageRepository

	catalog    *catalog.Service
	reconciler *catalog.Reconciler
	gateway    *chat.Gateway

	searchCache *cache.SearchCache

	cfg *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	userRepo repository.UserRepository,
	artistRepo repository.ArtistRepository,
	albumRepo repository.AlbumRepository,
	songRepo repository.SongRepository,
	playlistRepo repository.PlaylistRepository,
	favoriteRepo repository.FavoriteRepository,
	videoRepo repository.VideoRepository,
	messageRepo repository.MessageRepository,
	catalogService *catalog.Service,
	reconciler *catalog.Reconciler,
	gateway *chat.Gateway,
	searchCache *cache.SearchCache,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		userRepo:     userRepo,
		artistRepo:   artistRepo,
		albumRepo:    albumRepo,
		songRepo:     songRepo,
		playlistRepo: playlistRepo,
		favoriteRepo: favoriteRepo,
		videoRepo:    videoRepo,
		messageRepo:  messageRepo,
		catalog:      catalogService,
		reconciler:   reconciler,
		gateway:      gateway,
		searchCache:  searchCache,
		cfg:          cfg,
	}
}

// AuthMiddleware is a middleware function that checks for a valid JWT token
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		// Add user info to the request context
		ctx := context.WithValue(r.Context(), "userID", claims.UserID)
		ctx = context.WithValue(ctx, "username", claims.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value("userID").(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// GetUsernameFromContext extracts the username from the request context
func GetUsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value("username").(string)
	if !ok {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}

// pathID 从路由变量中解析数值ID
func pathID(r *http.Request, name string) (int64, error) {
	raw, ok := mux.Vars(r)[name]
	if !ok {
		return 0, fmt.Errorf("missing path variable %q", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid path variable %q: %w", name, err)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
