package server

import (
	"net/http"

	"resona/logger"
	"resona/model"
	"resona/repository"

	"github.com/gorilla/mux"
)

func favoriteKindFromPath(r *http.Request) (repository.FavoriteKind, bool) {
	switch mux.Vars(r)["kind"] {
	case "songs":
		return repository.FavoriteSongs, true
	case "videos":
		return repository.FavoriteVideos, true
	case "albums":
		return repository.FavoriteAlbums, true
	default:
		return "", false
	}
}

// GetFavoritesHandler 返回当前用户收藏的歌曲、视频和专辑
func (h *APIHandler) GetFavoritesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	ctx := r.Context()

	favorites := &model.Favorites{
		Songs:  []*model.SongView{},
		Videos: []*model.Video{},
		Albums: []*model.AlbumView{},
	}

	songIDs, err := h.favoriteRepo.GetIDs(ctx, userID, repository.FavoriteSongs)
	if err == nil {
		var songs []*model.Song
		if songs, err = h.songRepo.GetSongsByIDs(ctx, songIDs); err == nil {
			favorites.Songs, err = h.catalog.SongViews(ctx, songs)
		}
	}
	if err != nil {
		logger.Error("Failed to load favorite songs", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	videoIDs, err := h.favoriteRepo.GetIDs(ctx, userID, repository.FavoriteVideos)
	if err == nil {
		favorites.Videos, err = h.videoRepo.GetVideosByIDs(ctx, videoIDs)
	}
	if err != nil {
		logger.Error("Failed to load favorite videos", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	albumIDs, err := h.favoriteRepo.GetIDs(ctx, userID, repository.FavoriteAlbums)
	if err != nil {
		logger.Error("Failed to load favorite albums", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	albums, err := h.albumRepo.GetAlbumsByIDs(ctx, albumIDs)
	if err != nil {
		logger.Error("Failed to load favorite albums", logger.Int64("userId", userID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	for _, album := range albums {
		view, err := h.catalog.AlbumView(ctx, album)
		if err != nil {
			logger.Error("Failed to build album view", logger.ErrorField(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		favorites.Albums = append(favorites.Albums, view)
	}

	writeJSON(w, http.StatusOK, favorites)
}

// favoriteItemExists 校验被收藏的对象确实存在
func (h *APIHandler) favoriteItemExists(r *http.Request, kind repository.FavoriteKind, itemID int64) (bool, error) {
	ctx := r.Context()
	switch kind {
	case repository.FavoriteSongs:
		song, err := h.songRepo.GetSongByID(ctx, itemID)
		return song != nil, err
	case repository.FavoriteVideos:
		video, err := h.videoRepo.GetVideoByID(ctx, itemID)
		return video != nil, err
	case repository.FavoriteAlbums:
		album, err := h.albumRepo.GetAlbumByID(ctx, itemID)
		return album != nil, err
	}
	return false, nil
}

// AddFavoriteHandler 添加收藏（集合语义，重复添加幂等）
func (h *APIHandler) AddFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	kind, ok := favoriteKindFromPath(r)
	if !ok {
		http.Error(w, "Unknown favorite kind", http.StatusBadRequest)
		return
	}
	itemID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid item ID", http.StatusBadRequest)
		return
	}

	exists, err := h.favoriteItemExists(r, kind, itemID)
	if err != nil {
		logger.Error("Failed to check favorite item",
			logger.String("kind", string(kind)), logger.Int64("itemId", itemID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !exists {
		writeJSONError(w, http.StatusNotFound, "Item not found")
		return
	}

	if err := h.favoriteRepo.Add(r.Context(), userID, kind, itemID); err != nil {
		logger.Error("Failed to add favorite",
			logger.Int64("userId", userID),
			logger.String("kind", string(kind)),
			logger.Int64("itemId", itemID),
			logger.ErrorField(err))
		http.Error(w, "Failed to add favorite", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveFavoriteHandler 移除收藏（幂等）
func (h *APIHandler) RemoveFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	kind, ok := favoriteKindFromPath(r)
	if !ok {
		http.Error(w, "Unknown favorite kind", http.StatusBadRequest)
		return
	}
	itemID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid item ID", http.StatusBadRequest)
		return
	}

	if err := h.favoriteRepo.Remove(r.Context(), userID, kind, itemID); err != nil {
		logger.Error("Failed to remove favorite",
			logger.Int64("userId", userID),
			logger.String("kind", string(kind)),
			logger.Int64("itemId", itemID),
			logger.ErrorField(err))
		http.Error(w, "Failed to remove favorite", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
