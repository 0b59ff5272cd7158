package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resona/cache"
	"resona/config"
	"resona/core/auth"
	"resona/core/catalog"
	"resona/core/chat"
	"resona/db"
	"resona/model"
	"resona/repository"
	"resona/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	auth.Configure(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 初始化 MinIO 客户端
	if err := storage.InitMinio(cfg); err != nil {
		log.Fatalf("Failed to initialize MinIO: %v", err)
	}

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.DB.Close()

	if err := db.ConnectGormDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database via GORM: %v", err)
	}
	defer db.CloseGormDB()

	// Connect to Redis
	if err := db.ConnectRedis(cfg); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer db.CloseRedis()
	log.Println("Successfully connected to Redis")

	// Initialize database schema
	if err := db.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := db.AutoMigrateModels(&model.Video{}); err != nil {
		log.Fatalf("Failed to migrate GORM models: %v", err)
	}

	userRepo := repository.NewMySQLUserRepository(db.DB)
	artistRepo := repository.NewMySQLArtistRepository(db.DB)
	albumRepo := repository.NewMySQLAlbumRepository(db.DB)
	songRepo := repository.NewMySQLSongRepository(db.DB)
	playlistRepo := repository.NewMySQLPlaylistRepository(db.DB)
	favoriteRepo := repository.NewMySQLFavoriteRepository(db.DB)
	videoRepo := repository.NewGormVideoRepository(db.GormDB)
	messageRepo := repository.NewMySQLMessageRepository(db.DB)

	catalogService := catalog.NewService(songRepo, albumRepo, artistRepo)
	reconciler := catalog.NewReconciler(songRepo, albumRepo, catalogService)

	hub := chat.NewHub(cache.NewPresenceCache())
	go hub.Run()
	defer hub.Stop()
	gateway := chat.NewGateway(hub, userRepo, messageRepo)

	apiHandler := NewAPIHandler(
		userRepo, artistRepo, albumRepo, songRepo,
		playlistRepo, favoriteRepo, videoRepo, messageRepo,
		catalogService, reconciler, gateway,
		cache.NewSearchCache(), cfg,
	)

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/refresh", apiHandler.RefreshHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/user", apiHandler.AuthMiddleware(apiHandler.CurrentUserHandler)).Methods(http.MethodGet)

	// 艺术家相关的API端点
	router.HandleFunc("/api/artists", apiHandler.AuthMiddleware(apiHandler.ListArtistsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/artists", apiHandler.AuthMiddleware(apiHandler.CreateArtistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/artists/{id}", apiHandler.AuthMiddleware(apiHandler.GetArtistHandler)).Methods(http.MethodGet)

	// 专辑相关的API端点
	router.HandleFunc("/api/albums", apiHandler.AuthMiddleware(apiHandler.ListAlbumsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/albums", apiHandler.AuthMiddleware(apiHandler.CreateAlbumHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/albums/{id}", apiHandler.AuthMiddleware(apiHandler.GetAlbumHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/albums/{id}", apiHandler.AuthMiddleware(apiHandler.UpdateAlbumHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/albums/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteAlbumHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/albums/{id}/songs", apiHandler.AuthMiddleware(apiHandler.GetAlbumSongsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/albums/{id}/add_songs", apiHandler.AuthMiddleware(apiHandler.AddSongsToAlbumHandler)).Methods(http.MethodPost)

	// 歌曲相关的API端点
	router.HandleFunc("/api/songs", apiHandler.AuthMiddleware(apiHandler.ListSongsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/songs", apiHandler.AuthMiddleware(apiHandler.CreateSongHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/{id}", apiHandler.AuthMiddleware(apiHandler.GetSongHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/{id}", apiHandler.AuthMiddleware(apiHandler.UpdateSongHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/songs/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteSongHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/search", apiHandler.AuthMiddleware(apiHandler.SearchHandler)).Methods(http.MethodGet)

	// 视频相关的API端点
	router.HandleFunc("/api/videos", apiHandler.AuthMiddleware(apiHandler.ListVideosHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/videos", apiHandler.AuthMiddleware(apiHandler.CreateVideoHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/videos/{id}", apiHandler.AuthMiddleware(apiHandler.GetVideoHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/videos/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteVideoHandler)).Methods(http.MethodDelete)

	// 歌单相关的API端点
	router.HandleFunc("/api/playlists", apiHandler.AuthMiddleware(apiHandler.ListPlaylistsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists", apiHandler.AuthMiddleware(apiHandler.CreatePlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}", apiHandler.AuthMiddleware(apiHandler.GetPlaylistHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists/{id}", apiHandler.AuthMiddleware(apiHandler.RenamePlaylistHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/playlists/{id}", apiHandler.AuthMiddleware(apiHandler.DeletePlaylistHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlists/{id}/songs", apiHandler.AuthMiddleware(apiHandler.AddPlaylistSongHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}/songs/{song_id}", apiHandler.AuthMiddleware(apiHandler.RemovePlaylistSongHandler)).Methods(http.MethodDelete)

	// 收藏相关的API端点
	router.HandleFunc("/api/favorites", apiHandler.AuthMiddleware(apiHandler.GetFavoritesHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/favorites/{kind}/{id}", apiHandler.AuthMiddleware(apiHandler.AddFavoriteHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/favorites/{kind}/{id}", apiHandler.AuthMiddleware(apiHandler.RemoveFavoriteHandler)).Methods(http.MethodDelete)

	// 用户与聊天相关的API端点
	router.HandleFunc("/api/users", apiHandler.AuthMiddleware(apiHandler.SearchUsersHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/recent-chats", apiHandler.AuthMiddleware(apiHandler.RecentChatsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/messages/{username}", apiHandler.AuthMiddleware(apiHandler.MessageHistoryHandler)).Methods(http.MethodGet)
	router.HandleFunc("/ws/chat", apiHandler.ChatWebSocketHandler)

	// MinIO文件服务路由
	router.PathPrefix("/static/").HandlerFunc(apiHandler.StaticHandler)

	server.Handler = router

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s...", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待中断信号
	<-stop
	log.Println("Shutting down server...")

	// 创建一个5秒超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
