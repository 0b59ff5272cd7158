package db

import (
	"database/sql"
	"fmt"
	"log"

	"resona/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
// The videos table is managed separately through GORM (see gorm.go).
func InitDB() error {
	statements := []struct {
		name  string
		query string
	}{
		{"users", createUsersTable},
		{"artists", createArtistsTable},
		{"albums", createAlbumsTable},
		{"songs", createSongsTable},
		{"song_artists", createSongArtistsTable},
		{"playlists", createPlaylistsTable},
		{"playlist_songs", createPlaylistSongsTable},
		{"favorite_songs", createFavoriteSongsTable},
		{"favorite_videos", createFavoriteVideosTable},
		{"favorite_albums", createFavoriteAlbumsTable},
		{"messages", createMessagesTable},
	}

	for _, stmt := range statements {
		if _, err := DB.Exec(stmt.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", stmt.name, err)
		}
	}

	log.Println("Database initialization completed.")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	username VARCHAR(100) NOT NULL UNIQUE,
	email VARCHAR(255) NOT NULL UNIQUE,
	password_hash VARCHAR(255) NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
);`

const createArtistsTable = `
CREATE TABLE IF NOT EXISTS artists (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(100) NOT NULL UNIQUE
);`

const createAlbumsTable = `
CREATE TABLE IF NOT EXISTS albums (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	title VARCHAR(100) NOT NULL,
	artist_id BIGINT NOT NULL,
	release_date DATE NULL,
	cover_path VARCHAR(512) NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	INDEX idx_albums_artist (artist_id)
);`

// songs.album_id 为可空单值外键：一首歌任一时刻最多属于一张专辑
const createSongsTable = `
CREATE TABLE IF NOT EXISTS songs (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	title VARCHAR(100) NOT NULL,
	cover_path VARCHAR(512) NULL,
	audio_path VARCHAR(512) NULL,
	video_path VARCHAR(512) NULL,
	album_id BIGINT NULL,
	duration_seconds BIGINT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	INDEX idx_songs_album (album_id)
);`

const createSongArtistsTable = `
CREATE TABLE IF NOT EXISTS song_artists (
	song_id BIGINT NOT NULL,
	artist_id BIGINT NOT NULL,
	UNIQUE KEY uq_song_artist (song_id, artist_id)
);`

const createPlaylistsTable = `
CREATE TABLE IF NOT EXISTS playlists (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(100) NOT NULL,
	user_id BIGINT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_playlists_user (user_id)
);`

const createPlaylistSongsTable = `
CREATE TABLE IF NOT EXISTS playlist_songs (
	playlist_id BIGINT NOT NULL,
	song_id BIGINT NOT NULL,
	UNIQUE KEY uq_playlist_song (playlist_id, song_id)
);`

const createFavoriteSongsTable = `
CREATE TABLE IF NOT EXISTS favorite_songs (
	user_id BIGINT NOT NULL,
	song_id BIGINT NOT NULL,
	UNIQUE KEY uq_favorite_song (user_id, song_id)
);`

const createFavoriteVideosTable = `
CREATE TABLE IF NOT EXISTS favorite_videos (
	user_id BIGINT NOT NULL,
	video_id BIGINT NOT NULL,
	UNIQUE KEY uq_favorite_video (user_id, video_id)
);`

const createFavoriteAlbumsTable = `
CREATE TABLE IF NOT EXISTS favorite_albums (
	user_id BIGINT NOT NULL,
	album_id BIGINT NOT NULL,
	UNIQUE KEY uq_favorite_album (user_id, album_id)
);`

// 消息按 created_at 升序构成会话的全序
const createMessagesTable = `
CREATE TABLE IF NOT EXISTS messages (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	sender_id BIGINT NOT NULL,
	receiver_id BIGINT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMP(6) DEFAULT CURRENT_TIMESTAMP(6),
	INDEX idx_messages_sender (sender_id, created_at),
	INDEX idx_messages_receiver (receiver_id, created_at)
);`
