package repository

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// newTestDB 在内存 sqlite 上重建与生产等价的表结构。
// 所有仓库 SQL 都使用 ? 占位符，两种数据库下行为一致。
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, ddl := range []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE artists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE albums (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			artist_id INTEGER NOT NULL,
			release_date TIMESTAMP,
			cover_path TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)`,
		`CREATE TABLE songs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			cover_path TEXT,
			audio_path TEXT,
			video_path TEXT,
			album_id INTEGER,
			duration_seconds INTEGER,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)`,
		`CREATE TABLE song_artists (
			song_id INTEGER NOT NULL,
			artist_id INTEGER NOT NULL,
			PRIMARY KEY (song_id, artist_id)
		)`,
		`CREATE TABLE playlists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			user_id INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE playlist_songs (
			playlist_id INTEGER NOT NULL,
			song_id INTEGER NOT NULL,
			UNIQUE (playlist_id, song_id)
		)`,
		`CREATE TABLE favorite_songs (
			user_id INTEGER NOT NULL,
			song_id INTEGER NOT NULL,
			UNIQUE (user_id, song_id)
		)`,
		`CREATE TABLE favorite_videos (
			user_id INTEGER NOT NULL,
			video_id INTEGER NOT NULL,
			UNIQUE (user_id, video_id)
		)`,
		`CREATE TABLE favorite_albums (
			user_id INTEGER NOT NULL,
			album_id INTEGER NOT NULL,
			UNIQUE (user_id, album_id)
		)`,
		`CREATE TABLE messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sender_id INTEGER NOT NULL,
			receiver_id INTEGER NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	} {
		_, err := db.Exec(ddl)
		require.NoError(t, err)
	}
	return db
}
