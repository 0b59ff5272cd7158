package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"resona/model"
)

// PlaylistRepository 定义歌单相关的数据库操作接口
// 所有查询均以 userID 限定，歌单只对其所有者可见
type PlaylistRepository interface {
	CreatePlaylist(ctx context.Context, playlist *model.Playlist) (int64, error)
	GetPlaylistByID(ctx context.Context, id, userID int64) (*model.Playlist, error)
	GetPlaylistsByUserID(ctx context.Context, userID int64) ([]*model.Playlist, error)
	RenamePlaylist(ctx context.Context, id, userID int64, name string) error
	DeletePlaylist(ctx context.Context, id, userID int64) error

	// AddSong / RemoveSong 为集合语义，重复操作幂等
	AddSong(ctx context.Context, playlistID, songID int64) error
	RemoveSong(ctx context.Context, playlistID, songID int64) error
	GetSongIDs(ctx context.Context, playlistID int64) ([]int64, error)
	ReplaceSongs(ctx context.Context, playlistID int64, songIDs []int64) error
}

// MySQLPlaylistRepository MySQL实现的歌单仓库
type MySQLPlaylistRepository struct {
	db *sql.DB
}

// NewMySQLPlaylistRepository 创建新的MySQL歌单仓库实例
func NewMySQLPlaylistRepository(db *sql.DB) *MySQLPlaylistRepository {
	return &MySQLPlaylistRepository{db: db}
}

// CreatePlaylist 创建歌单
func (r *MySQLPlaylistRepository) CreatePlaylist(ctx context.Context, playlist *model.Playlist) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO playlists (name, user_id, created_at) VALUES (?, ?, ?)",
		playlist.Name, playlist.UserID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to create playlist: %w", err)
	}
	return res.LastInsertId()
}

// GetPlaylistByID 获取指定用户的歌单
func (r *MySQLPlaylistRepository) GetPlaylistByID(ctx context.Context, id, userID int64) (*model.Playlist, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, user_id, created_at FROM playlists WHERE id = ? AND user_id = ?", id, userID)

	playlist := &model.Playlist{}
	err := row.Scan(&playlist.ID, &playlist.Name, &playlist.UserID, &playlist.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan playlist %d: %w", id, err)
	}
	return playlist, nil
}

// GetPlaylistsByUserID 获取用户的所有歌单
func (r *MySQLPlaylistRepository) GetPlaylistsByUserID(ctx context.Context, userID int64) ([]*model.Playlist, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, user_id, created_at FROM playlists WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists for user %d: %w", userID, err)
	}
	defer rows.Close()

	playlists := []*model.Playlist{}
	for rows.Next() {
		playlist := &model.Playlist{}
		if err := rows.Scan(&playlist.ID, &playlist.Name, &playlist.UserID, &playlist.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan playlist row: %w", err)
		}
		playlists = append(playlists, playlist)
	}
	return playlists, rows.Err()
}

// RenamePlaylist 重命名歌单
func (r *MySQLPlaylistRepository) RenamePlaylist(ctx context.Context, id, userID int64, name string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE playlists SET name = ? WHERE id = ? AND user_id = ?", name, id, userID)
	if err != nil {
		return fmt.Errorf("failed to rename playlist %d: %w", id, err)
	}
	return nil
}

// DeletePlaylist 删除歌单及其歌曲关联
func (r *MySQLPlaylistRepository) DeletePlaylist(ctx context.Context, id, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for DeletePlaylist: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_songs WHERE playlist_id = ?", id); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete playlist songs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM playlists WHERE id = ? AND user_id = ?", id, userID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete playlist %d: %w", id, err)
	}

	return tx.Commit()
}

// AddSong 添加歌曲到歌单，重复添加幂等
func (r *MySQLPlaylistRepository) AddSong(ctx context.Context, playlistID, songID int64) error {
	var exists int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM playlist_songs WHERE playlist_id = ? AND song_id = ?", playlistID, songID).Scan(&exists)
	if err == nil {
		return nil // already present
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check playlist song: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO playlist_songs (playlist_id, song_id) VALUES (?, ?)", playlistID, songID)
	if err != nil {
		return fmt.Errorf("failed to add song %d to playlist %d: %w", songID, playlistID, err)
	}
	return nil
}

// RemoveSong 从歌单移除歌曲，重复移除幂等
func (r *MySQLPlaylistRepository) RemoveSong(ctx context.Context, playlistID, songID int64) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?", playlistID, songID)
	if err != nil {
		return fmt.Errorf("failed to remove song %d from playlist %d: %w", songID, playlistID, err)
	}
	return nil
}

// GetSongIDs 获取歌单的歌曲ID集合
func (r *MySQLPlaylistRepository) GetSongIDs(ctx context.Context, playlistID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT song_id FROM playlist_songs WHERE playlist_id = ? ORDER BY song_id", playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist songs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan playlist song id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReplaceSongs 以给定集合整体替换歌单的歌曲
func (r *MySQLPlaylistRepository) ReplaceSongs(ctx context.Context, playlistID int64, songIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for ReplaceSongs: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_songs WHERE playlist_id = ?", playlistID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear playlist songs: %w", err)
	}
	for _, songID := range songIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO playlist_songs (playlist_id, song_id) VALUES (?, ?)", playlistID, songID); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to add song %d: %w", songID, err)
		}
	}

	return tx.Commit()
}
