package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// FavoriteKind 收藏内容的种类
type FavoriteKind string

const (
	FavoriteSongs  FavoriteKind = "songs"
	FavoriteVideos FavoriteKind = "videos"
	FavoriteAlbums FavoriteKind = "albums"
)

// favoriteTables 各种类对应的表及内容列
var favoriteTables = map[FavoriteKind]struct {
	table  string
	column string
}{
	FavoriteSongs:  {"favorite_songs", "song_id"},
	FavoriteVideos: {"favorite_videos", "video_id"},
	FavoriteAlbums: {"favorite_albums", "album_id"},
}

// FavoriteRepository 定义收藏相关的数据库操作接口。
// 收藏为集合语义：添加/移除幂等。
type FavoriteRepository interface {
	Add(ctx context.Context, userID int64, kind FavoriteKind, itemID int64) error
	Remove(ctx context.Context, userID int64, kind FavoriteKind, itemID int64) error
	GetIDs(ctx context.Context, userID int64, kind FavoriteKind) ([]int64, error)
}

// MySQLFavoriteRepository MySQL实现的收藏仓库
type MySQLFavoriteRepository struct {
	db *sql.DB
}

// NewMySQLFavoriteRepository 创建新的MySQL收藏仓库实例
func NewMySQLFavoriteRepository(db *sql.DB) *MySQLFavoriteRepository {
	return &MySQLFavoriteRepository{db: db}
}

// Add 添加收藏，重复添加幂等
func (r *MySQLFavoriteRepository) Add(ctx context.Context, userID int64, kind FavoriteKind, itemID int64) error {
	t, ok := favoriteTables[kind]
	if !ok {
		return fmt.Errorf("unknown favorite kind: %s", kind)
	}

	var exists int
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE user_id = ? AND %s = ?", t.table, t.column)
	err := r.db.QueryRowContext(ctx, query, userID, itemID).Scan(&exists)
	if err == nil {
		return nil // already favorited
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check favorite: %w", err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (user_id, %s) VALUES (?, ?)", t.table, t.column)
	if _, err := r.db.ExecContext(ctx, insert, userID, itemID); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

// Remove 移除收藏，重复移除幂等
func (r *MySQLFavoriteRepository) Remove(ctx context.Context, userID int64, kind FavoriteKind, itemID int64) error {
	t, ok := favoriteTables[kind]
	if !ok {
		return fmt.Errorf("unknown favorite kind: %s", kind)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = ? AND %s = ?", t.table, t.column)
	if _, err := r.db.ExecContext(ctx, query, userID, itemID); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// GetIDs 获取用户某一种类的收藏ID集合
func (r *MySQLFavoriteRepository) GetIDs(ctx context.Context, userID int64, kind FavoriteKind) ([]int64, error) {
	t, ok := favoriteTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown favorite kind: %s", kind)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = ? ORDER BY %s", t.column, t.table, t.column)
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan favorite id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
