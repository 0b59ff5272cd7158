package repository

import (
	"context"
	"database/sql"
	"fmt"

	"resona/model"
)

// ArtistRepository 定义艺术家相关的数据库操作接口
type ArtistRepository interface {
	// CreateArtist 创建艺术家，名字已存在时返回已有记录的ID
	CreateArtist(ctx context.Context, name string) (int64, error)

	// GetArtistByID 根据ID获取艺术家
	GetArtistByID(ctx context.Context, id int64) (*model.Artist, error)

	// ListArtists 列出所有艺术家
	ListArtists(ctx context.Context) ([]*model.Artist, error)

	// GetArtistsBySongID 获取歌曲关联的艺术家
	GetArtistsBySongID(ctx context.Context, songID int64) ([]*model.Artist, error)

	// GetArtistsByIDs 批量获取艺术家
	GetArtistsByIDs(ctx context.Context, ids []int64) ([]*model.Artist, error)
}

// MySQLArtistRepository MySQL实现的艺术家仓库
type MySQLArtistRepository struct {
	db *sql.DB
}

// NewMySQLArtistRepository 创建新的MySQL艺术家仓库实例
func NewMySQLArtistRepository(db *sql.DB) *MySQLArtistRepository {
	return &MySQLArtistRepository{db: db}
}

// CreateArtist 创建艺术家，名字唯一
func (r *MySQLArtistRepository) CreateArtist(ctx context.Context, name string) (int64, error) {
	// 先查再插，保持幂等
	var id int64
	err := r.db.QueryRowContext(ctx, "SELECT id FROM artists WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up artist %q: %w", name, err)
	}

	res, err := r.db.ExecContext(ctx, "INSERT INTO artists (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to create artist %q: %w", name, err)
	}
	return res.LastInsertId()
}

// GetArtistByID 根据ID获取艺术家
func (r *MySQLArtistRepository) GetArtistByID(ctx context.Context, id int64) (*model.Artist, error) {
	artist := &model.Artist{}
	err := r.db.QueryRowContext(ctx, "SELECT id, name FROM artists WHERE id = ?", id).Scan(&artist.ID, &artist.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan artist %d: %w", id, err)
	}
	return artist, nil
}

// ListArtists 列出所有艺术家
func (r *MySQLArtistRepository) ListArtists(ctx context.Context) ([]*model.Artist, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM artists ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()
	return scanArtists(rows)
}

// GetArtistsBySongID 获取歌曲关联的艺术家
func (r *MySQLArtistRepository) GetArtistsBySongID(ctx context.Context, songID int64) ([]*model.Artist, error) {
	query := `
		SELECT a.id, a.name FROM artists a
		JOIN song_artists sa ON sa.artist_id = a.id
		WHERE sa.song_id = ?
		ORDER BY a.name
	`
	rows, err := r.db.QueryContext(ctx, query, songID)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists for song %d: %w", songID, err)
	}
	defer rows.Close()
	return scanArtists(rows)
}

// GetArtistsByIDs 批量获取艺术家
func (r *MySQLArtistRepository) GetArtistsByIDs(ctx context.Context, ids []int64) ([]*model.Artist, error) {
	if len(ids) == 0 {
		return []*model.Artist{}, nil
	}

	query := fmt.Sprintf("SELECT id, name FROM artists WHERE id IN (%s)", placeholders(len(ids)))
	rows, err := r.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists by ids: %w", err)
	}
	defer rows.Close()
	return scanArtists(rows)
}

func scanArtists(rows *sql.Rows) ([]*model.Artist, error) {
	artists := []*model.Artist{}
	for rows.Next() {
		artist := &model.Artist{}
		if err := rows.Scan(&artist.ID, &artist.Name); err != nil {
			return nil, fmt.Errorf("failed to scan artist row: %w", err)
		}
		artists = append(artists, artist)
	}
	return artists, rows.Err()
}
