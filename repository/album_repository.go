package repository

import (
	"context"
	"database/sql"
	"time"

	"resona/model"
)

// AlbumRepository 定义专辑相关的数据库操作接口
type AlbumRepository interface {
	// CreateAlbum 创建新专辑
	CreateAlbum(ctx context.Context, album *model.Album) (int64, error)

	// GetAlbumByID 根据ID获取专辑信息
	GetAlbumByID(ctx context.Context, id int64) (*model.Album, error)

	// ListAlbums 列出所有专辑
	ListAlbums(ctx context.Context) ([]*model.Album, error)

	// GetAlbumsByIDs 批量获取专辑
	GetAlbumsByIDs(ctx context.Context, ids []int64) ([]*model.Album, error)

	// UpdateAlbum 更新专辑信息
	UpdateAlbum(ctx context.Context, album *model.Album) error

	// DeleteAlbum 删除专辑，同时清空其歌曲的专辑引用
	DeleteAlbum(ctx context.Context, id int64) error
}

// MySQLAlbumRepository MySQL实现的专辑仓库
type MySQLAlbumRepository struct {
	db *sql.DB
}

// NewMySQLAlbumRepository 创建新的MySQL专辑仓库实例
func NewMySQLAlbumRepository(db *sql.DB) *MySQLAlbumRepository {
	return &MySQLAlbumRepository{db: db}
}

// CreateAlbum 创建新专辑
func (r *MySQLAlbumRepository) CreateAlbum(ctx context.Context, album *model.Album) (int64, error) {
	query := `
		INSERT INTO albums (title, artist_id, release_date, cover_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		album.Title,
		album.ArtistID,
		album.ReleaseDate,
		album.CoverPath,
		now,
		now,
	)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// GetAlbumByID 根据ID获取专辑信息
func (r *MySQLAlbumRepository) GetAlbumByID(ctx context.Context, id int64) (*model.Album, error) {
	query := `
		SELECT id, title, artist_id, release_date, cover_path, created_at, updated_at
		FROM albums
		WHERE id = ?
	`

	album := &model.Album{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&album.ID,
		&album.Title,
		&album.ArtistID,
		&album.ReleaseDate,
		&album.CoverPath,
		&album.CreatedAt,
		&album.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return album, nil
}

// ListAlbums 列出所有专辑
func (r *MySQLAlbumRepository) ListAlbums(ctx context.Context) ([]*model.Album, error) {
	query := `
		SELECT id, title, artist_id, release_date, cover_path, created_at, updated_at
		FROM albums
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlbums(rows)
}

// GetAlbumsByIDs 批量获取专辑
func (r *MySQLAlbumRepository) GetAlbumsByIDs(ctx context.Context, ids []int64) ([]*model.Album, error) {
	if len(ids) == 0 {
		return []*model.Album{}, nil
	}

	query := `
		SELECT id, title, artist_id, release_date, cover_path, created_at, updated_at
		FROM albums WHERE id IN (` + placeholders(len(ids)) + `)
	`

	rows, err := r.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlbums(rows)
}

// UpdateAlbum 更新专辑信息
func (r *MySQLAlbumRepository) UpdateAlbum(ctx context.Context, album *model.Album) error {
	query := `
		UPDATE albums
		SET title = ?, artist_id = ?, release_date = ?, cover_path = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		album.Title,
		album.ArtistID,
		album.ReleaseDate,
		album.CoverPath,
		time.Now(),
		album.ID,
	)
	return err
}

// DeleteAlbum 删除专辑，同时清空其歌曲的专辑引用
// 两步操作放在事务内，保证不会留下悬挂引用
func (r *MySQLAlbumRepository) DeleteAlbum(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "UPDATE songs SET album_id = NULL WHERE album_id = ?", id); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM albums WHERE id = ?", id); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func scanAlbums(rows *sql.Rows) ([]*model.Album, error) {
	albums := []*model.Album{}
	for rows.Next() {
		album := &model.Album{}
		err := rows.Scan(
			&album.ID,
			&album.Title,
			&album.ArtistID,
			&album.ReleaseDate,
			&album.CoverPath,
			&album.CreatedAt,
			&album.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		albums = append(albums, album)
	}
	return albums, rows.Err()
}
