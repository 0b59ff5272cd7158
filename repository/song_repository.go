package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"resona/logger"
	"resona/model"
)

// SongRepository defines the interface for song data operations.
// 事务相关方法供专辑歌曲重整使用：资格检查、移除、指派必须在
// 同一事务内执行，保证全有或全无。
type SongRepository interface {
	CreateSong(ctx context.Context, song *model.Song, artistIDs []int64) (int64, error)
	GetSongByID(ctx context.Context, id int64) (*model.Song, error)
	GetSongsByIDs(ctx context.Context, ids []int64) ([]*model.Song, error)
	ListSongs(ctx context.Context) ([]*model.Song, error)
	UpdateSong(ctx context.Context, song *model.Song, artistIDs []int64) error
	DeleteSong(ctx context.Context, id int64) error

	GetSongsByAlbumID(ctx context.Context, albumID int64) ([]*model.Song, error)
	GetSongIDsByAlbumID(ctx context.Context, albumID int64) ([]int64, error)

	SearchByText(ctx context.Context, query string, limit int) ([]*model.Song, error)
	ListSongsWithDuration(ctx context.Context) ([]*model.Song, error)

	BeginTx(ctx context.Context) (*sql.Tx, error)
	RollbackTx(tx *sql.Tx)
	EligibleSongIDsTx(tx *sql.Tx, albumID int64, ids []int64) ([]int64, error)
	ClearAlbumSongsTx(tx *sql.Tx, albumID int64, ids []int64) error
	AssignSongsToAlbumTx(tx *sql.Tx, albumID int64, ids []int64) error
}

// mysqlSongRepository implements SongRepository for MySQL.
type mysqlSongRepository struct {
	db *sql.DB
}

// NewMySQLSongRepository creates a new mysqlSongRepository.
func NewMySQLSongRepository(db *sql.DB) SongRepository {
	return &mysqlSongRepository{db: db}
}

const songColumns = "id, title, cover_path, audio_path, video_path, album_id, duration_seconds, created_at, updated_at"

// CreateSong adds a new song and its artist links in one transaction.
func (r *mysqlSongRepository) CreateSong(ctx context.Context, song *model.Song, artistIDs []int64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction for CreateSong: %w", err)
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO songs (title, cover_path, audio_path, video_path, album_id, duration_seconds, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		song.Title, song.CoverPath, song.AudioPath, song.VideoPath, song.AlbumID, song.Duration, now, now)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to insert song: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to get last insert ID for song: %w", err)
	}

	for _, artistID := range artistIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO song_artists (song_id, artist_id) VALUES (?, ?)", id, artistID); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to link artist %d to song: %w", artistID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit CreateSong: %w", err)
	}

	logger.Debug("song created", logger.Int64("songId", id), logger.String("title", song.Title))
	return id, nil
}

// GetSongByID retrieves a song by its ID.
func (r *mysqlSongRepository) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+songColumns+" FROM songs WHERE id = ?", id)
	song, err := scanSong(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Song not found
		}
		return nil, fmt.Errorf("failed to scan song by ID %d: %w", id, err)
	}
	return song, nil
}

// GetSongsByIDs retrieves songs matching the given IDs.
func (r *mysqlSongRepository) GetSongsByIDs(ctx context.Context, ids []int64) ([]*model.Song, error) {
	if len(ids) == 0 {
		return []*model.Song{}, nil
	}

	query := fmt.Sprintf("SELECT %s FROM songs WHERE id IN (%s)", songColumns, placeholders(len(ids)))
	rows, err := r.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs by ids: %w", err)
	}
	defer rows.Close()
	return scanSongs(rows)
}

// ListSongs retrieves all songs.
func (r *mysqlSongRepository) ListSongs(ctx context.Context) ([]*model.Song, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+songColumns+" FROM songs ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()
	return scanSongs(rows)
}

// UpdateSong updates a song row; when artistIDs is non-nil the artist links
// are replaced as well.
func (r *mysqlSongRepository) UpdateSong(ctx context.Context, song *model.Song, artistIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for UpdateSong: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE songs SET title = ?, cover_path = ?, audio_path = ?, video_path = ?, duration_seconds = ?, updated_at = ?
		 WHERE id = ?`,
		song.Title, song.CoverPath, song.AudioPath, song.VideoPath, song.Duration, time.Now(), song.ID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update song %d: %w", song.ID, err)
	}

	if artistIDs != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM song_artists WHERE song_id = ?", song.ID); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to clear artists for song %d: %w", song.ID, err)
		}
		for _, artistID := range artistIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO song_artists (song_id, artist_id) VALUES (?, ?)", song.ID, artistID); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to link artist %d to song %d: %w", artistID, song.ID, err)
			}
		}
	}

	return tx.Commit()
}

// DeleteSong removes a song and its relations.
func (r *mysqlSongRepository) DeleteSong(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for DeleteSong: %w", err)
	}

	for _, query := range []string{
		"DELETE FROM song_artists WHERE song_id = ?",
		"DELETE FROM playlist_songs WHERE song_id = ?",
		"DELETE FROM favorite_songs WHERE song_id = ?",
		"DELETE FROM songs WHERE id = ?",
	} {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to delete song %d: %w", id, err)
		}
	}

	return tx.Commit()
}

// GetSongsByAlbumID retrieves the songs currently owned by an album.
func (r *mysqlSongRepository) GetSongsByAlbumID(ctx context.Context, albumID int64) ([]*model.Song, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+songColumns+" FROM songs WHERE album_id = ? ORDER BY id", albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs for album %d: %w", albumID, err)
	}
	defer rows.Close()
	return scanSongs(rows)
}

// GetSongIDsByAlbumID retrieves only the IDs of an album's songs.
func (r *mysqlSongRepository) GetSongIDsByAlbumID(ctx context.Context, albumID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM songs WHERE album_id = ? ORDER BY id", albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to query song ids for album %d: %w", albumID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan song id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SearchByText matches the query case-insensitively against song title,
// artist names and album title. Duration text matching happens in the
// search service, not here.
func (r *mysqlSongRepository) SearchByText(ctx context.Context, query string, limit int) ([]*model.Song, error) {
	pattern := "%" + lowered(query) + "%"
	q := `
		SELECT DISTINCT s.id, s.title, s.cover_path, s.audio_path, s.video_path, s.album_id, s.duration_seconds, s.created_at, s.updated_at
		FROM songs s
		LEFT JOIN song_artists sa ON sa.song_id = s.id
		LEFT JOIN artists a ON a.id = sa.artist_id
		LEFT JOIN albums al ON al.id = s.album_id
		WHERE LOWER(s.title) LIKE ? OR LOWER(a.name) LIKE ? OR LOWER(al.title) LIKE ?
		ORDER BY s.id
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, q, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search songs: %w", err)
	}
	defer rows.Close()
	return scanSongs(rows)
}

// ListSongsWithDuration retrieves all songs that have a duration set.
func (r *mysqlSongRepository) ListSongsWithDuration(ctx context.Context) ([]*model.Song, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+songColumns+" FROM songs WHERE duration_seconds IS NOT NULL ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query songs with duration: %w", err)
	}
	defer rows.Close()
	return scanSongs(rows)
}

// BeginTx starts a transaction on the underlying store.
func (r *mysqlSongRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// RollbackTx rolls back, logging instead of failing when the tx already ended.
func (r *mysqlSongRepository) RollbackTx(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		logger.Warn("failed to rollback transaction", logger.ErrorField(err))
	}
}

// EligibleSongIDsTx returns the subset of ids that exist and are either
// unowned or already owned by the given album.
func (r *mysqlSongRepository) EligibleSongIDsTx(tx *sql.Tx, albumID int64, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return []int64{}, nil
	}

	query := fmt.Sprintf(
		"SELECT id FROM songs WHERE id IN (%s) AND (album_id IS NULL OR album_id = ?)",
		placeholders(len(ids)))
	args := append(int64Args(ids), albumID)

	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible songs: %w", err)
	}
	defer rows.Close()

	eligible := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan eligible song id: %w", err)
		}
		eligible = append(eligible, id)
	}
	return eligible, rows.Err()
}

// ClearAlbumSongsTx clears the album reference on exactly the given songs.
func (r *mysqlSongRepository) ClearAlbumSongsTx(tx *sql.Tx, albumID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		"UPDATE songs SET album_id = NULL, updated_at = ? WHERE album_id = ? AND id IN (%s)",
		placeholders(len(ids)))
	args := append([]interface{}{time.Now(), albumID}, int64Args(ids)...)

	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to clear album reference: %w", err)
	}
	return nil
}

// AssignSongsToAlbumTx sets the album reference on the given songs.
func (r *mysqlSongRepository) AssignSongsToAlbumTx(tx *sql.Tx, albumID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		"UPDATE songs SET album_id = ?, updated_at = ? WHERE id IN (%s)",
		placeholders(len(ids)))
	args := append([]interface{}{albumID, time.Now()}, int64Args(ids)...)

	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to assign songs to album: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSong(row rowScanner) (*model.Song, error) {
	song := &model.Song{}
	err := row.Scan(
		&song.ID,
		&song.Title,
		&song.CoverPath,
		&song.AudioPath,
		&song.VideoPath,
		&song.AlbumID,
		&song.Duration,
		&song.CreatedAt,
		&song.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return song, nil
}

func scanSongs(rows *sql.Rows) ([]*model.Song, error) {
	songs := []*model.Song{}
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song row: %w", err)
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}
