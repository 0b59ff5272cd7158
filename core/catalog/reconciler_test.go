package catalog

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resona/model"
	"resona/repository"
)

type testEnv struct {
	db         *sql.DB
	songs      repository.SongRepository
	albums     repository.AlbumRepository
	artists    repository.ArtistRepository
	service    *Service
	reconciler *Reconciler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// 每个连接都是独立的内存库，必须钉死在单连接上
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, ddl := range []string{
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
		`CREATE TABLE playlist_songs (
			playlist_id INTEGER NOT NULL,
			song_id INTEGER NOT NULL
		)`,
		`CREATE TABLE favorite_songs (
			user_id INTEGER NOT NULL,
			song_id INTEGER NOT NULL
		)`,
	} {
		_, err := db.Exec(ddl)
		require.NoError(t, err)
	}

	songs := repository.NewMySQLSongRepository(db)
	albums := repository.NewMySQLAlbumRepository(db)
	artists := repository.NewMySQLArtistRepository(db)
	service := NewService(songs, albums, artists)

	return &testEnv{
		db:         db,
		songs:      songs,
		albums:     albums,
		artists:    artists,
		service:    service,
		reconciler: NewReconciler(songs, albums, service),
	}
}

func (e *testEnv) addArtist(t *testing.T, name string) int64 {
	t.Helper()
	id, err := e.artists.CreateArtist(context.Background(), name)
	require.NoError(t, err)
	return id
}

func (e *testEnv) addAlbum(t *testing.T, title string, artistID int64) int64 {
	t.Helper()
	id, err := e.albums.CreateAlbum(context.Background(), &model.Album{Title: title, ArtistID: artistID})
	require.NoError(t, err)
	return id
}

func (e *testEnv) addSong(t *testing.T, title string, seconds int64, artistIDs ...int64) int64 {
	t.Helper()
	song := &model.Song{Title: title}
	if seconds > 0 {
		song.Duration = model.Duration{Seconds: seconds, Valid: true}
	}
	id, err := e.songs.CreateSong(context.Background(), song, artistIDs)
	require.NoError(t, err)
	return id
}

func (e *testEnv) albumSongIDs(t *testing.T, albumID int64) []int64 {
	t.Helper()
	ids, err := e.songs.GetSongIDsByAlbumID(context.Background(), albumID)
	require.NoError(t, err)
	return ids
}

func TestReconcileAssignsAndDetaches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	artist := env.addArtist(t, "Khruangbin")
	album := env.addAlbum(t, "Mordechai", artist)
	s1 := env.addSong(t, "First Class", 180, artist)
	s2 := env.addSong(t, "Time (You and I)", 200, artist)
	s3 := env.addSong(t, "Pelota", 190, artist)
	s4 := env.addSong(t, "So We Won't Forget", 210, artist)

	// {s1, s2, s3}
	result, err := env.reconciler.ReconcileAlbumSongs(ctx, album, []int64{s1, s2, s3})
	require.NoError(t, err)
	assert.Len(t, result.Songs, 3)
	assert.Equal(t, []int64{s1, s2, s3}, env.albumSongIDs(t, album))

	// {s2, s3, s4}: s1 detached, s4 attached, s2/s3 untouched
	result, err = env.reconciler.ReconcileAlbumSongs(ctx, album, []int64{s2, s3, s4})
	require.NoError(t, err)
	assert.Len(t, result.Songs, 3)
	assert.Equal(t, []int64{s2, s3, s4}, env.albumSongIDs(t, album))

	detached, err := env.songs.GetSongByID(ctx, s1)
	require.NoError(t, err)
	assert.False(t, detached.AlbumID.Valid)
}

func TestReconcileEmptySetDetachesAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	artist := env.addArtist(t, "Mild High Club")
	album := env.addAlbum(t, "Skiptracing", artist)
	s1 := env.addSong(t, "Homage", 180, artist)
	s2 := env.addSong(t, "Skiptracing", 200, artist)

	_, err := env.reconciler.ReconcileAlbumSongs(ctx, album, []int64{s1, s2})
	require.NoError(t, err)

	result, err := env.reconciler.ReconcileAlbumSongs(ctx, album, []int64{})
	require.NoError(t, err)
	assert.Empty(t, result.Songs)
	assert.Empty(t, env.albumSongIDs(t, album))
}

func TestReconcileSameSetIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	artist := env.addArtist(t, "Men I Trust")
	album := env.addAlbum(t, "Oncle Jazz", artist)
	s1 := env.addSong(t, "Show Me How", 220, artist)
	s2 := env.addSong(t, "Numb", 230, artist)

	_, err := env.reconciler.ReconcileAlbumSongs(ctx, album, []int64{s1, s2})
	require.NoError(t, err)

	before, err := env.songs.GetSongByID(ctx, s1)
	require.NoError(t, err)

	// 顺序不同、含重复，集合仍然相同
	result, err := env.reconciler.ReconcileAlbumSongs(ctx, album, []int64{s2, s1, s2})
	require.NoError(t, err)
	assert.Len(t, result.Songs, 2)

	after, err := env.songs.GetSongByID(ctx, s1)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt, "no-op reconcile must not touch rows")
}

func TestReconcileConflictLeavesEverythingUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	artist := env.addArtist(t, "Crumb")
	albumA := env.addAlbum(t, "Jinx", artist)
	albumB := env.addAlbum(t, "Ice Melt", artist)
	s1 := env.addSong(t, "Locket", 190, artist)
	s2 := env.addSong(t, "Ghostride", 200, artist)
	s3 := env.addSong(t, "BNR", 180, artist)

	_, err := env.reconciler.ReconcileAlbumSongs(ctx, albumA, []int64{s1})
	require.NoError(t, err)
	_, err = env.reconciler.ReconcileAlbumSongs(ctx, albumB, []int64{s2})
	require.NoError(t, err)

	// s2 已属于 albumB，整个请求必须被拒绝
	_, err = env.reconciler.ReconcileAlbumSongs(ctx, albumA, []int64{s1, s2, s3})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, albumA, conflict.AlbumID)
	assert.Equal(t, []int64{s2}, conflict.SongIDs)

	// 两张专辑都保持原状，s3 仍未被指派
	assert.Equal(t, []int64{s1}, env.albumSongIDs(t, albumA))
	assert.Equal(t, []int64{s2}, env.albumSongIDs(t, albumB))
	s3Row, err := env.songs.GetSongByID(ctx, s3)
	require.NoError(t, err)
	assert.False(t, s3Row.AlbumID.Valid)
}

func TestReconcileUnknownSongReported(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	artist := env.addArtist(t, "Parcels")
	album := env.addAlbum(t, "Day/Night", artist)
	s1 := env.addSong(t, "Free", 210, artist)

	_, err := env.reconciler.ReconcileAlbumSongs(ctx, album, []int64{s1, 9999})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []int64{9999}, conflict.SongIDs)
	assert.Empty(t, env.albumSongIDs(t, album))
}

func TestReconcileUnknownAlbum(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.reconciler.ReconcileAlbumSongs(context.Background(), 4242, []int64{1})
	assert.ErrorIs(t, err, ErrAlbumNotFound)
}

func TestReconcileConcurrentSameAlbum(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	artist := env.addArtist(t, "Stereolab")
	album := env.addAlbum(t, "Dots and Loops", artist)
	s1 := env.addSong(t, "Brakhage", 200, artist)
	s2 := env.addSong(t, "Miss Modular", 250, artist)

	sets := [][]int64{{s1}, {s2}, {s1, s2}, {}}
	var wg sync.WaitGroup
	for _, set := range sets {
		wg.Add(1)
		go func(ids []int64) {
			defer wg.Done()
			_, err := env.reconciler.ReconcileAlbumSongs(ctx, album, ids)
			assert.NoError(t, err)
		}(set)
	}
	wg.Wait()

	// 最终状态是某次完整请求的结果，不存在交叉写入
	final := env.albumSongIDs(t, album)
	for _, set := range sets {
		if len(final) == len(set) && sameSet(final, set) {
			return
		}
	}
	t.Fatalf("final album songs %v match none of the requested sets", final)
}
