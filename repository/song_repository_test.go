package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resona/model"
)

type catalogFixture struct {
	songs   SongRepository
	albums  AlbumRepository
	artists ArtistRepository
}

func newCatalogFixture(t *testing.T) (*catalogFixture, *sql.DB) {
	t.Helper()
	db := newTestDB(t)
	return &catalogFixture{
		songs:   NewMySQLSongRepository(db),
		albums:  NewMySQLAlbumRepository(db),
		artists: NewMySQLArtistRepository(db),
	}, db
}

func TestCreateArtistIsIdempotent(t *testing.T) {
	f, _ := newCatalogFixture(t)
	ctx := context.Background()

	first, err := f.artists.CreateArtist(ctx, "Radiohead")
	require.NoError(t, err)
	second, err := f.artists.CreateArtist(ctx, "Radiohead")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	all, err := f.artists.ListArtists(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateSongLinksArtists(t *testing.T) {
	f, _ := newCatalogFixture(t)
	ctx := context.Background()

	a1, err := f.artists.CreateArtist(ctx, "Thom Yorke")
	require.NoError(t, err)
	a2, err := f.artists.CreateArtist(ctx, "Jonny Greenwood")
	require.NoError(t, err)

	id, err := f.songs.CreateSong(ctx, &model.Song{
		Title:    "Daydreaming",
		Duration: model.Duration{Seconds: 384, Valid: true},
	}, []int64{a1, a2})
	require.NoError(t, err)

	linked, err := f.artists.GetArtistsBySongID(ctx, id)
	require.NoError(t, err)
	require.Len(t, linked, 2)
	assert.Equal(t, "Jonny Greenwood", linked[0].Name) // 按名字排序
	assert.Equal(t, "Thom Yorke", linked[1].Name)
}

func TestGetSongByIDMissingReturnsNil(t *testing.T) {
	f, _ := newCatalogFixture(t)

	song, err := f.songs.GetSongByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, song)
}

func TestSearchByText(t *testing.T) {
	f, _ := newCatalogFixture(t)
	ctx := context.Background()

	radiohead, err := f.artists.CreateArtist(ctx, "Radiohead")
	require.NoError(t, err)
	portishead, err := f.artists.CreateArtist(ctx, "Portishead")
	require.NoError(t, err)

	albumID, err := f.albums.CreateAlbum(ctx, &model.Album{Title: "In Rainbows", ArtistID: radiohead})
	require.NoError(t, err)

	reckoner, err := f.songs.CreateSong(ctx, &model.Song{
		Title:   "Reckoner",
		AlbumID: sql.NullInt64{Int64: albumID, Valid: true},
	}, []int64{radiohead})
	require.NoError(t, err)
	nude, err := f.songs.CreateSong(ctx, &model.Song{
		Title:   "Nude",
		AlbumID: sql.NullInt64{Int64: albumID, Valid: true},
	}, []int64{radiohead})
	require.NoError(t, err)
	roads, err := f.songs.CreateSong(ctx, &model.Song{Title: "Roads"}, []int64{portishead})
	require.NoError(t, err)

	// 标题，大小写不敏感
	got, err := f.songs.SearchByText(ctx, "RECKONER", 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, reckoner, got[0].ID)

	// 艺术家名
	got, err = f.songs.SearchByText(ctx, "portishead", 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, roads, got[0].ID)

	// 专辑名命中专辑里的所有歌，且多个关联不产生重复行
	got, err = f.songs.SearchByText(ctx, "rainbows", 20)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{reckoner, nude}, []int64{got[0].ID, got[1].ID})
	assert.Len(t, got, 2)

	// limit 生效
	got, err = f.songs.SearchByText(ctx, "o", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDeleteAlbumClearsSongReferences(t *testing.T) {
	f, _ := newCatalogFixture(t)
	ctx := context.Background()

	artist, err := f.artists.CreateArtist(ctx, "Boards of Canada")
	require.NoError(t, err)
	albumID, err := f.albums.CreateAlbum(ctx, &model.Album{Title: "Geogaddi", ArtistID: artist})
	require.NoError(t, err)

	songID, err := f.songs.CreateSong(ctx, &model.Song{
		Title:   "1969",
		AlbumID: sql.NullInt64{Int64: albumID, Valid: true},
	}, []int64{artist})
	require.NoError(t, err)

	require.NoError(t, f.albums.DeleteAlbum(ctx, albumID))

	// 专辑没了，歌还在，但专辑引用被清空
	album, err := f.albums.GetAlbumByID(ctx, albumID)
	require.NoError(t, err)
	assert.Nil(t, album)

	song, err := f.songs.GetSongByID(ctx, songID)
	require.NoError(t, err)
	require.NotNil(t, song)
	assert.False(t, song.AlbumID.Valid)
}

func TestDeleteSongRemovesRelations(t *testing.T) {
	f, db := newCatalogFixture(t)
	ctx := context.Background()

	artist, err := f.artists.CreateArtist(ctx, "Four Tet")
	require.NoError(t, err)
	songID, err := f.songs.CreateSong(ctx, &model.Song{Title: "Two Thousand and Seventeen"}, []int64{artist})
	require.NoError(t, err)

	playlists := NewMySQLPlaylistRepository(db)
	playlistID, err := playlists.CreatePlaylist(ctx, &model.Playlist{Name: "Focus", UserID: 1})
	require.NoError(t, err)
	require.NoError(t, playlists.AddSong(ctx, playlistID, songID))

	favorites := NewMySQLFavoriteRepository(db)
	require.NoError(t, favorites.Add(ctx, 1, FavoriteSongs, songID))

	require.NoError(t, f.songs.DeleteSong(ctx, songID))

	song, err := f.songs.GetSongByID(ctx, songID)
	require.NoError(t, err)
	assert.Nil(t, song)

	ids, err := playlists.GetSongIDs(ctx, playlistID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	favIDs, err := favorites.GetIDs(ctx, 1, FavoriteSongs)
	require.NoError(t, err)
	assert.Empty(t, favIDs)
}

func TestPlaylistAddSongIdempotentAndOwnerScoped(t *testing.T) {
	f, db := newCatalogFixture(t)
	ctx := context.Background()

	artist, err := f.artists.CreateArtist(ctx, "Caribou")
	require.NoError(t, err)
	songID, err := f.songs.CreateSong(ctx, &model.Song{Title: "Odessa"}, []int64{artist})
	require.NoError(t, err)

	playlists := NewMySQLPlaylistRepository(db)
	playlistID, err := playlists.CreatePlaylist(ctx, &model.Playlist{Name: "Swim", UserID: 1})
	require.NoError(t, err)

	require.NoError(t, playlists.AddSong(ctx, playlistID, songID))
	require.NoError(t, playlists.AddSong(ctx, playlistID, songID))

	ids, err := playlists.GetSongIDs(ctx, playlistID)
	require.NoError(t, err)
	assert.Equal(t, []int64{songID}, ids)

	// 其他用户看不到这个歌单
	other, err := playlists.GetPlaylistByID(ctx, playlistID, 2)
	require.NoError(t, err)
	assert.Nil(t, other)

	mine, err := playlists.GetPlaylistByID(ctx, playlistID, 1)
	require.NoError(t, err)
	require.NotNil(t, mine)
	assert.Equal(t, "Swim", mine.Name)
}

func TestSearchUsersExcludesSelf(t *testing.T) {
	db := newTestDB(t)
	users := NewMySQLUserRepository(db)

	alice := seedUser(t, users, "alice")
	seedUser(t, users, "alicia")
	seedUser(t, users, "bob")

	found, err := users.SearchUsers("ali", alice)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "alicia", found[0].Username)

	all, err := users.SearchUsers("", alice)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
