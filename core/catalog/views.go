package catalog

import (
	"context"
	"fmt"

	"resona/model"
	"resona/repository"
)

// Service 负责把歌曲/专辑的数据库行组装成带艺术家信息的 API 视图。
// handlers 持有一个实例，避免在每个 handler 里重复拼装逻辑。
type Service struct {
	songs   repository.SongRepository
	albums  repository.AlbumRepository
	artists repository.ArtistRepository
}

func NewService(songs repository.SongRepository, albums repository.AlbumRepository, artists repository.ArtistRepository) *Service {
	return &Service{songs: songs, albums: albums, artists: artists}
}

// SongView resolves one song's artists and album.
func (s *Service) SongView(ctx context.Context, song *model.Song) (*model.SongView, error) {
	views, err := s.SongViews(ctx, []*model.Song{song})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// SongViews resolves artists and albums for a batch of songs.
// Albums are fetched in a single query; artist links per song.
func (s *Service) SongViews(ctx context.Context, songs []*model.Song) ([]*model.SongView, error) {
	albumIDs := make([]int64, 0, len(songs))
	seen := make(map[int64]bool)
	for _, song := range songs {
		if song.AlbumID.Valid && !seen[song.AlbumID.Int64] {
			seen[song.AlbumID.Int64] = true
			albumIDs = append(albumIDs, song.AlbumID.Int64)
		}
	}

	albumsByID := make(map[int64]*model.Album)
	if len(albumIDs) > 0 {
		albums, err := s.albums.GetAlbumsByIDs(ctx, albumIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load albums for songs: %w", err)
		}
		for _, album := range albums {
			albumsByID[album.ID] = album
		}
	}

	views := make([]*model.SongView, 0, len(songs))
	for _, song := range songs {
		artists, err := s.artists.GetArtistsBySongID(ctx, song.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load artists for song %d: %w", song.ID, err)
		}
		var album *model.Album
		if song.AlbumID.Valid {
			album = albumsByID[song.AlbumID.Int64]
		}
		views = append(views, song.View(artists, album))
	}
	return views, nil
}

// AlbumView resolves the album's artist.
func (s *Service) AlbumView(ctx context.Context, album *model.Album) (*model.AlbumView, error) {
	artist, err := s.artists.GetArtistByID(ctx, album.ArtistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load album artist: %w", err)
	}
	return album.View(artist), nil
}

// AlbumWithSongs resolves the album view plus the songs it currently owns.
func (s *Service) AlbumWithSongs(ctx context.Context, album *model.Album) (*model.AlbumWithSongs, error) {
	view, err := s.AlbumView(ctx, album)
	if err != nil {
		return nil, err
	}

	songs, err := s.songs.GetSongsByAlbumID(ctx, album.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load album songs: %w", err)
	}
	songViews, err := s.SongViews(ctx, songs)
	if err != nil {
		return nil, err
	}

	return &model.AlbumWithSongs{AlbumView: *view, Songs: songViews}, nil
}
