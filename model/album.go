package model

import (
	"database/sql"
	"time"
)

// Album 表示一张专辑。专辑通过 Song.AlbumID 反向引用拥有歌曲集合，
// 而不是多对多关系。
type Album struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	ArtistID    int64          `json:"artistId"`
	ReleaseDate sql.NullTime   `json:"-"`
	CoverPath   sql.NullString `json:"-"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// AlbumView 是专辑的 API 表示
type AlbumView struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Artist      *Artist `json:"artist"`
	ReleaseDate string  `json:"releaseDate,omitempty"` // YYYY-MM-DD
	CoverPath   string  `json:"coverPath,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AlbumWithSongs 包含专辑信息和其当前拥有的歌曲集合
type AlbumWithSongs struct {
	AlbumView
	Songs []*SongView `json:"songs"`
}

// View converts an album row into its API representation.
func (a *Album) View(artist *Artist) *AlbumView {
	v := &AlbumView{
		ID:        a.ID,
		Title:     a.Title,
		Artist:    artist,
		CreatedAt: a.CreatedAt,
	}
	if a.ReleaseDate.Valid {
		v.ReleaseDate = a.ReleaseDate.Time.Format("2006-01-02")
	}
	if a.CoverPath.Valid {
		v.CoverPath = a.CoverPath.String
	}
	return v
}
