package model

import (
	"database/sql"
	"time"
)

// Artist 表示一位艺术家
type Artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Song 表示一首歌曲的数据库行。AlbumID 为可空单值外键：
// 一首歌任一时刻最多属于一张专辑。
type Song struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	CoverPath sql.NullString `json:"-"`
	AudioPath sql.NullString `json:"-"`
	VideoPath sql.NullString `json:"-"`
	AlbumID   sql.NullInt64  `json:"-"`
	Duration  Duration       `json:"duration"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// SongView 是歌曲的 API 表示，带已解析的艺术家和所属专辑。
type SongView struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Duration  Duration  `json:"duration"`
	Artists   []*Artist `json:"artists"`
	Album     *Album    `json:"album"`
	CoverPath string    `json:"coverPath,omitempty"`
	AudioPath string    `json:"audioPath,omitempty"`
	VideoPath string    `json:"videoPath,omitempty"`
}

// View converts a song row into its API representation.
// Artists and album are attached by the caller.
func (s *Song) View(artists []*Artist, album *Album) *SongView {
	v := &SongView{
		ID:       s.ID,
		Title:    s.Title,
		Duration: s.Duration,
		Artists:  artists,
		Album:    album,
	}
	if v.Artists == nil {
		v.Artists = []*Artist{}
	}
	if s.CoverPath.Valid {
		v.CoverPath = s.CoverPath.String
	}
	if s.AudioPath.Valid {
		v.AudioPath = s.AudioPath.String
	}
	if s.VideoPath.Valid {
		v.VideoPath = s.VideoPath.String
	}
	return v
}
