package model

import "time"

// Playlist 表示用户自建的歌单。歌曲集合为无序集合，
// 只有所有者可以创建和删除。
type Playlist struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// PlaylistWithSongs 包含歌单信息及其歌曲
type PlaylistWithSongs struct {
	Playlist
	Songs []*SongView `json:"songs"`
}
