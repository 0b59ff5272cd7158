package model

// Favorites 表示一个用户收藏的全部内容。
// 歌曲、视频、专辑三类收藏均为集合语义，添加和移除幂等。
type Favorites struct {
	Songs  []*SongView  `json:"songs"`
	Videos []*Video     `json:"videos"`
	Albums []*AlbumView `json:"albums"`
}
