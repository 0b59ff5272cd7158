package catalog

import (
	"errors"
	"fmt"
)

// ErrAlbumNotFound 专辑不存在
var ErrAlbumNotFound = errors.New("album not found")

// ErrSongNotFound 歌曲不存在
var ErrSongNotFound = errors.New("song not found")

// ConflictError 表示重整请求引用了已属于其他专辑（或不存在）的歌曲。
// 返回此错误时没有任何变更被应用。
type ConflictError struct {
	AlbumID int64
	SongIDs []int64 // 无效或已被其他专辑占用的歌曲ID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("songs %v are invalid or already assigned to another album (album %d)", e.SongIDs, e.AlbumID)
}
