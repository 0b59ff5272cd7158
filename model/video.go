package model

import "time"

// Video 表示一个音乐视频。该模块使用 GORM 管理（AutoMigrate），
// 与历史模块的手写 SQL 并存。
type Video struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"size:200;not null" json:"title"`
	Artist        string    `gorm:"size:200" json:"artist"`
	VideoPath     string    `gorm:"size:512;not null" json:"videoPath"`
	ThumbnailPath string    `gorm:"size:512" json:"thumbnailPath,omitempty"`
	Duration      int       `json:"duration"` // 秒
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TableName overrides the GORM table name.
func (Video) TableName() string {
	return "videos"
}
