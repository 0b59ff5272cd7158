package repository

import (
	"context"
	"errors"
	"fmt"

	"resona/model"

	"gorm.io/gorm"
)

// VideoRepository 定义视频相关的数据库操作接口
// 视频是新模块，使用 GORM 实现，与手写 SQL 的旧模块并存
type VideoRepository interface {
	CreateVideo(ctx context.Context, video *model.Video) (int64, error)
	GetVideoByID(ctx context.Context, id int64) (*model.Video, error)
	ListVideos(ctx context.Context) ([]*model.Video, error)
	GetVideosByIDs(ctx context.Context, ids []int64) ([]*model.Video, error)
	DeleteVideo(ctx context.Context, id int64) error
}

// GormVideoRepository GORM实现的视频仓库
type GormVideoRepository struct {
	db *gorm.DB
}

// NewGormVideoRepository 创建新的GORM视频仓库实例
func NewGormVideoRepository(db *gorm.DB) *GormVideoRepository {
	return &GormVideoRepository{db: db}
}

// CreateVideo 创建视频
func (r *GormVideoRepository) CreateVideo(ctx context.Context, video *model.Video) (int64, error) {
	if err := r.db.WithContext(ctx).Create(video).Error; err != nil {
		return 0, fmt.Errorf("failed to create video: %w", err)
	}
	return video.ID, nil
}

// GetVideoByID 根据ID获取视频
func (r *GormVideoRepository) GetVideoByID(ctx context.Context, id int64) (*model.Video, error) {
	video := &model.Video{}
	err := r.db.WithContext(ctx).First(video, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get video %d: %w", id, err)
	}
	return video, nil
}

// ListVideos 列出所有视频
func (r *GormVideoRepository) ListVideos(ctx context.Context) ([]*model.Video, error) {
	videos := []*model.Video{}
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&videos).Error; err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return videos, nil
}

// GetVideosByIDs 批量获取视频
func (r *GormVideoRepository) GetVideosByIDs(ctx context.Context, ids []int64) ([]*model.Video, error) {
	if len(ids) == 0 {
		return []*model.Video{}, nil
	}
	videos := []*model.Video{}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&videos).Error; err != nil {
		return nil, fmt.Errorf("failed to get videos by ids: %w", err)
	}
	return videos, nil
}

// DeleteVideo 删除视频
func (r *GormVideoRepository) DeleteVideo(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&model.Video{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete video %d: %w", id, err)
	}
	return nil
}
