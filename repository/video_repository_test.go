package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"resona/model"
)

func newVideoRepo(t *testing.T) *GormVideoRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Video{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 每个连接都是独立的内存库，必须钉死在单连接上
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return NewGormVideoRepository(db)
}

func TestVideoCreateAndGet(t *testing.T) {
	repo := newVideoRepo(t)
	ctx := context.Background()

	id, err := repo.CreateVideo(ctx, &model.Video{
		Title:     "Everything In Its Right Place (Live)",
		Artist:    "Radiohead",
		VideoPath: "videos/eiirp.mp4",
		Duration:  261,
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := repo.GetVideoByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Radiohead", got.Artist)
	assert.Equal(t, 261, got.Duration)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestVideoGetMissingReturnsNil(t *testing.T) {
	repo := newVideoRepo(t)

	got, err := repo.GetVideoByID(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestVideoGetByIDs(t *testing.T) {
	repo := newVideoRepo(t)
	ctx := context.Background()

	var ids []int64
	for _, title := range []string{"a", "b", "c"} {
		id, err := repo.CreateVideo(ctx, &model.Video{Title: title, VideoPath: "videos/" + title})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	got, err := repo.GetVideosByIDs(ctx, []int64{ids[0], ids[2]})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	empty, err := repo.GetVideosByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestVideoDelete(t *testing.T) {
	repo := newVideoRepo(t)
	ctx := context.Background()

	id, err := repo.CreateVideo(ctx, &model.Video{Title: "gone", VideoPath: "videos/gone.mp4"})
	require.NoError(t, err)
	require.NoError(t, repo.DeleteVideo(ctx, id))

	got, err := repo.GetVideoByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err := repo.ListVideos(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
