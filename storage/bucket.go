package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
)

// ObjectInfo 桶内对象的简要信息
type ObjectInfo struct {
	Name         string
	Size         int64
	LastModified time.Time
}

// BucketStats 桶统计信息
type BucketStats struct {
	ObjectCount int64
	TotalSize   int64
}

// ListBucketObjects 列出指定前缀下的对象及统计信息
func ListBucketObjects(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, *BucketStats, error) {
	if minioClient == nil {
		return nil, nil, fmt.Errorf("MinIO client not initialized")
	}

	var objects []ObjectInfo
	stats := &BucketStats{}

	for obj := range minioClient.ListObjects(ctx, minioBucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	}) {
		if obj.Err != nil {
			return nil, nil, fmt.Errorf("列出对象失败: %w", obj.Err)
		}
		objects = append(objects, ObjectInfo{
			Name:         obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
		stats.ObjectCount++
		stats.TotalSize += obj.Size
	}

	return objects, stats, nil
}

// PrintBucketStatus 打印桶内对象列表与统计
func PrintBucketStatus(ctx context.Context, prefix string) error {
	objects, stats, err := ListBucketObjects(ctx, prefix, true)
	if err != nil {
		return err
	}

	for _, obj := range objects {
		fmt.Printf("%-60s %10s  %s\n", obj.Name, formatSize(obj.Size), obj.LastModified.Format(time.RFC3339))
	}
	fmt.Printf("共 %d 个对象, 总大小 %s\n", stats.ObjectCount, formatSize(stats.TotalSize))
	return nil
}

// formatSize 人类可读的文件大小
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
