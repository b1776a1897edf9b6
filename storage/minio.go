package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"Vedit/apperr"
)

// Publisher mirrors published files outside the local data directory.
type Publisher interface {
	Publish(ctx context.Context, project, localPath string) error
	Remove(ctx context.Context, project string) error
}

// NopPublisher is used when no object store is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string) error { return nil }
func (NopPublisher) Remove(context.Context, string) error          { return nil }

// MinioConfig holds the connection settings for the mirror bucket.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// BucketStats summarizes the objects under a prefix.
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ObjectInfo describes one mirrored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// MinioPublisher stores published exports under published/<project>/.
type MinioPublisher struct {
	client *minio.Client
	bucket string
	log    *zap.Logger
}

// NewMinioPublisher connects and ensures the bucket exists.
func NewMinioPublisher(ctx context.Context, cfg MinioConfig, log *zap.Logger) (*MinioPublisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		log.Info("created bucket", zap.String("bucket", cfg.Bucket))
	}

	return &MinioPublisher{client: client, bucket: cfg.Bucket, log: log.Named("minio")}, nil
}

func objectPrefix(project string) string {
	return path.Join("published", project) + "/"
}

// Publish uploads localPath as published/<project>/<base name>.
func (p *MinioPublisher) Publish(ctx context.Context, project, localPath string) error {
	key := objectPrefix(project) + filepath.Base(localPath)
	info, err := p.client.FPutObject(ctx, p.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentTypeFor(localPath),
	})
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "mirror published file")
	}
	p.log.Info("published file mirrored",
		zap.String("project", project),
		zap.String("key", key),
		zap.Int64("size", info.Size))
	return nil
}

// Remove deletes every object mirrored for project. An empty prefix is not an error.
func (p *MinioPublisher) Remove(ctx context.Context, project string) error {
	_, err := p.RemovePrefix(ctx, objectPrefix(project))
	return err
}

// RemovePrefix deletes all objects under prefix and returns how many were removed.
func (p *MinioPublisher) RemovePrefix(ctx context.Context, prefix string) (int, error) {
	objects, _, err := p.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if len(objects) == 0 {
		return 0, nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(objects))
	for _, obj := range objects {
		objectsCh <- minio.ObjectInfo{Key: obj.Key}
	}
	close(objectsCh)

	for rerr := range p.client.RemoveObjects(ctx, p.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			return 0, apperr.Wrap(apperr.CodeInternal, rerr.Err, "remove object "+rerr.ObjectName)
		}
	}
	p.log.Info("removed mirrored objects", zap.String("prefix", prefix), zap.Int("count", len(objects)))
	return len(objects), nil
}

// List returns the objects under prefix and their aggregate stats.
func (p *MinioPublisher) List(ctx context.Context, prefix string) ([]ObjectInfo, *BucketStats, error) {
	stats := &BucketStats{}
	var objects []ObjectInfo

	for object := range p.client.ListObjects(ctx, p.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, nil, apperr.Wrap(apperr.CodeInternal, object.Err, "list objects")
		}
		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
			ETag:         object.ETag,
		})
	}
	return objects, stats, nil
}

// Bucket returns the mirror bucket name.
func (p *MinioPublisher) Bucket() string {
	return p.bucket
}

// FormatSize renders a byte count with a binary unit.
func FormatSize(size int64) string {
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

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4":
		return "video/mp4"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
