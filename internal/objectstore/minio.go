package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"catalog/internal/assets"
	"catalog/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Minio stores assets in an S3 compatible bucket. Object keys are the
// destination key verbatim, so re-uploading a slot overwrites the object.
type Minio struct {
	client *minio.Client
	bucket string
	region string
	base   string
}

func NewMinio(cfg config.MinioConfig) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	base := strings.TrimSuffix(cfg.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	return &Minio{client: client, bucket: cfg.Bucket, region: cfg.Region, base: base}, nil
}

func (m *Minio) Name() string { return "minio" }

// EnsureBucket creates the bucket when it does not exist yet.
func (m *Minio) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", m.bucket, err)
		}
	}
	return nil
}

func (m *Minio) Upload(ctx context.Context, data []byte, kind assets.Kind, dest assets.Destination) (string, error) {
	key := dest.Key()
	opts := minio.PutObjectOptions{
		ContentType:  http.DetectContentType(data),
		UserMetadata: map[string]string{"asset-kind": string(kind)},
	}
	if _, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return m.objectURL(key), nil
}

func (m *Minio) Delete(ctx context.Context, id assets.Identifier) error {
	if err := m.client.RemoveObject(ctx, m.bucket, id.Key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", id.Key, err)
	}
	return nil
}

func (m *Minio) ExtractIdentifier(raw string) (assets.Identifier, bool) {
	prefix := m.base + "/" + m.bucket + "/"
	if !strings.HasPrefix(raw, prefix) {
		return assets.Identifier{}, false
	}
	key, err := url.PathUnescape(strings.TrimPrefix(raw, prefix))
	if err != nil || key == "" {
		return assets.Identifier{}, false
	}
	return assets.Identifier{Key: key, Kind: assets.KindFromURL(raw)}, true
}

func (m *Minio) Ping(ctx context.Context) error {
	ok, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("minio ping: %w", err)
	}
	if !ok {
		return fmt.Errorf("minio ping: bucket %s does not exist", m.bucket)
	}
	return nil
}

func (m *Minio) objectURL(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return m.base + "/" + m.bucket + "/" + strings.Join(segments, "/")
}
