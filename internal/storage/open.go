package storage

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/uniresearch/research-portal-backend/config"
)

// Open builds one store per bucket from cfg.StorageDriver.
func Open(ctx context.Context, cfg *config.Config) (*Service, error) {
	stores := make(map[string]Store, len(Buckets))

	switch Driver(strings.ToLower(cfg.StorageDriver)) {
	case DriverMemory:
		for _, b := range Buckets {
			stores[b] = NewMemoryStore()
		}
		log.Println("⚠️ object storage is in-memory; uploads are lost on restart")
		return NewService(stores, LocalURL(cfg.PublicBaseURL)), nil

	case DriverS3:
		client, err := NewS3Client(ctx, S3Config{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			PathStyle:       cfg.S3PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		for _, b := range Buckets {
			stores[b] = NewS3Store(client, b)
		}
		log.Printf("✅ object storage: s3 (region=%s endpoint=%q)", cfg.S3Region, cfg.S3Endpoint)
		return NewService(stores, S3URL(cfg)), nil

	case DriverFilesystem, "":
		for _, b := range Buckets {
			st, err := NewFSStore(filepath.Join(cfg.StorageDir, b))
			if err != nil {
				return nil, fmt.Errorf("fs bucket %s: %w", b, err)
			}
			stores[b] = st
		}
		log.Printf("✅ object storage: fs (%s)", cfg.StorageDir)
		return NewService(stores, LocalURL(cfg.PublicBaseURL)), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

// S3URL picks the public URL form: an explicit base (CDN), the endpoint in
// path style (MinIO), or the AWS virtual-hosted form.
func S3URL(cfg *config.Config) URLFunc {
	return func(bucket, key string) string {
		switch {
		case cfg.S3PublicBaseURL != "":
			return strings.TrimRight(cfg.S3PublicBaseURL, "/") + "/" + bucket + "/" + key
		case cfg.S3Endpoint != "":
			return strings.TrimRight(cfg.S3Endpoint, "/") + "/" + bucket + "/" + key
		default:
			return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, cfg.S3Region, key)
		}
	}
}
