// Package artifact stores enrollment artifacts such as OTP QR images.
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrInvalidPath = errors.New("invalid artifact path")

// Storage writes an artifact at a relative path and returns a reference to it.
type Storage interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// cleanKey normalizes name to a slash-separated relative key that cannot
// escape the storage root.
func cleanKey(name string) (string, error) {
	key := path.Clean("/" + strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	if key == "" || key == "." {
		return "", ErrInvalidPath
	}
	return key, nil
}

// FileStorage writes artifacts below Root on the local filesystem.
type FileStorage struct {
	Root string
}

func NewFileStorage(root string) *FileStorage { return &FileStorage{Root: root} }

// Put returns the slash-separated path relative to Root.
func (f *FileStorage) Put(ctx context.Context, name string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := cleanKey(name)
	if err != nil {
		return "", err
	}
	full := filepath.Join(f.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return key, nil
}

type S3Config struct {
	Bucket       string
	Region       string
	BaseEndpoint string // MinIO or another S3-compatible endpoint
	AccessKey    string
	SecretKey    string
}

type s3Putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage writes artifacts to an S3 bucket.
type S3Storage struct {
	bucket string
	client s3Putter
}

func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Storage{bucket: cfg.Bucket, client: client}, nil
}

// Put returns an s3://bucket/key reference.
func (s *S3Storage) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key, err := cleanKey(name)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}
