package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Scheme prefixes object storage locations, as in s3://bucket/key.
const Scheme = "s3://"

// ErrNoStore is returned when an s3:// location is used without a configured store.
var ErrNoStore = errors.New("storage: no object store configured")

// Store moves whole objects in and out of object storage.
type Store interface {
	Download(ctx context.Context, bucket, key string, w io.Writer) error
	Upload(ctx context.Context, bucket, key, contentType string, body io.ReadSeeker) error
}

// S3Config holds configuration for the S3 store
type S3Config struct {
	Region    string
	Endpoint  string // For MinIO compatibility
	AccessKey string
	SecretKey string
}

type s3Store struct {
	client *s3.Client
}

// NewS3Store creates a store backed by AWS S3, or by any S3 compatible
// endpoint such as MinIO when Endpoint is set.
func NewS3Store(ctx context.Context, cfg S3Config) (Store, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "http://" + endpoint
		}
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
			o.UsePathStyle = true // MinIO requires path-style URLs
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &s3Store{client: client}, nil
}

// Download streams an object into w
func (s *s3Store) Download(ctx context.Context, bucket, key string, w io.Writer) error {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to download %s%s/%s: %w", Scheme, bucket, key, err)
	}
	defer result.Body.Close()

	if _, err := io.Copy(w, result.Body); err != nil {
		return fmt.Errorf("failed to read %s%s/%s: %w", Scheme, bucket, key, err)
	}
	return nil
}

// Upload stores body as an object
func (s *s3Store) Upload(ctx context.Context, bucket, key, contentType string, body io.ReadSeeker) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s%s/%s: %w", Scheme, bucket, key, err)
	}
	return nil
}

// IsURI reports whether name is an object storage location.
func IsURI(name string) bool {
	return strings.HasPrefix(name, Scheme)
}

// ParseURI splits s3://bucket/key.
func ParseURI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid object location %q: %w", uri, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid object location %q: want %sbucket/key", uri, Scheme)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("invalid object location %q: missing object key", uri)
	}
	return u.Host, key, nil
}

// Fetch downloads the objects that make up a recording into dir and
// returns the local name to open. Keys ending in .sigmf-meta, .sigmf-data or
// without an extension fetch the metadata/data pair; anything else is
// fetched as a single object.
func Fetch(ctx context.Context, store Store, uri, dir string) (string, error) {
	if store == nil {
		return "", ErrNoStore
	}
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return "", err
	}

	keys := []string{key}
	local := filepath.Join(dir, path.Base(key))
	switch ext := path.Ext(key); ext {
	case ".sigmf-meta", ".sigmf-data", "":
		base := strings.TrimSuffix(key, ext)
		keys = []string{base + ".sigmf-meta", base + ".sigmf-data"}
		local = filepath.Join(dir, path.Base(base))
	}

	for _, k := range keys {
		if err := fetchObject(ctx, store, bucket, k, filepath.Join(dir, path.Base(k))); err != nil {
			return "", err
		}
	}
	log.Debug().Str("uri", uri).Strs("keys", keys).Str("dir", dir).Msg("Fetched recording from object storage")
	return local, nil
}

func fetchObject(ctx context.Context, store Store, bucket, key, dst string) (err error) {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return store.Download(ctx, bucket, key, f)
}

// Put uploads body to an s3:// location.
func Put(ctx context.Context, store Store, uri, contentType string, body io.ReadSeeker) error {
	if store == nil {
		return ErrNoStore
	}
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return err
	}
	return store.Upload(ctx, bucket, key, contentType, body)
}
