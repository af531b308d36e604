package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/moviepipe/moviepipe/internal/files/filesystem"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// defaultRegion is used when neither the config nor the environment names one.
const defaultRegion = "us-east-1"

// ObjectGetter is the subset of *s3.Client used by S3Fetcher.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client builds a client for cfg. Credentials come from the default
// chain (environment, shared config, instance role). Endpoint and PathStyle
// allow S3-compatible servers such as MinIO.
func NewS3Client(ctx context.Context, cfg moviepipe.SourceConfig, optFns ...func(*config.LoadOptions) error) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	loadOpts := append([]func(*config.LoadOptions) error{config.WithRegion(region)}, optFns...)
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// S3Fetcher downloads raw files from one bucket and prefix.
type S3Fetcher struct {
	client ObjectGetter
	bucket string
	prefix string
	fsys   filesystem.FileSystem
	logger moviepipe.Logger
}

// NewS3Fetcher creates a fetcher writing through fsys.
func NewS3Fetcher(client ObjectGetter, cfg moviepipe.SourceConfig, fsys filesystem.FileSystem, logger moviepipe.Logger) *S3Fetcher {
	return &S3Fetcher{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		fsys:   fsys,
		logger: logger,
	}
}

// Key returns the object key for a raw file name.
func (f *S3Fetcher) Key(name string) string {
	if f.prefix == "" {
		return name
	}
	return strings.TrimSuffix(f.prefix, "/") + "/" + name
}

// Fetch downloads the object for name into dir/name, replacing any local copy.
// A missing object is ErrSourceMissing. A partial download is removed.
func (f *S3Fetcher) Fetch(ctx context.Context, name, dir string) error {
	key := f.Key(name)
	uri := fmt.Sprintf("s3://%s/%s", f.bucket, key)

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &f.bucket, Key: &key})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return fmt.Errorf("%s: %w", uri, moviepipe.ErrSourceMissing)
		}
		return fmt.Errorf("fetch %s: %w", uri, err)
	}
	defer out.Body.Close()

	dst := filepath.Join(dir, name)
	w, err := f.fsys.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	n, copyErr := io.Copy(w, out.Body)
	closeErr := w.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		if rmErr := f.fsys.Remove(dst); rmErr != nil {
			f.logger.Error("Failed to remove partial download %s: %v", dst, rmErr)
		}
		return fmt.Errorf("download %s: %w", uri, err)
	}

	f.logger.Info("Downloaded %s to %s (%d bytes)", uri, dst, n)
	return nil
}
