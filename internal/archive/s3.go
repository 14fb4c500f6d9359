package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"warcdb/internal/config"
	"warcdb/internal/warcdb"
)

// S3Scheme prefixes archive locations stored in S3.
const S3Scheme = "s3://"

// S3Opener downloads archives from S3 into a temporary file and reads them
// from there. The temporary file is removed when the archive body is closed.
type S3Opener struct {
	downloader *manager.Downloader
	tempDir    string
}

var _ warcdb.ArchiveOpener = (*S3Opener)(nil)

// NewS3Opener builds an S3 client from cfg. Unset fields fall back to the
// SDK's default configuration chain.
func NewS3Opener(ctx context.Context, cfg config.S3Config) (*S3Opener, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		if cfg.Concurrency > 0 {
			d.Concurrency = cfg.Concurrency
		}
	})

	return &S3Opener{
		downloader: downloader,
		tempDir:    cfg.TempDir,
	}, nil
}

// ParseS3URI splits s3://bucket/key into bucket and key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, S3Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an s3 URI: %q", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("s3 URI must name a bucket and an object key: %q", uri)
	}
	return bucket, key, nil
}

// Open downloads the object named by location, an s3://bucket/key URI.
func (o *S3Opener) Open(ctx context.Context, location string) (*warcdb.Archive, error) {
	bucket, key, err := ParseS3URI(location)
	if err != nil {
		return nil, err
	}

	f, err := os.CreateTemp(o.tempDir, "warcdb-s3-*")
	if err != nil {
		return nil, fmt.Errorf("creating download file: %w", err)
	}
	body := &tempFile{File: f}

	_, err = o.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("downloading %s: %w", location, err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		body.Close()
		return nil, fmt.Errorf("rewinding download of %s: %w", location, err)
	}

	return &warcdb.Archive{
		Filename: path.Base(key),
		Path:     S3Scheme + bucket + "/" + key,
		Body:     body,
	}, nil
}

// tempFile removes itself on Close.
type tempFile struct {
	*os.File
}

func (t *tempFile) Close() error {
	err := t.File.Close()
	if rmErr := os.Remove(t.File.Name()); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}
