// Package archive uploads exported reports to an S3 bucket.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNoBucket is returned when no archive bucket is configured.
var ErrNoBucket = errors.New("archive: no S3 bucket configured")

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options selects the bucket and AWS credentials for uploads.
type Options struct {
	Bucket  string
	Prefix  string
	Region  string
	Profile string
}

// Archiver uploads files to one bucket under prefix/YYYY/MM/.
type Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
	now    func() time.Time
}

// New loads the AWS configuration (shared profile and region when set) and
// returns an Archiver for opts.Bucket.
func New(ctx context.Context, opts Options) (*Archiver, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, ErrNoBucket
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(opts.Profile))
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("archive: loading AWS config: %w", err)
	}
	return NewWithClient(s3.NewFromConfig(cfg), opts.Bucket, opts.Prefix), nil
}

// NewWithClient returns an Archiver using an existing S3 client.
func NewWithClient(client PutObjectAPI, bucket, prefix string) *Archiver {
	return &Archiver{
		client: client,
		bucket: strings.TrimSpace(bucket),
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
		now:    time.Now,
	}
}

// Key returns the object key for a file name, dated by upload month.
func (a *Archiver) Key(name string) string {
	return path.Join(a.prefix, a.now().Format("2006/01"), name)
}

// URI returns the s3:// URI of a key.
func (a *Archiver) URI(key string) string {
	return "s3://" + a.bucket + "/" + key
}

// Upload puts the file at localPath into the bucket and returns its URI.
func (a *Archiver) Upload(ctx context.Context, localPath, contentType string) (string, error) {
	//nolint:gosec // path comes from the export just written
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("archive: opening %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("archive: stat %s: %w", localPath, err)
	}

	key := a.Key(filepath.Base(localPath))
	input := &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := a.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("archive: uploading %s: %w", key, err)
	}
	return a.URI(key), nil
}
