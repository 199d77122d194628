package output

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ajitpratap0/sqlport/pkg/errors"
)

const defaultUploadPartSize = 5 * 1024 * 1024

// S3Options configure s3:// targets.
type S3Options struct {
	Region      string
	Endpoint    string
	PartSize    int64
	Concurrency int
	// Uploader replaces the uploader built from the default AWS
	// configuration.
	Uploader Uploader
}

// Uploader is the part of manager.Uploader used by s3 targets.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// s3Destination streams bytes through a pipe into a multipart upload that
// runs until the pipe is closed. Aborting cancels the upload, and the
// uploader removes the parts it already sent.
type s3Destination struct {
	pw     *io.PipeWriter
	cancel context.CancelFunc
	done   chan error
}

func splitBucket(location, scheme string) (string, string, error) {
	rest := strings.TrimPrefix(location, scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", errors.Newf(errors.ErrorTypeConfig, "expected %sbucket/object, got %q", scheme, location)
	}
	return bucket, key, nil
}

func newS3Uploader(ctx context.Context, opts S3Options) (Uploader, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to load AWS configuration")
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = opts.PartSize
		if u.PartSize < manager.MinUploadPartSize {
			u.PartSize = defaultUploadPartSize
		}
		if opts.Concurrency > 0 {
			u.Concurrency = opts.Concurrency
		}
	}), nil
}

func openS3(ctx context.Context, location string, opts Options) (*s3Destination, error) {
	bucket, key, err := splitBucket(location, "s3://")
	if err != nil {
		return nil, err
	}
	uploader := opts.S3.Uploader
	if uploader == nil {
		if uploader, err = newS3Uploader(ctx, opts.S3); err != nil {
			return nil, err
		}
	}

	pr, pw := io.Pipe()
	uploadCtx, cancel := context.WithCancel(ctx)
	input := &s3.PutObjectInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		Body:     pr,
		Metadata: opts.Metadata,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	d := &s3Destination{pw: pw, cancel: cancel, done: make(chan error, 1)}
	go func() {
		_, err := uploader.Upload(uploadCtx, input)
		// Unblock writers if the upload stops reading early.
		pr.CloseWithError(err)
		d.done <- err
	}()
	return d, nil
}

func (d *s3Destination) Write(p []byte) (int, error) { return d.pw.Write(p) }

func (d *s3Destination) commit() error {
	defer d.cancel()
	_ = d.pw.Close()
	if err := <-d.done; err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to upload to S3")
	}
	return nil
}

func (d *s3Destination) abort() error {
	d.cancel()
	_ = d.pw.CloseWithError(context.Canceled)
	<-d.done
	return nil
}
