package output

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/sqlport/pkg/errors"
)

// GCSOptions configure gs:// targets.
type GCSOptions struct {
	CredentialsFile string
	Endpoint        string
	// NewWriter replaces the Cloud Storage object writer.
	NewWriter func(ctx context.Context, bucket, object string, opts Options) (io.WriteCloser, error)
}

// gcsDestination writes through a storage object writer. The object only
// becomes visible when the writer is closed; cancelling its context first
// abandons the upload.
type gcsDestination struct {
	w       io.WriteCloser
	cancel  context.CancelFunc
	cleanup func()
}

func newStorageWriter(ctx context.Context, bucket, object string, opts Options) (io.WriteCloser, func(), error) {
	var clientOpts []option.ClientOption
	if opts.GCS.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.GCS.CredentialsFile))
	}
	if opts.GCS.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.GCS.Endpoint))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create Cloud Storage client")
	}
	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.Metadata = opts.Metadata
	return w, func() { _ = client.Close() }, nil
}

func openGCS(ctx context.Context, location string, opts Options) (*gcsDestination, error) {
	bucket, object, err := splitBucket(location, "gs://")
	if err != nil {
		return nil, err
	}
	writeCtx, cancel := context.WithCancel(ctx)
	d := &gcsDestination{cancel: cancel, cleanup: func() {}}
	if opts.GCS.NewWriter != nil {
		d.w, err = opts.GCS.NewWriter(writeCtx, bucket, object, opts)
	} else {
		d.w, d.cleanup, err = newStorageWriter(writeCtx, bucket, object, opts)
	}
	if err != nil {
		cancel()
		return nil, err
	}
	return d, nil
}

func (d *gcsDestination) Write(p []byte) (int, error) { return d.w.Write(p) }

func (d *gcsDestination) commit() error {
	defer d.cleanup()
	defer d.cancel()
	if err := d.w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to upload to Cloud Storage")
	}
	return nil
}

func (d *gcsDestination) abort() error {
	defer d.cleanup()
	d.cancel()
	_ = d.w.Close()
	return nil
}
