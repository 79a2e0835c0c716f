package catalog

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client the mirror uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Mirror copies every saved snapshot to an S3 object after the primary
// persister has saved it. The primary document stays authoritative: a failed
// upload is logged and does not fail the save.
type S3Mirror struct {
	primary Persister
	client  S3API
	bucket  string
	key     string
	logger  *slog.Logger
}

// NewS3Mirror wraps primary with an S3 copy at bucket/key.
func NewS3Mirror(primary Persister, client S3API, bucket, key string, logger *slog.Logger) *S3Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Mirror{
		primary: primary,
		client:  client,
		bucket:  bucket,
		key:     key,
		logger:  logger,
	}
}

// Load reads the primary document. When the primary holds nothing the
// catalog is restored from the S3 copy, if one exists.
func (m *S3Mirror) Load(ctx context.Context) (*Snapshot, error) {
	snap, err := m.primary.Load(ctx)
	if err != nil || snap != nil {
		return snap, err
	}

	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if stderrors.As(err, &missing) {
			return nil, nil
		}
		m.logger.Warn("catalog mirror unavailable", "bucket", m.bucket, "key", m.key, "error", err)
		return nil, nil
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	m.logger.Info("catalog restored from mirror", "bucket", m.bucket, "key", m.key)
	return Decode(data, "s3://"+m.bucket+"/"+m.key)
}

// Save saves through the primary, then uploads the same document.
func (m *S3Mirror) Save(ctx context.Context, snap Snapshot) error {
	if err := m.primary.Save(ctx, snap); err != nil {
		return err
	}

	data, err := Encode(snap)
	if err != nil {
		return err
	}
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(m.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		m.logger.Warn("catalog mirror upload failed", "bucket", m.bucket, "key", m.key, "error", err)
	}
	return nil
}
