package files

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"

	"chat-node/internal/apperrors"
)

// S3Store keeps attachments as objects in one bucket. Paths become keys.
type S3Store struct {
	client *s3.Client
	bucket string
}

func NewS3Store(ctx context.Context, region, bucket string) (*S3Store, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return &S3Store{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (s *S3Store) Write(ctx context.Context, p string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(p)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return errors.Wrapf(err, "put object %s", p)
	}
	return nil
}

func (s *S3Store) Read(ctx context.Context, p string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(p)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, apperrors.WithCause(apperrors.ErrFileNotFound, err)
		}
		return nil, errors.Wrapf(err, "get object %s", p)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read object %s", p)
	}
	return data, nil
}

// CreateDirAll is a no-op; buckets have no directories.
func (s *S3Store) CreateDirAll(context.Context, string) error {
	return nil
}

func objectKey(p string) string {
	return strings.TrimPrefix(p, "/")
}
