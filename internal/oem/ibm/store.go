package ibm

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	ibmconfig "github.com/openbmc-go/pldmd/internal/config"
)

// Store persists a completed file transfer and serves range reads back out
// of it, the flattening of every original_source file_io_type_*'s
// "where do these bytes end up" into one interface.
type Store interface {
	PutFile(ctx context.Context, key string, data []byte) error
	GetFile(ctx context.Context, key string, offset, length uint32) ([]byte, error)
}

// S3Store is an S3-compatible Store, grounded on the teacher's
// pkg/store/content/s3.S3ContentStore: a client, bucket, and key prefix
// around PutObject/GetObject, kept to single-request transfers since OEM
// file transfers in this stack are already chunked by the PLDM layer
// itself, unlike the teacher's own multipart upload path.
type S3Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// NewS3ClientFromConfig builds an S3 client from IBMOEMConfig, the same
// static-credentials-provider shape as the teacher's own
// NewS3ClientFromConfig helper.
func NewS3ClientFromConfig(ctx context.Context, cfg ibmconfig.IBMOEMConfig) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("oem/ibm: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return client, nil
}

// NewS3Store constructs a Store over an existing S3 client.
func NewS3Store(client *s3.Client, bucket, keyPrefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, keyPrefix: keyPrefix}
}

func (s *S3Store) objectKey(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return s.keyPrefix + "/" + key
}

// PutFile uploads data as one object (the teacher's single-PutObject path
// for files under its multipart threshold).
func (s *S3Store) PutFile(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("oem/ibm: put %s: %w", key, err)
	}
	return nil
}

// GetFile reads length bytes at offset via an S3 Range GetObject, the same
// range-read approach as the teacher's ReadAtContentStore.
func (s *S3Store) GetFile(ctx context.Context, key string, offset, length uint32) ([]byte, error) {
	rangeHeader := fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		return nil, fmt.Errorf("oem/ibm: get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("oem/ibm: read %s: %w", key, err)
	}
	return data, nil
}
