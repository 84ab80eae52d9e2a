package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrInvalidS3Config is returned when the bucket or region is missing.
var ErrInvalidS3Config = errors.New("s3 archive: bucket and region are required")

// S3Client is the subset of the S3 API the archiver needs.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures an S3Archiver.
type S3Config struct {
	Bucket         string
	Region         string
	Prefix         string // key prefix, e.g. "digests/"
	AccessKeyID    string
	SecretKey      string
	Endpoint       string // for S3-compatible services such as MinIO
	ForcePathStyle bool
}

// S3Archiver uploads rendered digests to a bucket.
type S3Archiver struct {
	client S3Client
	bucket string
	prefix string
}

// NewS3 builds an archiver with a client from the default AWS config chain.
// Static credentials are used when both key parts are set.
func NewS3(ctx context.Context, cfg S3Config) (*S3Archiver, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidS3Config
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
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
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return NewS3WithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3WithClient wraps an existing client.
func NewS3WithClient(client S3Client, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Archive uploads data under prefix/name+ext and returns the s3:// location.
func (a *S3Archiver) Archive(ctx context.Context, name string, data []byte, ext string) (string, error) {
	key := sanitize(name) + ext
	if a.prefix != "" {
		key = path.Join(a.prefix, key)
	}

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s to bucket %s: %w", key, a.bucket, err)
	}
	return "s3://" + a.bucket + "/" + key, nil
}
