package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"CaseReview/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// S3Bucket writes reports as objects under an optional key prefix. Folders
// are implied by the keys.
type S3Bucket struct {
	client *s3.Client
	bucket string
	prefix string
	log    *zap.Logger
}

// NewS3Bucket loads the default AWS credential chain unless static keys are
// configured. A custom endpoint switches to path-style addressing.
func NewS3Bucket(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (*S3Bucket, error) {
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3BucketFromClient(client, cfg.S3Bucket, cfg.S3Prefix, log), nil
}

func NewS3BucketFromClient(client *s3.Client, bucket, prefix string, log *zap.Logger) *S3Bucket {
	if log == nil {
		log = zap.NewNop()
	}
	return &S3Bucket{client: client, bucket: bucket, prefix: JoinPath(prefix), log: log}
}

func (b *S3Bucket) Name() string {
	return config.StorageS3
}

func (b *S3Bucket) EnsureFolder(context.Context, string) error {
	return nil
}

func (b *S3Bucket) Upload(ctx context.Context, folder, name string, data []byte) error {
	key := JoinPath(b.prefix, folder, name)
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(xlsxContentType),
	})
	if err != nil {
		upErr := &UploadError{Op: "upload", Path: b.bucket + "/" + key, Body: err.Error()}
		var respErr *awshttp.ResponseError
		if errors.As(err, &respErr) {
			upErr.Status = respErr.HTTPStatusCode()
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			upErr.Body = apiErr.ErrorCode() + ": " + apiErr.ErrorMessage()
		}
		return upErr
	}
	b.log.Info("uploaded file", zap.String("backend", b.Name()), zap.String("path", key), zap.Int("bytes", len(data)))
	return nil
}
