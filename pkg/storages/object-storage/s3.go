package storage_objects

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/sachin-pal89/Saarathi-Recorder/pkg/commons"
	"github.com/sachin-pal89/Saarathi-Recorder/pkg/configs"
)

type s3Storage struct {
	cfg    configs.AssetStoreConfig
	logger commons.Logger
	client *s3.S3
}

// NewStorage builds an S3 backed Storage from the asset store configuration.
// When AccessKeyId is empty the default AWS credential chain is used.
func NewStorage(cfg configs.AssetStoreConfig, logger commons.Logger) (Storage, error) {
	awsConfig := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyId != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyId, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}

	return &s3Storage{
		cfg:    cfg,
		logger: logger,
		client: s3.New(sess),
	}, nil
}

func (s *s3Storage) Put(ctx context.Context, path string, data []byte, contentType string) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to bucket %s: %w", path, s.cfg.Bucket, err)
	}

	s.logger.Debugf("uploaded object: bucket=%s, path=%s, size=%d", s.cfg.Bucket, path, len(data))
	return nil
}

func (s *s3Storage) Get(ctx context.Context, path string) ([]byte, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s from bucket %s: %w", path, s.cfg.Bucket, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", path, err)
	}
	return data, nil
}

func (s *s3Storage) SignedURL(path string, ttl time.Duration) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(path),
	})
	url, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", path, err)
	}
	return url, nil
}

func (s *s3Storage) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from bucket %s: %w", path, s.cfg.Bucket, err)
	}
	return nil
}
