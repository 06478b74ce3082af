package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"transcode-server/internal/logging"
	"transcode-server/internal/workers"
)

// S3Config holds connection settings for an S3-compatible store.
type S3Config struct {
	Endpoint  string // empty for AWS; R2 endpoint otherwise
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string

	MaxRetries     int
	RetryBaseDelay time.Duration
}

// S3Store implements ObjectStore against an S3-compatible service.
type S3Store struct {
	bucket         string
	client         *s3.Client
	uploader       *manager.Uploader
	presigner      *s3.PresignClient
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewS3Store builds an S3 client from cfg. Endpoint is optional; when set
// (e.g. an R2 account endpoint) path-style addressing is used.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 300 * time.Millisecond
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	// Multipart uploads are network-bound, so size the part concurrency
	// for I/O rather than CPU.
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.Concurrency = workers.ForIO(8)
	})

	return &S3Store{
		bucket:         cfg.Bucket,
		client:         client,
		uploader:       uploader,
		presigner:      s3.NewPresignClient(client),
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
	}, nil
}

// Download fetches an object's bytes and content type.
func (s *S3Store) Download(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, "", fmt.Errorf("storage: download %q: %w", key, err)
	}
	defer func() {
		if err := out.Body.Close(); err != nil {
			logging.Warn("failed to close object body for %s: %v", key, err)
		}
	}()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, "", fmt.Errorf("storage: read body for %q: %w", key, err)
	}

	contentType := ""
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return buf.Bytes(), contentType, nil
}

// Upload stores payload at key, retrying transient failures with jittered
// exponential backoff.
func (s *S3Store) Upload(ctx context.Context, key, contentType string, payload []byte) error {
	var err error
	for attempt := 1; ; attempt++ {
		_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(payload),
			ContentType: aws.String(contentType),
		})
		if err == nil {
			return nil
		}
		if attempt > s.maxRetries || ctx.Err() != nil {
			break
		}

		backoff := s.backoffDelay(attempt)
		logging.Warn("upload of %s failed (attempt %d/%d), retrying in %s: %v",
			key, attempt, s.maxRetries, backoff, err)

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return fmt.Errorf("storage: upload %q: %w", key, err)
}

// SignedURL returns a presigned GET URL for key.
func (s *S3Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("storage: presign %q: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3Store) backoffDelay(attempt int) time.Duration {
	delay := s.retryBaseDelay << (attempt - 1)
	jitter := time.Duration(int64(delay) / 10)
	return delay - (jitter / 2) + time.Duration(time.Now().UnixNano()%int64(jitter+1))
}
