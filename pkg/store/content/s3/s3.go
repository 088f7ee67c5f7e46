// Package s3 implements S3-based content storage.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/Lawliet-Chan/offchain-storage/pkg/store/content"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
)

// S3API is the subset of *s3.Client used by the store.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3ContentStore implements content.Store using Amazon S3 or S3-compatible
// storage.
//
// Key Design:
//   - Object key = KeyPrefix + EncodeKey(identifier, KeyEncoding)
//   - Raw encoding keeps keys human-readable but requires UTF-8 identifiers
//   - Hex/base58 accept arbitrary identifier bytes
//
// Thread Safety:
// Safe for concurrent use. Concurrent writes to the same identifier are
// last-write-wins.
type S3ContentStore struct {
	client    S3API
	bucket    string
	keyPrefix string
	encoding  content.KeyEncoding
}

// S3ContentStoreConfig contains configuration for the S3 content store.
type S3ContentStoreConfig struct {
	// Client is the configured S3 client
	Client S3API

	// Bucket is the S3 bucket name. It must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	// Example: "offchain/" results in keys like "offchain/6b6579"
	KeyPrefix string

	// KeyEncoding is raw, hex or base58 (default: raw)
	KeyEncoding content.KeyEncoding

	// SkipBucketCheck disables the HeadBucket check on construction
	SkipBucketCheck bool
}

// NewS3ContentStore creates a new S3-based content store.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: S3 configuration
//
// Returns:
//   - *S3ContentStore: Initialized S3 content store
//   - error: Returns error if bucket access fails or context is cancelled
func NewS3ContentStore(ctx context.Context, cfg S3ContentStoreConfig) (*S3ContentStore, error) {
	// ========================================================================
	// Step 1: Validate configuration
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	enc := cfg.KeyEncoding
	if enc == "" {
		enc = content.KeyRaw
	}
	if _, err := content.ParseKeyEncoding(string(enc)); err != nil {
		return nil, err
	}

	store := &S3ContentStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		encoding:  enc,
	}

	// ========================================================================
	// Step 2: Verify bucket access
	// ========================================================================

	if !cfg.SkipBucketCheck {
		if err := store.Healthcheck(ctx); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// objectKey returns the full S3 object key for id.
func (s *S3ContentStore) objectKey(id metadata.Identifier) (string, error) {
	key, err := content.EncodeKey(id, s.encoding)
	if err != nil {
		return "", err
	}
	return s.keyPrefix + key, nil
}

func (s *S3ContentStore) Get(ctx context.Context, id metadata.Identifier) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := s.objectKey(id)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyError("get", id, err)
	}
	defer func() { _ = result.Body.Close() }()

	var buf bytes.Buffer
	if result.ContentLength != nil && *result.ContentLength > 0 {
		buf.Grow(int(*result.ContentLength))
	}
	if _, err := io.Copy(&buf, result.Body); err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	return buf.Bytes(), nil
}

func (s *S3ContentStore) Set(ctx context.Context, id metadata.Identifier, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := s.objectKey(id)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return classifyError("put", id, err)
	}

	return nil
}

// Delete removes the object. S3 DeleteObject succeeds for missing keys.
func (s *S3ContentStore) Delete(ctx context.Context, id metadata.Identifier) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := s.objectKey(id)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = classifyError("delete", id, err)
		if errors.Is(err, content.ErrContentNotFound) {
			return nil
		}
		return err
	}

	return nil
}

// Healthcheck verifies bucket access with HeadBucket.
func (s *S3ContentStore) Healthcheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to access bucket %q: %w", s.bucket, err)
	}
	return nil
}

func (s *S3ContentStore) Close() error {
	return nil
}

// classifyError maps S3 errors onto content sentinels.
func classifyError(op string, id metadata.Identifier, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout":
			return fmt.Errorf("s3 %s %s: %w: %v", op, id, content.ErrUnavailable, err)
		}
	}

	return fmt.Errorf("s3 %s %s: %w", op, id, err)
}
