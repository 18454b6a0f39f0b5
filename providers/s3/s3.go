// Package s3 implements the medikeep.AttachmentStore contract on an S3
// bucket: the original document photos live here, outside the document
// store, with only their object key persisted alongside the record.
//
// Photos are uploaded as-is; they are already on the patient's device in the
// clear and the bucket is expected to enforce server-side encryption and
// per-user prefixes. Nothing here is shared between users.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// s3Client is the slice of the S3 API used here (allows mocking).
type s3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config holds configuration for the attachment store.
type Config struct {
	// Bucket is the target bucket. Required.
	Bucket string

	// Prefix is prepended to every object key, typically the user id.
	Prefix string

	// Region is the AWS region; empty defers to the default config chain.
	Region string

	// AWSConfig is an optional pre-configured AWS config; when set, Region
	// is ignored.
	AWSConfig *aws.Config
}

// AttachmentStore stores document photos in S3.
type AttachmentStore struct {
	client s3Client
	bucket string
	prefix string
}

// New creates the attachment store.
func New(ctx context.Context, cfg Config) (*AttachmentStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}

	var awsCfg aws.Config
	var err error
	if cfg.AWSConfig != nil {
		awsCfg = *cfg.AWSConfig
	} else {
		opts := []func(*awsconfig.LoadOptions) error{}
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("s3: failed to load AWS config: %w", err)
		}
	}

	return &AttachmentStore{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Put uploads a photo under a fresh object key and returns the key. The
// content type is sniffed from the image bytes.
func (a *AttachmentStore) Put(ctx context.Context, image []byte) (string, error) {
	key := a.prefix + uuid.NewString()

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(image),
		ContentType: aws.String(http.DetectContentType(image)),
	})
	if err != nil {
		return "", fmt.Errorf("s3: failed to upload attachment: %w", err)
	}
	return key, nil
}

// Get downloads the photo stored under key.
func (a *AttachmentStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: failed to fetch attachment %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3: failed to read attachment %s: %w", key, err)
	}
	return data, nil
}
