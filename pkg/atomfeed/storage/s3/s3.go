// Package s3 implements atomfeed.ObjectStore on S3-compatible services such
// as MinIO.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/pdok/atom-generator/pkg/atomfeed"
)

// Config options for the S3 store
type Config struct {
	Endpoint        string // host[:port] or full URL of an S3-compatible service
	Region          string // signing region
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool // scheme for an endpoint given without protocol
	UsePathStyle    bool // path-style addressing, required by MinIO
}

// Store is an S3-compatible implementation of the atomfeed.ObjectStore interface
type Store struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	uploader      *manager.Uploader
	config        Config
}

// EndpointURL returns the endpoint with a scheme, adding http:// or
// https:// depending on UseSSL when the endpoint has none.
func (c Config) EndpointURL() string {
	if c.Endpoint == "" || strings.Contains(c.Endpoint, "://") {
		return c.Endpoint
	}
	if c.UseSSL {
		return "https://" + c.Endpoint
	}
	return "http://" + c.Endpoint
}

// New creates a new S3-compatible store
func New(config Config) (*Store, error) {
	if config.Region == "" {
		config.Region = "us-east-1"
	}
	if (config.AccessKeyID == "") != (config.SecretAccessKey == "") {
		return nil, errors.New("access key and secret key must be given together")
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(config.Region)}
	if config.AccessKeyID != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if endpoint := config.EndpointURL(); endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Options...)

	return &Store{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		uploader:      manager.NewUploader(client),
		config:        config,
	}, nil
}

// isNotFound reports whether err means the key does not exist. HeadObject
// carries no error body, so the generic API error code is checked too.
func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// StatObject retrieves metadata for an object in S3
func (s *Store) StatObject(ctx context.Context, bucket, key string) (*atomfeed.ObjectMeta, error) {
	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, atomfeed.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object metadata: %w", err)
	}

	meta := &atomfeed.ObjectMeta{
		Key:         key,
		Size:        aws.ToInt64(result.ContentLength),
		ContentType: aws.ToString(result.ContentType),
		ETag:        strings.Trim(aws.ToString(result.ETag), "\""),
		IsDir:       strings.HasSuffix(key, "/"),
	}
	if result.LastModified != nil {
		meta.LastModified = *result.LastModified
	}
	return meta, nil
}

// PresignGetObject returns a presigned URL for reading an object
func (s *Store) PresignGetObject(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	result, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned download URL: %w", err)
	}
	return result.URL, nil
}

// ListObjects lists the objects below prefix, following continuation tokens
func (s *Store) ListObjects(ctx context.Context, bucket, prefix string) ([]atomfeed.ObjectMeta, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	var objects []atomfeed.ObjectMeta
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			meta := atomfeed.ObjectMeta{
				Key:   key,
				Size:  aws.ToInt64(obj.Size),
				ETag:  strings.Trim(aws.ToString(obj.ETag), "\""),
				IsDir: strings.HasSuffix(key, "/"),
			}
			if obj.LastModified != nil {
				meta.LastModified = *obj.LastModified
			}
			objects = append(objects, meta)
		}
	}
	return objects, nil
}

// PutObject uploads content to S3
func (s *Store) PutObject(ctx context.Context, bucket, key string, reader io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   reader,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// CopyObject copies an object server side
func (s *Store) CopyObject(ctx context.Context, dst, src atomfeed.ObjectRef) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dst.Bucket),
		Key:        aws.String(dst.Key),
		CopySource: aws.String(src.String()),
	})
	if err != nil {
		if isNotFound(err) {
			return atomfeed.ErrObjectNotFound
		}
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return nil
}

// RemoveObject deletes an object from S3
func (s *Store) RemoveObject(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

func (s *Store) String() string {
	return fmt.Sprintf("s3 %s (region %s)", s.config.EndpointURL(), s.config.Region)
}
