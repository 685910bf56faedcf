package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Adapter stores outputs in an S3-compatible bucket.
type S3Adapter struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3Options holds S3 adapter configuration
type S3Options struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string // key prefix prepended to every path
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// NewS3Adapter creates a new S3 adapter
func NewS3Adapter(opts S3Options) (*S3Adapter, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 adapter: bucket is required")
	}
	ctx := context.Background()

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if opts.Endpoint != "" {
		endpoint := opts.Endpoint
		if !strings.Contains(endpoint, "://") {
			scheme := "http://"
			if opts.UseSSL {
				scheme = "https://"
			}
			endpoint = scheme + endpoint
		}
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true // MinIO and similar services
		})
	}

	return &S3Adapter{
		client: s3.NewFromConfig(cfg, clientOpts...),
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
	}, nil
}

// Put buffers the data; parse outputs are small enough for a single PutObject.
func (s *S3Adapter) Put(ctx context.Context, path string, data io.Reader) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(path)),
		Body:          bytes.NewReader(buf),
		ContentLength: aws.Int64(int64(len(buf))),
		ContentType:   aws.String(contentType(path)),
	})
	if err != nil {
		return classify("put object", err)
	}
	return nil
}

func (s *S3Adapter) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, classify("get object", err)
	}
	return result.Body, nil
}

func (s *S3Adapter) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		return classify("delete object", err)
	}
	return nil
}

func (s *S3Adapter) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
			return false, nil
		}
		return false, classify("head object", err)
	}
	return true, nil
}

// List returns keys under prefix, relative to the adapter's own prefix.
func (s *S3Adapter) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("list objects", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			key := *obj.Key
			if s.prefix != "" {
				key = strings.TrimPrefix(key, s.prefix+"/")
			}
			paths = append(paths, key)
		}
	}
	return paths, nil
}

func (s *S3Adapter) Close() error { return nil }

func (s *S3Adapter) key(path string) string {
	path = strings.TrimLeft(path, "/")
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

// retryableCodes are S3 error codes worth another attempt.
var retryableCodes = map[string]bool{
	"SlowDown":            true,
	"Throttling":          true,
	"ThrottlingException": true,
	"RequestTimeout":      true,
	"InternalError":       true,
	"ServiceUnavailable":  true,
}

// classify wraps err, marking throttling and server faults retryable.
func classify(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if retryableCodes[apiErr.ErrorCode()] || apiErr.ErrorFault() == smithy.FaultServer {
			return &RetryableError{Op: op, Err: err}
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func contentType(path string) string {
	switch {
	case strings.HasSuffix(path, ".json"):
		return "application/json"
	case strings.HasSuffix(path, ".jsonl"):
		return "application/x-ndjson"
	case strings.HasSuffix(path, ".txt"):
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}
