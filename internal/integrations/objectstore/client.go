// Package objectstore wraps the S3 operations used by the functions and the
// bucket diagnostic CLI.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"

	"lambda-functions/internal/domain"
)

// MaxDeleteBatch is the largest key count S3 accepts in one DeleteObjects call.
const MaxDeleteBatch = 1000

// s3API is the subset of *s3.Client used here.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetBucketPolicy(ctx context.Context, in *s3.GetBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error)
	GetBucketVersioning(ctx context.Context, in *s3.GetBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error)
	GetBucketEncryption(ctx context.Context, in *s3.GetBucketEncryptionInput, optFns ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error)
	GetBucketWebsite(ctx context.Context, in *s3.GetBucketWebsiteInput, optFns ...func(*s3.Options)) (*s3.GetBucketWebsiteOutput, error)
}

var _ s3API = (*s3.Client)(nil)

// Object is a downloaded S3 object.
type Object struct {
	Body        []byte
	ContentType string
}

// DeleteError is a per-key failure reported by DeleteObjects.
type DeleteError struct {
	Key     string
	Code    string
	Message string
}

// DeleteResult summarises a batch deletion.
type DeleteResult struct {
	Deleted []string
	Errors  []DeleteError
}

// Client wraps an S3 API.
type Client struct {
	api s3API
}

// New creates a Client around api.
func New(api s3API) (*Client, error) {
	if api == nil {
		return nil, errors.New("objectstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

// Get downloads the whole object.
func (c *Client) Get(ctx context.Context, bucket, key string) (Object, error) {
	if bucket == "" || key == "" {
		return Object{}, newError("get", bucket, key, ErrInvalidInput)
	}
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Object{}, newError("get", bucket, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return Object{}, newError("get", bucket, key, fmt.Errorf("read body: %w", err))
	}
	return Object{Body: body, ContentType: aws.ToString(out.ContentType)}, nil
}

// Put uploads body under key. An empty contentType is sniffed from the body.
func (c *Client) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	if bucket == "" || key == "" {
		return newError("put", bucket, key, ErrInvalidInput)
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = DetectContentType(body)
	}
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return newError("put", bucket, key, err)
	}
	return nil
}

// DetectContentType sniffs the MIME type of body.
func DetectContentType(body []byte) string {
	return mimetype.Detect(body).String()
}

// List returns at most maxKeys objects from the first page, and whether more exist.
func (c *Client) List(ctx context.Context, bucket string, maxKeys int32) ([]domain.ObjectSummary, bool, error) {
	if bucket == "" {
		return nil, false, newError("list", bucket, "", ErrInvalidInput)
	}
	out, err := c.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(maxKeys),
	})
	if err != nil {
		return nil, false, newError("list", bucket, "", err)
	}
	return summaries(out.Contents), aws.ToBool(out.IsTruncated), nil
}

// ListAll walks every page of the bucket listing.
func (c *Client) ListAll(ctx context.Context, bucket string) ([]domain.ObjectSummary, error) {
	if bucket == "" {
		return nil, newError("list", bucket, "", ErrInvalidInput)
	}
	var objects []domain.ObjectSummary
	p := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, newError("list", bucket, "", err)
		}
		objects = append(objects, summaries(page.Contents)...)
	}
	return objects, nil
}

func summaries(contents []types.Object) []domain.ObjectSummary {
	out := make([]domain.ObjectSummary, 0, len(contents))
	for _, o := range contents {
		out = append(out, domain.ObjectSummary{
			Key:          aws.ToString(o.Key),
			Size:         aws.ToInt64(o.Size),
			LastModified: aws.ToTime(o.LastModified),
		})
	}
	return out
}

// DeleteKeys deletes keys in batches of at most MaxDeleteBatch. Keys that S3
// refuses individually are reported in the result; a failed request aborts.
func (c *Client) DeleteKeys(ctx context.Context, bucket string, keys []string) (DeleteResult, error) {
	var result DeleteResult
	if len(keys) == 0 {
		return result, nil
	}
	if bucket == "" {
		return result, newError("delete", bucket, "", ErrInvalidInput)
	}

	for start := 0; start < len(keys); start += MaxDeleteBatch {
		end := min(start+MaxDeleteBatch, len(keys))

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := c.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(false)},
		})
		if err != nil {
			return result, newError("delete", bucket, "", err)
		}
		for _, d := range out.Deleted {
			result.Deleted = append(result.Deleted, aws.ToString(d.Key))
		}
		for _, e := range out.Errors {
			result.Errors = append(result.Errors, DeleteError{
				Key:     aws.ToString(e.Key),
				Code:    aws.ToString(e.Code),
				Message: aws.ToString(e.Message),
			})
		}
	}
	return result, nil
}
