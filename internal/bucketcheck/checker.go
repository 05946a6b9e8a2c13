// Package bucketcheck runs the interactive S3 bucket diagnostics and prints a
// human readable pass/fail line for every check.
package bucketcheck

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"lambda-functions/internal/domain"
	"lambda-functions/internal/integrations/objectstore"
)

const (
	DefaultMaxKeys = 10

	TestObjectKey     = "test-upload.txt"
	TestObjectContent = "This is a test file uploaded by the S3 bucket testing script."

	lastModifiedFormat = "2006-01-02 15:04:05-07:00"
)

// ErrBucketUnavailable is returned by Run when the bucket cannot be reached.
var ErrBucketUnavailable = errors.New("bucketcheck: bucket unavailable")

type bucketAPI interface {
	HeadBucket(ctx context.Context, bucket string) error
	Policy(ctx context.Context, bucket string) (string, error)
	Versioning(ctx context.Context, bucket string) (string, error)
	EncryptionAlgorithms(ctx context.Context, bucket string) ([]string, error)
	Website(ctx context.Context, bucket string) (objectstore.Website, error)
	List(ctx context.Context, bucket string, maxKeys int32) ([]domain.ObjectSummary, bool, error)
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error
}

var _ bucketAPI = (*objectstore.Client)(nil)

type Checker struct {
	store   bucketAPI
	out     io.Writer
	region  string
	maxKeys int32
	log     logrus.FieldLogger
}

func New(store bucketAPI, out io.Writer, region string, maxKeys int, log logrus.FieldLogger) (*Checker, error) {
	if store == nil {
		return nil, errors.New("bucketcheck: store must not be nil")
	}
	if out == nil {
		return nil, errors.New("bucketcheck: output must not be nil")
	}
	if log == nil {
		return nil, errors.New("bucketcheck: logger must not be nil")
	}
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Checker{store: store, out: out, region: region, maxKeys: int32(maxKeys), log: log}, nil
}

// Run performs the full diagnostic sequence. confirm is asked before the test
// upload; a nil confirm skips the upload.
func (c *Checker) Run(ctx context.Context, bucket string, confirm func() bool) error {
	c.printf("\n🔍 Testing S3 bucket: %s in region %s\n\n", bucket, c.region)

	if !c.Exists(ctx, bucket) {
		return ErrBucketUnavailable
	}

	c.printf("\n--- Bucket Configuration ---\n")
	c.Policy(ctx, bucket)
	c.Versioning(ctx, bucket)
	c.Encryption(ctx, bucket)
	c.Website(ctx, bucket)

	c.printf("\n--- Bucket Contents ---\n")
	c.Contents(ctx, bucket)

	if confirm != nil && confirm() {
		if c.Upload(ctx, bucket) {
			c.Contents(ctx, bucket)
		}
	}

	c.printf("\n✨ S3 bucket testing completed ✨\n\n")
	return nil
}

func (c *Checker) Exists(ctx context.Context, bucket string) bool {
	err := c.store.HeadBucket(ctx, bucket)
	if err == nil {
		c.printf("✅ Bucket '%s' exists\n", bucket)
		return true
	}
	c.log.WithError(err).WithField("bucket", bucket).Debug("head bucket failed")
	switch objectstore.StatusCode(err) {
	case http.StatusNotFound:
		c.printf("❌ Bucket '%s' does not exist\n", bucket)
	case http.StatusForbidden:
		c.printf("❌ Access denied to bucket '%s'\n", bucket)
	default:
		c.printf("❌ Error checking bucket: %v\n", err)
	}
	return false
}

func (c *Checker) Policy(ctx context.Context, bucket string) bool {
	policy, err := c.store.Policy(ctx, bucket)
	if err != nil {
		if objectstore.ErrorCode(err) == "NoSuchBucketPolicy" {
			c.printf("❓ No bucket policy configured\n")
		} else {
			c.printf("❌ Error getting bucket policy: %v\n", err)
		}
		return false
	}
	c.printf("✅ Bucket policy found:\n%s\n", indentJSON(policy))
	return true
}

func (c *Checker) Versioning(ctx context.Context, bucket string) bool {
	status, err := c.store.Versioning(ctx, bucket)
	if err != nil {
		c.printf("❌ Error checking versioning: %v\n", err)
		return false
	}
	if status == "Enabled" {
		c.printf("✅ Versioning is enabled\n")
		return true
	}
	if status == "" {
		status = "Not configured"
	}
	c.printf("ℹ️ Versioning status: %s\n", status)
	return false
}

func (c *Checker) Encryption(ctx context.Context, bucket string) bool {
	algorithms, err := c.store.EncryptionAlgorithms(ctx, bucket)
	if err != nil {
		if objectstore.ErrorCode(err) == "ServerSideEncryptionConfigurationNotFoundError" {
			c.printf("❌ Encryption is not enabled\n")
		} else {
			c.printf("❌ Error checking encryption: %v\n", err)
		}
		return false
	}
	if len(algorithms) == 0 {
		c.printf("❓ No encryption rules found\n")
		return false
	}
	c.printf("✅ Encryption is enabled:\n")
	for _, alg := range algorithms {
		c.printf("  - Algorithm: %s\n", alg)
	}
	return true
}

func (c *Checker) Website(ctx context.Context, bucket string) bool {
	site, err := c.store.Website(ctx, bucket)
	if err != nil {
		if objectstore.ErrorCode(err) == "NoSuchWebsiteConfiguration" {
			c.printf("ℹ️ Website hosting is not enabled\n")
		} else {
			c.printf("❌ Error checking website config: %v\n", err)
		}
		return false
	}
	c.printf("✅ Website hosting is enabled:\n")
	if site.IndexDocument != "" {
		c.printf("  - Index document: %s\n", site.IndexDocument)
	}
	if site.ErrorDocument != "" {
		c.printf("  - Error document: %s\n", site.ErrorDocument)
	}
	c.printf("  - Website endpoint: %s\n", WebsiteEndpoint(bucket, c.region))
	return true
}

func (c *Checker) Contents(ctx context.Context, bucket string) bool {
	objects, truncated, err := c.store.List(ctx, bucket, c.maxKeys)
	if err != nil {
		c.printf("❌ Error listing objects: %v\n", err)
		return false
	}
	if len(objects) == 0 {
		c.printf("ℹ️ Bucket is empty\n")
		return true
	}
	c.printf("✅ Objects in bucket (showing up to %d):\n", c.maxKeys)
	for _, o := range objects {
		c.printf("  - %s (%d bytes, last modified: %s)\n", o.Key, o.Size, o.LastModified.Format(lastModifiedFormat))
	}
	if truncated {
		c.printf("  ... and more objects (truncated)\n")
	}
	return true
}

// Upload writes the fixed test object. Its content type is sniffed from the body.
func (c *Checker) Upload(ctx context.Context, bucket string) bool {
	if err := c.store.Put(ctx, bucket, TestObjectKey, []byte(TestObjectContent), ""); err != nil {
		c.printf("❌ Error uploading test object: %v\n", err)
		return false
	}
	c.printf("✅ Test object '%s' uploaded successfully\n", TestObjectKey)
	return true
}

// WebsiteEndpoint is the static website URL of bucket in region.
func WebsiteEndpoint(bucket, region string) string {
	return fmt.Sprintf("http://%s.s3-website-%s.amazonaws.com", bucket, region)
}

// Confirm writes question to w and reports whether the answer read from r is "y".
func Confirm(r io.Reader, w io.Writer, question string) bool {
	fmt.Fprint(w, question)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

func indentJSON(doc string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(doc), "", "  "); err != nil {
		return doc
	}
	return buf.String()
}

func (c *Checker) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
