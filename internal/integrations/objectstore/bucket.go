package objectstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Website is the static website hosting configuration of a bucket.
type Website struct {
	IndexDocument string
	ErrorDocument string
}

// HeadBucket checks that the bucket exists and is reachable with the current credentials.
func (c *Client) HeadBucket(ctx context.Context, bucket string) error {
	if _, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return newError("headBucket", bucket, "", err)
	}
	return nil
}

// Policy returns the raw bucket policy document.
func (c *Client) Policy(ctx context.Context, bucket string) (string, error) {
	out, err := c.api.GetBucketPolicy(ctx, &s3.GetBucketPolicyInput{Bucket: aws.String(bucket)})
	if err != nil {
		return "", newError("getBucketPolicy", bucket, "", err)
	}
	return aws.ToString(out.Policy), nil
}

// Versioning returns the versioning status, "" when it was never configured.
func (c *Client) Versioning(ctx context.Context, bucket string) (string, error) {
	out, err := c.api.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: aws.String(bucket)})
	if err != nil {
		return "", newError("getBucketVersioning", bucket, "", err)
	}
	return string(out.Status), nil
}

// EncryptionAlgorithms returns the default SSE algorithm of each encryption rule.
// A rule without a default is reported as "Unknown".
func (c *Client) EncryptionAlgorithms(ctx context.Context, bucket string) ([]string, error) {
	out, err := c.api.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{Bucket: aws.String(bucket)})
	if err != nil {
		return nil, newError("getBucketEncryption", bucket, "", err)
	}
	if out.ServerSideEncryptionConfiguration == nil {
		return nil, nil
	}
	algorithms := make([]string, 0, len(out.ServerSideEncryptionConfiguration.Rules))
	for _, rule := range out.ServerSideEncryptionConfiguration.Rules {
		alg := "Unknown"
		if d := rule.ApplyServerSideEncryptionByDefault; d != nil && d.SSEAlgorithm != "" {
			alg = string(d.SSEAlgorithm)
		}
		algorithms = append(algorithms, alg)
	}
	return algorithms, nil
}

// Website returns the bucket's website configuration.
func (c *Client) Website(ctx context.Context, bucket string) (Website, error) {
	out, err := c.api.GetBucketWebsite(ctx, &s3.GetBucketWebsiteInput{Bucket: aws.String(bucket)})
	if err != nil {
		return Website{}, newError("getBucketWebsite", bucket, "", err)
	}
	var w Website
	if out.IndexDocument != nil {
		w.IndexDocument = aws.ToString(out.IndexDocument.Suffix)
	}
	if out.ErrorDocument != nil {
		w.ErrorDocument = aws.ToString(out.ErrorDocument.Key)
	}
	return w, nil
}
