// Package notify publishes messages to SNS topics.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// snsAPI is the minimal SNS interface required by Client.
type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Client wraps an SNS API.
type Client struct {
	api snsAPI
}

// New creates a Client around api.
func New(api snsAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("notify: api must not be nil")
	}
	return &Client{api: api}, nil
}

// Publish sends message to topicARN and returns the SNS message id.
func (c *Client) Publish(ctx context.Context, topicARN, subject, message string) (string, error) {
	topicARN = strings.TrimSpace(topicARN)
	if topicARN == "" {
		return "", errors.New("notify: topic arn is required")
	}
	in := &sns.PublishInput{
		TopicArn: aws.String(topicARN),
		Message:  aws.String(message),
	}
	if subject != "" {
		in.Subject = aws.String(truncateSubject(subject))
	}
	out, err := c.api.Publish(ctx, in)
	if err != nil {
		return "", fmt.Errorf("notify: Publish %s: %w", topicARN, err)
	}
	return aws.ToString(out.MessageId), nil
}

// SNS rejects subjects longer than 100 characters.
const maxSubjectLen = 100

func truncateSubject(s string) string {
	r := []rune(s)
	if len(r) <= maxSubjectLen {
		return s
	}
	return string(r[:maxSubjectLen])
}
