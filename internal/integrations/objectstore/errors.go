package objectstore

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Error is an S3 operation failure with the bucket and key it concerned.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Bucket != "" && e.Key != "":
		return fmt.Sprintf("objectstore: %s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	case e.Bucket != "":
		return fmt.Sprintf("objectstore: %s bucket %s: %v", e.Op, e.Bucket, e.Err)
	default:
		return fmt.Sprintf("objectstore: %s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, bucket, key string, err error) *Error {
	return &Error{Op: op, Bucket: bucket, Key: key, Err: err}
}

// ErrInvalidInput is returned before any request is sent when an argument is unusable.
var ErrInvalidInput = errors.New("objectstore: invalid input")

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ErrorCode returns the AWS API error code carried by err, or "".
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// StatusCode returns the HTTP status of the failed AWS response, or 0.
func StatusCode(err error) int {
	var statusErr httpStatusCoder
	if errors.As(err, &statusErr) {
		return statusErr.HTTPStatusCode()
	}
	return 0
}
