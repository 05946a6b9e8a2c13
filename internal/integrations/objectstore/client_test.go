package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockS3 lets each test override only the calls it cares about.
type mockS3 struct {
	GetObjectFunc           func(*s3.GetObjectInput) (*s3.GetObjectOutput, error)
	PutObjectFunc           func(*s3.PutObjectInput) (*s3.PutObjectOutput, error)
	ListObjectsV2Func       func(*s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error)
	DeleteObjectsFunc       func(*s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error)
	HeadBucketFunc          func(*s3.HeadBucketInput) (*s3.HeadBucketOutput, error)
	GetBucketPolicyFunc     func(*s3.GetBucketPolicyInput) (*s3.GetBucketPolicyOutput, error)
	GetBucketVersioningFunc func(*s3.GetBucketVersioningInput) (*s3.GetBucketVersioningOutput, error)
	GetBucketEncryptionFunc func(*s3.GetBucketEncryptionInput) (*s3.GetBucketEncryptionOutput, error)
	GetBucketWebsiteFunc    func(*s3.GetBucketWebsiteInput) (*s3.GetBucketWebsiteOutput, error)
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return m.GetObjectFunc(in)
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return m.PutObjectFunc(in)
}

func (m *mockS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return m.ListObjectsV2Func(in)
}

func (m *mockS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	return m.DeleteObjectsFunc(in)
}

func (m *mockS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return m.HeadBucketFunc(in)
}

func (m *mockS3) GetBucketPolicy(_ context.Context, in *s3.GetBucketPolicyInput, _ ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error) {
	return m.GetBucketPolicyFunc(in)
}

func (m *mockS3) GetBucketVersioning(_ context.Context, in *s3.GetBucketVersioningInput, _ ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error) {
	return m.GetBucketVersioningFunc(in)
}

func (m *mockS3) GetBucketEncryption(_ context.Context, in *s3.GetBucketEncryptionInput, _ ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error) {
	return m.GetBucketEncryptionFunc(in)
}

func (m *mockS3) GetBucketWebsite(_ context.Context, in *s3.GetBucketWebsiteInput, _ ...func(*s3.Options)) (*s3.GetBucketWebsiteOutput, error) {
	return m.GetBucketWebsiteFunc(in)
}

type statusErr struct{ code int }

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", e.code) }
func (e statusErr) HTTPStatusCode() int { return e.code }

func mustNew(t *testing.T, api *mockS3) *Client {
	t.Helper()
	c, err := New(api)
	require.NoError(t, err)
	return c
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "must not be nil")
}

func TestGet_ReadsBody(t *testing.T) {
	api := &mockS3{GetObjectFunc: func(in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
		require.Equal(t, "bucket", *in.Bucket)
		require.Equal(t, "data.csv", *in.Key)
		return &s3.GetObjectOutput{
			Body:        io.NopCloser(strings.NewReader("a,b\n1,2\n")),
			ContentType: aws.String("text/csv"),
		}, nil
	}}

	obj, err := mustNew(t, api).Get(context.Background(), "bucket", "data.csv")
	require.NoError(t, err)
	require.Equal(t, "a,b\n1,2\n", string(obj.Body))
	require.Equal(t, "text/csv", obj.ContentType)
}

func TestGet_WrapsError(t *testing.T) {
	api := &mockS3{GetObjectFunc: func(*s3.GetObjectInput) (*s3.GetObjectOutput, error) {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "missing"}
	}}

	_, err := mustNew(t, api).Get(context.Background(), "bucket", "gone.json")
	require.Error(t, err)

	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "get", opErr.Op)
	assert.Equal(t, "gone.json", opErr.Key)
	assert.Equal(t, "NoSuchKey", ErrorCode(err))
	assert.Contains(t, err.Error(), "bucket/gone.json")
}

func TestGet_InvalidInput(t *testing.T) {
	_, err := mustNew(t, &mockS3{}).Get(context.Background(), "", "k")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestPut_DetectsContentType(t *testing.T) {
	var got *s3.PutObjectInput
	api := &mockS3{PutObjectFunc: func(in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		got = in
		return &s3.PutObjectOutput{}, nil
	}}

	err := mustNew(t, api).Put(context.Background(), "bucket", "test-upload.txt", []byte("plain words"), "")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(*got.ContentType, "text/plain"))

	err = mustNew(t, api).Put(context.Background(), "bucket", "doc.json", []byte(`{}`), "application/json")
	require.NoError(t, err)
	require.Equal(t, "application/json", *got.ContentType)
}

func TestList_FirstPage(t *testing.T) {
	mod := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	api := &mockS3{ListObjectsV2Func: func(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		require.Equal(t, int32(10), *in.MaxKeys)
		return &s3.ListObjectsV2Output{
			Contents:    []types.Object{{Key: aws.String("a.txt"), Size: aws.Int64(12), LastModified: &mod}},
			IsTruncated: aws.Bool(true),
		}, nil
	}}

	objs, truncated, err := mustNew(t, api).List(context.Background(), "bucket", 10)
	require.NoError(t, err)
	require.True(t, truncated)
	require.Len(t, objs, 1)
	require.Equal(t, "a.txt", objs[0].Key)
	require.Equal(t, int64(12), objs[0].Size)
	require.Equal(t, mod, objs[0].LastModified)
}

func TestListAll_FollowsContinuationTokens(t *testing.T) {
	calls := 0
	api := &mockS3{ListObjectsV2Func: func(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		calls++
		if in.ContinuationToken == nil {
			return &s3.ListObjectsV2Output{
				Contents:              []types.Object{{Key: aws.String("one")}},
				IsTruncated:           aws.Bool(true),
				NextContinuationToken: aws.String("page-2"),
			}, nil
		}
		require.Equal(t, "page-2", *in.ContinuationToken)
		return &s3.ListObjectsV2Output{
			Contents:    []types.Object{{Key: aws.String("two")}},
			IsTruncated: aws.Bool(false),
		}, nil
	}}

	objs, err := mustNew(t, api).ListAll(context.Background(), "bucket")
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Len(t, objs, 2)
	require.Equal(t, "two", objs[1].Key)
}

func TestDeleteKeys_SplitsIntoBatches(t *testing.T) {
	keys := make([]string, 2500)
	for i := range keys {
		keys[i] = fmt.Sprintf("k%04d", i)
	}

	var batchSizes []int
	api := &mockS3{DeleteObjectsFunc: func(in *s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error) {
		batchSizes = append(batchSizes, len(in.Delete.Objects))
		out := &s3.DeleteObjectsOutput{}
		for _, id := range in.Delete.Objects {
			if *id.Key == "k0007" {
				out.Errors = append(out.Errors, types.Error{Key: id.Key, Code: aws.String("AccessDenied"), Message: aws.String("denied")})
				continue
			}
			out.Deleted = append(out.Deleted, types.DeletedObject{Key: id.Key})
		}
		return out, nil
	}}

	res, err := mustNew(t, api).DeleteKeys(context.Background(), "bucket", keys)
	require.NoError(t, err)
	require.Equal(t, []int{1000, 1000, 500}, batchSizes)
	require.Len(t, res.Deleted, 2499)
	require.Equal(t, []DeleteError{{Key: "k0007", Code: "AccessDenied", Message: "denied"}}, res.Errors)
}

func TestDeleteKeys_EmptyIsNoop(t *testing.T) {
	res, err := mustNew(t, &mockS3{}).DeleteKeys(context.Background(), "bucket", nil)
	require.NoError(t, err)
	require.Empty(t, res.Deleted)
}

func TestDeleteKeys_RequestFailureAborts(t *testing.T) {
	api := &mockS3{DeleteObjectsFunc: func(*s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error) {
		return nil, errors.New("throttled")
	}}
	_, err := mustNew(t, api).DeleteKeys(context.Background(), "bucket", []string{"a"})
	require.ErrorContains(t, err, "throttled")
}

func TestStatusCode(t *testing.T) {
	err := newError("headBucket", "bucket", "", statusErr{code: 404})
	require.Equal(t, 404, StatusCode(err))
	require.Equal(t, 0, StatusCode(errors.New("plain")))
	require.Equal(t, "", ErrorCode(errors.New("plain")))
}
