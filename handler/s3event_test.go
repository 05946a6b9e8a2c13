package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"lambda-functions/internal/domain"
	"lambda-functions/internal/usecase"
)

type stubProcessor struct {
	refs []domain.ObjectRef
	res  usecase.BatchResult
}

func (s *stubProcessor) ProcessBatch(_ context.Context, refs []domain.ObjectRef) usecase.BatchResult {
	s.refs = refs
	return s.res
}

func newTestData(t *testing.T, p *stubProcessor) *DataHandler {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	h, err := NewDataHandler(p, log)
	require.NoError(t, err)
	h.now = func() time.Time { return fixedNow }
	return h
}

func s3Record(bucket, key string) events.S3EventRecord {
	return events.S3EventRecord{
		EventSource: "aws:s3",
		S3: events.S3Entity{
			Bucket: events.S3Bucket{Name: bucket},
			Object: events.S3Object{Key: key},
		},
	}
}

func TestNewDataHandler_Validates(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	_, err := NewDataHandler(nil, log)
	require.Error(t, err)
	_, err = NewDataHandler(&stubProcessor{}, nil)
	require.Error(t, err)
}

func TestData_DecodesKeysAndReportsCounts(t *testing.T) {
	p := &stubProcessor{res: usecase.BatchResult{Processed: 2, Skipped: 1}}
	h := newTestData(t, p)

	resp, err := h.Handle(context.Background(), events.S3Event{Records: []events.S3EventRecord{
		s3Record("uploads", "reports/2026+march%2Fq1.csv"),
		s3Record("uploads", "plain.json"),
		{EventSource: "aws:sqs"},
		s3Record("uploads", "image.png"),
	}})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []domain.ObjectRef{
		{Bucket: "uploads", Key: "reports/2026 march/q1.csv"},
		{Bucket: "uploads", Key: "plain.json"},
		{Bucket: "uploads", Key: "image.png"},
	}, p.refs)

	out := parseBody[dataResponse](t, resp.Body)
	require.Equal(t, dataResponse{
		Message:          "Data processing completed successfully",
		Timestamp:        "2026-03-14T15:09:26Z",
		RecordsProcessed: 2,
		RecordsSkipped:   1,
	}, out)
}

func TestData_ReportsFailures(t *testing.T) {
	p := &stubProcessor{res: usecase.BatchResult{
		Processed: 1,
		Failed:    2,
		Err:       multierr.Combine(errors.New("uploads/a.csv: NoSuchKey"), errors.New("uploads/b.json: bad json")),
	}}
	h := newTestData(t, p)

	resp, err := h.Handle(context.Background(), events.S3Event{Records: []events.S3EventRecord{
		s3Record("uploads", "a.csv"), s3Record("uploads", "b.json"), s3Record("uploads", "c.csv"),
	}})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := parseBody[dataResponse](t, resp.Body)
	require.Equal(t, 2, out.RecordsFailed)
	require.Equal(t, []string{"uploads/a.csv: NoSuchKey", "uploads/b.json: bad json"}, out.Errors)
}

func TestData_HandleRaw_MalformedEvent(t *testing.T) {
	p := &stubProcessor{}
	h := newTestData(t, p)

	for _, raw := range []string{`{"Records":"nope"}`, `[`} {
		resp, err := h.HandleRaw(context.Background(), json.RawMessage(raw))
		require.NoError(t, err)
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode, raw)

		out := parseBody[errorBody](t, resp.Body)
		require.Equal(t, "Error processing data", out.Message)
		require.NotEmpty(t, out.Error)
	}
	require.Nil(t, p.refs)
}

func TestData_HandleRaw_NoRecordsSucceeds(t *testing.T) {
	for _, raw := range []string{`{}`, `{"Records":[]}`} {
		p := &stubProcessor{}
		h := newTestData(t, p)

		resp, err := h.HandleRaw(context.Background(), json.RawMessage(raw))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, raw)
		require.Empty(t, p.refs)

		out := parseBody[dataResponse](t, resp.Body)
		require.Equal(t, dataResponse{
			Message:   "Data processing completed successfully",
			Timestamp: "2026-03-14T15:09:26Z",
		}, out)
	}
}

func TestData_HandleRaw_DecodesNotification(t *testing.T) {
	p := &stubProcessor{res: usecase.BatchResult{Processed: 1}}
	h := newTestData(t, p)

	raw := `{"Records":[{"eventSource":"aws:s3","s3":{"bucket":{"name":"uploads"},"object":{"key":"data.csv","size":12}}}]}`
	resp, err := h.HandleRaw(context.Background(), json.RawMessage(raw))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []domain.ObjectRef{{Bucket: "uploads", Key: "data.csv"}}, p.refs)
}
