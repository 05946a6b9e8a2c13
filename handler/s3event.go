package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"lambda-functions/internal/domain"
	"lambda-functions/internal/logging"
	"lambda-functions/internal/usecase"
)

type batchProcessor interface {
	ProcessBatch(ctx context.Context, refs []domain.ObjectRef) usecase.BatchResult
}

type dataResponse struct {
	Message          string   `json:"message"`
	Timestamp        string   `json:"timestamp"`
	RecordsProcessed int      `json:"recordsProcessed"`
	RecordsSkipped   int      `json:"recordsSkipped"`
	RecordsFailed    int      `json:"recordsFailed"`
	Errors           []string `json:"errors,omitempty"`
}

// DataHandler feeds S3 object-created notifications to the data processor.
type DataHandler struct {
	processor batchProcessor
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewDataHandler(processor batchProcessor, log logrus.FieldLogger) (*DataHandler, error) {
	if processor == nil {
		return nil, errors.New("handler: processor must not be nil")
	}
	if log == nil {
		return nil, errors.New("handler: logger must not be nil")
	}
	return &DataHandler{processor: processor, log: log, now: time.Now}, nil
}

// HandleRaw decodes the payload itself so a malformed event still gets the
// error envelope instead of a runtime error.
func (h *DataHandler) HandleRaw(ctx context.Context, raw json.RawMessage) (Response, error) {
	var event events.S3Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return h.failure(ctx, err), nil
	}
	return h.Handle(ctx, event)
}

func (h *DataHandler) Handle(ctx context.Context, event events.S3Event) (Response, error) {
	log := logging.ForInvocation(ctx, h.log)
	log.WithField("records", len(event.Records)).Info("received S3 event")

	refs := make([]domain.ObjectRef, 0, len(event.Records))
	for _, rec := range event.Records {
		bucket := rec.S3.Bucket.Name
		if bucket == "" {
			log.WithField("event_source", rec.EventSource).Warn("record without S3 entity")
			continue
		}
		refs = append(refs, domain.ObjectRef{Bucket: bucket, Key: objectKey(log, rec.S3.Object.Key)})
	}

	res := h.processor.ProcessBatch(ctx, refs)
	out := dataResponse{
		Message:          "Data processing completed successfully",
		Timestamp:        timestamp(h.now()),
		RecordsProcessed: res.Processed,
		RecordsSkipped:   res.Skipped,
		RecordsFailed:    res.Failed,
	}
	for _, err := range multierr.Errors(res.Err) {
		out.Errors = append(out.Errors, err.Error())
	}
	log.WithFields(logrus.Fields{
		"processed": res.Processed,
		"skipped":   res.Skipped,
		"failed":    res.Failed,
		"stored":    res.Stored,
	}).Info("data processing finished")
	return jsonResponse(http.StatusOK, out), nil
}

func (h *DataHandler) failure(ctx context.Context, err error) Response {
	logging.ForInvocation(ctx, h.log).WithError(err).Error("error processing data")
	return jsonResponse(http.StatusInternalServerError, errorBody{
		Message: "Error processing data",
		Error:   err.Error(),
	})
}

// objectKey undoes the form encoding S3 applies to keys in notifications.
func objectKey(log logrus.FieldLogger, key string) string {
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		log.WithField("key", key).WithError(err).Warn("could not decode object key, using it verbatim")
		return key
	}
	return decoded
}
