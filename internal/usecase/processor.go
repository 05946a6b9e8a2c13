package usecase

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"lambda-functions/internal/domain"
	"lambda-functions/internal/integrations/objectstore"
)

type ObjectGetter interface {
	Get(ctx context.Context, bucket, key string) (objectstore.Object, error)
}

type ItemStore interface {
	Store(ctx context.Context, data any, idPrefix string) (string, error)
}

// Processor loads CSV and JSON objects from S3 into the processed-data table.
type Processor struct {
	objects ObjectGetter
	items   ItemStore
	log     logrus.FieldLogger
}

// ObjectResult reports what happened to one object.
type ObjectResult struct {
	Stored      int
	RowsSkipped int
	Unsupported bool
}

// BatchResult aggregates a run over several objects. Err combines the
// per-object failures and is nil when every object succeeded.
type BatchResult struct {
	Processed int
	Skipped   int
	Failed    int
	Stored    int
	Err       error
}

func NewProcessor(objects ObjectGetter, items ItemStore, log logrus.FieldLogger) (*Processor, error) {
	if objects == nil {
		return nil, errors.New("usecase: object getter must not be nil")
	}
	if items == nil {
		return nil, errors.New("usecase: item store must not be nil")
	}
	if log == nil {
		return nil, errors.New("usecase: logger must not be nil")
	}
	return &Processor{objects: objects, items: items, log: log}, nil
}

// ProcessBatch handles each object in turn. A failing object is logged and
// counted; it never stops the remaining objects from being processed.
func (p *Processor) ProcessBatch(ctx context.Context, refs []domain.ObjectRef) BatchResult {
	var res BatchResult
	for _, ref := range refs {
		out, err := p.ProcessObject(ctx, ref)
		res.Stored += out.Stored
		switch {
		case err != nil:
			p.log.WithFields(logrus.Fields{"bucket": ref.Bucket, "key": ref.Key}).WithError(err).Error("error processing object")
			res.Failed++
			res.Err = multierr.Append(res.Err, fmt.Errorf("%s/%s: %w", ref.Bucket, ref.Key, err))
		case out.Unsupported:
			res.Skipped++
		default:
			res.Processed++
		}
	}
	return res
}

// ProcessObject fetches one object and dispatches on its extension.
func (p *Processor) ProcessObject(ctx context.Context, ref domain.ObjectRef) (ObjectResult, error) {
	log := p.log.WithFields(logrus.Fields{"bucket": ref.Bucket, "key": ref.Key})
	log.Info("processing file")

	obj, err := p.objects.Get(ctx, ref.Bucket, ref.Key)
	if err != nil {
		return ObjectResult{}, newError(ErrorUpstream, "s3_get_error", err)
	}
	if !utf8.Valid(obj.Body) {
		return ObjectResult{}, newError(ErrorInvalidInput, "invalid_utf8", nil)
	}

	switch strings.ToLower(path.Ext(ref.Key)) {
	case ".csv":
		return p.processCSV(ctx, ref, string(obj.Body))
	case ".json":
		return p.processJSON(ctx, ref, obj.Body)
	default:
		log.WithField("content_type", obj.ContentType).Warn("unsupported file type")
		return ObjectResult{Unsupported: true}, nil
	}
}

func (p *Processor) processCSV(ctx context.Context, ref domain.ObjectRef, content string) (ObjectResult, error) {
	log := p.log.WithFields(logrus.Fields{"bucket": ref.Bucket, "key": ref.Key})
	log.Info("processing CSV data")

	rows, malformed, err := ZipCSV(content)
	if err != nil {
		return ObjectResult{}, newError(ErrorInvalidInput, "csv_header_error", err)
	}

	var res ObjectResult
	for _, m := range malformed {
		log.WithField("row", m.Number).WithError(m.Err).Error("error processing row")
		res.RowsSkipped++
	}
	for _, row := range rows {
		id, err := p.items.Store(ctx, row.Data, itemPrefix(ref, fmt.Sprint(row.Number)))
		if err != nil {
			log.WithField("row", row.Number).WithError(err).Error("error processing row")
			res.RowsSkipped++
			continue
		}
		log.WithField("id", id).Info("stored item")
		res.Stored++
	}
	return res, nil
}

func (p *Processor) processJSON(ctx context.Context, ref domain.ObjectRef, content []byte) (ObjectResult, error) {
	log := p.log.WithFields(logrus.Fields{"bucket": ref.Bucket, "key": ref.Key})
	log.Info("processing JSON data")

	items, ok, err := SplitJSON(content)
	if err != nil {
		return ObjectResult{}, newError(ErrorInvalidInput, "json_decode_error", err)
	}
	if !ok {
		log.Warn("unsupported JSON structure")
		return ObjectResult{}, nil
	}

	var res ObjectResult
	for _, item := range items {
		prefix := itemPrefix(ref, "")
		if item.Index >= 0 {
			prefix = itemPrefix(ref, fmt.Sprint(item.Index))
		}
		id, err := p.items.Store(ctx, item.Data, prefix)
		if err != nil {
			return res, newError(ErrorInternal, "dynamodb_write_error", err)
		}
		log.WithField("id", id).Info("stored item")
		res.Stored++
	}
	return res, nil
}

// itemPrefix joins bucket, key and an optional position with underscores.
func itemPrefix(ref domain.ObjectRef, position string) string {
	if position == "" {
		return ref.Bucket + "_" + ref.Key
	}
	return ref.Bucket + "_" + ref.Key + "_" + position
}
