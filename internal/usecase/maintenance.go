package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"lambda-functions/internal/domain"
	"lambda-functions/internal/integrations/objectstore"
)

const (
	ReportSubject = "Scheduled Task Status Report"
	AlertSubject  = "Scheduled Task Lambda Failure"
)

type MetricsReader interface {
	InstanceCPU(ctx context.Context, instanceID string) ([]domain.Datapoint, error)
}

type ObjectCleaner interface {
	ListAll(ctx context.Context, bucket string) ([]domain.ObjectSummary, error)
	DeleteKeys(ctx context.Context, bucket string, keys []string) (objectstore.DeleteResult, error)
}

type Publisher interface {
	Publish(ctx context.Context, topicARN, subject, message string) (string, error)
}

type ValueResolver interface {
	Resolve(ctx context.Context, value string) (string, error)
}

// MaintenanceConfig carries the settings of a maintenance run. Empty topic
// ARNs, bucket or instance id disable the corresponding step.
type MaintenanceConfig struct {
	Environment    string
	FunctionName   string
	DataBucket     string
	AlertTopicARN  string
	ReportTopicARN string
	InstanceID     string
	CPUThreshold   float64
	Retention      time.Duration
}

// RunSummary is what a successful run observed and changed.
type RunSummary struct {
	Datapoints     int
	HighCPU        int
	ObjectsDeleted int
}

// Maintenance runs the periodic metrics check, data cleanup and status report.
type Maintenance struct {
	metrics   MetricsReader
	objects   ObjectCleaner
	publisher Publisher
	resolver  ValueResolver
	cfg       MaintenanceConfig
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewMaintenance validates dependencies. resolver may be nil, in which case
// the instance id is used verbatim.
func NewMaintenance(metrics MetricsReader, objects ObjectCleaner, publisher Publisher, resolver ValueResolver, cfg MaintenanceConfig, log logrus.FieldLogger) (*Maintenance, error) {
	if metrics == nil {
		return nil, errors.New("usecase: metrics reader must not be nil")
	}
	if objects == nil {
		return nil, errors.New("usecase: object cleaner must not be nil")
	}
	if publisher == nil {
		return nil, errors.New("usecase: publisher must not be nil")
	}
	if log == nil {
		return nil, errors.New("usecase: logger must not be nil")
	}
	if cfg.CPUThreshold <= 0 {
		return nil, errors.New("usecase: cpu threshold must be positive")
	}
	if cfg.Retention <= 0 {
		return nil, errors.New("usecase: retention must be positive")
	}
	return &Maintenance{
		metrics:   metrics,
		objects:   objects,
		publisher: publisher,
		resolver:  resolver,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}, nil
}

// Run executes the three steps in order and stops at the first failure.
func (m *Maintenance) Run(ctx context.Context) (RunSummary, error) {
	var summary RunSummary

	total, high, err := m.CheckMetrics(ctx)
	if err != nil {
		return summary, err
	}
	summary.Datapoints, summary.HighCPU = total, high

	deleted, err := m.Cleanup(ctx)
	if err != nil {
		return summary, err
	}
	summary.ObjectsDeleted = deleted

	if err := m.SendReport(ctx, summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// CheckMetrics warns about every CPU datapoint above the threshold and returns
// the number of datapoints seen and flagged.
func (m *Maintenance) CheckMetrics(ctx context.Context) (total, high int, err error) {
	m.log.Info("checking CloudWatch metrics")

	instanceID := strings.TrimSpace(m.cfg.InstanceID)
	if m.resolver != nil && instanceID != "" {
		instanceID, err = m.resolver.Resolve(ctx, instanceID)
		if err != nil {
			return 0, 0, newError(ErrorUpstream, "instance_id_resolve_error", err)
		}
	}
	if instanceID == "" {
		m.log.Info("no instance configured, skipping metrics check")
		return 0, 0, nil
	}

	points, err := m.metrics.InstanceCPU(ctx, instanceID)
	if err != nil {
		return 0, 0, newError(ErrorUpstream, "cloudwatch_error", err)
	}
	flagged := HighCPU(points, m.cfg.CPUThreshold)
	for _, dp := range flagged {
		m.log.WithFields(logrus.Fields{
			"instance_id": instanceID,
			"timestamp":   dp.Timestamp.Format(time.RFC3339),
			"average":     dp.Average,
		}).Warn("high CPU usage detected")
	}
	m.log.WithField("datapoints", len(points)).Info("processed metric datapoints")
	return len(points), len(flagged), nil
}

// Cleanup deletes objects of the data bucket older than the retention period.
func (m *Maintenance) Cleanup(ctx context.Context) (int, error) {
	m.log.Info("performing cleanup operations")
	if m.cfg.DataBucket == "" {
		return 0, nil
	}

	objects, err := m.objects.ListAll(ctx, m.cfg.DataBucket)
	if err != nil {
		return 0, newError(ErrorUpstream, "s3_list_error", err)
	}
	expired := ExpiredObjects(objects, m.now().Add(-m.cfg.Retention))
	if len(expired) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(expired))
	for _, o := range expired {
		m.log.WithField("key", o.Key).Info("marking for deletion")
		keys = append(keys, o.Key)
	}
	m.log.WithField("count", len(keys)).Info("deleting old objects")

	res, err := m.objects.DeleteKeys(ctx, m.cfg.DataBucket, keys)
	if err != nil {
		return len(res.Deleted), newError(ErrorUpstream, "s3_delete_error", err)
	}
	for _, e := range res.Errors {
		m.log.WithFields(logrus.Fields{"key": e.Key, "code": e.Code}).Error(e.Message)
	}
	return len(res.Deleted), nil
}

// SendReport publishes the run summary when a report topic is configured.
func (m *Maintenance) SendReport(ctx context.Context, summary RunSummary) error {
	m.log.Info("sending status report")
	if m.cfg.ReportTopicARN == "" {
		return nil
	}

	report := domain.StatusReport{
		ExecutionTime:     m.now().Format(time.RFC3339Nano),
		LambdaFunction:    m.cfg.FunctionName,
		Environment:       m.cfg.Environment,
		Datapoints:        summary.Datapoints,
		HighCPUDatapoints: summary.HighCPU,
		ObjectsDeleted:    summary.ObjectsDeleted,
	}
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return newError(ErrorInternal, "report_encode_error", err)
	}
	if _, err := m.publisher.Publish(ctx, m.cfg.ReportTopicARN, ReportSubject, string(body)); err != nil {
		return newError(ErrorUpstream, "sns_report_error", err)
	}
	m.log.Info("status report sent successfully")
	return nil
}

// Alert reports a failed run to the alert topic. Publishing is best effort:
// its own failure is logged and swallowed.
func (m *Maintenance) Alert(ctx context.Context, cause error) {
	if m.cfg.AlertTopicARN == "" || cause == nil {
		return
	}
	msg := fmt.Sprintf("The scheduled task Lambda function failed with error: %v", cause)
	if _, err := m.publisher.Publish(ctx, m.cfg.AlertTopicARN, AlertSubject, msg); err != nil {
		m.log.WithError(err).Error("failed to send SNS alert")
	}
}

// HighCPU returns the datapoints whose average is strictly above threshold.
func HighCPU(points []domain.Datapoint, threshold float64) []domain.Datapoint {
	var out []domain.Datapoint
	for _, dp := range points {
		if dp.Average > threshold {
			out = append(out, dp)
		}
	}
	return out
}

// ExpiredObjects returns the objects last modified strictly before threshold.
func ExpiredObjects(objects []domain.ObjectSummary, threshold time.Time) []domain.ObjectSummary {
	var out []domain.ObjectSummary
	for _, o := range objects {
		if o.LastModified.Before(threshold) {
			out = append(out, o)
		}
	}
	return out
}
