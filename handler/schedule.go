package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"

	"lambda-functions/internal/logging"
	"lambda-functions/internal/usecase"
)

type maintenanceRunner interface {
	Run(ctx context.Context) (usecase.RunSummary, error)
	Alert(ctx context.Context, cause error)
}

type scheduleResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ScheduleHandler runs the maintenance tasks on each EventBridge tick.
type ScheduleHandler struct {
	runner maintenanceRunner
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewScheduleHandler(runner maintenanceRunner, log logrus.FieldLogger) (*ScheduleHandler, error) {
	if runner == nil {
		return nil, errors.New("handler: maintenance runner must not be nil")
	}
	if log == nil {
		return nil, errors.New("handler: logger must not be nil")
	}
	return &ScheduleHandler{runner: runner, log: log, now: time.Now}, nil
}

func (h *ScheduleHandler) Handle(ctx context.Context, event events.CloudWatchEvent) (Response, error) {
	log := logging.ForInvocation(ctx, h.log)
	log.WithFields(logrus.Fields{
		"source":      event.Source,
		"detail_type": event.DetailType,
	}).Info("scheduled task started")

	summary, err := h.runner.Run(ctx)
	if err != nil {
		log.WithError(err).WithField("code", usecase.CodeOf(err)).Error("error executing scheduled tasks")
		h.runner.Alert(ctx, err)
		return jsonResponse(http.StatusInternalServerError, errorBody{
			Message: "Error executing scheduled tasks",
			Error:   err.Error(),
		}), nil
	}

	log.WithFields(logrus.Fields{
		"datapoints":      summary.Datapoints,
		"high_cpu":        summary.HighCPU,
		"objects_deleted": summary.ObjectsDeleted,
	}).Info("scheduled tasks completed")
	return jsonResponse(http.StatusOK, scheduleResponse{
		Message:   "Scheduled tasks completed successfully",
		Timestamp: timestamp(h.now()),
	}), nil
}
