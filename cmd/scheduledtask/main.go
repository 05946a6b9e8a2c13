package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"lambda-functions/handler"
	"lambda-functions/internal/config"
	"lambda-functions/internal/integrations/metrics"
	"lambda-functions/internal/integrations/notify"
	"lambda-functions/internal/integrations/objectstore"
	"lambda-functions/internal/integrations/paramstore"
	"lambda-functions/internal/logging"
	"lambda-functions/internal/usecase"
	"lambda-functions/internal/warmup"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg := config.Load()
	log := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to load AWS config")
	}

	// ---- Clients ----
	cw, err := metrics.New(awscloudwatch.NewFromConfig(awsCfg))
	if err != nil {
		log.WithError(err).Fatal("failed to create CloudWatch client")
	}
	objects, err := objectstore.New(awss3.NewFromConfig(awsCfg))
	if err != nil {
		log.WithError(err).Fatal("failed to create S3 client")
	}
	publisher, err := notify.New(awssns.NewFromConfig(awsCfg))
	if err != nil {
		log.WithError(err).Fatal("failed to create SNS client")
	}
	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		log.WithError(err).Fatal("failed to create SSM client")
	}

	// ---- Handler ----
	maintenance, err := usecase.NewMaintenance(cw, objects, publisher, params, usecase.MaintenanceConfig{
		Environment:    cfg.Environment,
		FunctionName:   cfg.FunctionName,
		DataBucket:     cfg.DataBucket,
		AlertTopicARN:  cfg.AlertTopicARN,
		ReportTopicARN: cfg.ReportTopicARN,
		InstanceID:     cfg.MonitorInstanceID,
		CPUThreshold:   cfg.CPUThreshold,
		Retention:      cfg.Retention(),
	}, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create maintenance service")
	}
	warmer, err := warmup.New(awslambda.NewFromConfig(awsCfg), cfg.FunctionName, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create warmer")
	}
	h, err := handler.NewScheduleHandler(maintenance, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create handler")
	}

	lambda.Start(handler.Invoke(warmer, h.Handle))
}
