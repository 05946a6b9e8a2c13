package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"lambda-functions/handler"
	"lambda-functions/internal/config"
	"lambda-functions/internal/integrations/objectstore"
	"lambda-functions/internal/logging"
	"lambda-functions/internal/repository"
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
	objects, err := objectstore.New(awss3.NewFromConfig(awsCfg))
	if err != nil {
		log.WithError(err).Fatal("failed to create S3 client")
	}
	items, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.ProcessedTable)
	if err != nil {
		log.WithError(err).Fatal("failed to create processed data client")
	}

	// ---- Handler ----
	processor, err := usecase.NewProcessor(objects, items, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create processor")
	}
	warmer, err := warmup.New(awslambda.NewFromConfig(awsCfg), cfg.FunctionName, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create warmer")
	}
	h, err := handler.NewDataHandler(processor, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create handler")
	}

	lambda.Start(handler.Invoke(warmer, h.HandleRaw))
}
