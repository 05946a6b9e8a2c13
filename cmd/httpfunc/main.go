package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"

	"lambda-functions/handler"
	"lambda-functions/internal/config"
	"lambda-functions/internal/logging"
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

	// ---- Handler ----
	warmer, err := warmup.New(awslambda.NewFromConfig(awsCfg), cfg.FunctionName, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create warmer")
	}
	h, err := handler.NewEchoHandler(cfg.Environment, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create handler")
	}

	lambda.Start(handler.Invoke(warmer, h.Handle))
}
