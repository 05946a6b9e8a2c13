// Package logging builds the logrus loggers used by the functions and the CLI.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Options controls logger construction.
type Options struct {
	Level  string
	Format string // json or text
	Output string // stdout, stderr or a file path

	// Rotation settings, only used when Output is a file path.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New creates a logger. Unknown levels fall back to info and unknown formats to JSON.
func New(opts Options) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	switch strings.ToLower(opts.Format) {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	default:
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
		})
	}

	log.SetOutput(output(opts))
	return log
}

func output(opts Options) io.Writer {
	switch strings.ToLower(opts.Output) {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	}
	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	return &lumberjack.Logger{
		Filename:   opts.Output,
		MaxSize:    maxSize, // megabytes
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays, // days
		Compress:   true,
	}
}

// ForInvocation returns an entry tagged with the Lambda request id and function
// name when ctx carries a Lambda context.
func ForInvocation(ctx context.Context, log logrus.FieldLogger) *logrus.Entry {
	entry := log.WithField("function_name", lambdacontext.FunctionName)
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		entry = entry.WithField("aws_request_id", lc.AwsRequestID)
	}
	return entry
}

// RequestID returns the Lambda request id carried by ctx, or "" outside Lambda.
func RequestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		return lc.AwsRequestID
	}
	return ""
}
