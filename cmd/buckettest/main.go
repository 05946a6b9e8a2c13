package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"lambda-functions/internal/bucketcheck"
	"lambda-functions/internal/integrations/objectstore"
	"lambda-functions/internal/logging"
)

const uploadPrompt = "\nDo you want to upload a test object to the bucket? (y/n): "

type options struct {
	bucket   string
	region   string
	profile  string
	endpoint string
	maxKeys  int
	yes      bool
	logLevel string
	logFile  string
}

// checkerFactory builds the Checker for one run.
type checkerFactory func(ctx context.Context, o options, out io.Writer, log logrus.FieldLogger) (*bucketcheck.Checker, error)

func main() {
	if err := newRootCmd(newChecker).Execute(); err != nil {
		if !errors.Is(err, bucketcheck.ErrBucketUnavailable) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(factory checkerFactory) *cobra.Command {
	var o options

	cmd := &cobra.Command{
		Use:           "buckettest",
		Short:         "Test S3 bucket features",
		Long:          `Checks that a bucket exists and reports its policy, versioning, encryption, website hosting and contents. Optionally uploads a test object.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New(logging.Options{
				Level:  o.logLevel,
				Format: "text",
				Output: logOutput(o.logFile),
			})

			checker, err := factory(cmd.Context(), o, cmd.OutOrStdout(), log)
			if err != nil {
				return err
			}

			confirm := func() bool {
				if o.yes {
					return true
				}
				return bucketcheck.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), uploadPrompt)
			}
			return checker.Run(cmd.Context(), o.bucket, confirm)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.bucket, "bucket", "", "S3 bucket name")
	f.StringVar(&o.region, "region", "us-east-1", "AWS region")
	f.StringVar(&o.profile, "profile", "", "AWS profile")
	f.StringVar(&o.endpoint, "endpoint", "", "custom S3 endpoint, e.g. LocalStack")
	f.IntVar(&o.maxKeys, "max-keys", bucketcheck.DefaultMaxKeys, "objects to list")
	f.BoolVar(&o.yes, "yes", false, "upload the test object without prompting")
	f.StringVar(&o.logLevel, "log-level", "warn", "log level")
	f.StringVar(&o.logFile, "log-file", "", "write logs to this file (rotated) instead of stderr")
	_ = cmd.MarkFlagRequired("bucket")

	return cmd
}

func logOutput(file string) string {
	if file == "" {
		return "stderr"
	}
	return file
}

func newChecker(ctx context.Context, o options, out io.Writer, log logrus.FieldLogger) (*bucketcheck.Checker, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(o.region)}
	if o.profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(o.profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	api := awss3.NewFromConfig(awsCfg, func(opts *awss3.Options) {
		if o.endpoint != "" {
			opts.BaseEndpoint = aws.String(o.endpoint)
			opts.UsePathStyle = true
		}
	})
	store, err := objectstore.New(api)
	if err != nil {
		return nil, err
	}
	return bucketcheck.New(store, out, o.region, o.maxKeys, log)
}
