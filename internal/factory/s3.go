package factory

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/logging"
	"github.com/go-logr/logr"

	"github.com/fleetpulse/fleet-telemetry/internal/config"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/repo/processingerror"
	"github.com/fleetpulse/fleet-telemetry/internal/log"
	"github.com/fleetpulse/fleet-telemetry/pkg/pipeline"
)

// CreateDeadLetterWriter returns the dead letter queue, a no-op when no bucket is configured.
func CreateDeadLetterWriter(ctx context.Context, conf config.S3, logger logr.Logger) (pipeline.ErrorProcessing, error) {
	if conf.Bucket == "" {
		logger.Info("No dead letter bucket configured, invalid messages are only logged")

		return processingerror.NopWriter{}, nil
	}

	client, err := CreateS3Client(ctx, conf)
	if err != nil {
		return nil, err
	}

	return processingerror.NewS3Writer(logger, client, conf.Bucket, conf.KeyPrefix), nil
}

func CreateS3Client(ctx context.Context, conf config.S3) (*s3.Client, error) {
	awsConfig, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(conf.Creds.AccessKeyID, conf.Creds.SecretAccessKey, "")),
		awsconfig.WithRegion(conf.Region),
		awsconfig.WithLogger(AWSLogger{log.Logger()}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	if conf.BaseEndpoint != "" {
		baseEndpoint := conf.BaseEndpoint

		if !strings.HasPrefix(baseEndpoint, "http://") && !strings.HasPrefix(baseEndpoint, "https://") {
			baseEndpoint = fmt.Sprintf("https://%s", baseEndpoint)
		}

		awsConfig.BaseEndpoint = &baseEndpoint
	}

	ret := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.UsePathStyle = conf.UsePathStyle
	})

	return ret, nil
}

type AWSLogger struct {
	logger logr.Logger
}

func (a AWSLogger) Logf(classification logging.Classification, format string, v ...interface{}) {
	level := 0

	switch classification {
	case logging.Debug:
		level = 3
	case logging.Warn:
		level = 0
	default:
		return
	}

	msg := fmt.Sprintf(format, v...)

	a.logger.V(level).Info(msg)
}
