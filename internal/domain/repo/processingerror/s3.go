package processingerror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/common/version"

	"github.com/fleetpulse/fleet-telemetry/pkg/pipeline"
)

const (
	unknownHostname = "<unknown>"

	keyTemplate = "<prefix>/<year>/<month>/<day>/<topic>/<partition>-<offset>.json"
)

var ErrNilEvent = errors.New("nil event")

// ObjectPutter is the subset of the s3 client used to write dead letters.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Writer stores messages that could not be ingested, one object per kafka message.
type S3Writer struct {
	s3client ObjectPutter
	clock    clockwork.Clock

	bucket string
	prefix string

	hostname string
}

func NewS3Writer(logger logr.Logger, s3client ObjectPutter, bucket string, prefix string) S3Writer {
	hostname, err := os.Hostname()
	if err != nil {
		logger.Error(err, "failed to get hostname, falling backing to "+unknownHostname)

		hostname = unknownHostname
	}

	return S3Writer{
		s3client: s3client,
		clock:    clockwork.NewRealClock(),
		bucket:   bucket,
		prefix:   strings.TrimSuffix(prefix, "/"),
		hostname: hostname,
	}
}

func (r S3Writer) WithClock(clock clockwork.Clock) S3Writer {
	r.clock = clock

	return r
}

// Process makes the writer usable as an error processing.
func (r S3Writer) Process(ctx context.Context, pErr pipeline.ErrProcessingError) error {
	// Errors raised outside of the kafka path have no raw message to keep
	if pErr.Event == nil {
		return nil
	}

	return r.WriteProcessingError(ctx, pErr)
}

func (r S3Writer) WriteProcessingError(ctx context.Context, pErr pipeline.ErrProcessingError) error {
	obj, err := r.createProcessingError(pErr)
	if err != nil {
		return fmt.Errorf("failed to create local model: %w", err)
	}

	b, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal local model: %w", err)
	}

	key, err := r.computeObjectKey(pErr)
	if err != nil {
		return fmt.Errorf("failed to compute object key: %w", err)
	}

	params := &s3.PutObjectInput{
		Bucket: &r.bucket,
		Key:    &key,
		Body:   bytes.NewReader(b),
	}

	_, err = r.s3client.PutObject(ctx, params)
	if err != nil {
		return pipeline.NewErrRetryableError(fmt.Errorf("failed to write in s3: %w", err))
	}

	return nil
}

func (r S3Writer) createProcessingError(pErr pipeline.ErrProcessingError) (ProcessingError, error) {
	if pErr.Event == nil {
		return ProcessingError{}, ErrNilEvent
	}

	ret := ProcessingError{
		ProcessingContext: ProcessingContext{
			Component: Component{
				Branch:   version.Branch,
				Revision: version.Revision,
			},
			Time: r.clock.Now(),
			Host: r.hostname,
		},
		Sources: Sources{
			Main: Source{
				Topic:     pErr.Event.Topic,
				Partition: pErr.Event.Partition,
				Offset:    pErr.Event.Offset,
				Payload:   string(pErr.Event.Value),
			},
			Additional: make([]KeyValue, 0, len(pErr.AdditionalInputs)),
		},
		Reason: Reason{
			Category: pErr.Category,
			Error:    pErr.Error(),
		},
	}

	for _, kv := range pErr.AdditionalInputs {
		ret.Sources.Additional = append(ret.Sources.Additional, KeyValue{
			Source: kv.Source,
			Key:    kv.Key,
			Value:  string(kv.Value),
		})
	}

	return ret, nil
}

func (r S3Writer) computeObjectKey(pErr pipeline.ErrProcessingError) (string, error) {
	if pErr.Event == nil {
		return "", ErrNilEvent
	}

	// Broker timestamp may be missing on old message formats
	ts := pErr.Event.Timestamp
	if ts.IsZero() {
		ts = r.clock.Now()
	}

	ts = ts.UTC()

	template := strings.NewReplacer(
		"<prefix>", r.prefix,
		"<year>", fmt.Sprintf("%04d", ts.Year()),
		"<month>", fmt.Sprintf("%02d", ts.Month()),
		"<day>", fmt.Sprintf("%02d", ts.Day()),
		"<topic>", pErr.Event.Topic,
		"<partition>", fmt.Sprintf("%d", pErr.Event.Partition),
		"<offset>", fmt.Sprintf("%d", pErr.Event.Offset),
	)

	return strings.TrimPrefix(template.Replace(keyTemplate), "/"), nil
}

// NopWriter is used when no dead letter bucket is configured.
type NopWriter struct{}

func (NopWriter) Process(context.Context, pipeline.ErrProcessingError) error { return nil }

func (NopWriter) WriteProcessingError(context.Context, pipeline.ErrProcessingError) error { return nil }

