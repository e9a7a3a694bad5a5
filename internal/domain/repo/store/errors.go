package store

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/fleetpulse/fleet-telemetry/internal/common"
	"github.com/fleetpulse/fleet-telemetry/pkg/pipeline"
)

// SQLSTATE codes worth retrying besides the connection exception class (08).
var retryableCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"57P01": {}, // admin_shutdown
	"57P03": {}, // cannot_connect_now
}

func wrapError(err error, reason string, args ...interface{}) error {
	if isRetryable(err) {
		return common.NewRetryableErrProcessingError(err, pipeline.StoreErrorCategory, nil, reason, args...)
	}

	return common.NewErrProcessingError(err, pipeline.StoreErrorCategory, nil, reason, args...)
}

func isRetryable(err error) bool {
	if common.IsConnectionError(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isRetryableCode(pgErr.Code)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return isRetryableCode(string(pqErr.Code))
	}

	// pgx reports dial failures this way
	var connectErr *pgconn.ConnectError

	return errors.As(err, &connectErr)
}

func isRetryableCode(code string) bool {
	if strings.HasPrefix(code, "08") {
		return true
	}

	_, ok := retryableCodes[code]

	return ok
}

var errEmptyPatch = errors.New("patch carries no metric")
