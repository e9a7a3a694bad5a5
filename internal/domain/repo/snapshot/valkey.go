package snapshot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/fleetpulse/fleet-telemetry/internal/common"
	"github.com/fleetpulse/fleet-telemetry/internal/domain/entity"
)

const (
	categoryInternalError     = "valkey_internal_error"
	categoryValkeyClientError = "valkey_client"

	keyPrefix = "fleet-telemetry:snapshot:"
)

var entityTypes = []entity.EntityType{entity.EntityTypeCar, entity.EntityTypeDriver}

// ValkeyRepo keeps one hash per entity type, field is the entity id.
type ValkeyRepo struct {
	client     valkey.Client
	expiration time.Duration
}

func NewValkeyRepo(client valkey.Client, expiration time.Duration) ValkeyRepo {
	return ValkeyRepo{
		client:     client,
		expiration: expiration,
	}
}

func (r ValkeyRepo) SaveSnapshots(ctx context.Context, snapshots []entity.Snapshot) error {
	byType := make(map[entity.EntityType][]entity.Snapshot)
	for _, s := range snapshots {
		byType[s.EntityType] = append(byType[s.EntityType], s)
	}

	for entityType, group := range byType {
		err := r.saveGroup(ctx, computeKey(entityType), group)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r ValkeyRepo) saveGroup(ctx context.Context, key string, snapshots []entity.Snapshot) error {
	fields := r.client.B().Hset().Key(key).FieldValue()

	for _, s := range snapshots {
		data, err := json.Marshal(mapToModel(s))
		if err != nil {
			return common.NewErrProcessingError(err, categoryInternalError, nil, "failed to marshal snapshot %s", s.EntityID)
		}

		fields = fields.FieldValue(s.EntityID, string(data))
	}

	err := r.client.Do(ctx, fields.Build()).Error()
	if err != nil {
		return r.wrapClientError(err, "failed to set hkey %s", key)
	}

	expireCommand := r.client.B().Expire().Key(key).Seconds(int64(r.expiration.Seconds())).Build()

	err = r.client.Do(ctx, expireCommand).Error()
	if err != nil {
		return r.wrapClientError(err, "failed to set expiration on %s", key)
	}

	return nil
}

func (r ValkeyRepo) LoadSnapshots(ctx context.Context) ([]entity.Snapshot, error) {
	var ret []entity.Snapshot

	for _, entityType := range entityTypes {
		key := computeKey(entityType)

		resp := r.client.Do(ctx, r.client.B().Hgetall().Key(key).Build())

		err := resp.Error()
		if err != nil {
			return nil, r.wrapClientError(err, "failed to get all properties of %s", key)
		}

		result, err := resp.AsStrMap()
		if err != nil {
			return nil, common.NewErrProcessingError(err, categoryInternalError, nil, "unexpected hgetall response type for %s", key)
		}

		for id, raw := range result {
			m := Model{}

			err := json.Unmarshal([]byte(raw), &m)
			if err != nil {
				return nil, common.NewErrProcessingError(err, categoryInternalError, nil, "failed to unmarshal snapshot %s %s", key, id)
			}

			ret = append(ret, mapToEntity(entityType, id, m))
		}
	}

	return ret, nil
}

func (r ValkeyRepo) wrapClientError(err error, reason string, args ...interface{}) error {
	if r.isRetryable(err) {
		return common.NewRetryableErrProcessingError(err, categoryValkeyClientError, nil, reason, args...)
	}

	return common.NewErrProcessingError(err, categoryValkeyClientError, nil, reason, args...)
}

func (r ValkeyRepo) isRetryable(err error) bool {
	// Network error
	if common.IsConnectionError(err) {
		return true
	}

	// Valkey specific error
	vErr, isValkeyError := valkey.IsValkeyErr(err)
	if !isValkeyError {
		return false
	}

	return vErr.IsTryAgain() || vErr.IsClusterDown()
}

func computeKey(entityType entity.EntityType) string {
	return keyPrefix + string(entityType)
}
