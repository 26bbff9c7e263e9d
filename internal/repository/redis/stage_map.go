/**
 * Repository: stage map cache
 * @description: Redis persistence for the discovered pipeline stage map;
 *               written as one key swap so concurrent readers never see
 *               a partially rebuilt mapping
 * @func: StageMapRepository
 */
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"leadsync/internal/model"

	"github.com/go-redis/redis/v8"
)

const stageMapKey = "sync:stagemap"

// StageMapRepository caches the remote-stage to canonical-stage mapping.
type StageMapRepository struct {
	client *redis.Client
}

// NewStageMapRepository creates a stage map repository.
func NewStageMapRepository(client *redis.Client) *StageMapRepository {
	return &StageMapRepository{client: client}
}

// Save replaces the cached map in a single SET; the previous value stays
// visible until the swap lands.
func (r *StageMapRepository) Save(ctx context.Context, m model.StageMap) error {
	// JSON object keys must be strings.
	encoded := make(map[string]string, len(m))
	for id, stage := range m {
		encoded[strconv.FormatInt(id, 10)] = stage
	}
	payload, err := json.Marshal(encoded)
	if err != nil {
		return fmt.Errorf("failed to encode stage map: %w", err)
	}
	if err := r.client.Set(ctx, stageMapKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to save stage map: %w", err)
	}
	return nil
}

// Load reads the cached map; an absent key returns an empty map so the
// default stage applies everywhere until the first discovery runs.
func (r *StageMapRepository) Load(ctx context.Context) (model.StageMap, error) {
	payload, err := r.client.Get(ctx, stageMapKey).Bytes()
	if err == redis.Nil {
		return model.StageMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stage map: %w", err)
	}

	var encoded map[string]string
	if err := json.Unmarshal(payload, &encoded); err != nil {
		return nil, fmt.Errorf("failed to decode stage map: %w", err)
	}

	m := make(model.StageMap, len(encoded))
	for key, stage := range encoded {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		m[id] = stage
	}
	return m, nil
}
