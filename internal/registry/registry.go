// Package registry tracks in-flight runs in Redis, best effort. It
// exists for operator visibility only: two concurrent runs for the same
// proof directory are an accepted race, never blocked here.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "por:run:"

type RunRegistry struct {
	client *redis.Client
}

func New(addr string) *RunRegistry {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RunRegistry{client: rdb}
}

// Record is the value stored per proof directory.
type Record struct {
	InstanceID string    `json:"instance_id"`
	LaunchedAt time.Time `json:"launched_at"`
}

// InFlight returns the record for a proof directory if one is still
// live. Lookup failures read as "not in flight"; the registry never
// gates a launch.
func (r *RunRegistry) InFlight(ctx context.Context, proofDir string) (Record, bool) {
	val, err := r.client.Get(ctx, keyPrefix+proofDir).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false
	} else if err != nil {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return Record{}, false
	}
	return rec, true
}

// Mark records a launched run with a TTL roughly covering the longest
// expected run duration.
func (r *RunRegistry) Mark(ctx context.Context, proofDir, instanceID string, ttl time.Duration) error {
	b, err := json.Marshal(Record{
		InstanceID: instanceID,
		LaunchedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, keyPrefix+proofDir, b, ttl).Err()
}
