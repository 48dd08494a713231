package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fleetgrid-io/fleetgrid/internal/hub/core"
	"github.com/fleetgrid-io/fleetgrid/internal/hub/core/model"
	"github.com/fleetgrid-io/fleetgrid/pkg/options"
)

const (
	vehicleKeyPrefix  = "fleet:vehicle:"
	hardwareKeyPrefix = "fleet:hw:"
)

var _ core.VehicleRepository = (*Redis)(nil)

// Redis is the durable VehicleRepository. Each vehicle is one JSON value
// under fleet:vehicle:{id}; fleet:hw:{hardwareID} maps a device to its
// vehicle id. Updates are optimistic: a WATCH on the vehicle key plus a
// version comparison rejects writes racing an out-of-band writer.
type Redis struct {
	rdb *redis.Client
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts *options.RedisOptions) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Redis{rdb: rdb}, nil
}

func vehicleKey(id string) string          { return vehicleKeyPrefix + id }
func hardwareKey(hardwareID string) string { return hardwareKeyPrefix + hardwareID }

func (r *Redis) Get(ctx context.Context, id string) (*model.Vehicle, error) {
	raw, err := r.rdb.Get(ctx, vehicleKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get vehicle %s: %w", id, err)
	}

	return decodeVehicle(raw)
}

func (r *Redis) GetByHardwareID(ctx context.Context, hardwareID string) (*model.Vehicle, error) {
	id, err := r.rdb.Get(ctx, hardwareKey(hardwareID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: hardware id %s", core.ErrNotFound, hardwareID)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get hardware index %s: %w", hardwareID, err)
	}

	return r.Get(ctx, id)
}

func (r *Redis) Create(ctx context.Context, vehicle *model.Vehicle) error {
	raw, err := json.Marshal(vehicle)
	if err != nil {
		return fmt.Errorf("encode vehicle %s: %w", vehicle.ID, err)
	}

	ok, err := r.rdb.SetNX(ctx, vehicleKey(vehicle.ID), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("redis create vehicle %s: %w", vehicle.ID, err)
	}
	if !ok {
		return fmt.Errorf("%w: vehicle %s already exists", core.ErrConflict, vehicle.ID)
	}

	if vehicle.HardwareID != "" {
		if err := r.rdb.Set(ctx, hardwareKey(vehicle.HardwareID), vehicle.ID, 0).Err(); err != nil {
			return fmt.Errorf("redis index hardware id %s: %w", vehicle.HardwareID, err)
		}
	}

	return nil
}

func (r *Redis) Update(ctx context.Context, vehicle *model.Vehicle) error {
	key := vehicleKey(vehicle.ID)

	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", core.ErrNotFound, vehicle.ID)
		}
		if err != nil {
			return err
		}

		stored, err := decodeVehicle(raw)
		if err != nil {
			return err
		}
		if stored.Version != vehicle.Version {
			return fmt.Errorf("%w: vehicle %s at version %d, update carries %d",
				core.ErrConflict, vehicle.ID, stored.Version, vehicle.Version)
		}

		vehicle.Version++
		next, err := json.Marshal(vehicle)
		if err != nil {
			vehicle.Version--
			return fmt.Errorf("encode vehicle %s: %w", vehicle.ID, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			if stored.HardwareID != vehicle.HardwareID {
				if stored.HardwareID != "" {
					pipe.Del(ctx, hardwareKey(stored.HardwareID))
				}
				if vehicle.HardwareID != "" {
					pipe.Set(ctx, hardwareKey(vehicle.HardwareID), vehicle.ID, 0)
				}
			}
			return nil
		})
		if err != nil {
			vehicle.Version--
		}
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// The key changed between WATCH and EXEC.
		return fmt.Errorf("%w: vehicle %s modified concurrently", core.ErrConflict, vehicle.ID)
	}
	return err
}

func (r *Redis) List(ctx context.Context) ([]*model.Vehicle, error) {
	var out []*model.Vehicle

	iter := r.rdb.Scan(ctx, 0, vehicleKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan vehicles: %w", err)
	}
	if len(keys) == 0 {
		return out, nil
	}

	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget vehicles: %w", err)
	}

	for _, val := range vals {
		s, ok := val.(string)
		if !ok {
			continue // key expired between SCAN and MGET
		}
		v, err := decodeVehicle([]byte(s))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, nil
}

func (r *Redis) Healthy(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

func decodeVehicle(raw []byte) (*model.Vehicle, error) {
	var v model.Vehicle
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode vehicle record: %w", err)
	}
	return &v, nil
}
