package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"apimon/internal/features/monitor/models"
)

const (
	// EndpointsKey is a hash of endpoint id to definition JSON
	EndpointsKey = "apimon:endpoints"
	// ChecksKeyPrefix prefixes the per-endpoint sorted set of results scored by unix ms
	ChecksKeyPrefix = "apimon:checks:"
	// AlertsKey is a list of alert JSON, newest at the head
	AlertsKey = "apimon:alerts"
)

// RedisStore keeps endpoints in a hash, check results in one sorted set per
// endpoint and alerts in a capped list
type RedisStore struct {
	client    *redis.Client
	maxAlerts int64
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, addr, password string, db int, maxAlerts int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if maxAlerts < 1 {
		maxAlerts = 100
	}
	return &RedisStore{client: client, maxAlerts: int64(maxAlerts)}, nil
}

func checksKey(endpointID string) string {
	return ChecksKeyPrefix + endpointID
}

func (r *RedisStore) GetEndpoint(ctx context.Context, id string) (models.Endpoint, error) {
	data, err := r.client.HGet(ctx, EndpointsKey, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Endpoint{}, models.ErrEndpointNotFound
	}
	if err != nil {
		return models.Endpoint{}, fmt.Errorf("failed to get endpoint %s: %w", id, err)
	}

	var e models.Endpoint
	if err := json.Unmarshal(data, &e); err != nil {
		return models.Endpoint{}, fmt.Errorf("failed to decode endpoint %s: %w", id, err)
	}
	return e, nil
}

func (r *RedisStore) ListEndpoints(ctx context.Context) ([]models.Endpoint, error) {
	data, err := r.client.HGetAll(ctx, EndpointsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}

	endpoints := make([]models.Endpoint, 0, len(data))
	for id, raw := range data {
		var e models.Endpoint
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("failed to decode endpoint %s: %w", id, err)
		}
		endpoints = append(endpoints, e)
	}

	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].CreatedAt.Equal(endpoints[j].CreatedAt) {
			return endpoints[i].ID < endpoints[j].ID
		}
		return endpoints[i].CreatedAt.Before(endpoints[j].CreatedAt)
	})
	return endpoints, nil
}

func (r *RedisStore) UpsertEndpoint(ctx context.Context, endpoint models.Endpoint) error {
	data, err := json.Marshal(endpoint)
	if err != nil {
		return fmt.Errorf("failed to encode endpoint: %w", err)
	}
	if err := r.client.HSet(ctx, EndpointsKey, endpoint.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to upsert endpoint %s: %w", endpoint.ID, err)
	}
	return nil
}

func (r *RedisStore) DeleteEndpoint(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	deleted := pipe.HDel(ctx, EndpointsKey, id)
	pipe.Del(ctx, checksKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete endpoint %s: %w", id, err)
	}
	if deleted.Val() == 0 {
		return models.ErrEndpointNotFound
	}
	return nil
}

func (r *RedisStore) AppendCheckResult(ctx context.Context, result models.CheckResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode check result: %w", err)
	}
	err = r.client.ZAdd(ctx, checksKey(result.EndpointID), &redis.Z{
		Score:  float64(result.Timestamp.UnixMilli()),
		Member: data,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to store check result: %w", err)
	}
	return nil
}

func (r *RedisStore) QueryCheckResults(ctx context.Context, endpointID string, since time.Time) ([]models.CheckResult, error) {
	data, err := r.client.ZRangeByScore(ctx, checksKey(endpointID), &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query check results: %w", err)
	}

	results := make([]models.CheckResult, 0, len(data))
	for _, raw := range data {
		var result models.CheckResult
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

func (r *RedisStore) PurgeCheckResults(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	var cursor uint64
	maxScore := "(" + strconv.FormatInt(before.UnixMilli(), 10)

	for {
		keys, next, err := r.client.Scan(ctx, cursor, ChecksKeyPrefix+"*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to scan check keys: %w", err)
		}
		for _, key := range keys {
			n, err := r.client.ZRemRangeByScore(ctx, key, "-inf", maxScore).Result()
			if err != nil {
				return removed, fmt.Errorf("failed to purge %s: %w", key, err)
			}
			removed += n
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

func (r *RedisStore) InsertAlert(ctx context.Context, alert models.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.LPush(ctx, AlertsKey, data)
	pipe.LTrim(ctx, AlertsKey, 0, r.maxAlerts-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store alert: %w", err)
	}
	return nil
}

func (r *RedisStore) AcknowledgeAlert(ctx context.Context, id string) error {
	data, err := r.client.LRange(ctx, AlertsKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to read alerts: %w", err)
	}

	for i, raw := range data {
		var alert models.Alert
		if err := json.Unmarshal([]byte(raw), &alert); err != nil || alert.ID != id {
			continue
		}
		alert.Acknowledged = true
		updated, err := json.Marshal(alert)
		if err != nil {
			return fmt.Errorf("failed to encode alert: %w", err)
		}
		if err := r.client.LSet(ctx, AlertsKey, int64(i), updated).Err(); err != nil {
			return fmt.Errorf("failed to acknowledge alert %s: %w", id, err)
		}
		return nil
	}
	return models.ErrAlertNotFound
}

func (r *RedisStore) ListAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	stop := int64(limit) - 1
	if limit <= 0 {
		stop = -1
	}
	data, err := r.client.LRange(ctx, AlertsKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	alerts := make([]models.Alert, 0, len(data))
	for _, raw := range data {
		var alert models.Alert
		if err := json.Unmarshal([]byte(raw), &alert); err != nil {
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// FlushDB clears the selected database (tests only)
func (r *RedisStore) FlushDB(ctx context.Context) error {
	return r.client.FlushDB(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
