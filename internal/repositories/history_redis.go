package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"time"

	"github.com/BradenHooton/riskgate/internal/models"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "riskgate"

// RedisHistoryStore keeps login history in redis sorted sets scored by
// attempt time in microseconds:
//
//	{prefix}:history:{identity}  attempts, member = JSON attempt
//	{prefix}:devices:{identity}  fingerprints, score = last seen
//	{prefix}:identities          every identity with history
type RedisHistoryStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisHistoryStore creates a store; an empty prefix uses "riskgate"
func NewRedisHistoryStore(rdb *redis.Client, prefix string) *RedisHistoryStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisHistoryStore{rdb: rdb, prefix: prefix}
}

func (s *RedisHistoryStore) historyKey(identity string) string {
	return s.prefix + ":history:" + identity
}

func (s *RedisHistoryStore) devicesKey(identity string) string {
	return s.prefix + ":devices:" + identity
}

func (s *RedisHistoryStore) identitiesKey() string {
	return s.prefix + ":identities"
}

func timeScore(t time.Time) float64 {
	return float64(t.UnixMicro())
}

// Record appends an attempt in a single MULTI/EXEC transaction
func (s *RedisHistoryStore) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	if attempt == nil || attempt.Identity == "" {
		return fmt.Errorf("%w: attempt without identity", models.ErrBadRequest)
	}

	payload, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to encode attempt: %w", err)
	}

	score := timeScore(attempt.AttemptTime)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, s.historyKey(attempt.Identity), redis.Z{Score: score, Member: payload})
		if fp := attempt.DeviceFingerprint; fp != nil && *fp != "" {
			pipe.ZAddArgs(ctx, s.devicesKey(attempt.Identity), redis.ZAddArgs{
				GT:      true,
				Members: []redis.Z{{Score: score, Member: *fp}},
			})
		}
		pipe.SAdd(ctx, s.identitiesKey(), attempt.Identity)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// RecentSince returns attempts scored strictly after since, newest first
func (s *RedisHistoryStore) RecentSince(ctx context.Context, identity string, since time.Time) (iter.Seq[models.LoginAttempt], error) {
	members, err := s.rdb.ZRevRangeByScore(ctx, s.historyKey(identity), &redis.ZRangeBy{
		Max: "+inf",
		Min: "(" + strconv.FormatInt(since.UnixMicro(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent attempts: %w", err)
	}

	attempts := make([]models.LoginAttempt, 0, len(members))
	for _, m := range members {
		var a models.LoginAttempt
		if err := json.Unmarshal([]byte(m), &a); err != nil {
			return nil, fmt.Errorf("failed to decode attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return slices.Values(attempts), nil
}

// KnownDevices returns every fingerprint recorded for the identity
func (s *RedisHistoryStore) KnownDevices(ctx context.Context, identity string) (map[string]struct{}, error) {
	members, err := s.rdb.ZRange(ctx, s.devicesKey(identity), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read known devices: %w", err)
	}

	devices := make(map[string]struct{}, len(members))
	for _, fp := range members {
		devices[fp] = struct{}{}
	}
	return devices, nil
}

// Count returns the number of attempts recorded for the identity
func (s *RedisHistoryStore) Count(ctx context.Context, identity string) (int, error) {
	n, err := s.rdb.ZCard(ctx, s.historyKey(identity)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return int(n), nil
}

// Prune removes attempts and device sightings older than the cutoff.
// Identities left without history are dropped from the index.
func (s *RedisHistoryStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	identities, err := s.rdb.SMembers(ctx, s.identitiesKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list identities: %w", err)
	}

	upper := "(" + strconv.FormatInt(before.UnixMicro(), 10)

	var removed int64
	for _, identity := range identities {
		var trimmed *redis.IntCmd
		var remaining *redis.IntCmd
		_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			trimmed = pipe.ZRemRangeByScore(ctx, s.historyKey(identity), "-inf", upper)
			pipe.ZRemRangeByScore(ctx, s.devicesKey(identity), "-inf", upper)
			remaining = pipe.ZCard(ctx, s.historyKey(identity))
			return nil
		})
		if err != nil {
			return removed, fmt.Errorf("failed to prune %s: %w", identity, err)
		}

		removed += trimmed.Val()
		if remaining.Val() == 0 {
			if err := s.rdb.SRem(ctx, s.identitiesKey(), identity).Err(); err != nil {
				return removed, fmt.Errorf("failed to drop identity: %w", err)
			}
		}
	}
	return removed, nil
}

// Ping checks the redis connection
func (s *RedisHistoryStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
