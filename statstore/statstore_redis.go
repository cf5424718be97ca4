package statstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

var (
	redisUserPrefix      = "stats/user/"
	redisCalibrationKey  = "stats/calibration"
	fieldStrikes         = "strikes"
	fieldReportsAgainst  = "reportsAgainst"
	fieldReportsAuthored = "reportsAuthored"
	fieldConfirmed       = "confirmedReports"
	fieldSentimentTotal  = "sentimentTotal"
	fieldMessagesSent    = "messagesSent"
)

// Redis-backed StatStore. Each user is a hash; the calibration histogram is a
// single hash with "<upper>/total" and "<upper>/accurate" fields.
type RedisStatStore struct {
	Client *redis.Client
}

var _ StatStore = (*RedisStatStore)(nil)

func NewRedisStatStore(redisURL string) (*RedisStatStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisStatStore{Client: rdb}, nil
}

func userKey(userID string) string {
	return redisUserPrefix + userID
}

func (s *RedisStatStore) AddSentiment(ctx context.Context, userID string, score float64) error {
	// both fields in a single round-trip
	multi := s.Client.Pipeline()
	multi.HIncrByFloat(ctx, userKey(userID), fieldSentimentTotal, score)
	multi.HIncrBy(ctx, userKey(userID), fieldMessagesSent, 1)
	_, err := multi.Exec(ctx)
	return err
}

func (s *RedisStatStore) AddStrike(ctx context.Context, userID string) (int, error) {
	n, err := s.Client.HIncrBy(ctx, userKey(userID), fieldStrikes, 1).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *RedisStatStore) GetStrikes(ctx context.Context, userID string) (int, error) {
	n, err := s.Client.HGet(ctx, userKey(userID), fieldStrikes).Int()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *RedisStatStore) IncrementReportsAgainst(ctx context.Context, userID string) error {
	return s.Client.HIncrBy(ctx, userKey(userID), fieldReportsAgainst, 1).Err()
}

func (s *RedisStatStore) IncrementReportsAuthored(ctx context.Context, userID string) error {
	return s.Client.HIncrBy(ctx, userKey(userID), fieldReportsAuthored, 1).Err()
}

func (s *RedisStatStore) IncrementConfirmedReports(ctx context.Context, userID string) error {
	return s.Client.HIncrBy(ctx, userKey(userID), fieldConfirmed, 1).Err()
}

func (s *RedisStatStore) GetUserStats(ctx context.Context, userID string) (UserStats, error) {
	var out UserStats
	fields, err := s.Client.HGetAll(ctx, userKey(userID)).Result()
	if err != nil {
		return out, err
	}
	for field, raw := range fields {
		switch field {
		case fieldSentimentTotal:
			out.SentimentTotal, err = strconv.ParseFloat(raw, 64)
		case fieldStrikes:
			out.Strikes, err = strconv.Atoi(raw)
		case fieldReportsAgainst:
			out.ReportsAgainst, err = strconv.Atoi(raw)
		case fieldReportsAuthored:
			out.ReportsAuthored, err = strconv.Atoi(raw)
		case fieldConfirmed:
			out.ConfirmedReports, err = strconv.Atoi(raw)
		case fieldMessagesSent:
			out.MessagesSent, err = strconv.Atoi(raw)
		}
		if err != nil {
			return out, fmt.Errorf("parsing user stats field %s: %w", field, err)
		}
	}
	return out, nil
}

func (s *RedisStatStore) AddCase(ctx context.Context, score float64, accurate bool) error {
	upper := BucketUpper(score)
	multi := s.Client.Pipeline()
	multi.HIncrBy(ctx, redisCalibrationKey, fmt.Sprintf("%d/total", upper), 1)
	if accurate {
		multi.HIncrBy(ctx, redisCalibrationKey, fmt.Sprintf("%d/accurate", upper), 1)
	}
	_, err := multi.Exec(ctx)
	return err
}

func (s *RedisStatStore) Overview(ctx context.Context) (string, error) {
	fields, err := s.Client.HGetAll(ctx, redisCalibrationKey).Result()
	if err != nil {
		return "", err
	}
	var buckets [bucketCount]CalibrationBucket
	for upper := 5; upper <= 100; upper += 5 {
		i := upper/5 - 1
		if raw, ok := fields[fmt.Sprintf("%d/total", upper)]; ok {
			buckets[i].Total, err = strconv.Atoi(raw)
			if err != nil {
				return "", err
			}
		}
		if raw, ok := fields[fmt.Sprintf("%d/accurate", upper)]; ok {
			buckets[i].Accurate, err = strconv.Atoi(raw)
			if err != nil {
				return "", err
			}
		}
	}
	return renderOverview(buckets), nil
}
