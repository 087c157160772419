package cache

import (
	"context"
	"encoding/json"
	"time"

	"AxPredict/internal/domain/models"
	applogger "AxPredict/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a best-effort second cache level shared between replicas.
// Failures degrade to a miss; the in-memory level is authoritative.
type RedisCache struct {
	client *redis.Client
	prefix string
	l      *applogger.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(addr, password string, db int, l *applogger.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{client: client, prefix: "axpredict:candles:", l: l}, nil
}

type redisCandle struct {
	T int64   `json:"t"`
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

// Get looks up key; any error or decode failure is a miss.
func (r *RedisCache) Get(key string) ([]models.Candle, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}

	var rows []redisCandle
	if err := json.Unmarshal(b, &rows); err != nil {
		r.l.Warn("redis cache: bad payload", applogger.String("key", key), applogger.Error(err))
		return nil, false
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		candles = append(candles, models.Candle{
			Time:   time.UnixMilli(row.T).UTC(),
			Open:   row.O,
			High:   row.H,
			Low:    row.L,
			Close:  row.C,
			Volume: row.V,
		})
	}
	return candles, true
}

// Set stores candles under key with ttl, best effort.
func (r *RedisCache) Set(key string, candles []models.Candle, ttl time.Duration) {
	rows := make([]redisCandle, 0, len(candles))
	for _, c := range candles {
		rows = append(rows, redisCandle{
			T: c.Time.UnixMilli(),
			O: c.Open,
			H: c.High,
			L: c.Low,
			C: c.Close,
			V: c.Volume,
		})
	}

	b, err := json.Marshal(rows)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Set(ctx, r.prefix+key, b, ttl).Err(); err != nil {
		r.l.Warn("redis cache: set failed", applogger.String("key", key), applogger.Error(err))
	}
}

// Close releases the client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
