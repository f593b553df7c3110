package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/parlay-settlement/internal/settlement-service/engine"
)

const keyLastSummary = "settlement:summary:last"

// SummaryCache guarda o resumo da última passada para GET /v1/settlement/last
type SummaryCache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{R: r, TTL: ttl}
}

func (c *SummaryCache) SaveLast(ctx context.Context, s engine.Summary) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyLastSummary, b, c.TTL).Err()
}

// Last retorna false se não houver passada registrada (ou se expirou)
func (c *SummaryCache) Last(ctx context.Context) (engine.Summary, bool, error) {
	var s engine.Summary
	b, err := c.R.Get(ctx, keyLastSummary).Bytes()
	if err == redis.Nil {
		return s, false, nil
	}
	if err != nil {
		return s, false, err
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, false, err
	}
	return s, true, nil
}
