package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/parlay-settlement/internal/settlement-service/engine"
)

func TestSummaryCache_SaveAndExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := New(rdb, time.Hour)
	ctx := context.Background()

	_, ok, err := c.Last(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	in := engine.Summary{
		PassID: "p1", Won: 1, Lost: 2, Rounds: []string{"R10"},
		Details: []engine.SlipDetail{{SlipID: "s1", Round: "R10", Status: engine.SlipWon, ActualReturnCents: 54000, LegsUpdated: 3}},
	}
	require.NoError(t, c.SaveLast(ctx, in))

	got, ok, err := c.Last(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, got)

	mr.FastForward(2 * time.Hour)
	_, ok, err = c.Last(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSummaryCache_CorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	require.NoError(t, mr.Set(keyLastSummary, "not-json"))
	_, ok, err := New(rdb, time.Hour).Last(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}
