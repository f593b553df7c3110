package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/parlay-settlement/pkg/contracts/events"
)

type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

// PublishSettled repassa a transição terminal para os assinantes do /ws
func (b *RedisBroadcaster) PublishSettled(ctx context.Context, ev events.SlipSettled) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}
