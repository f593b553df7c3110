package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/parlay-settlement/pkg/contracts/events"
)

// Broadcaster recebe as liquidações lidas do Redis (o Hub, em produção)
type Broadcaster interface {
	Broadcast(ev events.SlipSettled)
}

// StartRedisSubscriber assina o canal e repassa cada liquidação ao Hub.
// Retorna depois que a assinatura foi confirmada pelo Redis.
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub Broadcaster) error {
	sub := r.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev events.SlipSettled
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Warn("ws subscriber unmarshal error", zap.Error(err))
					continue
				}
				hub.Broadcast(ev)
			}
		}
	}()
	return nil
}
