package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/parlay-settlement/pkg/contracts/events"
)

type KafkaPublisher interface {
	PublishSlipSettled(ctx context.Context, e events.SlipSettled) error
}

type RedisBroadcaster interface {
	PublishSettled(ctx context.Context, e events.SlipSettled) error
}

// Notifier é o OnSettled da engine: roda depois do commit e nunca desfaz a liquidação.
// Falhas são apenas registradas; o consolidado já foi atualizado na transação.
type Notifier struct {
	Log     *zap.Logger
	Kafka   KafkaPublisher   // opcional
	Redis   RedisBroadcaster // opcional
	Timeout time.Duration

	OnFailure func(sink string)
}

func (n *Notifier) SlipSettled(ctx context.Context, ev events.SlipSettled) {
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	if n.Kafka != nil {
		kctx, cancel := context.WithTimeout(ctx, timeout)
		if err := n.Kafka.PublishSlipSettled(kctx, ev); err != nil {
			n.Log.Warn("slip_settled publish failed", zap.String("slipId", ev.SlipID), zap.Error(err))
			n.failed("kafka")
		}
		cancel()
	}

	if n.Redis != nil {
		rctx, cancel := context.WithTimeout(ctx, timeout)
		if err := n.Redis.PublishSettled(rctx, ev); err != nil {
			n.Log.Warn("ws broadcast publish failed", zap.String("slipId", ev.SlipID), zap.Error(err))
			n.failed("redis")
		}
		cancel()
	}
}

func (n *Notifier) failed(sink string) {
	if n.OnFailure != nil {
		n.OnFailure(sink)
	}
}
