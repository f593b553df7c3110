package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/parlay-settlement/pkg/contracts/events"
)

// MessageWriter é satisfeito por *kafka.Writer
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaPublisher struct {
	Writer MessageWriter
	Topic  string
}

func NewKafkaPublisher(w MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topic: topic}
}

// PublishSlipSettled usa o slipId como chave: eventos do mesmo bilhete caem na mesma partição
func (p *KafkaPublisher) PublishSlipSettled(ctx context.Context, e events.SlipSettled) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.SlipID),
		Value: b,
		Time:  time.Now(),
	})
}
