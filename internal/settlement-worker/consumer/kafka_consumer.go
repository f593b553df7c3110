package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/parlay-settlement/internal/settlement-service/engine"
	sharedkafka "github.com/radieske/parlay-settlement/internal/shared/kafka"
	"github.com/radieske/parlay-settlement/pkg/contracts/events"
)

// MessageReader é satisfeito por *kafka.Reader
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// MessageWriter é satisfeito por *kafka.Writer
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Settler interface {
	Settle(ctx context.Context, scope engine.Scope) (engine.Summary, error)
}

// Processor consome match_concluded e dispara uma passada restrita à rodada da partida.
// O evento é só gatilho: o veredito sai do catálogo lido pela engine.
type Processor struct {
	Log     *zap.Logger
	Reader  MessageReader
	DLQ     MessageWriter
	Settler Settler

	OnConsumed func()       // métricas
	OnSettled  func()       // passada concluída
	OnError    func(string) // métricas por fase
}

// Run inicia o loop de consumo; retorna quando ctx é cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.Handle(ctx, m)
	}
}

// Handle processa uma mensagem; payload inválido vai para a DLQ
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	ev, err := decode(m.Value)
	if err != nil {
		p.Log.Warn("invalid match_concluded message", zap.Error(err), zap.Int64("offset", m.Offset))
		p.fail("decode")
		p.toDLQ(ctx, m, err.Error())
		return
	}

	if ev.Status == string(engine.MatchScheduled) {
		p.Log.Debug("match not concluded, ignoring", zap.String("round", ev.Round), zap.Int("sequence", ev.Sequence))
		return
	}

	sum, err := p.Settler.Settle(ctx, engine.Scope{Rounds: []string{ev.Round}})
	if errors.Is(err, engine.ErrInvalidScope) {
		// rodada inválida não se corrige em outra passada
		p.Log.Warn("match_concluded with invalid round", zap.String("round", ev.Round), zap.Error(err))
		p.fail("invalid_scope")
		p.toDLQ(ctx, m, err.Error())
		return
	}
	if err != nil {
		// próxima passada agendada cobre a rodada
		p.Log.Error("settlement pass failed", zap.String("round", ev.Round), zap.Error(err))
		p.fail("settle")
		return
	}
	p.Log.Info("round settled from match event",
		zap.String("round", ev.Round),
		zap.Int("sequence", ev.Sequence),
		zap.String("passId", sum.PassID),
		zap.Int("won", sum.Won),
		zap.Int("lost", sum.Lost),
		zap.Int("void", sum.Void),
	)
	if p.OnSettled != nil {
		p.OnSettled()
	}
}

func decode(b []byte) (events.MatchConcluded, error) {
	var ev events.MatchConcluded
	if err := json.Unmarshal(b, &ev); err != nil {
		return ev, fmt.Errorf("decode: %w", err)
	}
	ev.Round = strings.TrimSpace(ev.Round)
	ev.Status = strings.ToLower(strings.TrimSpace(ev.Status))
	if ev.Round == "" {
		return ev, fmt.Errorf("missing round")
	}
	if ev.Sequence <= 0 {
		return ev, fmt.Errorf("invalid sequence %d", ev.Sequence)
	}
	return ev, nil
}

func (p *Processor) toDLQ(ctx context.Context, m kafka.Message, reason string) {
	if p.DLQ == nil {
		return
	}
	if err := p.DLQ.WriteMessages(ctx, sharedkafka.DLQMessage(m, reason)); err != nil {
		p.Log.Error("dlq publish failed", zap.Error(err))
		p.fail("dlq")
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
