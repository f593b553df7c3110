package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/parlay-settlement/internal/settlement-service/engine"
)

// Settler é satisfeito por *engine.Engine
type Settler interface {
	Settle(ctx context.Context, scope engine.Scope) (engine.Summary, error)
}

// Ticker dispara uma passada completa a cada Interval.
// Se a passada anterior ainda estiver rodando o tick é descartado.
type Ticker struct {
	Log      *zap.Logger
	Settler  Settler
	Interval time.Duration

	running atomic.Bool
}

// Run bloqueia até ctx ser cancelado. Interval <= 0 desliga o agendamento.
func (t *Ticker) Run(ctx context.Context) {
	if t.Interval <= 0 {
		t.Log.Info("settlement scheduler disabled")
		return
	}
	tk := time.NewTicker(t.Interval)
	defer tk.Stop()

	t.Log.Info("settlement scheduler started", zap.Duration("interval", t.Interval))
	for {
		select {
		case <-ctx.Done():
			t.Log.Info("settlement scheduler stopped")
			return
		case <-tk.C:
			t.Tick(ctx)
		}
	}
}

// Tick executa uma passada sem escopo; retorna false se já havia uma em andamento
func (t *Ticker) Tick(ctx context.Context) bool {
	if !t.running.CompareAndSwap(false, true) {
		t.Log.Debug("previous settlement pass still running, skipping tick")
		return false
	}
	defer t.running.Store(false)

	if _, err := t.Settler.Settle(ctx, engine.Scope{}); err != nil {
		t.Log.Error("scheduled settlement pass failed", zap.Error(err))
	}
	return true
}
