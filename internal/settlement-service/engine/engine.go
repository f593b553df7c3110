package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/parlay-settlement/pkg/contracts/events"
)

var (
	// ErrScopeRead: não foi possível ler bilhetes/pernas/partidas da passada. Fatal para a invocação.
	ErrScopeRead = errors.New("settlement scope read failed")
	// ErrAlreadySettled: outra passada fez a transição terminal primeiro (check-and-set perdido).
	ErrAlreadySettled = errors.New("slip already settled")
	// ErrInvalidScope: escopo recusado antes de tocar no banco.
	ErrInvalidScope = errors.New("invalid settlement scope")
)

// Store é o contrato de acesso a dados usado pela engine.
type Store interface {
	// PendingSlips retorna até scope.Limit bilhetes pending do escopo, já com as
	// pernas, em ordem de id e com id > scope.After.
	PendingSlips(ctx context.Context, scope Scope) ([]Slip, error)
	// Matches lê em lote o catálogo das rodadas informadas (um único snapshot).
	Matches(ctx context.Context, rounds []string) ([]Match, error)
	// Persist grava as pernas alteradas e, se terminal, a transição do bilhete
	// numa única transação. Retorna quantas pernas mudaram de fato.
	Persist(ctx context.Context, u Update) (legsUpdated int, err error)
}

// Update é o que uma passada decidiu para um bilhete.
type Update struct {
	SlipID            string
	OwnerID           string
	Round             string
	StakeCents        int64
	Status            SlipStatus
	ActualReturnCents int64
	SettledAt         time.Time
	Legs              []LegChange
}

// Config da engine
type Config struct {
	Workers  int // pool de avaliação por bilhete
	MaxSlips int // bilhetes lidos por página
}

// Engine executa passadas de liquidação. Não guarda estado entre passadas.
// Callbacks são opcionais (métricas, notificações).
type Engine struct {
	log   *zap.Logger
	store Store
	cfg   Config
	now   func() time.Time

	OnSettled func(ctx context.Context, ev events.SlipSettled) // após commit
	OnPass    func(s Summary)
	OnError   func(stage string)
}

func New(log *zap.Logger, store Store, cfg Config) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log, store: store, cfg: cfg, now: time.Now}
}

// slipResult é o retorno de um worker para o agregador
type slipResult struct {
	detail         SlipDetail
	status         SlipStatus
	legsUpdated    int
	alreadySettled bool
	err            error
}

// Settle executa uma passada completa sobre o escopo, página a página.
// Falha de leitura é fatal; falhas por bilhete são contadas no Summary.
func (e *Engine) Settle(ctx context.Context, scope Scope) (Summary, error) {
	start := e.now()
	sum := Summary{PassID: uuid.NewString(), Details: []SlipDetail{}}
	if err := scope.validate(); err != nil {
		return sum, err
	}
	scope = scope.normalize(e.cfg.MaxSlips)
	sum.Rounds = scope.Rounds

	var (
		lookup  = NewLookup(nil)
		fetched = make(map[string]struct{}) // rodadas já lidas do catálogo nesta passada
		rounds  = make(map[string]struct{})
		pages   int
	)
	for {
		slips, err := e.store.PendingSlips(ctx, scope)
		if err != nil {
			e.fail("read_slips")
			return sum, fmt.Errorf("%w: pending slips: %w", ErrScopeRead, err)
		}
		if len(slips) == 0 {
			break
		}
		pages++

		var missing []string
		for _, r := range distinctRounds(slips) {
			rounds[r] = struct{}{}
			if _, ok := fetched[r]; !ok {
				missing = append(missing, r)
			}
		}
		if len(scope.Rounds) > 0 && len(fetched) == 0 {
			// escopo explícito: um único snapshot do catálogo para a passada
			missing = scope.Rounds
		}
		if len(missing) > 0 {
			matches, err := e.store.Matches(ctx, missing)
			if err != nil {
				e.fail("read_matches")
				return sum, fmt.Errorf("%w: matches: %w", ErrScopeRead, err)
			}
			lookup.add(matches)
			for _, r := range missing {
				fetched[r] = struct{}{}
			}
		}

		e.log.Debug("settlement page started",
			zap.String("passId", sum.PassID),
			zap.Int("page", pages),
			zap.Int("slips", len(slips)),
			zap.Int("matches", lookup.Len()),
		)

		processed := 0
		for r := range e.dispatch(ctx, slips, lookup, sum.PassID) {
			processed++
			sum.add(r)
		}
		if skipped := len(slips) - processed; skipped > 0 {
			// ctx cancelado: bilhetes não despachados ficam para a próxima passada
			sum.StillPending += skipped
			e.log.Warn("settlement pass interrupted",
				zap.String("passId", sum.PassID), zap.Int("skipped", skipped), zap.Error(ctx.Err()))
		}

		if scope.Limit <= 0 || len(slips) < scope.Limit || ctx.Err() != nil {
			break
		}
		scope.After = slips[len(slips)-1].ID
	}

	if len(scope.Rounds) == 0 {
		sum.Rounds = sortedKeys(rounds)
	}
	sort.Slice(sum.Details, func(i, j int) bool { return sum.Details[i].SlipID < sum.Details[j].SlipID })
	sum.DurationMs = e.now().Sub(start).Milliseconds()
	e.finish(sum)
	return sum, nil
}

// dispatch distribui os bilhetes para o pool e devolve um canal com os resultados
func (e *Engine) dispatch(ctx context.Context, slips []Slip, lookup Lookup, passID string) <-chan slipResult {
	jobs := make(chan Slip)
	results := make(chan slipResult)

	// bilhetes já despachados terminam mesmo com ctx cancelado
	persistCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < e.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				results <- e.settleSlip(persistCtx, s, lookup, passID)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, s := range slips {
			select {
			case jobs <- s:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

func (e *Engine) settleSlip(ctx context.Context, s Slip, lookup Lookup, passID string) slipResult {
	v := Reconcile(s, lookup)
	r := slipResult{
		status: v.Status,
		detail: SlipDetail{SlipID: s.ID, Round: s.Round, Status: v.Status},
	}

	for _, seq := range v.Missing {
		e.log.Warn("leg references unknown match",
			zap.String("slipId", s.ID), zap.String("round", s.Round), zap.Int("sequence", seq))
	}
	for _, c := range v.LegChanges {
		if prev := legBySequence(s.Legs, c.MatchSequence); prev != nil && prev.Outcome != LegUnresolved {
			e.log.Warn("leg annotation revised",
				zap.String("slipId", s.ID),
				zap.Int("sequence", c.MatchSequence),
				zap.String("from", prev.Outcome.String()),
				zap.String("to", c.Outcome.String()),
			)
		}
	}

	if v.Status == SlipPending && len(v.LegChanges) == 0 {
		return r
	}

	settledAt := e.now().UTC()
	n, err := e.store.Persist(ctx, Update{
		SlipID:            s.ID,
		OwnerID:           s.OwnerID,
		Round:             s.Round,
		StakeCents:        s.StakeCents,
		Status:            v.Status,
		ActualReturnCents: v.ActualReturnCents,
		SettledAt:         settledAt,
		Legs:              v.LegChanges,
	})
	switch {
	case errors.Is(err, ErrAlreadySettled):
		e.log.Info("slip settled by concurrent pass", zap.String("slipId", s.ID))
		r.alreadySettled = true
		r.detail.Status = SlipPending
		r.detail.Error = err.Error()
		return r
	case err != nil:
		e.log.Error("persist slip", zap.String("slipId", s.ID), zap.String("passId", passID), zap.Error(err))
		e.fail("persist")
		r.err = err
		r.detail.Status = SlipPending
		r.detail.Error = err.Error()
		return r
	}

	r.legsUpdated = n
	r.detail.LegsUpdated = n
	if v.Status.Terminal() {
		r.detail.ActualReturnCents = v.ActualReturnCents
		if e.OnSettled != nil {
			e.OnSettled(ctx, events.SlipSettled{
				SlipID:            s.ID,
				OwnerID:           s.OwnerID,
				Round:             s.Round,
				Status:            string(v.Status),
				StakeCents:        s.StakeCents,
				ActualReturnCents: v.ActualReturnCents,
				SettledAt:         settledAt,
				PassID:            passID,
			})
		}
	}
	return r
}

func (e *Engine) fail(stage string) {
	if e.OnError != nil {
		e.OnError(stage)
	}
}

func (e *Engine) finish(sum Summary) {
	e.log.Info("settlement pass finished",
		zap.String("passId", sum.PassID),
		zap.Int("won", sum.Won),
		zap.Int("lost", sum.Lost),
		zap.Int("void", sum.Void),
		zap.Int("stillPending", sum.StillPending),
		zap.Int("alreadySettled", sum.AlreadySettled),
		zap.Int("errors", sum.Errors),
		zap.Int("matchesUpdated", sum.MatchesUpdated),
		zap.Int64("durationMs", sum.DurationMs),
	)
	if e.OnPass != nil {
		e.OnPass(sum)
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func distinctRounds(slips []Slip) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range slips {
		if _, ok := seen[s.Round]; ok {
			continue
		}
		seen[s.Round] = struct{}{}
		out = append(out, s.Round)
	}
	sort.Strings(out)
	return out
}

func legBySequence(legs []Leg, seq int) *Leg {
	for i := range legs {
		if legs[i].MatchSequence == seq {
			return &legs[i]
		}
	}
	return nil
}
