package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// memStore implementa Store em memória com a mesma disciplina de check-and-set do Postgres.
type memStore struct {
	mu      sync.Mutex
	matches map[MatchKey]Match
	slips   map[string]*Slip

	slipsErr    error
	matchesErr  error
	persistErr  map[string]error // por slipID
	persistHook func(u Update)   // roda antes do check-and-set

	persistCalls int
	matchReads   int
	slipReads    int
}

func newMemStore() *memStore {
	return &memStore{
		matches:    make(map[MatchKey]Match),
		slips:      make(map[string]*Slip),
		persistErr: make(map[string]error),
	}
}

func (m *memStore) putMatch(round string, seq int, st MatchStatus, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches[MatchKey{round, seq}] = Match{Round: round, Sequence: seq, Status: st, ResultCode: result}
}

// putSlip cria um bilhete pendente; cada perna é (seq, palpite, odd)
func (m *memStore) putSlip(id, owner, round string, stake int64, legs ...Leg) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Slip{ID: id, OwnerID: owner, Round: round, StakeCents: stake, Status: SlipPending, TotalOdds: decimal.NewFromInt(1)}
	for _, l := range legs {
		l.SlipID = id
		s.Legs = append(s.Legs, l)
		s.TotalOdds = s.TotalOdds.Mul(l.Odds)
	}
	m.slips[id] = s
}

func (m *memStore) slip(id string) Slip {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSlip(*m.slips[id])
}

func (m *memStore) PendingSlips(_ context.Context, scope Scope) ([]Slip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slipReads++
	if m.slipsErr != nil {
		return nil, m.slipsErr
	}
	rounds := make(map[string]bool, len(scope.Rounds))
	for _, r := range scope.Rounds {
		rounds[r] = true
	}
	ids := make([]string, 0, len(m.slips))
	for id := range m.slips {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Slip
	for _, id := range ids {
		s := m.slips[id]
		if s.Status != SlipPending || id <= scope.After {
			continue
		}
		if len(rounds) > 0 && !rounds[s.Round] {
			continue
		}
		out = append(out, cloneSlip(*s))
		if scope.Limit > 0 && len(out) == scope.Limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) Matches(_ context.Context, rounds []string) ([]Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchReads++
	if m.matchesErr != nil {
		return nil, m.matchesErr
	}
	in := make(map[string]bool, len(rounds))
	for _, r := range rounds {
		in[r] = true
	}
	var out []Match
	for _, mt := range m.matches {
		if in[mt.Round] {
			out = append(out, mt)
		}
	}
	return out, nil
}

func (m *memStore) Persist(_ context.Context, u Update) (int, error) {
	if m.persistHook != nil {
		m.persistHook(u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistCalls++
	if err := m.persistErr[u.SlipID]; err != nil {
		return 0, err
	}
	s := m.slips[u.SlipID]
	if s.Status != SlipPending {
		return 0, ErrAlreadySettled
	}

	n := 0
	for _, c := range u.Legs {
		for i := range s.Legs {
			l := &s.Legs[i]
			if l.MatchSequence != c.MatchSequence {
				continue
			}
			if l.ActualResult != c.ActualResult || l.Outcome != c.Outcome {
				l.ActualResult, l.Outcome = c.ActualResult, c.Outcome
				n++
			}
		}
	}
	if u.Status.Terminal() {
		at := u.SettledAt
		s.Status = u.Status
		s.ActualReturnCents = u.ActualReturnCents
		s.SettledAt = &at
	}
	return n, nil
}

func cloneSlip(s Slip) Slip {
	legs := make([]Leg, len(s.Legs))
	copy(legs, s.Legs)
	s.Legs = legs
	return s
}

func leg(seq int, predicted, odds string) Leg {
	return Leg{MatchSequence: seq, PredictedOutcome: predicted, Odds: decimal.RequireFromString(odds)}
}
