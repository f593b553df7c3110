package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

var (
	predictions  = []string{"HOME", "DRAW", "AWAY"}
	matchOutcome = []string{"scheduled", "finished-empty", "HOME", "DRAW", "AWAY", "void", "cancelled", "missing"}
)

// genSlipAndMatches gera um bilhete pendente e o catálogo da rodada
func genSlipAndMatches(t *rapid.T) (Slip, []Match) {
	n := rapid.IntRange(1, 6).Draw(t, "legs")
	s := Slip{
		ID:         "p",
		Round:      "R1",
		StakeCents: rapid.Int64Range(1, 1_000_000).Draw(t, "stake"),
		Status:     SlipPending,
	}
	var matches []Match
	for i := 1; i <= n; i++ {
		odds := decimal.New(rapid.Int64Range(101, 1000).Draw(t, fmt.Sprintf("odds%d", i)), -2)
		s.Legs = append(s.Legs, Leg{
			SlipID:           s.ID,
			MatchSequence:    i,
			PredictedOutcome: rapid.SampledFrom(predictions).Draw(t, fmt.Sprintf("pred%d", i)),
			Odds:             odds,
		})

		switch o := rapid.SampledFrom(matchOutcome).Draw(t, fmt.Sprintf("match%d", i)); o {
		case "missing":
		case "scheduled":
			matches = append(matches, Match{Round: "R1", Sequence: i, Status: MatchScheduled})
		case "finished-empty":
			matches = append(matches, Match{Round: "R1", Sequence: i, Status: MatchFinished})
		case "void":
			matches = append(matches, Match{Round: "R1", Sequence: i, Status: MatchVoid})
		case "cancelled":
			matches = append(matches, Match{Round: "R1", Sequence: i, Status: MatchCancelled})
		default:
			matches = append(matches, Match{Round: "R1", Sequence: i, Status: MatchFinished, ResultCode: o})
		}
	}
	return s, matches
}

// modelo de referência: combinação AND com pernas push neutras
func expectedVerdict(s Slip, matches []Match) (SlipStatus, int64) {
	byseq := make(map[int]Match, len(matches))
	for _, m := range matches {
		byseq[m.Sequence] = m
	}
	var wrong, open bool
	pushes := 0
	odds := decimal.NewFromInt(1)
	for _, l := range s.Legs {
		m, ok := byseq[l.MatchSequence]
		switch {
		case !ok, m.Status == MatchScheduled, m.Status == MatchFinished && m.ResultCode == "":
			open = true
		case m.Status == MatchVoid, m.Status == MatchCancelled:
			pushes++
		case m.ResultCode == l.PredictedOutcome:
			odds = odds.Mul(l.Odds)
		default:
			wrong = true
		}
	}
	switch {
	case wrong:
		return SlipLost, 0
	case open:
		return SlipPending, 0
	case pushes == len(s.Legs):
		return SlipVoid, s.StakeCents
	default:
		return SlipWon, decimal.NewFromInt(s.StakeCents).Mul(odds).Floor().IntPart()
	}
}

func TestProperty_ReconcileMatchesAndCombination(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, matches := genSlipAndMatches(t)
		wantStatus, wantReturn := expectedVerdict(s, matches)

		v := Reconcile(s, NewLookup(matches))
		if v.Status != wantStatus {
			t.Fatalf("status = %s, want %s", v.Status, wantStatus)
		}
		if v.ActualReturnCents != wantReturn {
			t.Fatalf("return = %d, want %d", v.ActualReturnCents, wantReturn)
		}
		if v.Status == SlipWon && v.ActualReturnCents < 0 {
			t.Fatalf("negative payout %d", v.ActualReturnCents)
		}
	})
}

func TestProperty_ReconcileIgnoresLegOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, matches := genSlipAndMatches(t)
		base := Reconcile(s, NewLookup(matches))

		shuffled := s
		shuffled.Legs = rapid.Permutation(s.Legs).Draw(t, "order")
		got := Reconcile(shuffled, NewLookup(matches))

		if got.Status != base.Status || got.ActualReturnCents != base.ActualReturnCents {
			t.Fatalf("order changed verdict: %s/%d vs %s/%d",
				got.Status, got.ActualReturnCents, base.Status, base.ActualReturnCents)
		}
		if !got.EffectiveOdds.Equal(base.EffectiveOdds) {
			t.Fatalf("order changed odds: %s vs %s", got.EffectiveOdds, base.EffectiveOdds)
		}
		if len(got.LegChanges) != len(base.LegChanges) {
			t.Fatalf("order changed leg changes: %d vs %d", len(got.LegChanges), len(base.LegChanges))
		}
	})
}

func TestProperty_SecondPassIsNoOp(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s, matches := genSlipAndMatches(t)

		m := newMemStore()
		for _, mt := range matches {
			m.putMatch(mt.Round, mt.Sequence, mt.Status, mt.ResultCode)
		}
		m.putSlip(s.ID, "owner", s.Round, s.StakeCents, s.Legs...)

		e := New(zap.NewNop(), m, Config{Workers: rapid.IntRange(1, 4).Draw(t, "workers")})
		first, err := e.Settle(context.Background(), Scope{Rounds: []string{"R1"}})
		if err != nil {
			t.Fatalf("first pass: %v", err)
		}
		calls := m.persistCalls

		second, err := e.Settle(context.Background(), Scope{Rounds: []string{"R1"}})
		if err != nil {
			t.Fatalf("second pass: %v", err)
		}
		if m.persistCalls != calls {
			t.Fatalf("second pass wrote %d times", m.persistCalls-calls)
		}
		if second.MatchesUpdated != 0 || second.Won+second.Lost+second.Void != 0 {
			t.Fatalf("second pass changed state: %+v", second)
		}
		if first.Won+first.Lost+first.Void+first.StillPending != 1 {
			t.Fatalf("first pass lost the slip: %+v", first)
		}

		settled := m.slip(s.ID)
		wantStatus, wantReturn := expectedVerdict(s, matches)
		if settled.Status != wantStatus || settled.ActualReturnCents != wantReturn {
			t.Fatalf("stored %s/%d, want %s/%d", settled.Status, settled.ActualReturnCents, wantStatus, wantReturn)
		}
	})
}
