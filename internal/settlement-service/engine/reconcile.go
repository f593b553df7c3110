package engine

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

// LegChange é uma anotação de perna que difere do que está gravado.
type LegChange struct {
	MatchSequence int
	ActualResult  string
	Outcome       LegOutcome
}

// Verdict é o resultado puro da avaliação de um bilhete contra o catálogo.
// Status == SlipPending significa que só as LegChanges devem ser persistidas.
type Verdict struct {
	SlipID            string
	Status            SlipStatus
	EffectiveOdds     decimal.Decimal
	ActualReturnCents int64
	LegChanges        []LegChange
	Missing           []int // sequências sem partida no catálogo
}

// Reconcile avalia um bilhete pendente. Não faz I/O e não depende da ordem das pernas.
//
// Uma perna errada decide LOST mesmo com outras pernas em aberto; pernas push
// ficam fora do produto das odds. Bilhete sem pernas é LOST.
func Reconcile(s Slip, l Lookup) Verdict {
	v := Verdict{SlipID: s.ID, Status: SlipPending, EffectiveOdds: one}
	if len(s.Legs) == 0 {
		v.Status = SlipLost
		return v
	}

	var (
		wrong      bool
		unresolved bool
		pushes     int
		odds       = one
	)

	for _, leg := range s.Legs {
		res, ok := l.Resolve(s.Round, leg.MatchSequence)
		if !ok {
			v.Missing = append(v.Missing, leg.MatchSequence)
			unresolved = true
			continue
		}
		if !res.Concluded() {
			unresolved = true
			continue
		}

		var (
			actual  string
			outcome LegOutcome
		)
		switch {
		case res.Push():
			actual, outcome = res.pushMarker(), LegPush
			pushes++
		case normalizeCode(leg.PredictedOutcome) == normalizeCode(res.ResultCode):
			actual, outcome = normalizeCode(res.ResultCode), LegCorrect
			odds = odds.Mul(leg.Odds)
		default:
			actual, outcome = normalizeCode(res.ResultCode), LegIncorrect
			wrong = true
		}

		if leg.ActualResult != actual || leg.Outcome != outcome {
			v.LegChanges = append(v.LegChanges, LegChange{
				MatchSequence: leg.MatchSequence,
				ActualResult:  actual,
				Outcome:       outcome,
			})
		}
	}

	switch {
	case wrong:
		v.Status = SlipLost
	case unresolved:
		v.Status = SlipPending
	case pushes == len(s.Legs):
		// todas as pernas anuladas: devolve a aposta
		v.Status = SlipVoid
		v.ActualReturnCents = s.StakeCents
	default:
		v.Status = SlipWon
		v.EffectiveOdds = odds
		v.ActualReturnCents = Payout(s.StakeCents, odds)
	}
	return v
}

// Payout = floor(stake × odds), em centavos.
func Payout(stakeCents int64, odds decimal.Decimal) int64 {
	return decimal.NewFromInt(stakeCents).Mul(odds).Floor().IntPart()
}
