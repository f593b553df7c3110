package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MatchStatus é o estado de uma partida no catálogo (escrito apenas pela ingestão)
type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchFinished  MatchStatus = "finished"
	MatchVoid      MatchStatus = "void"
	MatchCancelled MatchStatus = "cancelled"
)

// Marcadores gravados em slip_legs.actual_result para pernas anuladas (push)
const (
	PushVoid      = "VOID"
	PushCancelled = "CANCELLED"
)

// Match é uma linha do catálogo; (Round, Sequence) é a chave natural.
type Match struct {
	Round      string
	Sequence   int
	Status     MatchStatus
	ResultCode string
}

// SlipStatus é o estado de um bilhete. Só existe a transição pending -> terminal.
type SlipStatus string

const (
	SlipPending SlipStatus = "pending"
	SlipWon     SlipStatus = "won"
	SlipLost    SlipStatus = "lost"
	SlipVoid    SlipStatus = "void"
)

func (s SlipStatus) Terminal() bool {
	return s == SlipWon || s == SlipLost || s == SlipVoid
}

// LegOutcome substitui o booleano nulo (is_correct) por uma variante explícita.
type LegOutcome int

const (
	LegUnresolved LegOutcome = iota
	LegPush
	LegCorrect
	LegIncorrect
)

func (o LegOutcome) String() string {
	switch o {
	case LegPush:
		return "push"
	case LegCorrect:
		return "correct"
	case LegIncorrect:
		return "incorrect"
	default:
		return "unresolved"
	}
}

// Leg é uma seleção (perna) de um bilhete.
// ActualResult vazio significa que a perna ainda não foi anotada.
type Leg struct {
	SlipID           string
	MatchSequence    int
	PredictedOutcome string
	Odds             decimal.Decimal
	ActualResult     string
	Outcome          LegOutcome
}

// Slip é um bilhete combinado. Legs são criadas junto com o bilhete e nunca mudam de tamanho.
type Slip struct {
	ID                string
	OwnerID           string
	Round             string
	StakeCents        int64
	TotalOdds         decimal.Decimal
	Status            SlipStatus
	ActualReturnCents int64
	SettledAt         *time.Time
	Legs              []Leg
}

// Scope limita uma passada. Rounds vazio = todas as rodadas com bilhetes pendentes.
// Limit é o tamanho da página lida por vez; a passada percorre o escopo inteiro.
type Scope struct {
	Rounds []string
	Limit  int
	After  string // cursor por id; preenchido pela engine entre páginas
}

const (
	maxScopeRounds = 100
	maxRoundLen    = 64
)

// validate roda sobre o escopo recebido, antes de normalize
func (s Scope) validate() error {
	if len(s.Rounds) > maxScopeRounds {
		return fmt.Errorf("%w: %d rounds (max %d)", ErrInvalidScope, len(s.Rounds), maxScopeRounds)
	}
	for _, r := range s.Rounds {
		r = strings.TrimSpace(r)
		if r == "" {
			return fmt.Errorf("%w: empty round", ErrInvalidScope)
		}
		if len(r) > maxRoundLen {
			return fmt.Errorf("%w: round longer than %d chars", ErrInvalidScope, maxRoundLen)
		}
	}
	return nil
}

// normalize remove rodadas duplicadas e aplica o tamanho de página padrão
func (s Scope) normalize(defaultLimit int) Scope {
	out := Scope{Limit: s.Limit}
	if out.Limit <= 0 || (defaultLimit > 0 && out.Limit > defaultLimit) {
		out.Limit = defaultLimit
	}
	seen := make(map[string]struct{}, len(s.Rounds))
	for _, r := range s.Rounds {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out.Rounds = append(out.Rounds, r)
	}
	return out
}

func normalizeCode(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}
