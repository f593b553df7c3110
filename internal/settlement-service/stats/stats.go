package stats

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/parlay-settlement/internal/settlement-service/engine"
)

// OwnerStats é o consolidado por apostador mantido a cada transição terminal.
// Pending é calculado na leitura, não é acumulado.
type OwnerStats struct {
	OwnerID       string    `json:"ownerId"`
	Won           int64     `json:"won"`
	Lost          int64     `json:"lost"`
	Void          int64     `json:"void"`
	Pending       int64     `json:"pending"`
	StakedCents   int64     `json:"stakedCents"`
	ReturnedCents int64     `json:"returnedCents"`
	HitRate       float64   `json:"hitRate"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Delta é o incremento que uma única transição aplica no consolidado
type Delta struct {
	Won           int64
	Lost          int64
	Void          int64
	StakedCents   int64
	ReturnedCents int64
}

// DeltaFor converte uma transição pending -> terminal em incremento.
// Retorna false para status não terminal.
func DeltaFor(status engine.SlipStatus, stakeCents, returnCents int64) (Delta, bool) {
	d := Delta{StakedCents: stakeCents, ReturnedCents: returnCents}
	switch status {
	case engine.SlipWon:
		d.Won = 1
	case engine.SlipLost:
		d.Lost = 1
		d.ReturnedCents = 0
	case engine.SlipVoid:
		d.Void = 1
	default:
		return Delta{}, false
	}
	return d, true
}

// HitRate = ganhos / (ganhos + perdidos), 4 casas; bilhetes void não entram
func HitRate(won, lost int64) float64 {
	if won+lost == 0 {
		return 0
	}
	return decimal.NewFromInt(won).
		Div(decimal.NewFromInt(won + lost)).
		Round(4).
		InexactFloat64()
}
