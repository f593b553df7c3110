package events

import "time"

// Evento publicado pela ingestão quando uma partida termina ou é anulada.
// Serve apenas como gatilho: o catálogo de partidas continua sendo a fonte da verdade.
type MatchConcluded struct {
	Round      string    `json:"round"`
	Sequence   int       `json:"sequence"`
	Status     string    `json:"status"`               // finished | void | cancelled
	ResultCode string    `json:"resultCode,omitempty"` // HOME | DRAW | AWAY
	Ts         time.Time `json:"ts"`
}
