package events

import "time"

// Evento emitido após a transição terminal de um bilhete (pending -> won|lost|void).
// Publicado somente depois do commit; a chave da mensagem é o SlipID.
type SlipSettled struct {
	SlipID            string    `json:"slipId"`
	OwnerID           string    `json:"ownerId"`
	Round             string    `json:"round"`
	Status            string    `json:"status"` // "won" | "lost" | "void"
	StakeCents        int64     `json:"stakeCents"`
	ActualReturnCents int64     `json:"actualReturnCents"`
	SettledAt         time.Time `json:"settledAt"`
	PassID            string    `json:"passId"`
}
