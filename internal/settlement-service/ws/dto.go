package ws

import "github.com/radieske/parlay-settlement/pkg/contracts/events"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
type ClientMsg struct {
	Type    string `json:"type"`    // subscribe | unsubscribe | ping
	OwnerID string `json:"ownerId"` // requerido em subscribe/unsubscribe
}

// SettledUpdate é o que o assinante recebe a cada bilhete liquidado
type SettledUpdate struct {
	Type    string             `json:"type"` // sempre "slip_settled"
	OwnerID string             `json:"ownerId"`
	Payload events.SlipSettled `json:"payload"`
}
