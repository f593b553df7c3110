package engine

// Summary é o resultado de uma passada, para observabilidade (não para controle de fluxo).
type Summary struct {
	PassID         string       `json:"passId"`
	Won            int          `json:"won"`
	Lost           int          `json:"lost"`
	Void           int          `json:"void"`
	StillPending   int          `json:"stillPending"`
	AlreadySettled int          `json:"alreadySettled"`
	Errors         int          `json:"errors"`
	MatchesUpdated int          `json:"matchesUpdated"` // pernas anotadas nesta passada
	Rounds         []string     `json:"rounds"`
	DurationMs     int64        `json:"durationMs"`
	Details        []SlipDetail `json:"details"`
}

// SlipDetail só é registrado para bilhetes que mudaram algo ou falharam.
type SlipDetail struct {
	SlipID            string     `json:"slipId"`
	Round             string     `json:"round"`
	Status            SlipStatus `json:"status"`
	ActualReturnCents int64      `json:"actualReturn"`
	LegsUpdated       int        `json:"legsUpdated"`
	Error             string     `json:"error,omitempty"`
}

func (s *Summary) add(r slipResult) {
	s.MatchesUpdated += r.legsUpdated

	switch {
	case r.err != nil:
		s.Errors++
		s.StillPending++
	case r.alreadySettled:
		s.AlreadySettled++
	case r.status == SlipWon:
		s.Won++
	case r.status == SlipLost:
		s.Lost++
	case r.status == SlipVoid:
		s.Void++
	default:
		s.StillPending++
	}

	if r.err != nil || r.alreadySettled || r.status.Terminal() || r.legsUpdated > 0 {
		s.Details = append(s.Details, r.detail)
	}
}
