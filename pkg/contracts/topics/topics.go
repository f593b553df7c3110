package topics

const (
	// Partidas
	MatchConcluded    = "match_concluded"
	MatchConcludedDLQ = "match_concluded_dlq"

	// Bilhetes (slips)
	SlipSettled = "slip_settled"

	// Redis Pub/Sub
	SlipSettledBroadcast = "slip_settled_broadcast"
)
