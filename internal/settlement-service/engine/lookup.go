package engine

// MatchKey é a chave composta (rodada, sequência) do catálogo.
type MatchKey struct {
	Round    string
	Sequence int
}

// Resolution é o que a passada precisa saber de uma partida.
type Resolution struct {
	Status     MatchStatus
	ResultCode string
}

// Push indica partida anulada/cancelada, seja pelo status ou pelo código sentinela.
func (r Resolution) Push() bool {
	if r.Status == MatchVoid || r.Status == MatchCancelled {
		return true
	}
	if r.Status == MatchFinished {
		c := normalizeCode(r.ResultCode)
		return c == PushVoid || c == PushCancelled
	}
	return false
}

// Concluded indica que a perna pode ser decidida nesta passada.
// Partida finished sem código de resultado continua não resolvida.
func (r Resolution) Concluded() bool {
	if r.Push() {
		return true
	}
	return r.Status == MatchFinished && normalizeCode(r.ResultCode) != ""
}

// pushMarker retorna o valor gravado em actual_result para uma perna push
func (r Resolution) pushMarker() string {
	if r.Status == MatchCancelled || normalizeCode(r.ResultCode) == PushCancelled {
		return PushCancelled
	}
	return PushVoid
}

// Lookup é montado por passada; cada rodada vem de uma única leitura em lote.
type Lookup struct {
	byKey map[MatchKey]Resolution
}

func NewLookup(matches []Match) Lookup {
	l := Lookup{byKey: make(map[MatchKey]Resolution, len(matches))}
	l.add(matches)
	return l
}

// add só é chamado entre páginas, sem workers lendo o mapa
func (l Lookup) add(matches []Match) {
	for _, m := range matches {
		l.byKey[MatchKey{Round: m.Round, Sequence: m.Sequence}] = Resolution{
			Status:     m.Status,
			ResultCode: m.ResultCode,
		}
	}
}

func (l Lookup) Resolve(round string, sequence int) (Resolution, bool) {
	r, ok := l.byKey[MatchKey{Round: round, Sequence: sequence}]
	return r, ok
}

func (l Lookup) Len() int { return len(l.byKey) }
