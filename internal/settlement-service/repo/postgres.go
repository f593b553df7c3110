package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/radieske/parlay-settlement/internal/settlement-service/engine"
	"github.com/radieske/parlay-settlement/internal/settlement-service/stats"
)

var ErrNotFound = errors.New("not found")

// Postgres implementa engine.Store e a leitura do consolidado por apostador
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// PendingSlips lê uma página de bilhetes pendentes e suas pernas num único snapshot
// (REPEATABLE READ). Paginação por id a partir de scope.After.
// Rodadas vazias = todas; Limit <= 0 = sem limite.
func (p *Postgres) PendingSlips(ctx context.Context, scope engine.Scope) ([]engine.Slip, error) {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rounds := scope.Rounds
	if rounds == nil {
		rounds = []string{}
	}
	var limit any
	if scope.Limit > 0 {
		limit = scope.Limit
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, owner_id, round, stake_cents, total_odds, status, actual_return_cents
		FROM slips
		WHERE status = 'pending'
		  AND (cardinality($1::text[]) = 0 OR round = ANY($1::text[]))
		  AND id > $3
		ORDER BY id
		LIMIT $2`, pq.Array(rounds), limit, scope.After)
	if err != nil {
		return nil, fmt.Errorf("query slips: %w", err)
	}

	var (
		slips []engine.Slip
		ids   []string
	)
	for rows.Next() {
		var s engine.Slip
		var status string
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Round, &s.StakeCents, &s.TotalOdds, &status, &s.ActualReturnCents); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan slip: %w", err)
		}
		s.Status = engine.SlipStatus(status)
		slips = append(slips, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(slips) == 0 {
		return nil, nil
	}

	legs, err := p.legs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	for i := range slips {
		slips[i].Legs = legs[slips[i].ID]
	}
	return slips, nil
}

func (p *Postgres) legs(ctx context.Context, tx *sql.Tx, slipIDs []string) (map[string][]engine.Leg, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT slip_id, match_sequence, predicted_outcome, odds, actual_result, is_correct
		FROM slip_legs
		WHERE slip_id = ANY($1::text[])
		ORDER BY slip_id, match_sequence`, pq.Array(slipIDs))
	if err != nil {
		return nil, fmt.Errorf("query legs: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]engine.Leg, len(slipIDs))
	for rows.Next() {
		var (
			l       engine.Leg
			actual  sql.NullString
			correct sql.NullBool
		)
		if err := rows.Scan(&l.SlipID, &l.MatchSequence, &l.PredictedOutcome, &l.Odds, &actual, &correct); err != nil {
			return nil, fmt.Errorf("scan leg: %w", err)
		}
		l.ActualResult, l.Outcome = decodeOutcome(actual, correct)
		out[l.SlipID] = append(out[l.SlipID], l)
	}
	return out, rows.Err()
}

// Matches lê o catálogo das rodadas com um único SELECT
func (p *Postgres) Matches(ctx context.Context, rounds []string) ([]engine.Match, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT round, sequence, status, result_code
		FROM matches
		WHERE round = ANY($1::text[])`, pq.Array(rounds))
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var out []engine.Match
	for rows.Next() {
		var (
			m      engine.Match
			status string
			result sql.NullString
		)
		if err := rows.Scan(&m.Round, &m.Sequence, &status, &result); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.Status = engine.MatchStatus(strings.ToLower(strings.TrimSpace(status)))
		m.ResultCode = result.String
		out = append(out, m)
	}
	return out, rows.Err()
}

// Persist grava pernas e transição terminal na mesma transação.
// A transição é check-and-set em status='pending'; o consolidado só é
// incrementado quando essa linha foi de fato alterada.
func (p *Postgres) Persist(ctx context.Context, u engine.Update) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	updated := 0
	for _, c := range u.Legs {
		actual, correct := encodeOutcome(c)
		res, err := tx.ExecContext(ctx, `
			UPDATE slip_legs l
			SET actual_result = $3::varchar, is_correct = $4::boolean
			FROM slips s
			WHERE l.slip_id = $1 AND l.match_sequence = $2
			  AND s.id = l.slip_id AND s.status = 'pending'
			  AND (l.actual_result IS DISTINCT FROM $3::varchar OR l.is_correct IS DISTINCT FROM $4::boolean)`,
			u.SlipID, c.MatchSequence, actual, correct)
		if err != nil {
			return 0, fmt.Errorf("update leg %d: %w", c.MatchSequence, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		updated += int(n)
	}

	if u.Status.Terminal() {
		res, err := tx.ExecContext(ctx, `
			UPDATE slips
			SET status = $2, actual_return_cents = $3, settled_at = $4
			WHERE id = $1 AND status = 'pending'`,
			u.SlipID, string(u.Status), u.ActualReturnCents, u.SettledAt)
		if err != nil {
			return 0, fmt.Errorf("update slip: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, engine.ErrAlreadySettled
		}

		if d, ok := stats.DeltaFor(u.Status, u.StakeCents, u.ActualReturnCents); ok {
			if err := applyStats(ctx, tx, u, d); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return updated, nil
}

func applyStats(ctx context.Context, tx *sql.Tx, u engine.Update, d stats.Delta) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO owner_stats
		  (owner_id, won_count, lost_count, void_count, staked_cents, returned_cents, hit_rate, updated_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (owner_id) DO UPDATE SET
		  won_count      = owner_stats.won_count + EXCLUDED.won_count,
		  lost_count     = owner_stats.lost_count + EXCLUDED.lost_count,
		  void_count     = owner_stats.void_count + EXCLUDED.void_count,
		  staked_cents   = owner_stats.staked_cents + EXCLUDED.staked_cents,
		  returned_cents = owner_stats.returned_cents + EXCLUDED.returned_cents,
		  hit_rate       = CASE
		    WHEN owner_stats.won_count + EXCLUDED.won_count + owner_stats.lost_count + EXCLUDED.lost_count = 0 THEN 0
		    ELSE ROUND((owner_stats.won_count + EXCLUDED.won_count)::numeric
		         / (owner_stats.won_count + EXCLUDED.won_count + owner_stats.lost_count + EXCLUDED.lost_count), 4)
		  END,
		  updated_at     = EXCLUDED.updated_at`,
		u.OwnerID, d.Won, d.Lost, d.Void, d.StakedCents, d.ReturnedCents,
		stats.HitRate(d.Won, d.Lost), u.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("upsert owner stats: %w", err)
	}
	return nil
}

// OwnerStats retorna o consolidado do apostador; pendentes são contados na hora
func (p *Postgres) OwnerStats(ctx context.Context, ownerID string) (stats.OwnerStats, error) {
	s := stats.OwnerStats{OwnerID: ownerID}
	err := p.db.QueryRowContext(ctx, `
		SELECT won_count, lost_count, void_count, staked_cents, returned_cents, hit_rate::float8, updated_at,
		       (SELECT COUNT(*) FROM slips WHERE owner_id = $1 AND status = 'pending')
		FROM owner_stats
		WHERE owner_id = $1`, ownerID).
		Scan(&s.Won, &s.Lost, &s.Void, &s.StakedCents, &s.ReturnedCents, &s.HitRate, &s.UpdatedAt, &s.Pending)
	if errors.Is(err, sql.ErrNoRows) {
		return stats.OwnerStats{}, ErrNotFound
	}
	if err != nil {
		return stats.OwnerStats{}, err
	}
	return s, nil
}

// Ping é usado pelo /healthz
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// encodeOutcome mapeia a variante para as colunas (actual_result, is_correct).
// push grava o marcador com is_correct NULL; não resolvida grava ambos NULL.
func encodeOutcome(c engine.LegChange) (sql.NullString, sql.NullBool) {
	switch c.Outcome {
	case engine.LegCorrect:
		return sql.NullString{String: c.ActualResult, Valid: true}, sql.NullBool{Bool: true, Valid: true}
	case engine.LegIncorrect:
		return sql.NullString{String: c.ActualResult, Valid: true}, sql.NullBool{Bool: false, Valid: true}
	case engine.LegPush:
		return sql.NullString{String: c.ActualResult, Valid: true}, sql.NullBool{}
	default:
		return sql.NullString{}, sql.NullBool{}
	}
}

func decodeOutcome(actual sql.NullString, correct sql.NullBool) (string, engine.LegOutcome) {
	switch {
	case correct.Valid && correct.Bool:
		return actual.String, engine.LegCorrect
	case correct.Valid:
		return actual.String, engine.LegIncorrect
	case actual.Valid && actual.String != "":
		return actual.String, engine.LegPush
	default:
		return "", engine.LegUnresolved
	}
}
