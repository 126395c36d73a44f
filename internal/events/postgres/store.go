package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"afriswap/internal/model"
)

// Store provides Postgres persistence for the audit event stream.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the audit_events table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id          uuid PRIMARY KEY,
			event_type  text NOT NULL,
			actor       text NOT NULL,
			pool_id     bigint,
			position_id bigint,
			asset_in    text,
			asset_out   text,
			amount_in   numeric,
			amount_out  numeric,
			fee_bps     integer,
			fee         numeric,
			fee_reward  numeric,
			ts          bigint NOT NULL,
			created_at  timestamptz NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutEventBatch inserts a batch of audit events. Replays of an already
// recorded event id are ignored, keeping the stream append-only.
func (s *Store) PutEventBatch(events []model.Event) error {
	return s.PutEventBatchCtx(context.Background(), events)
}

func (s *Store) PutEventBatchCtx(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(`
			INSERT INTO audit_events (
				id, event_type, actor, pool_id, position_id,
				asset_in, asset_out, amount_in, amount_out, fee_bps,
				fee, fee_reward, ts
			) VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),NULLIF($9,''),$10,
				NULLIF($11,''),NULLIF($12,''),$13)
			ON CONFLICT (id) DO NOTHING
		`,
			e.ID,
			string(e.Type),
			e.Actor,
			int64(e.PoolID),
			int64(e.PositionID),
			e.AssetIn,
			e.AssetOut,
			e.AmountIn,
			e.AmountOut,
			int32(e.FeeBps),
			e.Fee,
			e.FeeReward,
			e.Timestamp,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, event_type, actor, pool_id, position_id,
		       COALESCE(asset_in, ''), COALESCE(asset_out, ''),
		       COALESCE(amount_in::text, ''), COALESCE(amount_out::text, ''),
		       fee_bps, COALESCE(fee::text, ''), COALESCE(fee_reward::text, ''), ts
		FROM audit_events
		ORDER BY ts DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var (
			e                  model.Event
			eventType          string
			poolID, positionID int64
			feeBps             int32
		)
		if err := rows.Scan(&e.ID, &eventType, &e.Actor, &poolID, &positionID,
			&e.AssetIn, &e.AssetOut, &e.AmountIn, &e.AmountOut, &feeBps,
			&e.Fee, &e.FeeReward, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Type = model.EventType(eventType)
		e.PoolID = uint64(poolID)
		e.PositionID = uint64(positionID)
		e.FeeBps = uint32(feeBps)
		out = append(out, e)
	}
	return out, rows.Err()
}
