package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"ratehub/internal/application"
	"ratehub/internal/domain"
	"ratehub/internal/infrastructure/logx"
)

var (
	_ application.HistoryStore  = (*HistoryRepo)(nil)
	_ application.HistoryReader = (*HistoryRepo)(nil)
)

// HistoryRepo mirrors history records into the rate_history table. Records
// sharing an id and source (same pair within one second) are kept once.
type HistoryRepo struct{ db *DB }

func NewHistoryRepo(db *DB) *HistoryRepo { return &HistoryRepo{db: db} }

type execQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *HistoryRepo) conn(ctx context.Context) execQuerier {
	if tx, ok := txFromCtx(ctx); ok {
		return tx
	}
	return r.db.Pool
}

func (r *HistoryRepo) AppendHistory(ctx context.Context, rec domain.HistoricalRecord) error {
	const ins = `
        INSERT INTO rate_history(id, from_currency, to_currency, rate, observed_at, source, meta)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id, source) DO NOTHING`
	log := logx.L().With(
		zap.String("repo", "rate_history"),
		zap.String("operation", "AppendHistory"),
		zap.String("id", rec.ID),
	)
	meta, err := json.Marshal(rec.Meta)
	if err != nil {
		return fmt.Errorf("pg: encode meta: %w", err)
	}
	log.Debug("sql.exec_start")
	tag, err := r.conn(ctx).Exec(ctx, ins,
		rec.ID, rec.FromCurrency, rec.ToCurrency, rec.Rate, rec.Timestamp, rec.Source, meta)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return fmt.Errorf("pg: append history: %w", err)
	}
	log.Debug("sql.exec_success", zap.Int64("rows_affected", tag.RowsAffected()))
	return nil
}

func (r *HistoryRepo) ListHistory(ctx context.Context, from, to string, limit int) ([]domain.HistoricalRecord, error) {
	const q = `
        SELECT id, from_currency, to_currency, rate, observed_at, source, meta
        FROM rate_history
        WHERE from_currency=$1 AND to_currency=$2
        ORDER BY observed_at DESC, inserted_at DESC
        LIMIT $3`
	// LIMIT NULL returns every row
	var lim any
	if limit > 0 {
		lim = limit
	}
	log := logx.L().With(
		zap.String("repo", "rate_history"),
		zap.String("operation", "ListHistory"),
		zap.String("from", from),
		zap.String("to", to),
	)
	log.Debug("sql.query_start")
	rows, err := r.conn(ctx).Query(ctx, q, domain.NormalizeCode(from), domain.NormalizeCode(to), lim)
	if err != nil {
		log.Error("sql.query_failed", zap.Error(err))
		return nil, fmt.Errorf("pg: list history: %w", err)
	}
	defer rows.Close()

	out := []domain.HistoricalRecord{}
	for rows.Next() {
		var rec domain.HistoricalRecord
		var meta []byte
		if err := rows.Scan(&rec.ID, &rec.FromCurrency, &rec.ToCurrency, &rec.Rate, &rec.Timestamp, &rec.Source, &meta); err != nil {
			return nil, fmt.Errorf("pg: scan history: %w", err)
		}
		rec.Timestamp = rec.Timestamp.UTC()
		rec.Meta = map[string]any{}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &rec.Meta); err != nil {
				return nil, fmt.Errorf("pg: decode meta: %w", err)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pg: list history: %w", err)
	}
	return out, nil
}
