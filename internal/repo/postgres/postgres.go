package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/probegate/probegate/internal/domain"
	"github.com/probegate/probegate/internal/repo"
)

var _ repo.RunStore = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	s := &Store{pool: pool, log: log}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			suite       TEXT NOT NULL DEFAULT '',
			state       TEXT NOT NULL,
			started_at  TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ,
			report      JSONB
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, r *domain.Run) error {
	var report []byte
	if r.Report != nil {
		b, err := json.Marshal(r.Report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		report = b
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, suite, state, started_at, finished_at, report)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (id) DO UPDATE
		 SET state = EXCLUDED.state,
		     finished_at = EXCLUDED.finished_at,
		     report = EXCLUDED.report`,
		string(r.ID), r.Suite, string(r.State), r.StartedAt, r.FinishedAt, report,
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, suite, state, started_at, finished_at, report
		   FROM runs WHERE id = $1`, string(id))
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

func (s *Store) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	q := `SELECT id, suite, state, started_at, finished_at, report
	        FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*domain.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRun(row pgx.Row) (*domain.Run, error) {
	var (
		r      domain.Run
		id     string
		state  string
		report []byte
	)
	if err := row.Scan(&id, &r.Suite, &state, &r.StartedAt, &r.FinishedAt, &report); err != nil {
		return nil, err
	}
	r.ID = domain.RunID(id)
	r.State = domain.RunState(state)
	if len(report) > 0 {
		var rep domain.RunReport
		if err := json.Unmarshal(report, &rep); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		r.Report = &rep
	}
	return &r, nil
}
