package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertCycleRunSQL = `INSERT INTO cycle_runs (
        started_at,
        block_number,
        published,
        active,
        executable,
        viable,
        executed,
        best_profit_usd
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    RETURNING id, created_at;`

	listRecentCycleRunsSQL = `SELECT
        id,
        started_at,
        block_number,
        published,
        active,
        executable,
        viable,
        executed,
        best_profit_usd,
        created_at
    FROM cycle_runs
    ORDER BY started_at DESC
    LIMIT $1;`

	listCycleRunsBetweenSQL = `SELECT
        id,
        started_at,
        block_number,
        published,
        active,
        executable,
        viable,
        executed,
        best_profit_usd,
        created_at
    FROM cycle_runs
    WHERE started_at >= $1
      AND started_at < $2
    ORDER BY started_at;`

	countCycleRunsSQL = `SELECT COUNT(*) FROM cycle_runs;`

	insertExecutionSQL = `INSERT INTO executions (
        started_at,
        blueprint_hash,
        state,
        reason,
        tx_hash,
        block_number,
        profit_usd
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    RETURNING id, created_at;`

	listRecentExecutionsSQL = `SELECT
        id,
        started_at,
        blueprint_hash,
        state,
        reason,
        tx_hash,
        block_number,
        profit_usd,
        created_at
    FROM executions
    ORDER BY started_at DESC
    LIMIT $1;`

	deleteExecutionsBeforeSQL = `DELETE FROM executions WHERE created_at < $1;`
)

// CycleStore defines operations for cycle audit persistence.
type CycleStore interface {
	InsertCycleRun(ctx context.Context, run CycleRun) (CycleRun, error)
	ListRecentCycleRuns(ctx context.Context, limit int) ([]CycleRun, error)
	ListCycleRunsBetween(ctx context.Context, from, to time.Time) ([]CycleRun, error)
	CountCycleRuns(ctx context.Context) (int64, error)
}

// ExecutionStore defines operations for execution auditing.
type ExecutionStore interface {
	InsertExecution(ctx context.Context, rec ExecutionRecord) (ExecutionRecord, error)
	ListRecentExecutions(ctx context.Context, limit int) ([]ExecutionRecord, error)
	DeleteExecutionsBefore(ctx context.Context, olderThan time.Time) error
}

// Store aggregates access to cycle runs and execution records. It is a
// write-mostly audit log; the evaluation pipeline never depends on it.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertCycleRun persists one completed polling cycle summary.
func (s *Store) InsertCycleRun(ctx context.Context, run CycleRun) (CycleRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return CycleRun{}, err
	}

	var profit interface{}
	if run.BestProfit != nil {
		profit = run.BestProfit.String()
	}

	row := pool.QueryRow(ctx, insertCycleRunSQL,
		run.StartedAt,
		run.BlockNumber,
		run.Published,
		run.Active,
		run.Executable,
		run.Viable,
		run.Executed,
		profit,
	)
	if scanErr := row.Scan(&run.ID, &run.CreatedAt); scanErr != nil {
		return CycleRun{}, fmt.Errorf("insert cycle run: %w", scanErr)
	}
	return run, nil
}

// ListRecentCycleRuns lists the most recent cycles ordered newest first.
func (s *Store) ListRecentCycleRuns(ctx context.Context, limit int) ([]CycleRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentCycleRunsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent cycle runs: %w", queryErr)
	}
	defer rows.Close()

	runs := make([]CycleRun, 0, limit)
	for rows.Next() {
		run, scanErr := scanCycleRun(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		runs = append(runs, run)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return runs, nil
}

// ListCycleRunsBetween lists cycles within a time window, oldest first.
func (s *Store) ListCycleRunsBetween(ctx context.Context, from, to time.Time) ([]CycleRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listCycleRunsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list cycle runs between: %w", queryErr)
	}
	defer rows.Close()

	runs := make([]CycleRun, 0)
	for rows.Next() {
		run, scanErr := scanCycleRun(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		runs = append(runs, run)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return runs, nil
}

// CountCycleRuns counts stored cycles.
func (s *Store) CountCycleRuns(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countCycleRunsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count cycle runs: %w", scanErr)
	}
	return count, nil
}

// InsertExecution persists the terminal state of one order attempt.
func (s *Store) InsertExecution(ctx context.Context, rec ExecutionRecord) (ExecutionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return ExecutionRecord{}, err
	}

	var reason, txHash, profit interface{}
	if rec.Reason != nil {
		reason = *rec.Reason
	}
	if rec.TxHash != nil {
		txHash = *rec.TxHash
	}
	if rec.ProfitUSD != nil {
		profit = rec.ProfitUSD.String()
	}

	var block interface{}
	if rec.BlockNumber != nil {
		block = *rec.BlockNumber
	}

	row := pool.QueryRow(ctx, insertExecutionSQL,
		rec.StartedAt,
		rec.BlueprintHash,
		rec.State,
		reason,
		txHash,
		block,
		profit,
	)
	if scanErr := row.Scan(&rec.ID, &rec.CreatedAt); scanErr != nil {
		return ExecutionRecord{}, fmt.Errorf("insert execution: %w", scanErr)
	}
	return rec, nil
}

// ListRecentExecutions lists the most recent execution attempts.
func (s *Store) ListRecentExecutions(ctx context.Context, limit int) ([]ExecutionRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentExecutionsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent executions: %w", queryErr)
	}
	defer rows.Close()

	records := make([]ExecutionRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanExecution(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// DeleteExecutionsBefore prunes historical execution records.
func (s *Store) DeleteExecutionsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteExecutionsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete executions before: %w", execErr)
	}
	return nil
}

func scanCycleRun(rows pgx.Rows) (CycleRun, error) {
	var (
		run       CycleRun
		profitStr sql.NullString
	)

	if err := rows.Scan(
		&run.ID,
		&run.StartedAt,
		&run.BlockNumber,
		&run.Published,
		&run.Active,
		&run.Executable,
		&run.Viable,
		&run.Executed,
		&profitStr,
		&run.CreatedAt,
	); err != nil {
		return CycleRun{}, err
	}

	if profitStr.Valid {
		profit, err := decimal.NewFromString(profitStr.String)
		if err != nil {
			return CycleRun{}, fmt.Errorf("parse best profit: %w", err)
		}
		run.BestProfit = &profit
	}
	return run, nil
}

func scanExecution(rows pgx.Rows) (ExecutionRecord, error) {
	var (
		rec       ExecutionRecord
		reason    sql.NullString
		txHash    sql.NullString
		block     sql.NullInt64
		profitStr sql.NullString
	)

	if err := rows.Scan(
		&rec.ID,
		&rec.StartedAt,
		&rec.BlueprintHash,
		&rec.State,
		&reason,
		&txHash,
		&block,
		&profitStr,
		&rec.CreatedAt,
	); err != nil {
		return ExecutionRecord{}, err
	}

	if reason.Valid {
		value := reason.String
		rec.Reason = &value
	}
	if txHash.Valid {
		value := txHash.String
		rec.TxHash = &value
	}
	if block.Valid {
		value := block.Int64
		rec.BlockNumber = &value
	}
	if profitStr.Valid {
		profit, err := decimal.NewFromString(profitStr.String)
		if err != nil {
			return ExecutionRecord{}, fmt.Errorf("parse profit: %w", err)
		}
		rec.ProfitUSD = &profit
	}
	return rec, nil
}
