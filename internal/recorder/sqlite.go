package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"InterbankSim/internal/ledger"
	"InterbankSim/internal/market"
	"InterbankSim/internal/model"
)

// SQLiteRecorder persists run series to a SQLite database. It records one
// run at a time and serves every recorded run to readers.
type SQLiteRecorder struct {
	db    *sql.DB
	mu    sync.Mutex
	runID uuid.UUID
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: pragmas stick and readers queue behind the day's transaction.
	db.SetMaxOpenConns(1)

	// WAL so the API can read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id           TEXT PRIMARY KEY,
			seed         INTEGER NOT NULL,
			banks        INTEGER NOT NULL,
			days         INTEGER NOT NULL,
			distribution TEXT,
			started_at   INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS day_stats (
			run_id              TEXT NOT NULL,
			day                 INTEGER NOT NULL,
			cash_before         REAL,
			cash_after          REAL,
			central_bank_cash   REAL,
			inflows             REAL,
			obligations         REAL,
			operating_costs     REAL,
			deficits            INTEGER,
			rescues             INTEGER,
			interbank_count     INTEGER,
			interbank_volume    REAL,
			central_bank_count  INTEGER,
			central_bank_volume REAL,
			liquidity           REAL,
			hhi                 REAL,
			open_ib_count       INTEGER,
			open_ib_volume      REAL,
			open_cb_count       INTEGER,
			open_cb_volume      REAL,
			PRIMARY KEY (run_id, day)
		)`,

		`CREATE TABLE IF NOT EXISTS bank_days (
			run_id            TEXT NOT NULL,
			day               INTEGER NOT NULL,
			bank_id           INTEGER NOT NULL,
			cash              REAL,
			reliability       REAL,
			delta             REAL,
			shortfall         REAL,
			borrowed          REAL,
			rescued           REAL,
			accepted_deposits INTEGER,
			accepted_credits  INTEGER,
			rejected_credits  INTEGER,
			PRIMARY KEY (run_id, bank_id, day)
		)`,

		`CREATE TABLE IF NOT EXISTS ledger_points (
			run_id  TEXT NOT NULL,
			day     INTEGER NOT NULL,
			bank_id INTEGER NOT NULL,
			side    TEXT NOT NULL,
			kind    TEXT NOT NULL,
			value   REAL,
			PRIMARY KEY (run_id, bank_id, side, kind, day)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) StartRun(info RunInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO runs (id, seed, banks, days, distribution, started_at)
		VALUES (?,?,?,?,?,?)`,
		info.ID.String(), info.Seed, info.Banks, info.Days, info.Distribution, info.StartedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	r.runID = info.ID
	return nil
}

func (r *SQLiteRecorder) RecordDay(report *market.DayReport, points []LedgerPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.runID == uuid.Nil {
		return errors.New("record day: no run started")
	}
	run := r.runID.String()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	s := NewDayStat(report)
	if _, err := tx.Exec(`INSERT INTO day_stats
		(run_id, day, cash_before, cash_after, central_bank_cash, inflows, obligations, operating_costs,
		 deficits, rescues, interbank_count, interbank_volume, central_bank_count, central_bank_volume, hhi)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		run, s.Day, s.CashBefore, s.CashAfter, s.CentralBankCash, s.Inflows, s.Obligations, s.OperatingCosts,
		s.Deficits, s.Rescues, s.InterbankCount, s.InterbankVolume, s.CentralBankCount, s.CentralBankVolume, s.HHI,
	); err != nil {
		return fmt.Errorf("insert day %d: %w", report.Day, err)
	}

	for _, snap := range report.Banks {
		b := NewBankDay(report.Day, snap)
		if _, err := tx.Exec(`INSERT INTO bank_days
			(run_id, day, bank_id, cash, reliability, delta, shortfall, borrowed, rescued,
			 accepted_deposits, accepted_credits, rejected_credits)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			run, b.Day, b.BankID, b.Cash, b.Reliability, b.Delta, b.Shortfall, b.Borrowed, b.Rescued,
			b.AcceptedDeposits, b.AcceptedCredits, b.RejectedCredits,
		); err != nil {
			return fmt.Errorf("insert bank %d day %d: %w", b.BankID, b.Day, err)
		}
	}

	for _, p := range points {
		if _, err := tx.Exec(`INSERT INTO ledger_points (run_id, day, bank_id, side, kind, value)
			VALUES (?,?,?,?,?,?)`,
			run, report.Day, p.BankID, string(p.Side), string(p.Kind), p.Value,
		); err != nil {
			return fmt.Errorf("insert ledger point: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, seed, banks, days, distribution, started_at FROM runs ORDER BY started_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var (
			info    RunInfo
			id      string
			started int64
		)
		if err := rows.Scan(&id, &info.Seed, &info.Banks, &info.Days, &info.Distribution, &started); err != nil {
			return nil, err
		}
		if info.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("run id %q: %w", id, err)
		}
		info.StartedAt = time.Unix(started, 0).UTC()
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

func (r *SQLiteRecorder) DaySeries(ctx context.Context, runID uuid.UUID) ([]DayStat, error) {
	if err := r.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT day, cash_before, cash_after, central_bank_cash, inflows,
		obligations, operating_costs, deficits, rescues, interbank_count, interbank_volume,
		central_bank_count, central_bank_volume, liquidity, hhi,
		open_ib_count, open_ib_volume, open_cb_count, open_cb_volume
		FROM day_stats WHERE run_id = ? ORDER BY day`, runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DayStat
	for rows.Next() {
		var s DayStat
		if err := rows.Scan(&s.Day, &s.CashBefore, &s.CashAfter, &s.CentralBankCash, &s.Inflows,
			&s.Obligations, &s.OperatingCosts, &s.Deficits, &s.Rescues, &s.InterbankCount, &s.InterbankVolume,
			&s.CentralBankCount, &s.CentralBankVolume, &s.Liquidity, &s.HHI,
			&s.OutstandingInterbankCount, &s.OutstandingInterbankVolume,
			&s.OutstandingCentralBankCount, &s.OutstandingCentralBankVolume); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) BankSeries(ctx context.Context, runID uuid.UUID, bankID int) ([]BankDay, error) {
	if err := r.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT day, bank_id, cash, reliability, delta, shortfall,
		borrowed, rescued, accepted_deposits, accepted_credits, rejected_credits
		FROM bank_days WHERE run_id = ? AND bank_id = ? ORDER BY day`, runID.String(), bankID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BankDay
	for rows.Next() {
		var b BankDay
		if err := rows.Scan(&b.Day, &b.BankID, &b.Cash, &b.Reliability, &b.Delta, &b.Shortfall,
			&b.Borrowed, &b.Rescued, &b.AcceptedDeposits, &b.AcceptedCredits, &b.RejectedCredits); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) LedgerSeries(ctx context.Context, runID uuid.UUID, bankID int, side ledger.Side, kind model.Kind) ([]SeriesPoint, error) {
	if err := r.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT day, value FROM ledger_points
		WHERE run_id = ? AND bank_id = ? AND side = ? AND kind = ? ORDER BY day`,
		runID.String(), bankID, string(side), string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SeriesPoint
	for rows.Next() {
		var p SeriesPoint
		if err := rows.Scan(&p.Day, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) requireRun(ctx context.Context, runID uuid.UUID) error {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM runs WHERE id = ?`, runID.String()).Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
