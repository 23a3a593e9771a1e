package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mess/internal/core"
	"mess/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// LoadMembers implements ledger.MemberStore
func (r *SQLiteRepository) LoadMembers(ctx context.Context) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, meals, deposits, guest, fine, is_guest_only
		FROM members
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.Name, &m.Meals, &m.Deposits, &m.Guest, &m.Fine, &m.IsGuestOnly); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// SaveMembers implements ledger.MemberStore. The roster is replaced in a
// single transaction.
func (r *SQLiteRepository) SaveMembers(ctx context.Context, members []core.Member) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := writeMembers(ctx, tx, members); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit members: %w", err)
	}

	slog.DebugContext(ctx, "Roster saved to SQLite", "members", len(members))
	return nil
}

// SaveRoster replaces the roster and the period in one transaction.
func (r *SQLiteRepository) SaveRoster(ctx context.Context, members []core.Member, p core.Period) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := writeMembers(ctx, tx, members); err != nil {
		return err
	}
	if err := writePeriod(ctx, tx, p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster: %w", err)
	}

	slog.DebugContext(ctx, "Roster and period saved to SQLite", "members", len(members))
	return nil
}

func writeMembers(ctx context.Context, tx *sql.Tx, members []core.Member) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM members`); err != nil {
		return fmt.Errorf("clear members: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO members (position, name, meals, deposits, guest, fine, is_guest_only)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare member insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range members {
		if _, err := stmt.ExecContext(ctx, i, m.Name, m.Meals, m.Deposits, m.Guest, m.Fine, m.IsGuestOnly); err != nil {
			return fmt.Errorf("insert member %q: %w", m.Name, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) LoadPeriod(ctx context.Context) (core.Period, error) {
	var (
		p    core.Period
		mode string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT rice, marketing, gas, paper, other, bound_meal, cook_mode, cook_total, cook_per_head
		FROM period WHERE id = 1`).
		Scan(&p.Rice, &p.Marketing, &p.Gas, &p.Paper, &p.Other, &p.BoundMeal, &mode, &p.Cook.Total, &p.Cook.PerHead)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Period{}, nil
	}
	if err != nil {
		return core.Period{}, fmt.Errorf("query period: %w", err)
	}
	p.Cook.Mode = core.CookMode(mode)
	return p, nil
}

// SavePeriod implements ledger.ExpenseStore
func (r *SQLiteRepository) SavePeriod(ctx context.Context, p core.Period) error {
	return writePeriod(ctx, r.db, p)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func writePeriod(ctx context.Context, db execer, p core.Period) error {
	mode := p.Cook.Mode
	if mode == "" {
		mode = core.CookModeTotal
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO period (id, rice, marketing, gas, paper, other, bound_meal, cook_mode, cook_total, cook_per_head, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			rice = excluded.rice,
			marketing = excluded.marketing,
			gas = excluded.gas,
			paper = excluded.paper,
			other = excluded.other,
			bound_meal = excluded.bound_meal,
			cook_mode = excluded.cook_mode,
			cook_total = excluded.cook_total,
			cook_per_head = excluded.cook_per_head,
			updated_at = CURRENT_TIMESTAMP`,
		p.Rice, p.Marketing, p.Gas, p.Paper, p.Other, p.BoundMeal, string(mode), p.Cook.Total, p.Cook.PerHead)
	if err != nil {
		return fmt.Errorf("upsert period: %w", err)
	}
	return nil
}

// AppendHistory implements ledger.HistoryStore. The insert and the trim to
// core.HistoryCapacity run in one transaction.
func (r *SQLiteRepository) AppendHistory(ctx context.Context, e core.HistoryEntry) error {
	if e.ID == "" {
		return fmt.Errorf("append history: empty id")
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history (id, created_at, payload) VALUES (?, ?, ?)`,
		e.ID, e.CreatedAt.UTC().Format(time.RFC3339Nano), string(payload)); err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM history
		WHERE seq NOT IN (SELECT seq FROM history ORDER BY seq DESC LIMIT ?)`,
		core.HistoryCapacity)
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history entry: %w", err)
	}

	evicted, _ := res.RowsAffected()
	slog.InfoContext(ctx, "History entry saved to SQLite",
		"history_id", e.ID,
		"evicted", evicted)
	return nil
}

// ListHistory implements ledger.HistoryStore
func (r *SQLiteRepository) ListHistory(ctx context.Context) ([]core.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload FROM history ORDER BY seq DESC LIMIT ?`, core.HistoryCapacity)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []core.HistoryEntry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e, err := decodeHistory(payload)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// GetHistory implements ledger.HistoryStore
func (r *SQLiteRepository) GetHistory(ctx context.Context, id string) (core.HistoryEntry, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM history WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.HistoryEntry{}, fmt.Errorf("%s: %w", id, ledger.ErrHistoryNotFound)
	}
	if err != nil {
		return core.HistoryEntry{}, fmt.Errorf("query history entry %s: %w", id, err)
	}
	return decodeHistory(payload)
}

func decodeHistory(payload string) (core.HistoryEntry, error) {
	var e core.HistoryEntry
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return core.HistoryEntry{}, fmt.Errorf("decode history entry: %w", err)
	}
	return e, nil
}

var _ ledger.Store = (*SQLiteRepository)(nil)
