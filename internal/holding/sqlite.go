package holding

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/investracker/tracker/internal/domain"
)

const sqliteSelectColumns = `id, kind, name, symbol, quantity, unit_cost, acquired_on,
	current_unit_price, current_total_value, unallocated_gain, unallocated_gain_percent,
	valuation_currency, priced_at`

const sqliteInsert = `INSERT INTO holdings (user_id, id, position, kind, name, symbol, quantity, unit_cost,
	acquired_on, current_unit_price, current_total_value, unallocated_gain, unallocated_gain_percent,
	valuation_currency, priced_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteRepository implements Repository with an embedded SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite holding repository. The schema must already exist.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row rowScanner) (domain.Holding, error) {
	var (
		c        columns
		pricedAt *string
	)
	if err := row.Scan(&c.ID, &c.Kind, &c.Name, &c.Symbol, &c.Quantity, &c.UnitCost, &c.AcquiredOn,
		&c.Price, &c.Value, &c.Gain, &c.Percent, &c.Currency, &pricedAt); err != nil {
		return domain.Holding{}, err
	}
	if pricedAt != nil {
		t, err := time.Parse(time.RFC3339Nano, *pricedAt)
		if err != nil {
			return domain.Holding{}, fmt.Errorf("holding %s: parsing priced_at: %w", c.ID, err)
		}
		c.PricedAt = &t
	}
	return c.holding()
}

func sqliteArgs(userID string, position int, c columns) []any {
	var pricedAt *string
	if c.PricedAt != nil {
		pricedAt = ptr(c.PricedAt.Format(time.RFC3339Nano))
	}
	return []any{userID, c.ID, position, c.Kind, c.Name, c.Symbol, c.Quantity, c.UnitCost, c.AcquiredOn,
		c.Price, c.Value, c.Gain, c.Percent, c.Currency, pricedAt}
}

func (r *SQLiteRepository) List(ctx context.Context, userID string) ([]domain.Holding, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sqliteSelectColumns+`
		 FROM holdings
		 WHERE user_id = ?
		 ORDER BY position, created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing holdings: %w", err)
	}
	defer rows.Close()

	holdings := []domain.Holding{}
	for rows.Next() {
		h, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating holdings: %w", err)
	}
	return holdings, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, userID, id string) (domain.Holding, error) {
	h, err := scanSQLite(r.db.QueryRowContext(ctx,
		`SELECT `+sqliteSelectColumns+` FROM holdings WHERE user_id = ? AND id = ?`, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Holding{}, ErrNotFound
		}
		return domain.Holding{}, fmt.Errorf("getting holding %s: %w", id, err)
	}
	return h, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, userID string, h domain.Holding) error {
	var next int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM holdings WHERE user_id = ?`, userID).Scan(&next); err != nil {
		return fmt.Errorf("reading next position: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, sqliteInsert, sqliteArgs(userID, next, toColumns(h))...); err != nil {
		return fmt.Errorf("inserting holding %s: %w", h.ID, err)
	}
	return nil
}

const sqliteUpdate = `UPDATE holdings
	SET kind = ?, name = ?, symbol = ?, quantity = ?, unit_cost = ?, acquired_on = ?,
	    current_unit_price = ?, current_total_value = ?, unallocated_gain = ?,
	    unallocated_gain_percent = ?, valuation_currency = ?, priced_at = ?
	WHERE user_id = ? AND id = ?`

// sqliteUpdateArgs orders the insert arguments for sqliteUpdate: the SET values, then the key.
func sqliteUpdateArgs(userID string, c columns) []any {
	args := sqliteArgs(userID, 0, c)
	return append(args[3:], userID, c.ID)
}

func (r *SQLiteRepository) Update(ctx context.Context, userID string, h domain.Holding) error {
	res, err := r.db.ExecContext(ctx, sqliteUpdate, sqliteUpdateArgs(userID, toColumns(h))...)
	if err != nil {
		return fmt.Errorf("updating holding %s: %w", h.ID, err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM holdings WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting holding %s: %w", id, err)
	}
	return expectOneRow(res)
}

// ReplaceAll deletes every holding of the user and inserts the given ones in a single transaction.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, userID string, holdings []domain.Holding) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM holdings WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clearing holdings: %w", err)
	}
	for i, h := range holdings {
		if _, err := tx.ExecContext(ctx, sqliteInsert, sqliteArgs(userID, i, toColumns(h))...); err != nil {
			return fmt.Errorf("inserting holding %s: %w", h.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing holdings: %w", err)
	}
	return nil
}

// SaveValuations reprices each matching row against its current quantity and
// cost inside one transaction.
func (r *SQLiteRepository) SaveValuations(ctx context.Context, userID string, fresh []domain.Holding) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, f := range pricedOnly(fresh) {
		current, err := scanSQLite(tx.QueryRowContext(ctx,
			`SELECT `+sqliteSelectColumns+` FROM holdings WHERE user_id = ? AND id = ?`, userID, f.ID))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading holding %s: %w", f.ID, err)
		}
		repriced, ok := current.Reprice(f)
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, sqliteUpdate, sqliteUpdateArgs(userID, toColumns(repriced))...); err != nil {
			return fmt.Errorf("saving valuation of %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing valuations: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Users(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM holdings ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
