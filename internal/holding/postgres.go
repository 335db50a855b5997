package holding

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/investracker/tracker/internal/domain"
)

const pgSelectColumns = `id, kind, name, symbol, quantity::text, unit_cost::text, acquired_on::text,
	current_unit_price::text, current_total_value::text, unallocated_gain::text,
	unallocated_gain_percent::text, valuation_currency, priced_at`

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL holding repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanPg(row pgx.Row) (domain.Holding, error) {
	var c columns
	if err := row.Scan(&c.ID, &c.Kind, &c.Name, &c.Symbol, &c.Quantity, &c.UnitCost, &c.AcquiredOn,
		&c.Price, &c.Value, &c.Gain, &c.Percent, &c.Currency, &c.PricedAt); err != nil {
		return domain.Holding{}, err
	}
	return c.holding()
}

func (r *PgRepository) List(ctx context.Context, userID string) ([]domain.Holding, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+pgSelectColumns+`
		 FROM holdings
		 WHERE user_id = $1
		 ORDER BY position, created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing holdings: %w", err)
	}
	defer rows.Close()

	holdings := []domain.Holding{}
	for rows.Next() {
		h, err := scanPg(rows)
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

func (r *PgRepository) Get(ctx context.Context, userID, id string) (domain.Holding, error) {
	h, err := scanPg(r.pool.QueryRow(ctx,
		`SELECT `+pgSelectColumns+` FROM holdings WHERE user_id = $1 AND id = $2`, userID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Holding{}, ErrNotFound
		}
		return domain.Holding{}, fmt.Errorf("getting holding %s: %w", id, err)
	}
	return h, nil
}

func (r *PgRepository) Insert(ctx context.Context, userID string, h domain.Holding) error {
	c := toColumns(h)
	_, err := r.pool.Exec(ctx,
		`INSERT INTO holdings (user_id, id, position, kind, name, symbol, quantity, unit_cost, acquired_on,
		     current_unit_price, current_total_value, unallocated_gain, unallocated_gain_percent,
		     valuation_currency, priced_at)
		 VALUES ($1, $2, COALESCE((SELECT MAX(position) + 1 FROM holdings WHERE user_id = $1), 0),
		     $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		userID, c.ID, c.Kind, c.Name, c.Symbol, c.Quantity, c.UnitCost, c.AcquiredOn,
		c.Price, c.Value, c.Gain, c.Percent, c.Currency, c.PricedAt)
	if err != nil {
		return fmt.Errorf("inserting holding %s: %w", h.ID, err)
	}
	return nil
}

const pgUpdate = `UPDATE holdings
	SET kind = $3, name = $4, symbol = $5, quantity = $6, unit_cost = $7, acquired_on = $8,
	    current_unit_price = $9, current_total_value = $10, unallocated_gain = $11,
	    unallocated_gain_percent = $12, valuation_currency = $13, priced_at = $14
	WHERE user_id = $1 AND id = $2`

func pgUpdateArgs(userID string, c columns) []any {
	return []any{userID, c.ID, c.Kind, c.Name, c.Symbol, c.Quantity, c.UnitCost, c.AcquiredOn,
		c.Price, c.Value, c.Gain, c.Percent, c.Currency, c.PricedAt}
}

func (r *PgRepository) Update(ctx context.Context, userID string, h domain.Holding) error {
	tag, err := r.pool.Exec(ctx, pgUpdate, pgUpdateArgs(userID, toColumns(h))...)
	if err != nil {
		return fmt.Errorf("updating holding %s: %w", h.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM holdings WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting holding %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceAll deletes every holding of the user and inserts the given ones in a single transaction.
func (r *PgRepository) ReplaceAll(ctx context.Context, userID string, holdings []domain.Holding) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM holdings WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clearing holdings: %w", err)
	}

	batch := &pgx.Batch{}
	for i, h := range holdings {
		c := toColumns(h)
		batch.Queue(
			`INSERT INTO holdings (user_id, id, position, kind, name, symbol, quantity, unit_cost, acquired_on,
			     current_unit_price, current_total_value, unallocated_gain, unallocated_gain_percent,
			     valuation_currency, priced_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			userID, c.ID, i, c.Kind, c.Name, c.Symbol, c.Quantity, c.UnitCost, c.AcquiredOn,
			c.Price, c.Value, c.Gain, c.Percent, c.Currency, c.PricedAt)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting holdings: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing holdings: %w", err)
	}
	return nil
}

// SaveValuations locks each matching row, reprices it against its current
// quantity and cost, and writes it back in one transaction.
func (r *PgRepository) SaveValuations(ctx context.Context, userID string, fresh []domain.Holding) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, f := range pricedOnly(fresh) {
		current, err := scanPg(tx.QueryRow(ctx,
			`SELECT `+pgSelectColumns+` FROM holdings WHERE user_id = $1 AND id = $2 FOR UPDATE`, userID, f.ID))
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading holding %s: %w", f.ID, err)
		}
		repriced, ok := current.Reprice(f)
		if !ok {
			continue
		}
		if _, err := tx.Exec(ctx, pgUpdate, pgUpdateArgs(userID, toColumns(repriced))...); err != nil {
			return fmt.Errorf("saving valuation of %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing valuations: %w", err)
	}
	return nil
}

func (r *PgRepository) Users(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT user_id FROM holdings ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning users: %w", err)
	}
	return users, nil
}
