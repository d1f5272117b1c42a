package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.RateStore      = (*RateStore)(nil)
	_ driven.RateTransactor = (*RateStore)(nil)
)

const selectRate = `SELECT id, cargo_type, rate, date, created_date FROM insurance`

// RateStore implements driven.RateStore using PostgreSQL.
// A store returned to a WithinTx callback runs every call on that transaction.
type RateStore struct {
	db      *DB
	q       queryer
	inTx    bool
	timeout time.Duration
}

// NewRateStore creates a new RateStore bound to the connection pool
func NewRateStore(db *DB) *RateStore {
	return &RateStore{db: db, q: db, timeout: db.timeout}
}

// WithinTx runs fn in one transaction. A store already bound to a
// transaction joins it instead of nesting.
func (s *RateStore) WithinTx(ctx context.Context, fn func(ctx context.Context, store driven.RateStore) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		return fn(ctx, &RateStore{db: s.db, q: tx, inTx: true, timeout: s.timeout})
	})
}

// FindByID retrieves a rate by ID
func (s *RateStore) FindByID(ctx context.Context, id int64) (*domain.InsuranceRate, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var rate domain.InsuranceRate
	err := s.q.QueryRowContext(ctx, selectRate+` WHERE id = $1`, id).Scan(
		&rate.ID,
		&rate.CargoType,
		&rate.Rate,
		&rate.Date,
		&rate.CreatedDate,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &rate, nil
}

// FindByFilter returns rows matching every set filter field, oldest first
func (s *RateStore) FindByFilter(ctx context.Context, filter domain.RateFilter) ([]*domain.InsuranceRate, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	query, args := buildFilterQuery(filter)
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	rates := []*domain.InsuranceRate{}
	for rows.Next() {
		var rate domain.InsuranceRate
		if err := rows.Scan(
			&rate.ID,
			&rate.CargoType,
			&rate.Rate,
			&rate.Date,
			&rate.CreatedDate,
		); err != nil {
			return nil, mapError(err)
		}
		rates = append(rates, &rate)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return rates, nil
}

// buildFilterQuery adds one placeholder predicate per set filter field
func buildFilterQuery(filter domain.RateFilter) (string, []any) {
	f := filter.Normalize()

	var conds []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if f.ID != nil {
		add("id", *f.ID)
	}
	if f.CargoType != nil {
		add("cargo_type", *f.CargoType)
	}
	if f.Rate != nil {
		add("rate", *f.Rate)
	}
	if f.Date != nil {
		add("date", *f.Date)
	}

	query := selectRate
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"
	return query, args
}

// FindByKey looks up the exact natural key. Within a transaction it first
// takes a transaction-scoped advisory lock on the key, so a concurrent
// upsert of the same triple waits for this one to commit.
func (s *RateStore) FindByKey(ctx context.Context, date, cargoType string, rate float64) (*domain.InsuranceRate, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if s.inTx {
		if _, err := s.q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, naturalKey(date, cargoType, rate)); err != nil {
			return nil, mapError(err)
		}
	}

	var found domain.InsuranceRate
	err := s.q.QueryRowContext(ctx,
		selectRate+` WHERE date = $1 AND cargo_type = $2 AND rate = $3 ORDER BY id LIMIT 1`,
		date, cargoType, rate,
	).Scan(
		&found.ID,
		&found.CargoType,
		&found.Rate,
		&found.Date,
		&found.CreatedDate,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &found, nil
}

// naturalKey renders the (date, cargo_type, rate) triple as an advisory lock key
func naturalKey(date, cargoType string, rate float64) string {
	return "insurance:" + strconv.Quote(date) + ":" + strconv.Quote(cargoType) + ":" + strconv.FormatFloat(rate, 'g', -1, 64)
}

const insertRate = `
	INSERT INTO insurance (cargo_type, rate, date)
	VALUES ($1, $2, $3)
	RETURNING id, created_date
`

// Insert stores a new rate and assigns its ID
func (s *RateStore) Insert(ctx context.Context, rate *domain.InsuranceRate) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	err := s.q.QueryRowContext(ctx, insertRate, rate.CargoType, rate.Rate, rate.Date).
		Scan(&rate.ID, &rate.CreatedDate)
	return mapError(err)
}

// InsertMany stores rates in slice order, assigning IDs in that order.
// Atomicity comes from the caller's transaction.
func (s *RateStore) InsertMany(ctx context.Context, rates []*domain.InsuranceRate) error {
	if len(rates) == 0 {
		return nil
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	stmt, err := s.q.PrepareContext(ctx, insertRate)
	if err != nil {
		return mapError(err)
	}
	defer stmt.Close()

	for _, rate := range rates {
		if err := stmt.QueryRowContext(ctx, rate.CargoType, rate.Rate, rate.Date).
			Scan(&rate.ID, &rate.CreatedDate); err != nil {
			return mapError(err)
		}
	}
	return nil
}

// Update persists the rate, cargo type and date of an existing row
func (s *RateStore) Update(ctx context.Context, rate *domain.InsuranceRate) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		UPDATE insurance
		SET cargo_type = $2, rate = $3, date = $4, modified_date = now()
		WHERE id = $1
	`
	result, err := s.q.ExecContext(ctx, query, rate.ID, rate.CargoType, rate.Rate, rate.Date)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteByID removes a row. Missing rows are not an error.
func (s *RateStore) DeleteByID(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.q.ExecContext(ctx, `DELETE FROM insurance WHERE id = $1`, id)
	return mapError(err)
}
