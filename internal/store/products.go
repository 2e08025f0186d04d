package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/calvinalkan/rollcache/pkg/rollcache"
)

// Product is one row of the products table.
type Product struct {
	ID         int64  `json:"id"`          // ID is assigned by SQLite on insert when zero.
	Code       string `json:"code"`        // Code is the catalogue code, e.g. "P00042".
	Name       string `json:"name"`        // Name is the display name.
	PriceCents int64  `json:"price_cents"` // PriceCents is the unit price in cents.
}

// Match is a product found by [Store.FindByExample] together with its row number.
type Match struct {
	Row     int
	Product Product
}

// Example selects products by sample values. Zero fields match everything.
// Results are ordered by id.
type Example struct {
	CodePrefix   string // CodePrefix matches codes starting with it.
	NameContains string // NameContains matches names containing it, case-insensitively.
	Limit        int    // Limit caps the number of matches when > 0.
}

var (
	_ rollcache.Source[Product] = (*Store)(nil)
	_ rollcache.Writer[Product] = (*Store)(nil)
)

const productColumns = "id, code, name, price_cents"

// TotalRange implements rollcache.Source. The range always starts at row 0.
func (s *Store) TotalRange(ctx context.Context) (rollcache.Range, error) {
	var n int

	err := s.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&n)
	if err != nil {
		return rollcache.Range{}, fmt.Errorf("count products: %w", err)
	}

	return rollcache.Range{First: 0, Length: n}, nil
}

// Fetch implements rollcache.Source. Rows past the end of the table are
// left out, so the result can be shorter than r.
func (s *Store) Fetch(ctx context.Context, r rollcache.Range) ([]Product, error) {
	if r.First < 0 {
		return nil, fmt.Errorf("fetch %v: negative first row", r)
	}

	if r.IsEmpty() {
		return nil, nil
	}

	rows, err := s.sql.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products ORDER BY id LIMIT ? OFFSET ?",
		r.Length, r.First)
	if err != nil {
		return nil, fmt.Errorf("fetch %v: %w", r, err)
	}

	defer func() { _ = rows.Close() }()

	out := make([]Product, 0, r.Length)

	for rows.Next() {
		var p Product

		scanErr := rows.Scan(&p.ID, &p.Code, &p.Name, &p.PriceCents)
		if scanErr != nil {
			return nil, fmt.Errorf("fetch %v: scan: %w", r, scanErr)
		}

		out = append(out, p)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("fetch %v: rows: %w", r, err)
	}

	return out, nil
}

// InsertRow implements rollcache.Writer. A zero ID lets SQLite pick the next
// one, so the product lands at the end of the row order.
func (s *Store) InsertRow(ctx context.Context, p Product) error {
	_, err := s.insert(ctx, p)

	return err
}

// Insert adds p and returns its ID.
func (s *Store) Insert(ctx context.Context, p Product) (int64, error) {
	return s.insert(ctx, p)
}

func (s *Store) insert(ctx context.Context, p Product) (int64, error) {
	var (
		res sql.Result
		err error
	)

	if p.ID == 0 {
		res, err = s.sql.ExecContext(ctx,
			"INSERT INTO products (code, name, price_cents) VALUES (?, ?, ?)",
			p.Code, p.Name, p.PriceCents)
	} else {
		res, err = s.sql.ExecContext(ctx,
			"INSERT INTO products ("+productColumns+") VALUES (?, ?, ?, ?)",
			p.ID, p.Code, p.Name, p.PriceCents)
	}

	if err != nil {
		return 0, fmt.Errorf("insert product %q: %w", p.Code, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert product %q: last insert id: %w", p.Code, err)
	}

	return id, nil
}

// UpdateRow implements rollcache.Writer. It returns [ErrNotFound] when no
// product has p.ID.
func (s *Store) UpdateRow(ctx context.Context, p Product) error {
	res, err := s.sql.ExecContext(ctx,
		"UPDATE products SET code = ?, name = ?, price_cents = ? WHERE id = ?",
		p.Code, p.Name, p.PriceCents, p.ID)
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}

	return requireAffected(res, "update", p.ID)
}

// DeleteRow implements rollcache.Writer. It returns [ErrNotFound] when no
// product has p.ID.
func (s *Store) DeleteRow(ctx context.Context, p Product) error {
	res, err := s.sql.ExecContext(ctx, "DELETE FROM products WHERE id = ?", p.ID)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", p.ID, err)
	}

	return requireAffected(res, "delete", p.ID)
}

func requireAffected(res sql.Result, op string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s product %d: rows affected: %w", op, id, err)
	}

	if n == 0 {
		return fmt.Errorf("%s product %d: %w", op, id, ErrNotFound)
	}

	return nil
}

// ByID returns the product with id.
func (s *Store) ByID(ctx context.Context, id int64) (Product, error) {
	var p Product

	err := s.sql.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ?", id).
		Scan(&p.ID, &p.Code, &p.Name, &p.PriceCents)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}

	if err != nil {
		return Product{}, fmt.Errorf("product %d: %w", id, err)
	}

	return p, nil
}

// FindByExample returns the products matching ex with their row numbers.
func (s *Store) FindByExample(ctx context.Context, ex Example) ([]Match, error) {
	if ex.Limit < 0 {
		return nil, errors.New("find: limit must be non-negative")
	}

	query, args := buildExampleQuery(ex)

	rows, err := s.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}

	defer func() { _ = rows.Close() }()

	matches := []Match{}

	for rows.Next() {
		var m Match

		scanErr := rows.Scan(&m.Row, &m.Product.ID, &m.Product.Code, &m.Product.Name, &m.Product.PriceCents)
		if scanErr != nil {
			return nil, fmt.Errorf("find: scan: %w", scanErr)
		}

		matches = append(matches, m)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("find: rows: %w", err)
	}

	return matches, nil
}

// buildExampleQuery numbers every product before filtering so matches carry
// their row number in the full table.
func buildExampleQuery(ex Example) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if ex.CodePrefix != "" {
		clauses = append(clauses, "code LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(ex.CodePrefix)+"%")
	}

	if ex.NameContains != "" {
		clauses = append(clauses, "name LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(ex.NameContains)+"%")
	}

	whereClause := ""
	if len(clauses) > 0 {
		whereClause = " WHERE " + strings.Join(clauses, " AND ")
	}

	query := `
		SELECT rn, ` + productColumns + `
		FROM (
			SELECT ROW_NUMBER() OVER (ORDER BY id) - 1 AS rn, ` + productColumns + `
			FROM products
		)` + whereClause + `
		ORDER BY id`

	if ex.Limit > 0 {
		query += " LIMIT ?"

		args = append(args, ex.Limit)
	}

	return query, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
