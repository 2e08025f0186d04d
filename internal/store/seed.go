package store

import (
	"context"
	"errors"
	"fmt"
)

var seedWords = []string{
	"anchor", "bracket", "cable", "dowel", "flange", "gasket", "hinge", "joist",
	"latch", "mallet", "nozzle", "pulley", "rivet", "sprocket", "toggle", "washer",
}

// Seed appends n generated products in one transaction. Codes continue from
// the current row count, so repeated seeding never reuses a code. It returns
// the number of products written.
func (s *Store) Seed(ctx context.Context, n int) (int, error) {
	if n < 0 {
		return 0, errors.New("seed: count must be non-negative")
	}

	total, err := s.TotalRange(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}

	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed: begin txn: %w", err)
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	insert, err := tx.PrepareContext(ctx, "INSERT INTO products (code, name, price_cents) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("seed: prepare insert: %w", err)
	}

	defer func() { _ = insert.Close() }()

	for i := range n {
		p := seedProduct(total.Length + i)

		_, err = insert.ExecContext(ctx, p.Code, p.Name, p.PriceCents)
		if err != nil {
			return 0, fmt.Errorf("seed: insert %s: %w", p.Code, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("seed: commit: %w", err)
	}

	committed = true

	return n, nil
}

// seedProduct derives a deterministic product from its sequence number.
func seedProduct(i int) Product {
	word := seedWords[i%len(seedWords)]
	size := 4 + (i/len(seedWords))%12

	return Product{
		Code:       fmt.Sprintf("P%05d", i),
		Name:       fmt.Sprintf("%s %dmm", word, size),
		PriceCents: int64(99 + (i*37)%9900),
	}
}
