package cli

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/calvinalkan/rollcache/internal/store"
)

var errBadPrice = errors.New("price must look like 12.34")

// formatRow renders one product as a tab separated line led by its row number.
func formatRow(row int, p store.Product) string {
	return fmt.Sprintf("%d\t%d\t%s\t%s\t%s", row, p.ID, p.Code, p.Name, formatPrice(p.PriceCents))
}

func formatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func parsePrice(s string) (int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w, got %q", errBadPrice, s)
	}

	return int64(math.Round(f * 100)), nil
}

func parseRow(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("row must be a non-negative integer, got %q", s)
	}

	return n, nil
}
