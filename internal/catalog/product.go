package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrNotFound = errors.New("product not found")

type Metadata struct {
	PriceUSD string `json:"price_usd" yaml:"price_usd"`
}

type Product struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Images      []string `json:"images" yaml:"images"`
	Metadata    Metadata `json:"metadata" yaml:"metadata"`
	Active      bool     `json:"active" yaml:"active"`
}

// Store reads and writes the product catalog.
// Get and List only see active products.
type Store interface {
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	Upsert(ctx context.Context, p Product) error
}

// PriceCents parses Metadata.PriceUSD ("12", "12.5", "12.50") into cents.
func (p Product) PriceCents() (int64, error) {
	return ParsePriceCents(p.Metadata.PriceUSD)
}

func ParsePriceCents(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("catalog: empty price")
	}

	whole, frac, hasFrac := strings.Cut(raw, ".")
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, fmt.Errorf("catalog: invalid price %q", raw)
		}
		if len(frac) == 1 {
			frac += "0"
		}
	} else {
		frac = "00"
	}

	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || dollars < 0 {
		return 0, fmt.Errorf("catalog: invalid price %q", raw)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || cents < 0 {
		return 0, fmt.Errorf("catalog: invalid price %q", raw)
	}

	return dollars*100 + cents, nil
}

// FormatCents renders cents as a USD amount with two decimals.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// Validate checks the fields the seed CLI and Upsert rely on.
func (p Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("catalog: product id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("catalog: product %s: name is required", p.ID)
	}
	if _, err := p.PriceCents(); err != nil {
		return fmt.Errorf("catalog: product %s: %w", p.ID, err)
	}
	return nil
}
