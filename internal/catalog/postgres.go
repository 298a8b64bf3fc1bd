package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/db"

	"github.com/lib/pq"
)

type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const productColumns = `id, name, description, images, price_usd::text, active`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		pq.Array(&p.Images),
		&p.Metadata.PriceUSD,
		&p.Active,
	)
	if p.Images == nil {
		p.Images = []string{}
	}
	return p, err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1 AND active
	`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get %s: %w", id, err)
	}

	return &p, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: list scan: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

func (s *PostgresStore) Upsert(ctx context.Context, p Product) error {
	if err := p.Validate(); err != nil {
		return err
	}

	images := p.Images
	if images == nil {
		images = []string{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, images, price_usd, active)
		VALUES ($1, $2, $3, $4, $5::numeric, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			images = EXCLUDED.images,
			price_usd = EXCLUDED.price_usd,
			active = EXCLUDED.active,
			updated_at = NOW()
	`,
		p.ID,
		p.Name,
		p.Description,
		pq.Array(images),
		p.Metadata.PriceUSD,
		p.Active,
	)
	if err != nil {
		return fmt.Errorf("catalog: upsert %s: %w", p.ID, err)
	}

	return nil
}
