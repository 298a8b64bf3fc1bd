package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/db"

	"github.com/google/uuid"
)

type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const reviewColumns = `id, product_id, user_id, rating, message, created_at, updated_at`

func scanReview(row interface{ Scan(...any) error }) (Review, error) {
	var (
		r      Review
		id     uuid.UUID
		userID uuid.UUID
	)
	err := row.Scan(&id, &r.ProductID, &userID, &r.Rating, &r.Message, &r.CreatedAt, &r.UpdatedAt)
	r.ID = id.String()
	r.UserID = userID.String()
	return r, err
}

func (s *PostgresStore) ListForProduct(ctx context.Context, productID string) ([]Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC, id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("review: list %s: %w", productID, err)
	}
	defer rows.Close()

	reviews := []Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("review: list scan: %w", err)
		}
		reviews = append(reviews, r)
	}

	return reviews, rows.Err()
}

func (s *PostgresStore) ForUser(ctx context.Context, productID, userID string) (*Review, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		// not a user this database could have stored
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE product_id = $1 AND user_id = $2
	`, productID, uid)

	r, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("review: for user: %w", err)
	}

	return &r, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, in Review) (*Review, error) {
	uid, err := uuid.Parse(in.UserID)
	if err != nil {
		return nil, fmt.Errorf("review: invalid user id %q: %w", in.UserID, err)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO reviews (id, product_id, user_id, rating, message)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, user_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			message = EXCLUDED.message,
			updated_at = NOW()
		RETURNING `+reviewColumns,
		uuid.New(),
		in.ProductID,
		uid,
		in.Rating,
		in.Message,
	)

	r, err := scanReview(row)
	if err != nil {
		return nil, fmt.Errorf("review: upsert: %w", err)
	}

	return &r, nil
}
