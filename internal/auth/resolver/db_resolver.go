package resolver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/auth"
	"storefront/internal/db"

	"github.com/google/uuid"
)

var ErrUnverifiedEmail = errors.New("identity email is not verified")

// DBResolver resolves identities using postgres.
type DBResolver struct {
	db *db.DB
}

func NewDBResolver(db *db.DB) *DBResolver {
	return &DBResolver{db: db}
}

// Resolve looks the identity up, links it to an existing user with the
// same verified email, or creates a new user. Linking by email requires
// the provider to assert the email is verified.
func (r *DBResolver) Resolve(
	ctx context.Context,
	identity *auth.Identity,
) (string, error) {

	if identity == nil {
		return "", errors.New("identity is nil")
	}
	email := auth.NormalizeEmail(identity.Email)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("resolver: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// 1. Known identity
	var userID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT user_id
		FROM identities
		WHERE provider = $1
		  AND provider_user_id = $2
	`,
		identity.Provider,
		identity.ProviderUserID,
	).Scan(&userID)

	if err == nil {
		return userID.String(), tx.Commit()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("resolver: identity lookup: %w", err)
	}

	// 2. Existing user with the same email
	err = tx.QueryRowContext(ctx, `
		SELECT id
		FROM users
		WHERE LOWER(email) = $1
	`, email).Scan(&userID)

	switch {
	case err == nil:
		if !identity.EmailVerified {
			return "", ErrUnverifiedEmail
		}

	case errors.Is(err, sql.ErrNoRows):
		// 3. New user
		err = tx.QueryRowContext(ctx, `
			INSERT INTO users (email, email_verified)
			VALUES ($1, $2)
			RETURNING id
		`,
			email,
			identity.EmailVerified,
		).Scan(&userID)
		if err != nil {
			return "", fmt.Errorf("resolver: create user: %w", err)
		}

	default:
		return "", fmt.Errorf("resolver: email lookup: %w", err)
	}

	// 4. Identity mapping
	_, err = tx.ExecContext(ctx, `
		INSERT INTO identities (user_id, provider, provider_user_id)
		VALUES ($1, $2, $3)
	`,
		userID,
		identity.Provider,
		identity.ProviderUserID,
	)
	if err != nil {
		return "", fmt.Errorf("resolver: link identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("resolver: commit: %w", err)
	}

	return userID.String(), nil
}
