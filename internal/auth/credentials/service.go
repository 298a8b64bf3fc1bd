package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"

	"storefront/internal/auth"
	"storefront/internal/db"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyRegistered  = errors.New("credentials already exist")
	ErrInvalidEmail       = errors.New("invalid email")
)

type Service struct {
	db *db.DB
}

func NewService(db *db.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Register(
	ctx context.Context,
	email string,
	password string,
) (*Account, error) {

	email = auth.NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}

	// hash before opening the transaction; bcrypt is slow
	hash, version, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("credentials: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// 1. Find or create user by email
	var userID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM users
		WHERE LOWER(email) = $1
	`, email).Scan(&userID)

	if errors.Is(err, sql.ErrNoRows) {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO users (email, email_verified)
			VALUES ($1, false)
			RETURNING id
		`, email).Scan(&userID)
	}
	if err != nil {
		return nil, fmt.Errorf("credentials: user: %w", err)
	}

	// 2. Insert credentials unless the user already has some
	res, err := tx.ExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, hash_version)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, hash, version)
	if err != nil {
		return nil, fmt.Errorf("credentials: insert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrAlreadyRegistered
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("credentials: commit: %w", err)
	}

	return &Account{UserID: userID.String(), Email: email}, nil
}

func (s *Service) Authenticate(
	ctx context.Context,
	email string,
	password string,
) (*Account, error) {

	email = auth.NormalizeEmail(email)

	var (
		userID       uuid.UUID
		passwordHash string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, c.password_hash
		FROM users u
		JOIN credentials c ON c.user_id = u.id
		WHERE LOWER(u.email) = $1
		  AND u.status = 'active'
	`, email).Scan(&userID, &passwordHash)

	if errors.Is(err, sql.ErrNoRows) {
		// hide whether the user exists
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("credentials: lookup: %w", err)
	}

	if err := VerifyPassword(passwordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &Account{UserID: userID.String(), Email: email}, nil
}
