package review

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
	ErrMessageTooLong = errors.New("review message too long")
)

const (
	MinRating = 1
	MaxRating = 5

	maxMessageLen = 4000
)

type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists one review per (product, user).
type Store interface {
	// ListForProduct returns reviews newest first.
	ListForProduct(ctx context.Context, productID string) ([]Review, error)
	// ForUser returns nil, nil when the user has not reviewed the product.
	ForUser(ctx context.Context, productID, userID string) (*Review, error)
	// Upsert creates the review or replaces rating and message, keeping CreatedAt.
	Upsert(ctx context.Context, r Review) (*Review, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) ListForProduct(ctx context.Context, productID string) ([]Review, error) {
	reviews, err := s.store.ListForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []Review{}
	}
	return reviews, nil
}

func (s *Service) ForUser(ctx context.Context, productID, userID string) (*Review, error) {
	return s.store.ForUser(ctx, productID, userID)
}

// Write validates and stores the user's review of a product.
func (s *Service) Write(
	ctx context.Context,
	productID string,
	userID string,
	rating int,
	message string,
) (*Review, error) {

	if rating < MinRating || rating > MaxRating {
		return nil, ErrInvalidRating
	}

	message = strings.TrimSpace(message)
	if len(message) > maxMessageLen {
		return nil, ErrMessageTooLong
	}

	return s.store.Upsert(ctx, Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Message:   message,
	})
}
