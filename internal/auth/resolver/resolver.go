package resolver

import (
	"context"

	"storefront/internal/auth"
)

// Resolver maps an external identity to an internal user id.
// It is the only place where identity-to-user linking happens.
type Resolver interface {
	Resolve(
		ctx context.Context,
		identity *auth.Identity,
	) (userID string, err error)
}
