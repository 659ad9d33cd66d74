package ports

import (
	"context"

	"github.com/docshare/identity-api/internal/core/domain"
)

// UserRepository is the record store collaborator. Implementations report
// missing rows as domain.ErrUserNotFound, unique-index collisions as a
// CauseDuplicateUnique failure and timeouts as domain.ErrStoreTimeout.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	// List returns one window of users ordered by id and the total count.
	List(ctx context.Context, page domain.Page) ([]*domain.User, int64, error)
	// SearchByEmail matches users whose email contains query, ignoring case.
	SearchByEmail(ctx context.Context, query string) ([]*domain.User, int64, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, id int64, update domain.UserUpdate) (*domain.User, error)
	// Delete removes the user if present. A missing id is not an error.
	Delete(ctx context.Context, id int64) error
}
