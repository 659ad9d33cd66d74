package ports

import (
	"context"

	"github.com/docshare/identity-api/internal/core/domain"
	"github.com/docshare/identity-api/internal/core/pagination"
)

// SignupInput carries the signup form.
type SignupInput struct {
	Email                string
	Username             string
	Password             string
	ConfirmationPassword string
}

// UpdateInput is the raw update payload. Password is the caller's current
// password; NewPassword and ConfirmationPassword authorize a change of it.
type UpdateInput struct {
	Email                string
	Username             string
	Password             string
	FullName             string
	Bio                  string
	NewPassword          string
	ConfirmationPassword string
}

// AuthResult is returned by Login and Signup.
type AuthResult struct {
	Token   string
	User    *domain.User
	Message string
}

// UpdateResult is returned by Update. User is redacted.
type UpdateResult struct {
	User    *domain.User
	Message string
}

// ListResult is returned by List. Meta is nil when no page was requested.
type ListResult struct {
	Users []*domain.User
	Count int64
	Meta  *pagination.Metadata
}

// UserService defines the identity use cases exposed over HTTP.
type UserService interface {
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)
	List(ctx context.Context, page *domain.Page) (*ListResult, error)
	Get(ctx context.Context, id int64) (*domain.User, error)
	Update(ctx context.Context, id int64, in UpdateInput) (*UpdateResult, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, query string) ([]*domain.User, int64, error)
}
