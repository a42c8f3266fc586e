package domain

import (
	"context"

	"github.com/smallbiznis/roomlease/internal/identity"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Profile, error)
	Login(ctx context.Context, req LoginRequest) (*Profile, error)
	Me(ctx context.Context, caller identity.CallerIdentity) (*Profile, error)
	Authenticate(ctx context.Context, rawToken string) (identity.CallerIdentity, error)
}

type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName string  `json:"full_name"`
	Role     string  `json:"role"`
	Phone    *string `json:"phone"`

	ClientIP string `json:"-"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	ClientIP string `json:"-"`
}
