package users

import (
	"context"

	"github.com/dmitrijs2005/stockkeeper/internal/server/auth"
	"github.com/dmitrijs2005/stockkeeper/internal/server/models"
)

type Repository interface {
	GetForUpdate(ctx context.Context, login string) (*models.User, error)
	Exists(ctx context.Context, login string) (bool, error)
	UpdateLockout(ctx context.Context, login string, state auth.LockoutState) error
	UpsertFixedCode(ctx context.Context, login, salt, hash string) error
	UpdateFixedCode(ctx context.Context, login, salt, hash string) error
	EnrollTOTPSecret(ctx context.Context, login, secret string) error
}
