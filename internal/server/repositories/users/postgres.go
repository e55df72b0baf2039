package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/dmitrijs2005/stockkeeper/internal/dbx"
	"github.com/dmitrijs2005/stockkeeper/internal/server/auth"
	"github.com/dmitrijs2005/stockkeeper/internal/server/models"
	"github.com/google/uuid"
)

const selectUser = `SELECT id, username, pass_salt, pass_hash, secret, failed_attempts, locked_until, created_at
		 FROM auth_users
		 WHERE username = $1`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetForUpdate reads the user and row-locks it until the surrounding
// transaction ends, so concurrent logins for one user are serialised.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, userName string) (*models.User, error) {
	return r.getUser(ctx, selectUser+"\n\t\t FOR UPDATE", userName)
}

func (r *PostgresRepository) getUser(ctx context.Context, query, userName string) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, userName).Scan(
		&user.ID, &user.UserName, &user.PassSalt, &user.PassHash, &user.TOTPSecret,
		&user.FailedAttempts, &user.LockedUntil, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, userName string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM auth_users WHERE username = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userName).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return exists, nil
}

func (r *PostgresRepository) UpdateLockout(ctx context.Context, userName string, state auth.LockoutState) error {
	query :=
		`UPDATE auth_users SET failed_attempts = $2, locked_until = $3
		 WHERE username = $1`

	var lockedUntil any
	if state.LockedUntil != nil {
		lockedUntil = state.LockedUntil.UTC()
	}

	if _, err := r.db.ExecContext(ctx, query, userName, state.FailedAttempts, lockedUntil); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// UpsertFixedCode creates the user or replaces its code, clearing any lockout.
func (r *PostgresRepository) UpsertFixedCode(ctx context.Context, userName, salt, hash string) error {
	query :=
		`INSERT INTO auth_users (id, username, pass_salt, pass_hash, failed_attempts, locked_until)
		 VALUES ($1, $2, $3, $4, 0, NULL)
		 ON CONFLICT (username) DO UPDATE
		 SET pass_salt = EXCLUDED.pass_salt, pass_hash = EXCLUDED.pass_hash, failed_attempts = 0, locked_until = NULL`

	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), userName, salt, hash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// UpdateFixedCode replaces the code of an existing user, clearing any
// lockout. It returns common.ErrorNotFound when no such user exists.
func (r *PostgresRepository) UpdateFixedCode(ctx context.Context, userName, salt, hash string) error {
	query :=
		`UPDATE auth_users SET pass_salt = $2, pass_hash = $3, failed_attempts = 0, locked_until = NULL
		 WHERE username = $1`

	res, err := r.db.ExecContext(ctx, query, userName, salt, hash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

// EnrollTOTPSecret creates the user with a TOTP secret, or stores the secret
// on an existing user that has no credentials yet. A user that already holds
// a fixed code or a secret is left untouched and common.ErrorConflict is
// returned.
func (r *PostgresRepository) EnrollTOTPSecret(ctx context.Context, userName, secret string) error {
	query :=
		`INSERT INTO auth_users (id, username, secret)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (username) DO UPDATE SET secret = EXCLUDED.secret
		 WHERE auth_users.secret IS NULL
		   AND (auth_users.pass_salt IS NULL OR auth_users.pass_hash IS NULL)`

	res, err := r.db.ExecContext(ctx, query, uuid.NewString(), userName, secret)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorConflict
	}

	return nil
}
