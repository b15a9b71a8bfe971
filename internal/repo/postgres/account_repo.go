package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Umer-Fazal/pharmacore/internal/domain"
)

// ErrEmailTaken is returned when an account with the same email exists.
var ErrEmailTaken = errors.New("email already registered")

type AccountRepo interface {
	// FindByEmail does a case-sensitive exact match; (nil, nil) when absent.
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id int64) (*domain.Account, error)
	Create(ctx context.Context, email, passwordHash string, role domain.Role) (*domain.Account, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type AccountRepoImpl struct{ pool *pgxpool.Pool }

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepoImpl { return &AccountRepoImpl{pool: pool} }

const accountCols = `id, email, password_hash, role, created_at`

func (r *AccountRepoImpl) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts WHERE email = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var a domain.Account
	err := r.pool.QueryRow(ctx, q, email).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepoImpl) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var a domain.Account
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepoImpl) Create(ctx context.Context, email, passwordHash string, role domain.Role) (*domain.Account, error) {
	const q = `INSERT INTO accounts (email, password_hash, role)
  VALUES ($1, $2, $3)
  RETURNING ` + accountCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var a domain.Account
	err := r.pool.QueryRow(ctx, q, email, passwordHash, role).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepoImpl) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const q = `UPDATE accounts SET password_hash = $1 WHERE id = $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, passwordHash, id)
	return err
}

var _ AccountRepo = (*AccountRepoImpl)(nil)
