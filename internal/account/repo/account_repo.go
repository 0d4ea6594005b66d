package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/pkg/utilities"
)

// ErrNotFound is returned when no account matches the lookup.
var ErrNotFound = errors.New("account not found")

// EmailUniqueIndex is the unique index on accounts.email.
const EmailUniqueIndex = "idx_accounts_email"

// ConstraintError reports a row rejected by a table constraint. Message is
// safe to show to the caller.
type ConstraintError struct {
	Constraint string
	Column     string
	Message    string
	Err        error
}

func (e *ConstraintError) Error() string { return e.Message }
func (e *ConstraintError) Unwrap() error { return e.Err }

const selectAccount = `SELECT id, first_name, last_name, email, password_hash, password_algo,
		terms_accepted, created_at, updated_at
	  FROM accounts`

// AccountRepo provides data access for the accounts table using sqlx.
type AccountRepo struct {
	db    *sqlx.DB
	newID func() string
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo {
	return &AccountRepo{db: db, newID: utilities.NewSnowflakeID}
}

// Create inserts a new account. The id is assigned here when empty; created_at
// and updated_at come back from the database.
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) error {
	if a.ID == "" {
		a.ID = r.newID()
	}
	const q = `INSERT INTO accounts (id, first_name, last_name, email, password_hash, password_algo, terms_accepted)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, q,
		a.ID, a.FirstName, a.LastName, a.Email, a.PasswordHash, a.PasswordAlgo, a.TermsAccepted)
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return translateError(err)
	}
	return nil
}

// GetByEmail returns an account matched by email (case-insensitive due to citext).
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, selectAccount+` WHERE email=$1`, email); err != nil {
		return nil, translateError(err)
	}
	return &a, nil
}

// GetByID fetches an account by its id.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, selectAccount+` WHERE id=$1`, id); err != nil {
		return nil, translateError(err)
	}
	return &a, nil
}

func translateError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		ce := &ConstraintError{Constraint: pqErr.Constraint, Column: pqErr.Column, Err: err}
		switch pqErr.Code.Name() {
		case "unique_violation":
			// postgres leaves Column empty for index violations
			if pqErr.Constraint == EmailUniqueIndex {
				ce.Column = "email"
				ce.Message = "an account with this email already exists"
				return ce
			}
		case "check_violation":
			ce.Message = "terms and conditions must be accepted"
			return ce
		case "not_null_violation":
			ce.Message = fmt.Sprintf("%s is required", pqErr.Column)
			return ce
		}
	}
	return fmt.Errorf("db error: %w", err)
}
