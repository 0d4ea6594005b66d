package account

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/repo"
)

// Store is the persistence the service needs. The accounts table carries the
// unique email constraint that the service relies on under concurrency.
type Store interface {
	Create(ctx context.Context, a *entity.Account) error
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	GetByID(ctx context.Context, id string) (*entity.Account, error)
}

var (
	ErrAccountExists  = errors.New("account already exists")
	ErrBadCredentials = errors.New("invalid credentials")
	ErrNotFound       = errors.New("account not found")
)

// Service validates registrations and writes accounts.
type Service struct {
	store  Store
	hasher PasswordHasher
	logger *zap.SugaredLogger
}

func NewService(store Store, hasher PasswordHasher, logger *zap.SugaredLogger) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: DefaultBcryptCost}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{store: store, hasher: hasher, logger: logger}
}

// Register validates req, rejects an already registered email and persists
// a new account. Only the public view is returned.
//
// The email lookup runs before the insert to give a clean conflict error;
// two concurrent registrations can both pass it, and the loser is rejected
// by the unique index as a *ValidationError.
func (s *Service) Register(ctx context.Context, req RegistrationRequest) (*entity.PublicView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.trimmed()
	email := NormalizeEmail(req.Email)

	_, err := s.store.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrAccountExists
	case !errors.Is(err, repo.ErrNotFound):
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	hash, algo, err := s.hasher.Hash(req.Password)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return nil, ve
		}
		return nil, fmt.Errorf("derive credential: %w", err)
	}

	a := &entity.Account{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         email,
		PasswordHash:  hash,
		PasswordAlgo:  algo,
		TermsAccepted: true,
	}
	if err := s.store.Create(ctx, a); err != nil {
		var ce *repo.ConstraintError
		if errors.As(err, &ce) {
			s.logger.Infow("account rejected by store", "constraint", ce.Constraint, "email", email)
			field := ce.Column
			if ce.Constraint == repo.EmailUniqueIndex {
				field = "email"
			}
			return nil, &ValidationError{Field: field, Message: ce.Message}
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Infow("account registered", "id", a.ID)
	return a.PublicView(), nil
}

// Authenticate checks an email/password pair against the stored credential.
// Unknown emails and wrong passwords both yield ErrBadCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entity.PublicView, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrBadCredentials
	}
	a, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if !s.hasher.Verify(a.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	return a.PublicView(), nil
}

// Get returns the public view of the account with the given id.
func (s *Service) Get(ctx context.Context, id string) (*entity.PublicView, error) {
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a.PublicView(), nil
}
