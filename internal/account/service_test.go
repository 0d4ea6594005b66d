package account

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/repo"
)

// memStore is an in-memory Store enforcing the unique email constraint.
type memStore struct {
	mu      sync.Mutex
	seq     int
	byID    map[string]*entity.Account
	byEmail map[string]string

	lookups int
	creates int

	lookupErr error
	createErr error
	// skipLookup hides existing rows from GetByEmail to simulate a lost race.
	skipLookup bool
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]*entity.Account{}, byEmail: map[string]string{}}
}

func (m *memStore) Create(_ context.Context, a *entity.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	key := strings.ToLower(a.Email)
	if _, ok := m.byEmail[key]; ok {
		return &repo.ConstraintError{Constraint: repo.EmailUniqueIndex, Message: "an account with this email already exists"}
	}
	m.seq++
	a.ID = strconv.Itoa(m.seq)
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.byID[a.ID] = &cp
	m.byEmail[key] = a.ID
	return nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok || m.skipLookup {
		return nil, repo.ErrNotFound
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func newTestService(store Store) *Service {
	return NewService(store, BcryptHasher{Cost: bcrypt.MinCost}, nil)
}

func TestRegister_Success(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	req := validRequest()
	req.Email = "  Ada@Example.com "
	view, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "1", view.ID)
	assert.Equal(t, "Ada", view.FirstName)
	assert.Equal(t, "Lovelace", view.LastName)
	assert.Equal(t, "ada@example.com", view.Email)

	b, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "password")
	assert.NotContains(t, string(b), "Abcdefg!")

	stored, err := store.GetByID(context.Background(), view.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "Abcdefg!", stored.PasswordHash)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.Equal(t, "bcrypt:4", stored.PasswordAlgo)
	assert.True(t, stored.TermsAccepted)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestRegister_ValidationFailureTouchesNoStore(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	for _, mutate := range []func(*RegistrationRequest){
		func(r *RegistrationRequest) { r.Password = "" },
		func(r *RegistrationRequest) { r.TermsAccepted = nil },
		func(r *RegistrationRequest) { r.LastName = "L0velace" },
		func(r *RegistrationRequest) { r.Email = "user@@example.com" },
		func(r *RegistrationRequest) { r.Password = "abcdefgh" },
	} {
		req := validRequest()
		mutate(&req)
		_, err := svc.Register(context.Background(), req)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve), "got %v", err)
	}
	assert.Zero(t, store.lookups)
	assert.Zero(t, store.creates)
}

func TestRegister_DuplicateIsCaseInsensitive(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	first := validRequest()
	first.Email = "A@x.com"
	_, err := svc.Register(context.Background(), first)
	require.NoError(t, err)

	second := validRequest()
	second.Email = "a@x.com"
	_, err = svc.Register(context.Background(), second)
	assert.ErrorIs(t, err, ErrAccountExists)
	assert.Equal(t, 1, store.creates)
}

func TestRegister_IdenticalRequestTwice(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.Register(context.Background(), validRequest())
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestRegister_LostRaceSurfacesAsValidationError(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	_, err := svc.Register(context.Background(), validRequest())
	require.NoError(t, err)

	store.skipLookup = true
	_, err = svc.Register(context.Background(), validRequest())
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "an account with this email already exists", ve.Message)
	assert.Equal(t, "email", ve.Field)
}

func TestRegister_ConcurrentSameEmailCreatesOnce(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), validRequest())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, store.byID, 1)
}

func TestRegister_LookupError(t *testing.T) {
	store := newMemStore()
	store.lookupErr = errors.New("db down")
	svc := newTestService(store)

	_, err := svc.Register(context.Background(), validRequest())
	require.Error(t, err)
	var ve *ValidationError
	assert.False(t, errors.As(err, &ve))
	assert.NotErrorIs(t, err, ErrAccountExists)
	assert.Zero(t, store.creates)
}

func TestRegister_CreateError(t *testing.T) {
	store := newMemStore()
	store.createErr = errors.New("disk full")
	svc := newTestService(store)

	_, err := svc.Register(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create account")
}

func TestRegister_PasswordTooLong(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	req := validRequest()
	req.Password = "Aa!" + strings.Repeat("b", 80)
	_, err := svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.Zero(t, store.lookups)
	assert.Zero(t, store.creates)
}

func TestRegister_PasswordTooLongForExistingEmail(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	_, err := svc.Register(context.Background(), validRequest())
	require.NoError(t, err)
	lookups := store.lookups

	req := validRequest()
	req.Password = "Aa!" + strings.Repeat("b", 80)
	_, err = svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.NotErrorIs(t, err, ErrAccountExists)
	assert.Equal(t, lookups, store.lookups)
	assert.Equal(t, 1, store.creates)
}

func TestRegister_HasherTooLongIsValidationError(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, tooLongHasher{}, nil)

	_, err := svc.Register(context.Background(), validRequest())
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, ErrPasswordTooLong, ve)
	assert.Zero(t, store.creates)
}

type tooLongHasher struct{}

func (tooLongHasher) Hash(string) (string, string, error) { return "", "", ErrPasswordTooLong }
func (tooLongHasher) Verify(string, string) bool          { return false }

func TestAuthenticate(t *testing.T) {
	svc := newTestService(newMemStore())
	created, err := svc.Register(context.Background(), validRequest())
	require.NoError(t, err)

	view, err := svc.Authenticate(context.Background(), "ADA@example.com", "Abcdefg!")
	require.NoError(t, err)
	assert.Equal(t, created, view)

	_, err = svc.Authenticate(context.Background(), "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = svc.Authenticate(context.Background(), "ghost@example.com", "Abcdefg!")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = svc.Authenticate(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestGet(t *testing.T) {
	svc := newTestService(newMemStore())
	created, err := svc.Register(context.Background(), validRequest())
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = svc.Get(context.Background(), "999")
	assert.ErrorIs(t, err, ErrNotFound)
}
