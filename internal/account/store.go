package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"certo/pkg/platform/sentinel"
	"certo/pkg/requestcontext"
)

// Store persists accounts. FindByEmail returns sentinel.ErrNotFound when
// no account exists for the address.
type Store interface {
	Create(ctx context.Context, account *Account) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
}

// MemoryStore keeps accounts in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	accounts map[string]*Account
}

// NewMemoryStore constructs an empty in-memory account store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, accounts: make(map[string]*Account)}
}

func (s *MemoryStore) Create(ctx context.Context, account *Account) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.Email]; exists {
		return nil, sentinel.ErrConflict
	}
	stored := *account
	stored.ID = s.nextID
	stored.CreatedAt = requestcontext.Now(ctx)
	s.nextID++
	s.accounts[stored.Email] = &stored
	out := stored
	return &out, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *account
	return &out, nil
}

// PostgresStore persists accounts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed account store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, account *Account) (*Account, error) {
	query := `
		INSERT INTO accounts (username, email, password_hash, confirmed, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, username, email, password_hash, confirmed, created_at`
	now := requestcontext.Now(ctx)
	var created Account
	err := s.db.QueryRowContext(ctx, query,
		account.Username, account.Email, account.PasswordHash, account.Confirmed, now,
	).Scan(&created.ID, &created.Username, &created.Email, &created.PasswordHash, &created.Confirmed, &created.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var account Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, confirmed, created_at FROM accounts WHERE email = $1`,
		email,
	).Scan(&account.ID, &account.Username, &account.Email, &account.PasswordHash, &account.Confirmed, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &account, nil
}
