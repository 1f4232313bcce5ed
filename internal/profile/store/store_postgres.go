package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"certo/internal/profile/models"
	"certo/pkg/platform/sentinel"
	"certo/pkg/platform/tx"
	"certo/pkg/requestcontext"
)

// PostgresStore persists profiles in PostgreSQL. Key descriptors live in a
// jsonb column; lookups by email, DID, and URL back issuer resolution and
// recipient dedup during issuance and import.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed profile store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

const profileColumns = `id, name, email, url, did, description, profile_type, public_keys, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	keys, err := json.Marshal(profile.PublicKeys)
	if err != nil {
		return nil, fmt.Errorf("marshal public keys: %w", err)
	}
	now := requestcontext.Now(ctx)
	query := `
		INSERT INTO profiles (name, email, url, did, description, profile_type, public_keys, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING ` + profileColumns
	row := s.conn(ctx).QueryRowContext(ctx, query,
		profile.Name, profile.Email, profile.URL, profile.DID,
		profile.Description, string(profile.ProfileType), keys, now,
	)
	created, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.Profile, error) {
	return s.findOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return s.findOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = $1 AND email <> ''`, email)
}

func (s *PostgresStore) FindByDID(ctx context.Context, did string) (*models.Profile, error) {
	return s.findOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE did = $1 AND did <> ''`, did)
}

func (s *PostgresStore) FindByURL(ctx context.Context, url string) (*models.Profile, error) {
	return s.findOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE url = $1 AND url <> ''`, url)
}

func (s *PostgresStore) Update(ctx context.Context, profile *models.Profile) error {
	keys, err := json.Marshal(profile.PublicKeys)
	if err != nil {
		return fmt.Errorf("marshal public keys: %w", err)
	}
	query := `
		UPDATE profiles
		SET name = $2, email = $3, url = $4, did = $5, description = $6,
		    profile_type = $7, public_keys = $8, updated_at = $9
		WHERE id = $1`
	result, err := s.conn(ctx).ExecContext(ctx, query,
		profile.ID, profile.Name, profile.Email, profile.URL, profile.DID,
		profile.Description, string(profile.ProfileType), keys, requestcontext.Now(ctx),
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Profile, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("list profiles: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Profile, error) {
	profile, err := scanProfile(s.conn(ctx).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return profile, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var (
		profile     models.Profile
		profileType string
		keysRaw     []byte
	)
	err := row.Scan(
		&profile.ID, &profile.Name, &profile.Email, &profile.URL, &profile.DID,
		&profile.Description, &profileType, &keysRaw, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	profile.ProfileType = models.ProfileType(profileType)
	if len(keysRaw) > 0 {
		if err := json.Unmarshal(keysRaw, &profile.PublicKeys); err != nil {
			return nil, fmt.Errorf("unmarshal public keys: %w", err)
		}
	}
	return &profile, nil
}
