package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"certo/internal/credential/models"
	"certo/pkg/platform/sentinel"
	"certo/pkg/platform/tx"
	"certo/pkg/requestcontext"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists credentials in PostgreSQL. Type and proof are
// jsonb columns; credential_id carries a unique constraint that backs
// import dedup.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential store.
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

const credentialColumns = `id, credential_id, type, name, description, issuance_date, expiration_date, revoked, revocation_reason, achievement_id, issuer_id, recipient_id, proof, created_at, updated_at`

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, credential *models.Credential) (*models.Credential, error) {
	types, err := json.Marshal(credential.Type)
	if err != nil {
		return nil, fmt.Errorf("marshal credential type: %w", err)
	}
	proof, err := json.Marshal(credential.Proof)
	if err != nil {
		return nil, fmt.Errorf("marshal credential proof: %w", err)
	}
	now := requestcontext.Now(ctx)
	query := `
		INSERT INTO credentials (credential_id, type, name, description, issuance_date, expiration_date, revoked, revocation_reason, achievement_id, issuer_id, recipient_id, proof, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		RETURNING ` + credentialColumns
	row := s.conn(ctx).QueryRowContext(ctx, query,
		credential.CredentialID, types, credential.Name, credential.Description,
		credential.IssuanceDate, nullTime(credential.ExpirationDate),
		credential.Revoked, credential.RevocationReason,
		credential.AchievementID, credential.IssuerID, credential.RecipientID,
		proof, now,
	)
	created, err := scanCredential(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("create credential: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.Credential, error) {
	return s.findOne(ctx, `SELECT `+credentialColumns+` FROM credentials WHERE id = $1`, id)
}

func (s *PostgresStore) FindByCredentialID(ctx context.Context, credentialID string) (*models.Credential, error) {
	return s.findOne(ctx, `SELECT `+credentialColumns+` FROM credentials WHERE credential_id = $1`, credentialID)
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, recipientID int64) ([]*models.Credential, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE recipient_id = $1 ORDER BY id`, recipientID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var credentials []*models.Credential
	for rows.Next() {
		credential, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("list credentials: %w", err)
		}
		credentials = append(credentials, credential)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return credentials, nil
}

func (s *PostgresStore) Update(ctx context.Context, credential *models.Credential) error {
	proof, err := json.Marshal(credential.Proof)
	if err != nil {
		return fmt.Errorf("marshal credential proof: %w", err)
	}
	query := `
		UPDATE credentials
		SET name = $2, description = $3, expiration_date = $4, revoked = $5,
		    revocation_reason = $6, proof = $7, updated_at = $8
		WHERE id = $1`
	result, err := s.conn(ctx).ExecContext(ctx, query,
		credential.ID, credential.Name, credential.Description,
		nullTime(credential.ExpirationDate), credential.Revoked,
		credential.RevocationReason, proof, requestcontext.Now(ctx),
	)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Credential, error) {
	credential, err := scanCredential(s.conn(ctx).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return credential, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*models.Credential, error) {
	var (
		credential models.Credential
		types      []byte
		proof      []byte
		expiration sql.NullTime
	)
	err := row.Scan(
		&credential.ID, &credential.CredentialID, &types, &credential.Name,
		&credential.Description, &credential.IssuanceDate, &expiration,
		&credential.Revoked, &credential.RevocationReason,
		&credential.AchievementID, &credential.IssuerID, &credential.RecipientID,
		&proof, &credential.CreatedAt, &credential.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if expiration.Valid {
		credential.ExpirationDate = &expiration.Time
	}
	if len(types) > 0 {
		if err := json.Unmarshal(types, &credential.Type); err != nil {
			return nil, fmt.Errorf("unmarshal credential type: %w", err)
		}
	}
	if len(proof) > 0 {
		if err := json.Unmarshal(proof, &credential.Proof); err != nil {
			return nil, fmt.Errorf("unmarshal credential proof: %w", err)
		}
	}
	return &credential, nil
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}
