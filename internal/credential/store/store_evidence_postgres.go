package store

import (
	"context"
	"database/sql"
	"fmt"

	"certo/internal/credential/models"
	"certo/pkg/platform/tx"
	"certo/pkg/requestcontext"
)

// PostgresEvidenceStore persists evidence rows in PostgreSQL.
type PostgresEvidenceStore struct {
	db *sql.DB
}

// NewPostgresEvidence constructs a PostgreSQL-backed evidence store.
func NewPostgresEvidence(db *sql.DB) *PostgresEvidenceStore {
	return &PostgresEvidenceStore{db: db}
}

func (s *PostgresEvidenceStore) conn(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *PostgresEvidenceStore) Create(ctx context.Context, evidence *models.Evidence) (*models.Evidence, error) {
	query := `
		INSERT INTO evidence (credential_id, name, description, narrative, genre, audience, url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, credential_id, name, description, narrative, genre, audience, url, created_at`
	var created models.Evidence
	err := s.conn(ctx).QueryRowContext(ctx, query,
		evidence.CredentialID, evidence.Name, evidence.Description,
		evidence.Narrative, evidence.Genre, evidence.Audience, evidence.URL,
		requestcontext.Now(ctx),
	).Scan(
		&created.ID, &created.CredentialID, &created.Name, &created.Description,
		&created.Narrative, &created.Genre, &created.Audience, &created.URL,
		&created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create evidence: %w", err)
	}
	return &created, nil
}

func (s *PostgresEvidenceStore) ListByCredential(ctx context.Context, credentialID int64) ([]models.Evidence, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT id, credential_id, name, description, narrative, genre, audience, url, created_at
		 FROM evidence WHERE credential_id = $1 ORDER BY id`, credentialID)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer rows.Close()

	var evidence []models.Evidence
	for rows.Next() {
		var row models.Evidence
		err := rows.Scan(
			&row.ID, &row.CredentialID, &row.Name, &row.Description,
			&row.Narrative, &row.Genre, &row.Audience, &row.URL, &row.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("list evidence: %w", err)
		}
		evidence = append(evidence, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	return evidence, nil
}
