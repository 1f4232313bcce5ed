package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"certo/internal/revocation/models"
	"certo/pkg/platform/sentinel"
	"certo/pkg/platform/tx"
	"certo/pkg/requestcontext"
)

// PostgresStore persists status lists in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed status list store.
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

const listColumns = `id, issuer_id, status_list_credential, status_purpose, encoded_list, last_updated, created_at`

func (s *PostgresStore) Create(ctx context.Context, list *models.StatusList) (*models.StatusList, error) {
	now := requestcontext.Now(ctx)
	query := `
		INSERT INTO revocation_lists (issuer_id, status_list_credential, status_purpose, encoded_list, last_updated, created_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING ` + listColumns
	row := s.conn(ctx).QueryRowContext(ctx, query,
		list.IssuerID, list.StatusListCredential, list.StatusPurpose, list.EncodedList, now,
	)
	created, err := scanList(row)
	if err != nil {
		return nil, fmt.Errorf("create status list: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.StatusList, error) {
	return s.findOne(ctx, `SELECT `+listColumns+` FROM revocation_lists WHERE id = $1`, id)
}

func (s *PostgresStore) FindByIssuer(ctx context.Context, issuerID int64) (*models.StatusList, error) {
	return s.findOne(ctx, `SELECT `+listColumns+` FROM revocation_lists WHERE issuer_id = $1 ORDER BY id LIMIT 1`, issuerID)
}

func (s *PostgresStore) Update(ctx context.Context, list *models.StatusList) error {
	query := `
		UPDATE revocation_lists
		SET encoded_list = $2, status_purpose = $3, last_updated = $4
		WHERE id = $1`
	result, err := s.conn(ctx).ExecContext(ctx, query,
		list.ID, list.EncodedList, list.StatusPurpose, requestcontext.Now(ctx))
	if err != nil {
		return fmt.Errorf("update status list: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status list: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.StatusList, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT `+listColumns+` FROM revocation_lists ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list status lists: %w", err)
	}
	defer rows.Close()

	var lists []*models.StatusList
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("list status lists: %w", err)
		}
		lists = append(lists, list)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list status lists: %w", err)
	}
	return lists, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.StatusList, error) {
	list, err := scanList(s.conn(ctx).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find status list: %w", err)
	}
	return list, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanList(row rowScanner) (*models.StatusList, error) {
	var list models.StatusList
	err := row.Scan(
		&list.ID, &list.IssuerID, &list.StatusListCredential, &list.StatusPurpose,
		&list.EncodedList, &list.LastUpdated, &list.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &list, nil
}
