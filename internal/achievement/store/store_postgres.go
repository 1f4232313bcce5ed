package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"certo/internal/achievement/models"
	"certo/pkg/platform/sentinel"
	"certo/pkg/platform/tx"
	"certo/pkg/requestcontext"
)

// PostgresStore persists achievements in PostgreSQL. Criteria, alignments,
// skills, and tags are jsonb columns.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed achievement store.
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

const achievementColumns = `id, achievement_id, name, description, achievement_type, criteria, alignments, skills, image_url, creator_id, published, tags, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, achievement *models.Achievement) (*models.Achievement, error) {
	criteria, err := json.Marshal(achievement.Criteria)
	if err != nil {
		return nil, fmt.Errorf("marshal criteria: %w", err)
	}
	alignments, err := json.Marshal(achievement.Alignments)
	if err != nil {
		return nil, fmt.Errorf("marshal alignments: %w", err)
	}
	skills, err := json.Marshal(achievement.Skills)
	if err != nil {
		return nil, fmt.Errorf("marshal skills: %w", err)
	}
	tags, err := json.Marshal(achievement.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	now := requestcontext.Now(ctx)
	query := `
		INSERT INTO achievements (achievement_id, name, description, achievement_type, criteria, alignments, skills, image_url, creator_id, published, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		RETURNING ` + achievementColumns
	row := s.conn(ctx).QueryRowContext(ctx, query,
		achievement.AchievementID, achievement.Name, achievement.Description,
		achievement.AchievementType, criteria, alignments, skills,
		achievement.ImageURL, achievement.CreatorID, achievement.Published, tags, now,
	)
	created, err := scanAchievement(row)
	if err != nil {
		return nil, fmt.Errorf("create achievement: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.Achievement, error) {
	return s.findOne(ctx, `SELECT `+achievementColumns+` FROM achievements WHERE id = $1`, id)
}

func (s *PostgresStore) FindByAchievementID(ctx context.Context, achievementID string) (*models.Achievement, error) {
	return s.findOne(ctx, `SELECT `+achievementColumns+` FROM achievements WHERE achievement_id = $1`, achievementID)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Achievement, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT `+achievementColumns+` FROM achievements ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	var achievements []*models.Achievement
	for rows.Next() {
		achievement, err := scanAchievement(rows)
		if err != nil {
			return nil, fmt.Errorf("list achievements: %w", err)
		}
		achievements = append(achievements, achievement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return achievements, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Achievement, error) {
	achievement, err := scanAchievement(s.conn(ctx).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find achievement: %w", err)
	}
	return achievement, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAchievement(row rowScanner) (*models.Achievement, error) {
	var (
		achievement models.Achievement
		criteria    []byte
		alignments  []byte
		skills      []byte
		tags        []byte
	)
	err := row.Scan(
		&achievement.ID, &achievement.AchievementID, &achievement.Name,
		&achievement.Description, &achievement.AchievementType,
		&criteria, &alignments, &skills,
		&achievement.ImageURL, &achievement.CreatorID, &achievement.Published,
		&tags, &achievement.CreatedAt, &achievement.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	for _, col := range []struct {
		raw  []byte
		dest any
	}{
		{criteria, &achievement.Criteria},
		{alignments, &achievement.Alignments},
		{skills, &achievement.Skills},
		{tags, &achievement.Tags},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dest); err != nil {
			return nil, fmt.Errorf("unmarshal achievement column: %w", err)
		}
	}
	return &achievement, nil
}
