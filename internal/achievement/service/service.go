// Package service manages the achievement catalog.
package service

import (
	"context"
	"errors"
	"strings"

	"certo/internal/achievement/models"
	"certo/internal/achievement/store"
	dErrors "certo/pkg/domain-errors"
	"certo/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// Service manages badge classes.
type Service struct {
	store store.Store
}

func New(st store.Store) *Service {
	return &Service{store: st}
}

// CreateInput carries the fields accepted when defining an achievement.
type CreateInput struct {
	AchievementID   string
	Name            string
	Description     string
	AchievementType string
	Criteria        models.Criteria
	Alignments      []models.Alignment
	Skills          []string
	ImageURL        string
	CreatorID       int64
	Published       bool
	Tags            []string
}

// Create defines a new achievement. A stable external identifier is
// generated when the caller does not supply one.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Achievement, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "achievement name is required")
	}
	achievementID := in.AchievementID
	if achievementID == "" {
		achievementID = "urn:uuid:" + uuid.NewString()
	} else {
		if _, err := s.store.FindByAchievementID(ctx, achievementID); err == nil {
			return nil, dErrors.New(dErrors.CodeConflict, "achievement already exists")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check achievement id")
		}
	}
	achievementType := in.AchievementType
	if achievementType == "" {
		achievementType = "Achievement"
	}
	created, err := s.store.Create(ctx, &models.Achievement{
		AchievementID:   achievementID,
		Name:            in.Name,
		Description:     in.Description,
		AchievementType: achievementType,
		Criteria:        in.Criteria,
		Alignments:      in.Alignments,
		Skills:          in.Skills,
		ImageURL:        in.ImageURL,
		CreatorID:       in.CreatorID,
		Published:       in.Published,
		Tags:            in.Tags,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create achievement")
	}
	return created, nil
}

// Get returns an achievement by primary key.
func (s *Service) Get(ctx context.Context, id int64) (*models.Achievement, error) {
	achievement, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "achievement not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find achievement")
	}
	return achievement, nil
}

// List returns the full achievement catalog.
func (s *Service) List(ctx context.Context) ([]*models.Achievement, error) {
	return s.store.List(ctx)
}

// FindOrCreate resolves an achievement referenced by an imported
// credential, creating an unpublished entry when it is not known locally.
func (s *Service) FindOrCreate(ctx context.Context, externalID, name, description string, criteria models.Criteria) (*models.Achievement, error) {
	if externalID != "" {
		existing, err := s.store.FindByAchievementID(ctx, externalID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find achievement")
		}
	}
	if externalID == "" {
		externalID = "urn:uuid:" + uuid.NewString()
	}
	created, err := s.store.Create(ctx, &models.Achievement{
		AchievementID:   externalID,
		Name:            name,
		Description:     description,
		AchievementType: "Achievement",
		Criteria:        criteria,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create achievement")
	}
	return created, nil
}
