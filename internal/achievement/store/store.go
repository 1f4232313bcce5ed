// Package store persists achievements.
package store

import (
	"context"

	"certo/internal/achievement/models"
)

// Store is the achievement persistence contract. Lookups return
// sentinel.ErrNotFound when no row matches.
type Store interface {
	Create(ctx context.Context, achievement *models.Achievement) (*models.Achievement, error)
	FindByID(ctx context.Context, id int64) (*models.Achievement, error)
	FindByAchievementID(ctx context.Context, achievementID string) (*models.Achievement, error)
	List(ctx context.Context) ([]*models.Achievement, error)
}
