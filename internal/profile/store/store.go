// Package store persists profiles.
package store

import (
	"context"

	"certo/internal/profile/models"
)

// Store is the profile persistence contract. Lookups return
// sentinel.ErrNotFound when no row matches.
type Store interface {
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	FindByID(ctx context.Context, id int64) (*models.Profile, error)
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
	FindByDID(ctx context.Context, did string) (*models.Profile, error)
	FindByURL(ctx context.Context, url string) (*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
	List(ctx context.Context) ([]*models.Profile, error)
}
