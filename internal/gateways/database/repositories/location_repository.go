package repositories

import (
	"context"
	"fmt"

	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"
	"github.com/Konfistador/ExplorationAppBackend/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

type locationRepository struct {
	db bun.IDB
}

var _ progression.LocationRepository = &locationRepository{}

func NewLocationRepository(db bun.IDB) *locationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) Create(ctx context.Context, location *progression.Location) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	model := &models.Location{
		ID:          location.ID,
		Name:        location.Name,
		Latitude:    location.Latitude,
		Longitude:   location.Longitude,
		Description: location.Description,
	}
	if _, err := r.db.NewInsert().Model(model).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to create location: %w", err)
	}
	location.ID = model.ID
	return nil
}

func (r *locationRepository) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db.NewSelect().
		Model((*models.Location)(nil)).
		Where("id = ?", id))
}
