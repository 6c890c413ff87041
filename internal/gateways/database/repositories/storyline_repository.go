package repositories

import (
	"context"
	"fmt"

	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"
	"github.com/Konfistador/ExplorationAppBackend/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

type storylineRepository struct {
	db bun.IDB
}

var _ progression.StorylineRepository = &storylineRepository{}

func NewStorylineRepository(db bun.IDB) *storylineRepository {
	return &storylineRepository{db: db}
}

func (r *storylineRepository) Create(ctx context.Context, storyline *progression.Storyline) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	model := &models.Storyline{
		ID:          storyline.ID,
		Name:        storyline.Name,
		Description: storyline.Description,
	}
	if _, err := r.db.NewInsert().Model(model).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to create storyline: %w", err)
	}
	storyline.ID = model.ID
	return nil
}

func (r *storylineRepository) AddLocation(ctx context.Context, storylineID, locationID int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.db.NewInsert().
		Model(&models.StorylineLocation{StorylineID: storylineID, LocationID: locationID}).
		On("CONFLICT (storyline_id, location_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add location %d to storyline %d: %w", locationID, storylineID, err)
	}
	return nil
}

func (r *storylineRepository) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db.NewSelect().
		Model((*models.Storyline)(nil)).
		Where("id = ?", id))
}

func (r *storylineRepository) MembersOf(ctx context.Context, storylineID int64) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ids []int64
	err := r.db.NewSelect().
		Model((*models.StorylineLocation)(nil)).
		Column("location_id").
		Where("storyline_id = ?", storylineID).
		Order("location_id ASC").
		Scan(ctx, &ids)

	return ids, err
}

func (r *storylineRepository) StorylinesContaining(ctx context.Context, locationID int64) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ids []int64
	err := r.db.NewSelect().
		Model((*models.StorylineLocation)(nil)).
		Column("storyline_id").
		Where("location_id = ?", locationID).
		Order("storyline_id ASC").
		Scan(ctx, &ids)

	return ids, err
}
