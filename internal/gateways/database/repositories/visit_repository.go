package repositories

import (
	"context"
	"fmt"

	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"
	"github.com/Konfistador/ExplorationAppBackend/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

type visitRepository struct {
	db bun.IDB
}

var _ progression.VisitRepository = &visitRepository{}

func NewVisitRepository(db bun.IDB) *visitRepository {
	return &visitRepository{db: db}
}

func (r *visitRepository) Insert(ctx context.Context, visit *progression.Visit) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	model := &models.LocationVisit{
		AccountID:  visit.AccountID,
		LocationID: visit.LocationID,
		VisitedAt:  visit.VisitedAt,
	}
	inserted, err := insertIgnoringConflict(ctx, r.db.NewInsert().
		Model(model).
		On("CONFLICT (account_id, location_id) DO NOTHING").
		Returning("id"))
	if err != nil {
		return false, fmt.Errorf("failed to insert visit: %w", err)
	}
	if inserted {
		visit.ID = model.ID
	}
	return inserted, nil
}

func (r *visitRepository) LocationIDs(ctx context.Context, accountID int64) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ids []int64
	err := r.db.NewSelect().
		Model((*models.LocationVisit)(nil)).
		Column("location_id").
		Where("account_id = ?", accountID).
		Scan(ctx, &ids)

	return ids, err
}

func (r *visitRepository) ListByAccount(ctx context.Context, accountID int64) ([]progression.VisitedLocation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var visits []models.LocationVisit
	err := r.db.NewSelect().
		Model(&visits).
		Relation("Location").
		Where("lv.account_id = ?", accountID).
		Order("lv.visited_at ASC", "lv.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]progression.VisitedLocation, 0, len(visits))
	for _, v := range visits {
		entry := progression.VisitedLocation{VisitedAt: v.VisitedAt}
		if v.Location != nil {
			entry.Location = toLocation(v.Location)
		}
		result = append(result, entry)
	}
	return result, nil
}

func (r *visitRepository) CountByAccount(ctx context.Context, accountID int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.db.NewSelect().
		Model((*models.LocationVisit)(nil)).
		Where("account_id = ?", accountID).
		Count(ctx)
}

func toLocation(l *models.Location) progression.Location {
	return progression.Location{
		ID:          l.ID,
		Name:        l.Name,
		Latitude:    l.Latitude,
		Longitude:   l.Longitude,
		Description: l.Description,
	}
}
