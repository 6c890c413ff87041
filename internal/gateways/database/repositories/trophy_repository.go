package repositories

import (
	"context"
	"fmt"

	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"
	"github.com/Konfistador/ExplorationAppBackend/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

type trophyRepository struct {
	db bun.IDB
}

var _ progression.TrophyRepository = &trophyRepository{}

func NewTrophyRepository(db bun.IDB) *trophyRepository {
	return &trophyRepository{db: db}
}

func (r *trophyRepository) Create(ctx context.Context, trophy *progression.Trophy) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	model := &models.Trophy{
		ID:          trophy.ID,
		Name:        trophy.Name,
		Description: trophy.Description,
	}
	if _, err := r.db.NewInsert().Model(model).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to create trophy: %w", err)
	}
	trophy.ID = model.ID
	return nil
}

func (r *trophyRepository) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db.NewSelect().
		Model((*models.Trophy)(nil)).
		Where("id = ?", id))
}

func (r *trophyRepository) InsertGrant(ctx context.Context, grant *progression.TrophyGrant) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	model := &models.TrophyGrant{
		AccountID: grant.AccountID,
		TrophyID:  grant.TrophyID,
		AwardedAt: grant.AwardedAt,
	}
	inserted, err := insertIgnoringConflict(ctx, r.db.NewInsert().
		Model(model).
		On("CONFLICT (account_id, trophy_id) DO NOTHING").
		Returning("id"))
	if err != nil {
		return false, fmt.Errorf("failed to insert trophy grant: %w", err)
	}
	if inserted {
		grant.ID = model.ID
	}
	return inserted, nil
}

func (r *trophyRepository) ListGrants(ctx context.Context, accountID int64) ([]progression.TrophyRoomEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var grants []models.TrophyGrant
	err := r.db.NewSelect().
		Model(&grants).
		Relation("Trophy").
		Where("tg.account_id = ?", accountID).
		Order("tg.awarded_at ASC", "tg.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]progression.TrophyRoomEntry, 0, len(grants))
	for _, g := range grants {
		entry := progression.TrophyRoomEntry{
			Grant: progression.TrophyGrant{
				ID:        g.ID,
				AccountID: g.AccountID,
				TrophyID:  g.TrophyID,
				AwardedAt: g.AwardedAt,
			},
		}
		if g.Trophy != nil {
			entry.Trophy = progression.Trophy{
				ID:          g.Trophy.ID,
				Name:        g.Trophy.Name,
				Description: g.Trophy.Description,
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
