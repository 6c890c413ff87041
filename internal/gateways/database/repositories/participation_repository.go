package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"
	"github.com/Konfistador/ExplorationAppBackend/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

type participationRepository struct {
	db bun.IDB
}

var _ progression.ParticipationRepository = &participationRepository{}

func NewParticipationRepository(db bun.IDB) *participationRepository {
	return &participationRepository{db: db}
}

func (r *participationRepository) Insert(ctx context.Context, p *progression.Participation) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	model := &models.StorylineParticipation{
		AccountID:   p.AccountID,
		StorylineID: p.StorylineID,
		StartedAt:   p.StartedAt,
		CompletedAt: p.CompletedAt,
	}
	inserted, err := insertIgnoringConflict(ctx, r.db.NewInsert().
		Model(model).
		On("CONFLICT (account_id, storyline_id) DO NOTHING").
		Returning("id"))
	if err != nil {
		return false, fmt.Errorf("failed to insert participation: %w", err)
	}
	if inserted {
		p.ID = model.ID
	}
	return inserted, nil
}

func (r *participationRepository) GetForUpdate(ctx context.Context, accountID, storylineID int64) (*progression.Participation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	model := new(models.StorylineParticipation)
	q := r.db.NewSelect().
		Model(model).
		Where("account_id = ?", accountID).
		Where("storyline_id = ?", storylineID)
	if supportsRowLocks(r.db) {
		q = q.For("UPDATE")
	}

	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p := toParticipation(model)
	return &p, nil
}

func (r *participationRepository) MarkCompleted(ctx context.Context, id int64, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.db.NewUpdate().
		Model((*models.StorylineParticipation)(nil)).
		Set("completed_at = ?", at).
		Where("id = ?", id).
		Where("completed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *participationRepository) ListByAccount(ctx context.Context, accountID int64, completedOnly bool) ([]progression.Participation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows []models.StorylineParticipation
	q := r.db.NewSelect().
		Model(&rows).
		Where("account_id = ?", accountID).
		Order("storyline_id ASC")
	if completedOnly {
		q = q.Where("completed_at IS NOT NULL")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]progression.Participation, 0, len(rows))
	for i := range rows {
		result = append(result, toParticipation(&rows[i]))
	}
	return result, nil
}

func toParticipation(m *models.StorylineParticipation) progression.Participation {
	return progression.Participation{
		ID:          m.ID,
		AccountID:   m.AccountID,
		StorylineID: m.StorylineID,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}
}
