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

type pointsRepository struct {
	db bun.IDB
}

var _ progression.PointsRepository = &pointsRepository{}

func NewPointsRepository(db bun.IDB) *pointsRepository {
	return &pointsRepository{db: db}
}

func (r *pointsRepository) Open(ctx context.Context, accountID int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := insertIgnoringConflict(ctx, r.db.NewInsert().
		Model(&models.PointsAccount{
			AccountID: accountID,
			Balance:   0,
			UpdatedAt: time.Now(),
		}).
		On("CONFLICT (account_id) DO NOTHING"))
	if err != nil {
		return fmt.Errorf("failed to open points account %d: %w", accountID, err)
	}
	return nil
}

// Increment never reads the balance into Go. The addition happens in the
// UPDATE itself so concurrent credits cannot overwrite each other.
func (r *pointsRepository) Increment(ctx context.Context, accountID, delta int64) (int64, error) {
	if err := r.Open(ctx, accountID); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var balance int64
	_, err := r.db.NewUpdate().
		Model((*models.PointsAccount)(nil)).
		Set("balance = balance + ?", delta).
		Set("updated_at = ?", time.Now()).
		Where("account_id = ?", accountID).
		Returning("balance").
		Exec(ctx, &balance)
	if err != nil {
		return 0, fmt.Errorf("failed to increment balance of account %d: %w", accountID, err)
	}
	return balance, nil
}

func (r *pointsRepository) Balance(ctx context.Context, accountID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var balance int64
	err := r.db.NewSelect().
		Model((*models.PointsAccount)(nil)).
		Column("balance").
		Where("account_id = ?", accountID).
		Scan(ctx, &balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

func (r *pointsRepository) Leaderboard(ctx context.Context, limit int) ([]progression.LeaderboardEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows []models.LeaderboardRow
	err := r.db.NewSelect().
		Model((*models.PointsAccount)(nil)).
		ColumnExpr("pa.account_id, pa.balance, a.username").
		Join("JOIN accounts AS a ON a.id = pa.account_id").
		OrderExpr("pa.balance DESC, pa.account_id ASC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	entries := make([]progression.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, progression.LeaderboardEntry{
			AccountID: row.AccountID,
			Username:  row.Username,
			Balance:   row.Balance,
		})
	}
	return entries, nil
}
