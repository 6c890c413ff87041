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

type accountRepository struct {
	db bun.IDB
}

var _ progression.AccountRepository = &accountRepository{}

func NewAccountRepository(db bun.IDB) *accountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *progression.Account) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	model := &models.Account{
		ID:          account.ID,
		Username:    account.Username,
		DeviceToken: account.DeviceToken,
		CreatedAt:   account.CreatedAt,
	}
	inserted, err := insertIgnoringConflict(ctx, r.db.NewInsert().
		Model(model).
		On("CONFLICT (username) DO NOTHING").
		Returning("id"))
	if err != nil {
		return false, fmt.Errorf("failed to create account: %w", err)
	}
	if inserted {
		account.ID = model.ID
	}
	return inserted, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*progression.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	account := new(models.Account)
	err := r.db.NewSelect().
		Model(account).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &progression.Account{
		ID:          account.ID,
		Username:    account.Username,
		DeviceToken: account.DeviceToken,
		CreatedAt:   account.CreatedAt,
	}, nil
}

func (r *accountRepository) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db.NewSelect().
		Model((*models.Account)(nil)).
		Where("id = ?", id))
}

func (r *accountRepository) Lock(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	q := r.db.NewSelect().
		Model((*models.Account)(nil)).
		Column("id").
		Where("id = ?", id)
	if supportsRowLocks(r.db) {
		q = q.For("UPDATE")
	}

	var locked int64
	if err := q.Scan(ctx, &locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
