package progression

import (
	"context"
	"fmt"
	"strings"
)

const maxUsernameLength = 64

// CreateAccount registers a new account and opens its zero balance in the
// same transaction.
func (e *Engine) CreateAccount(ctx context.Context, username, deviceToken string) (Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Account{}, invalid("username must not be empty")
	}
	if len(username) > maxUsernameLength {
		return Account{}, invalid("username must be at most %d characters", maxUsernameLength)
	}

	account := Account{
		Username:    username,
		DeviceToken: deviceToken,
		CreatedAt:   e.now(),
	}
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		created, err := tx.Accounts().Create(ctx, &account)
		if err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		if !created {
			return conflict("username %q is taken", username)
		}
		if err := tx.Points().Open(ctx, account.ID); err != nil {
			return fmt.Errorf("failed to open points account %d: %w", account.ID, err)
		}
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

func (e *Engine) Account(ctx context.Context, accountID int64) (Account, error) {
	var account Account
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		a, err := tx.Accounts().GetByID(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to load account %d: %w", accountID, err)
		}
		if a == nil {
			return notFound("account %d does not exist", accountID)
		}
		account = *a
		return nil
	})
	return account, err
}
