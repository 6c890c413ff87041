package progression

//go:generate mockgen -source=repository.go -destination=mock/repository.go -package=mock

import (
	"context"
	"time"
)

type AccountRepository interface {
	// Create reports false without error when the username is taken.
	Create(ctx context.Context, account *Account) (bool, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	Exists(ctx context.Context, id int64) (bool, error)
	// Lock takes a row lock on the account for the rest of the transaction
	// where the dialect supports it. Reports false for unknown ids.
	Lock(ctx context.Context, id int64) (bool, error)
}

type LocationRepository interface {
	Create(ctx context.Context, location *Location) error
	Exists(ctx context.Context, id int64) (bool, error)
}

type StorylineRepository interface {
	Create(ctx context.Context, storyline *Storyline) error
	AddLocation(ctx context.Context, storylineID, locationID int64) error
	Exists(ctx context.Context, id int64) (bool, error)
	MembersOf(ctx context.Context, storylineID int64) ([]int64, error)
	// StorylinesContaining returns storyline ids in ascending order.
	StorylinesContaining(ctx context.Context, locationID int64) ([]int64, error)
}

type VisitRepository interface {
	// Insert stores the visit unless one exists for the same pair. It reports
	// false without error when the unique key was already taken.
	Insert(ctx context.Context, visit *Visit) (bool, error)
	LocationIDs(ctx context.Context, accountID int64) ([]int64, error)
	ListByAccount(ctx context.Context, accountID int64) ([]VisitedLocation, error)
	CountByAccount(ctx context.Context, accountID int64) (int, error)
}

type ParticipationRepository interface {
	Insert(ctx context.Context, participation *Participation) (bool, error)
	// GetForUpdate returns nil without error when the account never started
	// the storyline.
	GetForUpdate(ctx context.Context, accountID, storylineID int64) (*Participation, error)
	// MarkCompleted stamps completed_at only if it is still unset and
	// reports whether this call stamped it.
	MarkCompleted(ctx context.Context, id int64, at time.Time) (bool, error)
	ListByAccount(ctx context.Context, accountID int64, completedOnly bool) ([]Participation, error)
}

type PointsRepository interface {
	Open(ctx context.Context, accountID int64) error
	// Increment adds delta to the balance in the store and returns the new
	// balance, creating the row when missing.
	Increment(ctx context.Context, accountID, delta int64) (int64, error)
	Balance(ctx context.Context, accountID int64) (int64, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

type TrophyRepository interface {
	Create(ctx context.Context, trophy *Trophy) error
	Exists(ctx context.Context, id int64) (bool, error)
	InsertGrant(ctx context.Context, grant *TrophyGrant) (bool, error)
	ListGrants(ctx context.Context, accountID int64) ([]TrophyRoomEntry, error)
}

// Tx exposes the repositories bound to one store transaction.
type Tx interface {
	Accounts() AccountRepository
	Locations() LocationRepository
	Storylines() StorylineRepository
	Visits() VisitRepository
	Participations() ParticipationRepository
	Points() PointsRepository
	Trophies() TrophyRepository

	// Savepoint runs fn in a nested transaction. When fn fails only its own
	// writes are rolled back and the enclosing transaction stays usable.
	Savepoint(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Store is the transactional backing store. Either every write made by fn
// commits or none does.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Notifier delivers out-of-band messages. Implementations must not block the
// caller for long and their failures never affect progression state.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type NotificationKind string

const (
	NotificationVisitReward        NotificationKind = "visit_reward"
	NotificationStorylineCompleted NotificationKind = "storyline_completed"
	NotificationTrophyAwarded      NotificationKind = "trophy_awarded"
)

type Notification struct {
	Kind      NotificationKind
	AccountID int64
	RefID     int64
	Message   string
}
