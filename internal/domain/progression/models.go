package progression

import "time"

type Account struct {
	ID          int64
	Username    string
	DeviceToken string
	CreatedAt   time.Time
}

type Location struct {
	ID          int64
	Name        string
	Latitude    string
	Longitude   string
	Description string
}

type Storyline struct {
	ID          int64
	Name        string
	Description string
}

type Trophy struct {
	ID          int64
	Name        string
	Description string
}

// Visit is the fact that an account checked in at a location. There is at
// most one per (account, location).
type Visit struct {
	ID         int64
	AccountID  int64
	LocationID int64
	VisitedAt  time.Time
}

// Participation is an account's progress record for one storyline.
// CompletedAt is stamped at most once and never cleared.
type Participation struct {
	ID          int64
	AccountID   int64
	StorylineID int64
	StartedAt   time.Time
	CompletedAt *time.Time
}

func (p *Participation) Completed() bool {
	return p.CompletedAt != nil
}

type TrophyGrant struct {
	ID        int64
	AccountID int64
	TrophyID  int64
	AwardedAt time.Time
}

// TrophyRoomEntry is a grant joined with the trophy it awards.
type TrophyRoomEntry struct {
	Grant  TrophyGrant
	Trophy Trophy
}

type VisitedLocation struct {
	Location  Location
	VisitedAt time.Time
}

type LeaderboardEntry struct {
	Rank      int
	AccountID int64
	Username  string
	Balance   int64
}

type Statistics struct {
	AccountID           int64
	Visits              int
	StartedStorylines   int
	CompletedStorylines int
	Trophies            int
	Balance             int64
}

// EvaluationFailure reports a storyline whose completion check failed while a
// visit was recorded. StorylineID is zero when the storylines containing the
// location could not be resolved at all.
type EvaluationFailure struct {
	StorylineID int64
	Err         error
}

// Evaluation is the result of re-checking every storyline that contains a
// freshly visited location.
type Evaluation struct {
	Checked   []int64
	Completed []int64
	Failures  []EvaluationFailure
}

// VisitOutcome is what RecordVisit reports back to the request layer.
type VisitOutcome struct {
	Visit               Visit
	PointsAwarded       int64
	Balance             int64
	CompletedStorylines []int64
	Failures            []EvaluationFailure
}
