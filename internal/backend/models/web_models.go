package models

import (
	"time"

	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"
)

type CreateAccountRequest struct {
	Username    string `json:"username"`
	DeviceToken string `json:"device_token"`
}

type AccountResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	// Token is only set when the account was just created.
	Token string `json:"token,omitempty"`
}

type LocationResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	Description string `json:"description"`
}

type VisitResponse struct {
	VisitID             int64               `json:"visit_id"`
	LocationID          int64               `json:"location_id"`
	VisitedAt           time.Time           `json:"visited_at"`
	PointsAwarded       int64               `json:"points_awarded"`
	Balance             int64               `json:"balance"`
	CompletedStorylines []int64             `json:"completed_storylines"`
	FailedEvaluations   []EvaluationFailure `json:"failed_evaluations,omitempty"`
}

type EvaluationFailure struct {
	StorylineID int64  `json:"storyline_id"`
	Error       string `json:"error"`
}

type VisitedLocationResponse struct {
	Location  LocationResponse `json:"location"`
	VisitedAt time.Time        `json:"visited_at"`
}

type ParticipationResponse struct {
	ID          int64      `json:"id"`
	StorylineID int64      `json:"storyline_id"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Completed   bool       `json:"completed"`
}

type TrophyResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	AwardedAt   time.Time `json:"awarded_at"`
}

type LeaderboardEntryResponse struct {
	Rank      int    `json:"rank"`
	AccountID int64  `json:"account_id"`
	Username  string `json:"username"`
	Points    int64  `json:"points"`
}

type PointsResponse struct {
	AccountID int64 `json:"account_id"`
	Points    int64 `json:"points"`
}

type StatisticsResponse struct {
	AccountID           int64 `json:"account_id"`
	Visits              int   `json:"visits"`
	StartedStorylines   int   `json:"started_storylines"`
	CompletedStorylines int   `json:"completed_storylines"`
	Trophies            int   `json:"trophies"`
	Points              int64 `json:"points"`
}

func NewAccountResponse(a progression.Account) AccountResponse {
	return AccountResponse{ID: a.ID, Username: a.Username, CreatedAt: a.CreatedAt}
}

func NewVisitResponse(o progression.VisitOutcome) VisitResponse {
	resp := VisitResponse{
		VisitID:             o.Visit.ID,
		LocationID:          o.Visit.LocationID,
		VisitedAt:           o.Visit.VisitedAt,
		PointsAwarded:       o.PointsAwarded,
		Balance:             o.Balance,
		CompletedStorylines: o.CompletedStorylines,
	}
	if resp.CompletedStorylines == nil {
		resp.CompletedStorylines = []int64{}
	}
	for _, f := range o.Failures {
		resp.FailedEvaluations = append(resp.FailedEvaluations, EvaluationFailure{
			StorylineID: f.StorylineID,
			Error:       f.Err.Error(),
		})
	}
	return resp
}

func NewLocationResponse(l progression.Location) LocationResponse {
	return LocationResponse{
		ID:          l.ID,
		Name:        l.Name,
		Latitude:    l.Latitude,
		Longitude:   l.Longitude,
		Description: l.Description,
	}
}

func NewParticipationResponse(p progression.Participation) ParticipationResponse {
	return ParticipationResponse{
		ID:          p.ID,
		StorylineID: p.StorylineID,
		StartedAt:   p.StartedAt,
		CompletedAt: p.CompletedAt,
		Completed:   p.CompletedAt != nil,
	}
}

func NewTrophyResponse(e progression.TrophyRoomEntry) TrophyResponse {
	return TrophyResponse{
		ID:          e.Trophy.ID,
		Name:        e.Trophy.Name,
		Description: e.Trophy.Description,
		AwardedAt:   e.Grant.AwardedAt,
	}
}

func NewStatisticsResponse(s progression.Statistics) StatisticsResponse {
	return StatisticsResponse{
		AccountID:           s.AccountID,
		Visits:              s.Visits,
		StartedStorylines:   s.StartedStorylines,
		CompletedStorylines: s.CompletedStorylines,
		Trophies:            s.Trophies,
		Points:              s.Balance,
	}
}
