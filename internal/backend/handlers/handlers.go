package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Konfistador/ExplorationAppBackend/internal/backend/middleware"
	"github.com/Konfistador/ExplorationAppBackend/internal/backend/models"
	"github.com/Konfistador/ExplorationAppBackend/internal/backend/utils"
	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"
)

// WebApp carries the dependencies shared by all handlers.
type WebApp struct {
	Engine    *progression.Engine
	JWTSecret []byte
	TokenTTL  time.Duration
	Version   string
}

func HealthCheck(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, fiber.Map{
			"status":  "ok",
			"version": app.Version,
		}, "")
	}
}

// CreateAccount registers an account and returns a bearer token for it.
func CreateAccount(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CreateAccountRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", nil)
		}

		account, err := app.Engine.CreateAccount(c.UserContext(), req.Username, req.DeviceToken)
		if err != nil {
			return err
		}

		token, err := middleware.SignToken(app.JWTSecret, account.ID, app.TokenTTL)
		if err != nil {
			return err
		}
		resp := models.NewAccountResponse(account)
		resp.Token = token
		return utils.SendCreated(c, resp, "Account created")
	}
}

func GetAccount(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		account, err := app.Engine.Account(c.UserContext(), mustAccountID(c))
		if err != nil {
			return err
		}
		return utils.SendSuccess(c, models.NewAccountResponse(account), "")
	}
}

// VisitLocation records a visit to the location in the path.
func VisitLocation(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		locationID, err := pathID(c, "id")
		if err != nil {
			return err
		}

		outcome, err := app.Engine.RecordVisit(c.UserContext(), mustAccountID(c), locationID)
		if err != nil {
			return err
		}
		return utils.SendSuccess(c, models.NewVisitResponse(outcome), "Visit recorded")
	}
}

func BeginStoryline(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		storylineID, err := pathID(c, "storylineId")
		if err != nil {
			return err
		}

		participation, err := app.Engine.BeginStoryline(c.UserContext(), mustAccountID(c), storylineID)
		if err != nil {
			return err
		}
		return utils.SendCreated(c, models.NewParticipationResponse(participation), "Storyline started")
	}
}

func AddTrophy(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trophyID, err := strconv.ParseInt(c.Query("trophyID"), 10, 64)
		if err != nil || trophyID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "trophyID must be a positive integer")
		}

		grant, err := app.Engine.AwardTrophy(c.UserContext(), mustAccountID(c), trophyID)
		if err != nil {
			return err
		}
		return utils.SendSuccess(c, fiber.Map{
			"trophy_id":  grant.TrophyID,
			"awarded_at": grant.AwardedAt,
		}, "Trophy added")
	}
}

func TrophyRoom(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entries, err := app.Engine.TrophyRoom(c.UserContext(), mustAccountID(c))
		if err != nil {
			return err
		}
		resp := make([]models.TrophyResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, models.NewTrophyResponse(e))
		}
		return utils.SendSuccess(c, resp, "")
	}
}

func Leaderboard(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entries, err := app.Engine.Leaderboard(c.UserContext(), c.QueryInt("limit", 0))
		if err != nil {
			return err
		}
		resp := make([]models.LeaderboardEntryResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, models.LeaderboardEntryResponse{
				Rank:      e.Rank,
				AccountID: e.AccountID,
				Username:  e.Username,
				Points:    e.Balance,
			})
		}
		return utils.SendSuccess(c, resp, "")
	}
}

func Points(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accountID := mustAccountID(c)
		balance, err := app.Engine.Balance(c.UserContext(), accountID)
		if err != nil {
			return err
		}
		return utils.SendSuccess(c, models.PointsResponse{AccountID: accountID, Points: balance}, "")
	}
}

func Visits(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		visits, err := app.Engine.Visits(c.UserContext(), mustAccountID(c))
		if err != nil {
			return err
		}
		resp := make([]models.VisitedLocationResponse, 0, len(visits))
		for _, v := range visits {
			resp = append(resp, models.VisitedLocationResponse{
				Location:  models.NewLocationResponse(v.Location),
				VisitedAt: v.VisitedAt,
			})
		}
		return utils.SendSuccess(c, resp, "")
	}
}

// Storylines lists the account's participations, optionally only the
// completed ones.
func Storylines(app *WebApp, completedOnly bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		participations, err := app.Engine.Participations(c.UserContext(), mustAccountID(c), completedOnly)
		if err != nil {
			return err
		}
		resp := make([]models.ParticipationResponse, 0, len(participations))
		for _, p := range participations {
			resp = append(resp, models.NewParticipationResponse(p))
		}
		return utils.SendSuccess(c, resp, "")
	}
}

func Statistics(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := app.Engine.Statistics(c.UserContext(), mustAccountID(c))
		if err != nil {
			return err
		}
		return utils.SendSuccess(c, models.NewStatisticsResponse(stats), "")
	}
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, name+" must be a positive integer")
	}
	return id, nil
}

// mustAccountID is only called behind AuthRequired.
func mustAccountID(c *fiber.Ctx) int64 {
	id, _ := utils.AccountID(c)
	return id
}
