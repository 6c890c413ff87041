package backend_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konfistador/ExplorationAppBackend/internal/backend"
	"github.com/Konfistador/ExplorationAppBackend/internal/backend/handlers"
	"github.com/Konfistador/ExplorationAppBackend/internal/backend/middleware"
	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"
	"github.com/Konfistador/ExplorationAppBackend/internal/gateways/database"
)

var testSecret = []byte("test-secret")

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
	Error     *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.InitializeSchema(ctx))

	store := database.NewStore(db.BunDB(), 5*time.Second)
	require.NoError(t, db.Seed(ctx, store))

	reg := prometheus.NewRegistry()
	engine, err := progression.NewEngine(store, progression.DefaultConfig(),
		progression.WithMetrics(progression.NewMetrics(reg)))
	require.NoError(t, err)

	return backend.NewApp(&handlers.WebApp{
		Engine:    engine,
		JWTSecret: testSecret,
		Version:   "test",
	}, reg)
}

func do(t *testing.T, app *fiber.App, method, path, token, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func signup(t *testing.T, app *fiber.App, username string) (int64, string) {
	t.Helper()
	status, env := do(t, app, http.MethodPost, "/user-account", "", `{"username":"`+username+`"}`)
	require.Equal(t, http.StatusCreated, status)

	var account struct {
		ID    int64  `json:"id"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &account))
	require.NotEmpty(t, account.Token)
	return account.ID, account.Token
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t)

	status, env := do(t, app, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.RequestID)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, string(env.Data))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/user-account", "/user-account/points", "/trophy-room", "/leaderboard"} {
		status, env := do(t, app, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, status, path)
		require.NotNil(t, env.Error, path)
		assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
	}

	status, _ := do(t, app, http.MethodGet, "/user-account", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSignupAndAccount(t *testing.T) {
	app := newTestApp(t)
	id, token := signup(t, app, "alice")

	status, env := do(t, app, http.MethodGet, "/user-account", token, "")
	require.Equal(t, http.StatusOK, status)

	var account struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Token    string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &account))
	assert.Equal(t, id, account.ID)
	assert.Equal(t, "alice", account.Username)
	assert.Empty(t, account.Token)

	status, env = do(t, app, http.MethodPost, "/user-account", "", `{"username":"alice"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	status, env = do(t, app, http.MethodPost, "/user-account", "", `{"username":"  "}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestTokenForDeletedAccountIsNotFound(t *testing.T) {
	app := newTestApp(t)
	token, err := middleware.SignToken(testSecret, 999, time.Hour)
	require.NoError(t, err)

	status, env := do(t, app, http.MethodGet, "/user-account/points", token, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestVisitFlow(t *testing.T) {
	app := newTestApp(t)
	_, token := signup(t, app, "alice")

	status, _ := do(t, app, http.MethodPost, "/user-account/beginStoryline/1", token, "")
	require.Equal(t, http.StatusCreated, status)

	status, env := do(t, app, http.MethodPatch, "/locations/visit/1", token, "")
	require.Equal(t, http.StatusOK, status)

	var visit struct {
		PointsAwarded       int64   `json:"points_awarded"`
		Balance             int64   `json:"balance"`
		CompletedStorylines []int64 `json:"completed_storylines"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &visit))
	assert.Equal(t, int64(5), visit.PointsAwarded)
	assert.Equal(t, int64(5), visit.Balance)
	assert.Empty(t, visit.CompletedStorylines)

	status, env = do(t, app, http.MethodPatch, "/locations/visit/2", token, "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &visit))
	assert.Equal(t, int64(10), visit.Balance)
	assert.Equal(t, []int64{1}, visit.CompletedStorylines)

	status, env = do(t, app, http.MethodPatch, "/locations/visit/2", token, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	status, _ = do(t, app, http.MethodPatch, "/locations/visit/404", token, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, app, http.MethodPatch, "/locations/visit/abc", token, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = do(t, app, http.MethodGet, "/user-account/points", token, "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"account_id":1,"points":10}`, string(env.Data))

	status, env = do(t, app, http.MethodGet, "/user-account/completedStorylines", token, "")
	require.Equal(t, http.StatusOK, status)
	var completed []struct {
		StorylineID int64 `json:"storyline_id"`
		Completed   bool  `json:"completed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &completed))
	require.Len(t, completed, 1)
	assert.Equal(t, int64(1), completed[0].StorylineID)
	assert.True(t, completed[0].Completed)

	status, env = do(t, app, http.MethodGet, "/user-account/visits", token, "")
	require.Equal(t, http.StatusOK, status)
	var visits []struct {
		Location struct {
			ID int64 `json:"id"`
		} `json:"location"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &visits))
	require.Len(t, visits, 2)
	assert.Equal(t, int64(1), visits[0].Location.ID)

	status, env = do(t, app, http.MethodGet, "/user-account/statistics", token, "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"account_id":1,"visits":2,"started_storylines":1,"completed_storylines":1,"trophies":0,"points":10}`, string(env.Data))
}

func TestBeginStorylineErrors(t *testing.T) {
	app := newTestApp(t)
	_, token := signup(t, app, "alice")

	status, env := do(t, app, http.MethodPost, "/user-account/beginStoryline/99", token, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)

	status, _ = do(t, app, http.MethodPost, "/user-account/beginStoryline/2", token, "")
	require.Equal(t, http.StatusCreated, status)

	status, env = do(t, app, http.MethodPost, "/user-account/beginStoryline/2", token, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestTrophyRoom(t *testing.T) {
	app := newTestApp(t)
	_, token := signup(t, app, "alice")

	status, _ := do(t, app, http.MethodPatch, "/trophy-room/add?trophyID=1", token, "")
	require.Equal(t, http.StatusOK, status)

	status, env := do(t, app, http.MethodPatch, "/trophy-room/add?trophyID=1", token, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	status, _ = do(t, app, http.MethodPatch, "/trophy-room/add?trophyID=999", token, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, app, http.MethodPatch, "/trophy-room/add", token, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = do(t, app, http.MethodGet, "/trophy-room", token, "")
	require.Equal(t, http.StatusOK, status)
	var room []struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &room))
	require.Len(t, room, 1)
	assert.Equal(t, int64(1), room[0].ID)
}

func TestLeaderboard(t *testing.T) {
	app := newTestApp(t)
	_, alice := signup(t, app, "alice")
	_, bob := signup(t, app, "bob")

	for _, path := range []string{"/locations/visit/1", "/locations/visit/2"} {
		status, _ := do(t, app, http.MethodPatch, path, bob, "")
		require.Equal(t, http.StatusOK, status)
	}
	status, _ := do(t, app, http.MethodPatch, "/locations/visit/1", alice, "")
	require.Equal(t, http.StatusOK, status)

	status, env := do(t, app, http.MethodGet, "/leaderboard", alice, "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[
		{"rank":1,"account_id":2,"username":"bob","points":10},
		{"rank":2,"account_id":1,"username":"alice","points":5}
	]`, string(env.Data))

	status, env = do(t, app, http.MethodGet, "/leaderboard?limit=1", alice, "")
	require.Equal(t, http.StatusOK, status)
	var board []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &board))
	assert.Len(t, board, 1)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)
	_, token := signup(t, app, "alice")
	status, _ := do(t, app, http.MethodPatch, "/locations/visit/1", token, "")
	require.Equal(t, http.StatusOK, status)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `exploration_progression_visits_total{result="recorded"} 1`)
	assert.Contains(t, string(body), "exploration_progression_points_credited_total 5")
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t)

	status, env := do(t, app, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
}

func TestSecurityHeaders(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
