package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/league-engine/brackets"
	"github.com/Dosada05/league-engine/handlers"
	"github.com/Dosada05/league-engine/metrics"
	"github.com/Dosada05/league-engine/middleware"
	"github.com/Dosada05/league-engine/models"
	"github.com/Dosada05/league-engine/repositories"
	"github.com/Dosada05/league-engine/routes"
	"github.com/Dosada05/league-engine/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("handler-test-secret")

type api struct {
	t      *testing.T
	server *httptest.Server
}

func newAPI(t *testing.T) *api {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	hub := brackets.NewHub(logger)

	deps := services.Deps{
		Store:       repositories.NewMemoryStore().Store(),
		Logger:      logger,
		Broadcaster: hub,
		Metrics:     m,
		DefaultSettings: models.LeagueSettings{
			MaxParticipants: 16,
			PointsForWin:    models.DefaultPointsForWin,
			PointsForLoss:   models.DefaultPointsForLoss,
		},
	}
	leagues := services.NewLeagueService(deps)
	standings := services.NewStandingsService(deps)
	playoffs := services.NewPlayoffService(deps)
	schedule := services.NewScheduleService(deps, standings)
	results := services.NewResultService(deps, standings, playoffs)
	bracket := services.NewBracketService(deps)

	router := chi.NewRouter()
	routes.SetupRoutes(router, routes.Handlers{
		League:    handlers.NewLeagueHandler(leagues, schedule, standings, playoffs, bracket, results),
		Match:     handlers.NewMatchHandler(results),
		WebSocket: handlers.NewWebSocketHandler(hub, leagues, nil, logger),
	}, routes.Options{JWTSecret: secret, Metrics: m.Handler(), Logger: logger})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &api{t: t, server: server}
}

func (a *api) do(method, path, userID string, body interface{}) (*http.Response, map[string]json.RawMessage) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	if userID != "" {
		token, err := middleware.IssueToken(secret, models.Actor{UserID: userID, Role: models.RolePlayer}, time.Hour, time.Now())
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.server.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var env map[string]json.RawMessage
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(a.t, json.Unmarshal(raw, &env))
	}
	return resp, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func (a *api) createLeague(participants ...string) models.League {
	a.t.Helper()
	entries := make([]map[string]string, 0, len(participants))
	for _, id := range participants {
		entries = append(entries, map[string]string{"player_id": id, "display_name": "Player " + id})
	}
	resp, env := a.do(http.MethodPost, "/api/v1/leagues", "org", map[string]interface{}{
		"name":         "Thursday league",
		"participants": entries,
	})
	require.Equal(a.t, http.StatusCreated, resp.StatusCode)
	return decode[models.League](a.t, env["league"])
}

func TestLeagueLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	league := a.createLeague("p1", "p2")
	base := "/api/v1/leagues/" + league.ID.String()

	resp, _ := a.do(http.MethodPost, base+"/schedule", "p1", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env := a.do(http.MethodPost, base+"/schedule", "org", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	matches := decode[[]models.Match](t, env["matches"])
	require.Len(t, matches, 1)
	matchPath := "/api/v1/matches/" + matches[0].ID.String()

	resp, _ = a.do(http.MethodPost, base+"/schedule", "org", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "schedule exists")

	result := map[string]interface{}{
		"winner_id": "p1",
		"score":     models.Score{Sets: []models.SetScore{{Player1: 6, Player2: 3}, {Player1: 6, Player2: 4}}},
	}
	resp, env = a.do(http.MethodPost, matchPath+"/result", "p1", result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.MatchPendingApproval, decode[models.Match](t, env["match"]).Status)

	resp, _ = a.do(http.MethodPost, matchPath+"/approve", "p2", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env = a.do(http.MethodPost, matchPath+"/approve", "org", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.MatchCompleted, decode[models.Match](t, env["match"]).Status)

	resp, _ = a.do(http.MethodPost, matchPath+"/approve", "org", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "already approved")

	resp, env = a.do(http.MethodGet, base+"/standings", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	table := decode[[]models.Standing](t, env["standings"])
	require.Len(t, table, 2)
	assert.Equal(t, "p1", table[0].PlayerID)
	assert.Equal(t, 1, table[0].Rank)

	resp, env = a.do(http.MethodPost, base+"/playoffs/check", "org", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	playoff := decode[*models.Playoff](t, env["playoff"])
	require.NotNil(t, playoff)
	assert.Equal(t, models.PlayoffFinal, playoff.Type)

	resp, env = a.do(http.MethodGet, base+"/bracket", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[brackets.BracketView](t, env["bracket"])
	require.Len(t, view.Rounds, 2)
	assert.Equal(t, models.MatchFinal, view.Rounds[1].Matches[0].Type)

	resp, env = a.do(http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.LeagueStatusPlayoffs, decode[models.League](t, env["league"]).Status)
}

func TestBulkApprovePartialResult(t *testing.T) {
	a := newAPI(t)
	league := a.createLeague("p1", "p2", "p3")
	base := "/api/v1/leagues/" + league.ID.String()

	resp, env := a.do(http.MethodPost, base+"/schedule", "org", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	matches := decode[[]models.Match](t, env["matches"])

	m := matches[0]
	resp, _ = a.do(http.MethodPost, "/api/v1/matches/"+m.ID.String()+"/result", m.Player1ID, map[string]interface{}{
		"winner_id": m.Player1ID,
		"score":     models.Score{Sets: []models.SetScore{{Player1: 6, Player2: 0}}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = a.do(http.MethodPost, base+"/matches/approve", "org", map[string]interface{}{
		"match_ids": []uuid.UUID{m.ID, matches[1].ID, uuid.New()},
	})
	require.Equal(t, http.StatusMultiStatus, resp.StatusCode)
	assert.Equal(t, []uuid.UUID{m.ID}, decode[[]uuid.UUID](t, env["successful"]))
	failed := decode[[]services.BulkApprovalFailure](t, env["failed"])
	require.Len(t, failed, 2)
	assert.Equal(t, matches[1].ID, failed[0].MatchID)

	resp, _ = a.do(http.MethodPost, base+"/matches/approve", "org", map[string]interface{}{"match_ids": []uuid.UUID{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestErrorMapping(t *testing.T) {
	a := newAPI(t)
	league := a.createLeague("p1", "p2")
	base := "/api/v1/leagues/" + league.ID.String()
	_, env := a.do(http.MethodPost, base+"/schedule", "org", nil)
	match := decode[[]models.Match](t, env["matches"])[0]
	matchPath := "/api/v1/matches/" + match.ID.String()

	cases := []struct {
		name   string
		method string
		path   string
		user   string
		body   interface{}
		want   int
	}{
		{"unauthenticated mutation", http.MethodPost, base + "/schedule", "", nil, http.StatusUnauthorized},
		{"malformed id", http.MethodGet, "/api/v1/leagues/not-a-uuid", "", nil, http.StatusBadRequest},
		{"unknown league", http.MethodGet, "/api/v1/leagues/" + uuid.NewString(), "", nil, http.StatusNotFound},
		{"unknown match", http.MethodPost, "/api/v1/matches/" + uuid.NewString() + "/start", "p1", nil, http.StatusNotFound},
		{"correction needs reason", http.MethodPost, matchPath + "/correct", "org", map[string]interface{}{
			"winner_id": "p1",
			"score":     models.Score{Sets: []models.SetScore{{Player1: 6, Player2: 1}}},
			"reason":    "",
		}, http.StatusUnprocessableEntity},
		{"reject from scheduled", http.MethodPost, matchPath + "/reject", "org", map[string]string{"reason": "typo"}, http.StatusConflict},
		{"unknown body field", http.MethodPost, matchPath + "/postpone", "p1", map[string]string{"why": "rain"}, http.StatusBadRequest},
		{"winner outside match", http.MethodPost, matchPath + "/result", "p1", map[string]interface{}{
			"winner_id": "ghost",
			"score":     models.Score{Sets: []models.SetScore{{Player1: 6, Player2: 1}}},
		}, http.StatusUnprocessableEntity},
		{"outsider cannot start", http.MethodPost, matchPath + "/start", "stranger", nil, http.StatusForbidden},
		{"nameless league", http.MethodPost, "/api/v1/leagues", "org", map[string]string{"name": " "}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, env := a.do(tc.method, tc.path, tc.user, tc.body)
			assert.Equal(t, tc.want, resp.StatusCode)
			assert.Contains(t, env, "error")
		})
	}
}

func TestClearAndDeleteOverHTTP(t *testing.T) {
	a := newAPI(t)
	league := a.createLeague("p1", "p2", "p3", "p4")
	base := "/api/v1/leagues/" + league.ID.String()

	resp, _ := a.do(http.MethodPost, base+"/schedule", "org", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env := a.do(http.MethodDelete, base+"/matches", "org", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(6), decode[int64](t, env["deleted"]))

	resp, env = a.do(http.MethodGet, base+"/matches", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.Match](t, env["matches"]))

	resp, _ = a.do(http.MethodDelete, base, "org", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = a.do(http.MethodGet, base, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOperationalEndpoints(t *testing.T) {
	a := newAPI(t)

	resp, err := a.server.Client().Get(a.server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	a.createLeague("p1", "p2")
	resp, err = a.server.Client().Get(a.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "league_engine_")
}
