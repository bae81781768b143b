/*
scenarios_test.go - Tests for demo scenarios

PURPOSE:
	Tests that each scenario loads through the API and leaves the
	expected derived state behind. Scenarios double as integration tests
	of the whole service.
*/
package api

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/task-economy/mission"
	"github.com/warp/task-economy/rewards"
)

func (a *testAPI) loadScenario(t *testing.T, id string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestListScenarios(t *testing.T) {
	a := newTestAPI(t)

	got := decodeAs[[]ScenarioDTO](t, a.do(t, http.MethodGet, "/api/scenarios", nil))

	require.Len(t, got, 3)
	for _, s := range got {
		assert.Equal(t, string(DemoUser), s.UserID)
	}
}

func TestLoadScenario_FreshStart(t *testing.T) {
	a := newTestAPI(t)

	a.loadScenario(t, "fresh-start")

	dash := a.dashboard(t, "demo")
	assertDecimal(t, "5", dash.Balance.Current)

	shop := decodeAs[[]rewards.Reward](t, a.do(t, http.MethodGet, "/api/users/demo/rewards", nil))
	assert.Len(t, shop, 3)

	day := decodeAs[DayDTO](t, a.do(t, http.MethodGet, "/api/users/demo/days/"+testToday, nil))
	assert.Len(t, day.Instances, 1)

	current := decodeAs[ScenarioDTO](t, a.do(t, http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "fresh-start", current.ID)
}

func TestLoadScenario_StreakWeek(t *testing.T) {
	a := newTestAPI(t)

	a.loadScenario(t, "streak-week")

	// THEN: Seven qualifying days in a row, today included
	dash := a.dashboard(t, "demo")
	assert.Equal(t, 7, dash.Streak)
	assert.Len(t, dash.DailyScores, 7)
	assert.True(t, dash.StreakMultiplier.GreaterThan(decimal.NewFromInt(1)))

	objectives := decodeAs[[]mission.Objective](t, a.do(t, http.MethodGet, "/api/users/demo/objectives", nil))
	require.Len(t, objectives, 1)
	assert.Equal(t, "Fitness", objectives[0].Label)

	quests := decodeAs[[]mission.SideQuest](t, a.do(t, http.MethodGet, "/api/users/demo/side-quests", nil))
	require.Len(t, quests, 1)
	assert.Len(t, quests[0].Completions, 1)

	entry := decodeAs[mission.DiaryEntry](t, a.do(t, http.MethodGet, "/api/users/demo/diary/2024-03-12", nil))
	assert.NotEmpty(t, entry.Reflection)
}

func TestLoadScenario_HighRoller(t *testing.T) {
	a := newTestAPI(t)

	a.loadScenario(t, "high-roller")

	// THEN: 5 funding + 4 payout, 1 lost stake, today's wager still open
	dash := a.dashboard(t, "demo")
	assertDecimal(t, "9", dash.Balance.Bonuses)
	assertDecimal(t, "1", dash.Balance.Spent)

	day := decodeAs[DayDTO](t, a.do(t, http.MethodGet, "/api/users/demo/days/"+testToday, nil))
	require.Len(t, day.Instances, 1)
	assert.Equal(t, mission.Placed, day.Instances[0].Wager.Status())
}

func TestLoadScenario_ReplacesPreviousData(t *testing.T) {
	a := newTestAPI(t)
	a.createUser(t, "alice")

	a.loadScenario(t, "high-roller")
	a.loadScenario(t, "fresh-start")

	users := decodeAs[[]UserDTO](t, a.do(t, http.MethodGet, "/api/users", nil))
	assert.Equal(t, []UserDTO{{ID: "demo"}}, users)
	assertDecimal(t, "0", a.dashboard(t, "demo").Balance.Spent)
}

func TestLoadScenario_Unknown(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_scenario", decodeAs[ErrorResponse](t, rec).Code)
}
