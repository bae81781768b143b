/*
handlers_test.go - Tests for the HTTP surface

Tests for:
- User creation and funding
- Task commit, completion and the derived dashboard
- Wagers won through the API and reversed on un-complete
- Error mapping (400 / 404 / 409)
- Reward shop purchases
*/
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/task-economy/generic"
	"github.com/warp/task-economy/generic/store"
	"github.com/warp/task-economy/mission"
	"github.com/warp/task-economy/rewards"
)

const testToday = "2024-03-13"

type testAPI struct {
	router  http.Handler
	service *mission.Service
	store   *store.TxMemory
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	repo := store.NewTxMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := mission.NewService(repo, mission.DefaultPolicy(), generic.FixedClockOn(generic.MustParseDate(testToday)), logger)
	h := NewHandler(svc, nil, repo)
	return &testAPI{router: NewRouter(h, nil), service: svc, store: repo}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeAs[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *testAPI) createUser(t *testing.T, id string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/users", CreateUserRequest{ID: id})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (a *testAPI) dashboard(t *testing.T, id string) DashboardDTO {
	t.Helper()
	rec := a.do(t, http.MethodGet, "/api/users/"+id+"/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeAs[DashboardDTO](t, rec)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

// =============================================================================
// USERS
// =============================================================================

func TestCreateUser_FundsOnce(t *testing.T) {
	a := newTestAPI(t)

	// GIVEN: A brand new user
	rec := a.do(t, http.MethodPost, "/api/users", CreateUserRequest{ID: "alice"})

	// THEN: The account is funded with one notification
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeAs[CreateUserResponse](t, rec)
	assert.Equal(t, "alice", created.User.ID)
	require.Len(t, created.Notifications, 1)
	assert.Equal(t, mission.TitleAccountFunded, created.Notifications[0].Title)

	// WHEN: The same user registers again
	rec = a.do(t, http.MethodPost, "/api/users", CreateUserRequest{ID: "alice"})

	// THEN: Nothing more is paid
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, decodeAs[CreateUserResponse](t, rec).Notifications)
	assertDecimal(t, "5", a.dashboard(t, "alice").Balance.Current)

	users := decodeAs[[]UserDTO](t, a.do(t, http.MethodGet, "/api/users", nil))
	assert.Equal(t, []UserDTO{{ID: "alice"}}, users)
}

func TestCreateUser_GeneratesID(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/users", nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, decodeAs[CreateUserResponse](t, rec).User.ID)
}

func TestUnregisteredUser_NotFoundUntilCreated(t *testing.T) {
	a := newTestAPI(t)

	// WHEN: Writing for a user that was never created
	rec := a.do(t, http.MethodPost, "/api/users/ghost/tasks", mission.TaskDraft{Description: "Sneak in", Difficulty: mission.Easy})

	// THEN: The user is unknown and nothing is stored
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	assert.Equal(t, "not_found", decodeAs[ErrorResponse](t, rec).Code)
	assert.Empty(t, decodeAs[[]UserDTO](t, a.do(t, http.MethodGet, "/api/users", nil)))

	// AND: Creating the user afterwards still pays the funding bonus
	a.createUser(t, "ghost")
	assertDecimal(t, "5", a.dashboard(t, "ghost").Balance.Current)
}

// =============================================================================
// TASKS AND INSTANCES
// =============================================================================

func TestCompleteInstance_UpdatesDashboard(t *testing.T) {
	a := newTestAPI(t)
	a.createUser(t, "alice")

	// GIVEN: A hard task for today
	rec := a.do(t, http.MethodPost, "/api/users/alice/tasks", mission.TaskDraft{
		Description:   "Write report",
		Category:      "Work",
		Difficulty:    mission.Hard,
		EstimatedTime: 60,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	committed := decodeAs[mission.Committed](t, rec)
	require.NotNil(t, committed.Task)
	assert.Equal(t, testToday, committed.Task.Date.String())

	// WHEN: It is completed in 60 minutes
	path := "/api/users/alice/days/" + testToday + "/instances/" + committed.Task.ID
	rec = a.do(t, http.MethodPost, path+"/complete", CompleteInstanceRequest{ActualTime: 60})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeAs[mission.Outcome](t, rec).Instance.Completed)

	// THEN: (0.25 + 60*0.002) * 3/5 = 0.222 is earned
	dash := a.dashboard(t, "alice")
	assertDecimal(t, "0.222", dash.Balance.TaskEarnings)
	assertDecimal(t, "5.222", dash.Balance.Current)
	require.Len(t, dash.DailyScores, 1)

	// WHEN: It is un-completed
	rec = a.do(t, http.MethodPost, path+"/uncomplete", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: The earnings disappear
	assertDecimal(t, "0", a.dashboard(t, "alice").Balance.TaskEarnings)

	day := decodeAs[DayDTO](t, a.do(t, http.MethodGet, "/api/users/alice/days/"+testToday, nil))
	require.Len(t, day.Instances, 1)
	assert.False(t, day.Instances[0].Completed)
}

func TestCompleteInstance_WonBetIsReversedOnUncomplete(t *testing.T) {
	a := newTestAPI(t)
	a.createUser(t, "alice")

	// GIVEN: A task with a 2 credit stake at 3x
	rec := a.do(t, http.MethodPost, "/api/users/alice/tasks", mission.TaskDraft{
		Description: "Ship it",
		Difficulty:  mission.Easy,
		Bet: &mission.BetSlip{
			Stake:      decimal.NewFromInt(2),
			Multiplier: decimal.NewFromInt(3),
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decodeAs[mission.Committed](t, rec).Task.ID
	path := "/api/users/alice/days/" + testToday + "/instances/" + id

	// WHEN: It is completed
	rec = a.do(t, http.MethodPost, path+"/complete", CompleteInstanceRequest{ActualTime: 10})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: The payout, 2 + 2*3, lands in bonuses
	assertDecimal(t, "13", a.dashboard(t, "alice").Balance.Bonuses)

	// WHEN: It is un-completed
	rec = a.do(t, http.MethodPost, path+"/uncomplete", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: The payout is reversed
	assertDecimal(t, "5", a.dashboard(t, "alice").Balance.Bonuses)
}

func TestCommitTask_StakeAboveBalance(t *testing.T) {
	a := newTestAPI(t)
	a.createUser(t, "alice")

	rec := a.do(t, http.MethodPost, "/api/users/alice/tasks", mission.TaskDraft{
		Description: "Long shot",
		Difficulty:  mission.Savage,
		Bet:         &mission.BetSlip{Stake: decimal.NewFromInt(50), Multiplier: decimal.NewFromInt(2)},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeAs[ErrorResponse](t, rec)
	assert.Equal(t, "insufficient_balance", resp.Code)
	details, ok := resp.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "45.00", details["shortfall"])
}

func TestSetInstanceTime(t *testing.T) {
	a := newTestAPI(t)
	a.createUser(t, "alice")
	rec := a.do(t, http.MethodPost, "/api/users/alice/tasks", mission.TaskDraft{Description: "Call mum", Difficulty: mission.Easy})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeAs[mission.Committed](t, rec).Task.ID

	rec = a.do(t, http.MethodPut, "/api/users/alice/days/"+testToday+"/instances/"+id+"/time", SetTimeRequest{Time: "18:30"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "18:30", decodeAs[mission.Instance](t, rec).Time)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestErrorMapping(t *testing.T) {
	a := newTestAPI(t)
	a.createUser(t, "alice")

	rec := a.do(t, http.MethodPost, "/api/users/alice/side-quests", mission.SideQuestDraft{
		Description: "Stretch", Difficulty: mission.Easy, DailyGoal: 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	questID := decodeAs[mission.SideQuest](t, rec).ID
	require.Equal(t, http.StatusOK, a.do(t, http.MethodPost, "/api/users/alice/side-quests/"+questID+"/complete", nil).Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"bad date", http.MethodGet, "/api/users/alice/days/13-03-2024", nil, http.StatusBadRequest, "invalid_date"},
		{"unknown task", http.MethodDelete, "/api/users/alice/tasks/nope", nil, http.StatusNotFound, "not_found"},
		{"unknown instance", http.MethodPost, "/api/users/alice/days/" + testToday + "/instances/nope/complete", nil, http.StatusNotFound, "not_found"},
		{"quota reached", http.MethodPost, "/api/users/alice/side-quests/" + questID + "/complete", nil, http.StatusConflict, "conflict"},
		{"missing description", http.MethodPost, "/api/users/alice/tasks", mission.TaskDraft{Difficulty: mission.Easy}, http.StatusBadRequest, "invalid_request"},
		{"unknown difficulty", http.MethodPost, "/api/users/alice/side-quests", mission.SideQuestDraft{Description: "x", Difficulty: "Epic"}, http.StatusBadRequest, "invalid_request"},
		{"negative daily goal", http.MethodPut, "/api/users/alice/daily-goal", DailyGoalRequest{DailyGoal: decimal.NewFromInt(-1)}, http.StatusBadRequest, "invalid_request"},
		{"empty reward name", http.MethodPost, "/api/users/alice/rewards", AddRewardRequest{Name: " ", Cost: decimal.NewFromInt(1)}, http.StatusBadRequest, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeAs[ErrorResponse](t, rec).Code)
		})
	}
}

func TestMalformedBody(t *testing.T) {
	a := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/users/alice/tasks", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()

	a.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// OBJECTIVES / SHOP / DIARY
// =============================================================================

func TestObjectiveCompletion_PaysOnce(t *testing.T) {
	a := newTestAPI(t)
	a.createUser(t, "alice")

	rec := a.do(t, http.MethodPost, "/api/users/alice/objectives", mission.ObjectiveDraft{
		Description: "Learn Spanish",
		Label:       "Language",
		TargetDate:  generic.MustParseDate("2024-12-31"),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decodeAs[mission.Objective](t, rec).ID

	rec = a.do(t, http.MethodPost, "/api/users/alice/objectives/"+id+"/complete", CompleteObjectiveRequest{Proof: "B2 certificate"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assertDecimal(t, "30", a.dashboard(t, "alice").Balance.Bonuses)

	rec = a.do(t, http.MethodPost, "/api/users/alice/objectives/"+id+"/complete", CompleteObjectiveRequest{})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPurchaseReward(t *testing.T) {
	a := newTestAPI(t)
	a.createUser(t, "alice")

	rec := a.do(t, http.MethodPost, "/api/users/alice/rewards", AddRewardRequest{Name: "Cinema", Cost: decimal.NewFromInt(3)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reward := decodeAs[rewards.Reward](t, rec)

	// GIVEN: 5 credits, WHEN: buying a 3 credit reward twice
	first := a.do(t, http.MethodPost, "/api/users/alice/rewards/"+reward.ID+"/purchase", nil)
	second := a.do(t, http.MethodPost, "/api/users/alice/rewards/"+reward.ID+"/purchase", nil)

	// THEN: Only the first goes through
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Equal(t, http.StatusBadRequest, second.Code)
	assert.Equal(t, "insufficient_balance", decodeAs[ErrorResponse](t, second).Code)

	dash := a.dashboard(t, "alice")
	assertDecimal(t, "3", dash.Balance.Spent)
	assertDecimal(t, "2", dash.Balance.Current)

	purchases := decodeAs[[]rewards.Purchase](t, a.do(t, http.MethodGet, "/api/users/alice/purchases", nil))
	require.Len(t, purchases, 1)
	assert.Equal(t, "Cinema", purchases[0].Name)
}

func TestDiaryEntry_RoundTrip(t *testing.T) {
	a := newTestAPI(t)
	a.createUser(t, "alice")
	text := "Good day"

	rec := a.do(t, http.MethodPut, "/api/users/alice/diary/"+testToday, mission.DiaryPatch{Reflection: &text})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeAs[mission.DiaryEntry](t, a.do(t, http.MethodGet, "/api/users/alice/diary/"+testToday, nil))
	assert.Equal(t, "Good day", got.Reflection)
}

// =============================================================================
// WAGERING
// =============================================================================

func TestQuoteOdds_FallsBackWithoutService(t *testing.T) {
	a := newTestAPI(t)
	a.createUser(t, "alice")

	rec := a.do(t, http.MethodPost, "/api/users/alice/odds", mission.TaskDraft{Description: "Run 10k", Difficulty: mission.Hard})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var quote struct {
		Multiplier decimal.Decimal `json:"multiplier"`
		Fallback   bool            `json:"fallback"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assertDecimal(t, "2", quote.Multiplier)
	assert.True(t, quote.Fallback)
}

func TestSettleBets_OncePerDay(t *testing.T) {
	a := newTestAPI(t)
	a.createUser(t, "alice")

	// GIVEN: An open wager from yesterday
	rec := a.do(t, http.MethodPost, "/api/users/alice/tasks", mission.TaskDraft{
		Description: "Gym",
		Difficulty:  mission.Medium,
		Date:        generic.MustParseDate("2024-03-12"),
		Bet:         &mission.BetSlip{Stake: decimal.NewFromInt(1), Multiplier: decimal.NewFromInt(2)},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN: Settlement runs twice
	first := decodeAs[SettlementResponse](t, a.do(t, http.MethodPost, "/api/users/alice/settlement", nil))
	second := decodeAs[SettlementResponse](t, a.do(t, http.MethodPost, "/api/users/alice/settlement", nil))

	// THEN: The stake is charged once
	assert.True(t, first.Settlement.Ran)
	assert.Len(t, first.Settlement.Lost, 1)
	assert.False(t, second.Settlement.Ran)
	assertDecimal(t, "1", a.dashboard(t, "alice").Balance.Spent)
}
