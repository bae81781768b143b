package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/task-economy/generic"
	"github.com/warp/task-economy/generic/store"
	"github.com/warp/task-economy/mission"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const user = generic.EntityID("user-1")

func fakeService(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "secret", time.Second)
}

func reply(body any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}
}

func dateOf(s string) generic.Date { return generic.MustParseDate(s) }

// =============================================================================
// CLIENT
// =============================================================================

func TestClient_SendsBearerTokenAndDecodes(t *testing.T) {
	var got OddsRequest
	client := fakeService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/odds", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		reply(OddsResponse{Multiplier: 2.4, Rationale: "you got this"})(w, r)
	})

	resp, err := client.Odds(context.Background(), OddsRequest{Description: "Run 5k", Difficulty: mission.Hard})

	require.NoError(t, err)
	assert.Equal(t, 2.4, resp.Multiplier)
	assert.Equal(t, "you got this", resp.Rationale)
	assert.Equal(t, "Run 5k", got.Description)
}

func TestClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}},
		{"empty feedback", reply(FeedbackResponse{Feedback: "  "})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := fakeService(t, tt.handler)
			_, err := client.Feedback(context.Background(), DaySummary{})
			assert.Error(t, err)
		})
	}
}

func TestClient_NotConfigured(t *testing.T) {
	var nilClient *Client
	assert.False(t, nilClient.Enabled())

	_, err := NewClient("", "", 0).Odds(context.Background(), OddsRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

// =============================================================================
// ODDS
// =============================================================================

func TestOddsQuoter_ClampsAndFallsBack(t *testing.T) {
	bounds := mission.DefaultPolicy().Odds
	st := mission.NewState(user, mission.DefaultPolicy())
	draft := mission.TaskDraft{Description: "Deep work", Difficulty: mission.Medium}

	tests := []struct {
		name         string
		client       *Client
		want         string
		wantFallback bool
	}{
		{"in bounds", fakeService(t, reply(OddsResponse{Multiplier: 3.2})), "3.2", false},
		{"too generous", fakeService(t, reply(OddsResponse{Multiplier: 40})), "5", false},
		{"too stingy", fakeService(t, reply(OddsResponse{Multiplier: 1.1})), "1.5", false},
		{"service down", fakeService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}), "2", true},
		{"not configured", NewClient("", "", 0), "2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewOddsQuoter(tt.client, bounds, nil).Quote(context.Background(), st, draft)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(q.Multiplier), "got %s", q.Multiplier)
			assert.Equal(t, tt.wantFallback, q.Fallback)
		})
	}
}

// =============================================================================
// SUMMARIES
// =============================================================================

func TestOddsRequestFor_SimilarHistory(t *testing.T) {
	// GIVEN: Seven completed "Morning run" missions and an unrelated one
	st := mission.NewState(user, mission.DefaultPolicy())
	st.Tasks = map[generic.Date][]mission.Task{}
	for i := 1; i <= 7; i++ {
		d := dateOf("2024-01-01").AddDays(i)
		st.Tasks[d] = append(st.Tasks[d], mission.Task{ID: d.String(), Description: "Morning run, 5k", Date: d, Completed: true})
	}
	st.Tasks[dateOf("2024-01-02")] = append(st.Tasks[dateOf("2024-01-02")],
		mission.Task{ID: "x", Description: "Tax return", Date: dateOf("2024-01-02"), Completed: true})
	st.Objectives = []mission.Objective{
		{ID: "o1", Description: "Marathon"},
		{ID: "o2", Description: "Done already", Completed: true},
	}

	// WHEN: Pricing a similar draft
	req := OddsRequestFor(st, mission.TaskDraft{Description: "MORNING RUNS with Sam"})

	// THEN: At most five matches, active objectives only
	assert.Len(t, req.SimilarHistory, 5)
	assert.NotContains(t, req.SimilarHistory, "Tax return")
	assert.Equal(t, []string{"Marathon"}, req.ActiveObjectives)
}

func TestSummarizeDay(t *testing.T) {
	p := mission.DefaultPolicy()
	st := mission.NewState(user, p)
	st.Settings.DailyGoal = decimal.RequireFromString("0.1")
	d := dateOf("2024-01-10")
	actual := 30
	st.Tasks = map[generic.Date][]mission.Task{d: {
		{ID: "a", Description: "Report", Category: "Work", Difficulty: mission.Medium, Date: d, EstimatedTime: 45, Completed: true, ActualTime: &actual},
		{ID: "b", Description: "Open", Category: "Work", Difficulty: mission.Easy, Date: d},
	}}
	st.Diary = map[generic.Date]mission.DiaryEntry{d: {Date: d, Reflection: "long day"}}

	s := SummarizeDay(p, st, d, d)

	require.Len(t, s.Missions, 1)
	assert.Equal(t, "Report", s.Missions[0].Description)
	assert.Equal(t, 30, s.Missions[0].ActualTime)
	assert.Equal(t, "long day", s.Reflection)
	assert.True(t, s.Earnings.IsPositive())
	assert.Equal(t, 1, s.Streak)
}

// =============================================================================
// DISPATCHER
// =============================================================================

func TestDispatcher_StoresFeedbackAfterCompletion(t *testing.T) {
	// GIVEN: A service wired to a dispatcher and a fake text service
	var calls atomic.Int32
	client := fakeService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var s DaySummary
		require.NoError(t, json.NewDecoder(r.Body).Decode(&s))
		reply(FeedbackResponse{Feedback: "Solid work on " + s.Date.String()})(w, r)
	})
	today := dateOf("2024-01-10")
	svc := mission.NewService(store.NewTxMemory(), mission.DefaultPolicy(), generic.FixedClockOn(today), nil)
	disp := NewDispatcher(svc, client, nil, 4)
	svc.Publisher = disp
	disp.Start()
	defer disp.Stop()

	ctx := context.Background()
	_, err := svc.Register(ctx, user)
	require.NoError(t, err)
	c, err := svc.CommitTask(ctx, user, mission.TaskDraft{
		Description: "Report", Category: "Work", Difficulty: mission.Medium, Date: today,
	})
	require.NoError(t, err)

	// WHEN: Completing the mission
	_, err = svc.CompleteInstance(ctx, user, today, c.Task.ID, 20)
	require.NoError(t, err)

	// THEN: Feedback lands in the diary, and the grade is left alone
	require.Eventually(t, func() bool {
		entry, err := svc.Diary(ctx, user, today)
		return err == nil && entry.Feedback == "Solid work on 2024-01-10"
	}, 2*time.Second, 10*time.Millisecond)

	entry, err := svc.Diary(ctx, user, today)
	require.NoError(t, err)
	assert.Empty(t, entry.Grade)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDispatcher_CoalescesAndDropsWhenFull(t *testing.T) {
	// Not started: nothing drains the queue.
	disp := NewDispatcher(nil, nil, nil, 1)
	ctx := context.Background()

	disp.Publish(ctx, user, dateOf("2024-01-10"))
	disp.Publish(ctx, user, dateOf("2024-01-10"))
	disp.Publish(ctx, user, dateOf("2024-01-11"))

	assert.Len(t, disp.jobs, 1)
	assert.True(t, disp.pending[dayKey{entity: user, day: dateOf("2024-01-10")}])
	assert.False(t, disp.pending[dayKey{entity: user, day: dateOf("2024-01-11")}])
}
