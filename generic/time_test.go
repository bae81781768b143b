package generic_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/task-economy/generic"
)

func TestParseDate_RoundTripsThroughString(t *testing.T) {
	d, err := generic.ParseDate("2024-01-08")
	require.NoError(t, err)

	assert.Equal(t, "2024-01-08", d.String())
	assert.Equal(t, time.Monday, d.Weekday())
	assert.Equal(t, generic.NewDate(2024, time.January, 8), d)
}

func TestParseDate_RejectsGarbage(t *testing.T) {
	_, err := generic.ParseDate("2024-13-40")
	assert.Error(t, err)

	_, err = generic.ParseDate("01/08/2024")
	assert.Error(t, err)
}

func TestDate_ArithmeticCrossesMonthsAndDST(t *testing.T) {
	// 2024-03-10 is a DST change in many zones; civil arithmetic ignores it.
	d := generic.NewDate(2024, time.March, 9)

	assert.Equal(t, "2024-03-10", d.AddDays(1).String())
	assert.Equal(t, "2024-03-11", d.AddDays(2).String())
	assert.Equal(t, "2024-02-29", generic.NewDate(2024, time.March, 1).AddDays(-1).String())
	assert.Equal(t, 7, generic.DaysBetween(generic.MustParseDate("2024-01-01"), generic.MustParseDate("2024-01-08")))
}

func TestDate_Ordering(t *testing.T) {
	a := generic.MustParseDate("2023-12-31")
	b := generic.MustParseDate("2024-01-01")

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, a.BeforeOrEqual(a))
	assert.True(t, b.AfterOrEqual(a))
	assert.False(t, a.Equal(b))
}

func TestDate_WeekendClassification(t *testing.T) {
	assert.True(t, generic.MustParseDate("2024-01-06").IsWeekend())  // Saturday
	assert.True(t, generic.MustParseDate("2024-01-07").IsWeekend())  // Sunday
	assert.True(t, generic.MustParseDate("2024-01-05").IsWeekday())  // Friday
}

func TestDate_JSONMapKeys(t *testing.T) {
	in := map[generic.Date]int{
		generic.MustParseDate("2024-01-01"): 2,
		generic.MustParseDate("2024-01-02"): 0,
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"2024-01-01":2,"2024-01-02":0}`, string(raw))

	var out map[generic.Date]int
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestToday_UsesClock(t *testing.T) {
	d := generic.MustParseDate("2024-05-17")
	assert.Equal(t, d, generic.Today(generic.FixedClockOn(d)))
}

func TestPeriod_TrailingDays(t *testing.T) {
	p := generic.TrailingDays(generic.MustParseDate("2024-01-07"), 7)

	assert.Equal(t, "[2024-01-01, 2024-01-07]", p.String())
	assert.Len(t, p.Days(), 7)
	assert.True(t, p.Contains(generic.MustParseDate("2024-01-03")))
	assert.False(t, p.Contains(generic.MustParseDate("2024-01-08")))
	assert.NoError(t, p.Validate())

	bad := generic.Period{Start: p.End, End: p.Start}
	assert.ErrorIs(t, bad.Validate(), generic.ErrInvalidPeriod)
}
