// Package stats derives per-user aggregates from the raw activity log.
// Aggregates are recomputed on demand and are never the source of truth.
package stats

import (
	"time"

	"millionMetersAPI/internal/esttime"
	"millionMetersAPI/internal/workout"
)

// GoalMeters is the individual challenge target.
const GoalMeters = 1_000_000

// challengeDaysLeft mirrors the pace math used on the submission side.
const challengeDaysLeft = 70

// UserStats is the aggregate view of one user's activity log.
type UserStats struct {
	TotalMeters           int            `json:"total_meters"`
	DayStreak             int            `json:"day_streak"`
	CountByType           map[string]int `json:"count_by_type"`
	MetersByType          map[string]int `json:"meters_by_type"`
	Deficit               int            `json:"deficit"`
	DailyRequired         int            `json:"daily_required"`
	DailyRequiredWithRest int            `json:"daily_required_with_rest"`
	TopWorkoutType        string         `json:"top_workout_type"`
}

// Compute builds UserStats from an activity log. now anchors the streak walk
// so callers (and tests) control the clock.
func Compute(activities []workout.Activity, now time.Time) UserStats {
	st := UserStats{
		CountByType:    make(map[string]int),
		MetersByType:   make(map[string]int),
		TopWorkoutType: "erg",
	}

	for _, a := range activities {
		meters := workout.Meters(a.Points)
		category := workout.Normalize(a.Activity)

		st.TotalMeters += meters
		st.CountByType[category]++
		st.MetersByType[category] += meters
	}

	topCount := 0
	for category, count := range st.CountByType {
		if count > topCount {
			topCount = count
			st.TopWorkoutType = category
		}
	}

	st.DayStreak = DayStreak(activities, now)
	st.Deficit = GoalMeters - st.TotalMeters
	if st.Deficit < 0 {
		st.Deficit = 0
	}
	st.DailyRequired = ceilDiv(st.Deficit, challengeDaysLeft)
	// one rest day per week: six active days out of seven
	st.DailyRequiredWithRest = ceilDiv(st.Deficit*7, challengeDaysLeft*6)

	return st
}

// DayStreak counts consecutive offset-adjusted calendar days with at least
// one activity, walking backward from today (or from yesterday when today
// has no activity yet). Activities with unparseable timestamps are skipped
// silently. The walk checks real calendar adjacency: a gap of two or more
// days breaks the streak even when both endpoints have activity.
func DayStreak(activities []workout.Activity, now time.Time) int {
	days := make(map[string]bool)
	for _, a := range activities {
		if t, ok := workout.ParseDate(a.Date); ok {
			days[esttime.DateKey(t)] = true
		}
	}
	if len(days) == 0 {
		return 0
	}

	today := esttime.ConvertToEST(now)
	start := today
	if !days[start.Format("2006-01-02")] {
		start = today.AddDate(0, 0, -1)
		if !days[start.Format("2006-01-02")] {
			return 0
		}
	}

	streak := 1
	for d := start.AddDate(0, 0, -1); days[d.Format("2006-01-02")]; d = d.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
