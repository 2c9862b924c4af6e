package badge

import (
	"time"

	"millionMetersAPI/internal/esttime"
	"millionMetersAPI/internal/stats"
	"millionMetersAPI/internal/workout"
)

// todayTotals are the real-time inputs: meters and distinct categories among
// activities whose offset-adjusted date key matches today's.
type todayTotals struct {
	meters     int
	categories int
}

func computeToday(activities []workout.Activity, now time.Time) todayTotals {
	today := esttime.DateKey(now)
	seen := make(map[string]bool)
	var t todayTotals
	for _, a := range activities {
		d, ok := workout.ParseDate(a.Date)
		if !ok || esttime.DateKey(d) != today {
			continue
		}
		t.meters += workout.Meters(a.Points)
		seen[workout.Normalize(a.Activity)] = true
	}
	t.categories = len(seen)
	return t
}

func earlyBirdCount(activities []workout.Activity) int {
	count := 0
	for _, a := range activities {
		d, ok := workout.ParseDate(a.Date)
		if ok && esttime.IsBefore7AM(d) && workout.Meters(a.Points) >= 5000 {
			count++
		}
	}
	return count
}

// threshold builds the Progress for a scalar-vs-target rule: progress is
// capped at the target and earnedDate is set only when the threshold is met
// on this evaluation.
func threshold(scalar, target int, now time.Time) Progress {
	p := Progress{
		Earned:      scalar >= target,
		Progress:    scalar,
		MaxProgress: target,
		LastUpdated: now,
	}
	if p.Progress > target {
		p.Progress = target
	}
	if p.Earned {
		earnedAt := now
		p.EarnedDate = &earnedAt
	}
	return p
}

func unearned(maxProgress int, now time.Time) Progress {
	return Progress{Earned: false, Progress: 0, MaxProgress: maxProgress, LastUpdated: now}
}

// Evaluate computes one badge's state from the user's aggregates and
// activity log. It is stateless: earned permanence across runs is the
// reconciliation service's job, not the engine's. Manual badges and unknown
// ids report a zeroed result rather than failing.
func Evaluate(id string, st stats.UserStats, activities []workout.Activity, now time.Time) Progress {
	switch id {
	case "million-meter-champion":
		return threshold(st.TotalMeters, 1_000_000, now)
	case "fresh-legs":
		return threshold(st.TotalMeters, 10_000, now)
	case "monthly-master":
		return threshold(st.DayStreak, 30, now)
	case "week-warrior":
		return threshold(st.DayStreak, 7, now)
	case "gym-rat":
		return threshold(st.CountByType["lift"], 20, now)
	case "erg-master":
		return threshold(st.CountByType["erg"], 50, now)
	case "fish":
		return threshold(st.CountByType["swim"], 10, now)
	case "just-do-track-bruh":
		return threshold(st.CountByType["run"], 10, now)
	case "early-bird":
		return threshold(earlyBirdCount(activities), 10, now)
	case "100k-day":
		return threshold(computeToday(activities, now).meters, 100_000, now)
	case "jack-of-all-trades":
		return threshold(computeToday(activities, now).categories, 6, now)
	case "tri":
		return threshold(computeToday(activities, now).meters, 30_000, now)
	case "marathon", "nates-favorite", "zigzag-method", "mystery-badge", "lend-a-hand":
		return unearned(1, now)
	default:
		return unearned(1, now)
	}
}

// EvaluateAll runs every catalog rule independently and returns one
// Progress per known badge id.
func EvaluateAll(st stats.UserStats, activities []workout.Activity, now time.Time) map[string]Progress {
	today := computeToday(activities, now)
	early := earlyBirdCount(activities)

	badges := make(map[string]Progress, len(catalog))
	for _, def := range catalog {
		switch def.ID {
		case "100k-day", "tri":
			badges[def.ID] = threshold(today.meters, def.Target, now)
		case "jack-of-all-trades":
			badges[def.ID] = threshold(today.categories, def.Target, now)
		case "early-bird":
			badges[def.ID] = threshold(early, def.Target, now)
		default:
			badges[def.ID] = Evaluate(def.ID, st, activities, now)
		}
	}
	return badges
}
