package badge

import (
	"testing"
	"time"

	"millionMetersAPI/internal/stats"
	"millionMetersAPI/internal/workout"
)

var testNow = time.Date(2025, 7, 4, 17, 0, 0, 0, time.UTC)

func TestThresholdCapsProgress(t *testing.T) {
	p := threshold(150_000, 100_000, testNow)
	if !p.Earned {
		t.Error("expected earned")
	}
	if p.Progress != 100_000 {
		t.Errorf("Progress = %d, want capped at 100000", p.Progress)
	}
	if p.MaxProgress != 100_000 {
		t.Errorf("MaxProgress = %d", p.MaxProgress)
	}
	if p.EarnedDate == nil || !p.EarnedDate.Equal(testNow) {
		t.Errorf("EarnedDate = %v, want %v", p.EarnedDate, testNow)
	}
}

func TestThresholdUnearned(t *testing.T) {
	p := threshold(40_000, 100_000, testNow)
	if p.Earned {
		t.Error("expected unearned")
	}
	if p.Progress != 40_000 {
		t.Errorf("Progress = %d, want 40000", p.Progress)
	}
	if p.EarnedDate != nil {
		t.Errorf("EarnedDate = %v, want nil", p.EarnedDate)
	}
}

func TestEvaluateLifetimeBadges(t *testing.T) {
	st := stats.UserStats{
		TotalMeters: 1_100_000,
		DayStreak:   8,
		CountByType: map[string]int{"lift": 25, "erg": 10},
	}

	p := Evaluate("million-meter-champion", st, nil, testNow)
	if !p.Earned || p.Progress != 1_000_000 {
		t.Errorf("million-meter-champion = %+v", p)
	}

	p = Evaluate("fresh-legs", st, nil, testNow)
	if !p.Earned {
		t.Errorf("fresh-legs = %+v", p)
	}

	p = Evaluate("week-warrior", st, nil, testNow)
	if !p.Earned {
		t.Errorf("week-warrior = %+v", p)
	}

	p = Evaluate("monthly-master", st, nil, testNow)
	if p.Earned || p.Progress != 8 {
		t.Errorf("monthly-master = %+v", p)
	}

	p = Evaluate("gym-rat", st, nil, testNow)
	if !p.Earned {
		t.Errorf("gym-rat = %+v", p)
	}

	p = Evaluate("erg-master", st, nil, testNow)
	if p.Earned || p.Progress != 10 {
		t.Errorf("erg-master = %+v", p)
	}
}

func TestEvaluateRealtimeBadges(t *testing.T) {
	activities := []workout.Activity{
		{Activity: "Erg", Points: 60_000, Date: testNow},
		{Activity: "Running", Points: 45_000, Date: testNow.Add(-time.Hour)},
		// yesterday, must not count toward today
		{Activity: "Erg", Points: 50_000, Date: testNow.AddDate(0, 0, -1)},
	}
	st := stats.UserStats{TotalMeters: 155_000}

	p := Evaluate("100k-day", st, activities, testNow)
	if !p.Earned || p.Progress != 100_000 {
		t.Errorf("100k-day = %+v", p)
	}

	p = Evaluate("tri", st, activities, testNow)
	if !p.Earned {
		t.Errorf("tri = %+v", p)
	}

	p = Evaluate("jack-of-all-trades", st, activities, testNow)
	if p.Earned || p.Progress != 2 {
		t.Errorf("jack-of-all-trades = %+v", p)
	}
}

func TestEvaluateJackOfAllTrades(t *testing.T) {
	labels := []string{"Erg", "On the Water", "Running", "Biking", "Swimming", "Lifting"}
	var activities []workout.Activity
	for _, l := range labels {
		activities = append(activities, workout.Activity{Activity: l, Points: 1000, Date: testNow})
	}

	p := Evaluate("jack-of-all-trades", stats.UserStats{}, activities, testNow)
	if !p.Earned || p.Progress != 6 {
		t.Errorf("jack-of-all-trades = %+v", p)
	}
}

func TestEvaluateEarlyBird(t *testing.T) {
	// 11:00 UTC is 06:00 at the fixed offset
	early := time.Date(2025, 7, 4, 11, 0, 0, 0, time.UTC)
	var activities []workout.Activity
	for i := 0; i < 10; i++ {
		activities = append(activities, workout.Activity{
			Activity: "Erg",
			Points:   5000,
			Date:     early.AddDate(0, 0, -i),
		})
	}
	// early but too short, must not count
	activities = append(activities, workout.Activity{Activity: "Erg", Points: 2000, Date: early})
	// long enough but not early
	activities = append(activities, workout.Activity{Activity: "Erg", Points: 8000, Date: testNow})

	p := Evaluate("early-bird", stats.UserStats{}, activities, testNow)
	if !p.Earned || p.Progress != 10 {
		t.Errorf("early-bird = %+v", p)
	}
}

func TestEvaluateManualBadgesAlwaysUnearned(t *testing.T) {
	st := stats.UserStats{TotalMeters: 2_000_000, DayStreak: 100}
	for _, id := range []string{"marathon", "nates-favorite", "zigzag-method", "mystery-badge", "lend-a-hand"} {
		p := Evaluate(id, st, nil, testNow)
		if p.Earned || p.Progress != 0 || p.MaxProgress != 1 {
			t.Errorf("%s = %+v, want unearned 0/1", id, p)
		}
	}
}

func TestEvaluateUnknownID(t *testing.T) {
	p := Evaluate("no-such-badge", stats.UserStats{}, nil, testNow)
	if p.Earned || p.MaxProgress != 1 {
		t.Errorf("unknown id = %+v", p)
	}
}

func TestEvaluateAllCoversCatalog(t *testing.T) {
	activities := []workout.Activity{
		{Activity: "Erg", Points: 1_100_000, Date: testNow},
	}
	st := stats.Compute(activities, testNow)

	badges := EvaluateAll(st, activities, testNow)

	if len(badges) != len(catalog) {
		t.Fatalf("EvaluateAll returned %d badges, want %d", len(badges), len(catalog))
	}
	for _, id := range AllIDs() {
		if _, ok := badges[id]; !ok {
			t.Errorf("missing badge %s", id)
		}
	}

	if !badges["million-meter-champion"].Earned {
		t.Error("million-meter-champion should be earned")
	}
	if !badges["100k-day"].Earned {
		t.Error("100k-day should be earned")
	}
	if badges["100k-day"].Progress != 100_000 {
		t.Errorf("100k-day progress = %d, want capped", badges["100k-day"].Progress)
	}
	if badges["mystery-badge"].Earned {
		t.Error("mystery-badge should stay unearned")
	}
}

func TestLookupAndName(t *testing.T) {
	d, ok := Lookup("fish")
	if !ok || d.Target != 10 || d.Kind != KindLifetime {
		t.Errorf("Lookup(fish) = %+v, %v", d, ok)
	}
	if _, ok := Lookup("nope"); ok {
		t.Error("Lookup accepted unknown id")
	}
	if Name("100k-day") != "Centurion" {
		t.Errorf("Name(100k-day) = %q", Name("100k-day"))
	}
	if Name("nope") != "nope" {
		t.Errorf("Name falls back to id, got %q", Name("nope"))
	}
}
