package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"millionMetersAPI/internal/esttime"
	"millionMetersAPI/internal/leaderboard"
	"millionMetersAPI/internal/stats"
	"millionMetersAPI/internal/store"
)

// defaultChallengeEnd is used when CHALLENGE_END_DATE is unset.
const defaultChallengeEnd = "2025-09-05T00:00:00-05:00"

// LeaderboardService ranks users by total meters and computes team-wide
// progress toward the shared goal.
type LeaderboardService struct {
	users store.UserStore
	now   func() time.Time
	end   time.Time
}

func NewLeaderboardService(users store.UserStore) *LeaderboardService {
	endStr := os.Getenv("CHALLENGE_END_DATE")
	if endStr == "" {
		endStr = defaultChallengeEnd
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		log.Printf("Invalid CHALLENGE_END_DATE %q, using default: %v", endStr, err)
		end, _ = time.Parse(time.RFC3339, defaultChallengeEnd)
	}
	return &LeaderboardService{users: users, now: time.Now, end: end}
}

// GetLeaderboard ranks every user by total meters, descending. Ties break
// by user id so ranks are stable between calls. UserPosition points at the
// requesting user's entry, nil if they are not on the board.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, requestingUserID string) (*leaderboard.Leaderboard, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	now := s.now()
	entries := make([]*leaderboard.Entry, 0, len(users))
	for _, u := range users {
		st := stats.Compute(u.Activities, now)
		entries = append(entries, &leaderboard.Entry{
			UserID:         u.ID,
			Username:       u.Name(),
			ProfileImage:   u.ProfileImage,
			TotalMeters:    st.TotalMeters,
			DayStreak:      st.DayStreak,
			TopWorkoutType: st.TopWorkoutType,
			MetersByType:   st.MetersByType,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalMeters != entries[j].TotalMeters {
			return entries[i].TotalMeters > entries[j].TotalMeters
		}
		return entries[i].UserID < entries[j].UserID
	})

	board := &leaderboard.Leaderboard{
		Entries:    entries,
		TotalUsers: len(entries),
	}
	for i, e := range entries {
		e.Rank = i + 1
		if e.UserID == requestingUserID {
			board.UserPosition = e
		}
	}
	return board, nil
}

// GetTeamProgress sums every member's meters against the combined goal and
// computes the daily pace needed to finish by the challenge end date.
func (s *LeaderboardService) GetTeamProgress(ctx context.Context) (*leaderboard.TeamProgress, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	now := s.now()
	total := 0
	for _, u := range users {
		st := stats.Compute(u.Activities, now)
		total += st.TotalMeters
	}

	target := len(users) * stats.GoalMeters
	deficit := target - total
	if deficit < 0 {
		deficit = 0
	}

	days := s.remainingDays(now)
	tp := &leaderboard.TeamProgress{
		TotalMeters:   total,
		TargetMeters:  target,
		MembersCount:  len(users),
		Deficit:       deficit,
		RemainingDays: days,
	}
	if days > 0 {
		tp.DailyTeamRequired = (deficit + days - 1) / days
		if len(users) > 0 {
			tp.DailyPersonRequired = (tp.DailyTeamRequired + len(users) - 1) / len(users)
		}
	}
	return tp, nil
}

func (s *LeaderboardService) remainingDays(now time.Time) int {
	today := esttime.ConvertToEST(now)
	end := esttime.ConvertToEST(s.end)
	days := int(end.Sub(today).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
