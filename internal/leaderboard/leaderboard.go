package leaderboard

// Entry is one user's row on the challenge leaderboard, ranked by lifetime
// meters.
type Entry struct {
	UserID         string         `json:"user_id"`
	Username       string         `json:"username"`
	ProfileImage   string         `json:"profile_image,omitempty"`
	Rank           int            `json:"rank"`
	TotalMeters    int            `json:"total_meters"`
	DayStreak      int            `json:"day_streak"`
	TopWorkoutType string         `json:"top_workout_type"`
	MetersByType   map[string]int `json:"meters_by_type"`
}

type Leaderboard struct {
	Entries      []*Entry `json:"entries"`
	UserPosition *Entry   `json:"user_position"`
	TotalUsers   int      `json:"total_users"`
}

// TeamProgress is the team-wide view: everyone's meters against a target of
// one million per member.
type TeamProgress struct {
	TotalMeters         int `json:"total_meters"`
	TargetMeters        int `json:"target_meters"`
	MembersCount        int `json:"members_count"`
	Deficit             int `json:"deficit"`
	RemainingDays       int `json:"remaining_days"`
	DailyTeamRequired   int `json:"daily_team_required"`
	DailyPersonRequired int `json:"daily_person_required"`
}
