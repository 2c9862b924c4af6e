package workout

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Activity is one logged workout as it appears inside a user document's
// activities array. The log is append-only and has been through several
// migrations, so points and date are loosely typed and must be coerced
// before use.
type Activity struct {
	ID       string   `json:"id,omitempty" firestore:"id,omitempty"`
	Activity string   `json:"activity" firestore:"activity"`
	Points   any      `json:"points" firestore:"points"`
	Date     any      `json:"date" firestore:"date"`
	Images   []string `json:"images,omitempty" firestore:"images,omitempty"`
	Notes    string   `json:"notes,omitempty" firestore:"notes,omitempty"`
}

type rule struct {
	substrings []string
	category   string
}

// Ordered: the first rule whose substring matches wins.
var normalizeRules = []rule{
	{[]string{"otw", "on the water"}, "otw"},
	{[]string{"erg", "rowing"}, "erg"},
	{[]string{"run", "running"}, "run"},
	{[]string{"bike", "cycling"}, "bike"},
	{[]string{"swim", "swimming"}, "swim"},
	{[]string{"lift", "lifting"}, "lift"},
}

// Normalize maps a free-text workout label to its canonical category.
// Labels that match no rule pass through lower-cased and trimmed; a missing
// label becomes "unknown".
func Normalize(label string) string {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized == "" {
		return "unknown"
	}
	for _, r := range normalizeRules {
		for _, sub := range r.substrings {
			if strings.Contains(normalized, sub) {
				return r.category
			}
		}
	}
	return normalized
}

// Meters coerces a stored points value to whole meters. Garbage values count
// as zero rather than failing, so a malformed record still exists as an
// activity without contributing to meter sums.
func Meters(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return int(math.Round(float64(n)))
	case float64:
		return int(math.Round(n))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return int(math.Round(f))
	default:
		return 0
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate coerces a stored date value to an instant. Firestore hands back
// time.Time, the Postgres backend and older records hand back strings or
// epoch milliseconds. Returns false for anything unparseable; callers skip
// such records from date-bucketed computations.
func ParseDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, true
	case *time.Time:
		if d == nil {
			return time.Time{}, false
		}
		return *d, true
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	case int64:
		return time.UnixMilli(d), true
	case float64:
		return time.UnixMilli(int64(d)), true
	default:
		return time.Time{}, false
	}
}

// ConvertToMeters applies the challenge's unit conversion table to a raw
// submission. boatType only matters for on-the-water rows (1x vs 2x).
func ConvertToMeters(workoutType, boatType string, distance float64) int {
	if distance <= 0 {
		return 0
	}

	switch workoutType {
	case "erg":
		return int(math.Round(distance))
	case "swim":
		// 300m swum = 1000m credited
		return int(math.Round(distance / 300 * 1000))
	case "run":
		// distance in miles, 1 mile = 1000m
		return int(math.Round(distance * 1000))
	case "bike":
		// distance in miles, 2 miles = 1000m
		return int(math.Round(distance / 2 * 1000))
	case "lift":
		// 1 lift = 5000m
		return int(math.Round(distance * 5000))
	case "otw":
		if boatType == "1x" || boatType == "" {
			return int(math.Round(distance))
		}
		return int(math.Round(distance / 2))
	default:
		return int(math.Round(distance))
	}
}

var displayNames = map[string]string{
	"erg":  "Erg",
	"otw":  "On the Water",
	"run":  "Running",
	"bike": "Biking",
	"swim": "Swimming",
	"lift": "Lifting",
}

// DisplayName returns the label stored in the activity log for a workout
// type id. Unknown types are stored as-is.
func DisplayName(workoutType string) string {
	if name, ok := displayNames[workoutType]; ok {
		return name
	}
	return workoutType
}
