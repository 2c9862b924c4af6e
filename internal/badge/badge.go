package badge

import "time"

// Kind classifies how a badge's earned state is computed.
type Kind string

const (
	// KindLifetime badges are recomputable from the full activity history
	// at any time.
	KindLifetime Kind = "lifetime"
	// KindRealtime badges depend on "today" and must be recomputed from
	// current activities on every evaluation; their value is never trusted
	// from cache.
	KindRealtime Kind = "realtime"
	// KindManual badges are only ever granted by an admin; automatic
	// evaluation always reports them unearned.
	KindManual Kind = "manual"
)

// Definition describes one badge in the catalog.
type Definition struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Target int    `json:"target"`
	Kind   Kind   `json:"kind"`
}

// Progress is the per-badge state stored for a user. EarnedDate is a pointer
// so an unearned badge serializes with the field omitted entirely; the
// storage layer rejects explicit null sentinels.
type Progress struct {
	Earned      bool       `json:"earned" firestore:"earned"`
	EarnedDate  *time.Time `json:"earnedDate,omitempty" firestore:"earnedDate,omitempty"`
	Progress    int        `json:"progress" firestore:"progress"`
	MaxProgress int        `json:"maxProgress" firestore:"maxProgress"`
	LastUpdated time.Time  `json:"lastUpdated" firestore:"lastUpdated"`
}

// Data is the persisted badge document for one user, keyed by user id in the
// badges collection. It is the sole source of truth for badge state.
type Data struct {
	UserID         string              `json:"userId" firestore:"userId"`
	Badges         map[string]Progress `json:"badges" firestore:"badges"`
	LastCalculated time.Time           `json:"lastCalculated" firestore:"lastCalculated"`
}

// catalog order matches the display order used by the app.
var catalog = []Definition{
	{ID: "million-meter-champion", Name: "Million Meter Champion", Target: 1_000_000, Kind: KindLifetime},
	{ID: "100k-day", Name: "Centurion", Target: 100_000, Kind: KindRealtime},
	{ID: "jack-of-all-trades", Name: "Jack of All Trades", Target: 6, Kind: KindRealtime},
	{ID: "marathon", Name: "Marathon", Target: 1, Kind: KindManual},
	{ID: "monthly-master", Name: "Monthly Master", Target: 30, Kind: KindLifetime},
	{ID: "nates-favorite", Name: "Nate's Favorite", Target: 1, Kind: KindManual},
	{ID: "gym-rat", Name: "Gym Rat", Target: 20, Kind: KindLifetime},
	{ID: "tri", Name: "Tri", Target: 30_000, Kind: KindRealtime},
	{ID: "early-bird", Name: "Early Bird", Target: 10, Kind: KindLifetime},
	{ID: "erg-master", Name: "Erg Master", Target: 50, Kind: KindLifetime},
	{ID: "fish", Name: "Fish", Target: 10, Kind: KindLifetime},
	{ID: "zigzag-method", Name: "Zigzag Method", Target: 1, Kind: KindManual},
	{ID: "mystery-badge", Name: "???", Target: 1, Kind: KindManual},
	{ID: "just-do-track-bruh", Name: "Just Do Track Bruh", Target: 10, Kind: KindLifetime},
	{ID: "lend-a-hand", Name: "Lend a Hand", Target: 1, Kind: KindManual},
	{ID: "week-warrior", Name: "Week Warrior", Target: 7, Kind: KindLifetime},
	{ID: "fresh-legs", Name: "Fresh Legs", Target: 10_000, Kind: KindLifetime},
}

var catalogByID = func() map[string]Definition {
	m := make(map[string]Definition, len(catalog))
	for _, d := range catalog {
		m[d.ID] = d
	}
	return m
}()

// Catalog returns all badge definitions in display order.
func Catalog() []Definition {
	defs := make([]Definition, len(catalog))
	copy(defs, catalog)
	return defs
}

// AllIDs returns every known badge id in display order.
func AllIDs() []string {
	ids := make([]string, len(catalog))
	for i, d := range catalog {
		ids[i] = d.ID
	}
	return ids
}

// Lookup returns the definition for a badge id.
func Lookup(id string) (Definition, bool) {
	d, ok := catalogByID[id]
	return d, ok
}

// Name returns the display name for a badge id, falling back to the id
// itself for unknown badges.
func Name(id string) string {
	if d, ok := catalogByID[id]; ok {
		return d.Name
	}
	return id
}
