package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"millionMetersAPI/internal/badge"
	"millionMetersAPI/internal/stats"
	"millionMetersAPI/internal/user"
	"millionMetersAPI/internal/workout"
)

type fakeBadgeStore struct {
	mu      sync.Mutex
	docs    map[string]*badge.Data
	sets    int
	failSet bool
}

func newFakeBadgeStore() *fakeBadgeStore {
	return &fakeBadgeStore{docs: make(map[string]*badge.Data)}
}

func (f *fakeBadgeStore) Get(ctx context.Context, userID string) (*badge.Data, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[userID]
	if !ok {
		return nil, nil
	}
	// copy so callers cannot mutate stored state
	cp := *d
	cp.Badges = make(map[string]badge.Progress, len(d.Badges))
	for k, v := range d.Badges {
		cp.Badges[k] = v
	}
	return &cp, nil
}

func (f *fakeBadgeStore) Set(ctx context.Context, data *badge.Data) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.failSet {
		return errors.New("write failed")
	}
	cp := *data
	cp.Badges = make(map[string]badge.Progress, len(data.Badges))
	for k, v := range data.Badges {
		cp.Badges[k] = v
	}
	f.docs[data.UserID] = &cp
	return nil
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*user.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*user.User)}
}

func (f *fakeUserStore) Get(ctx context.Context, userID string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	cp.Activities = append([]workout.Activity(nil), u.Activities...)
	return &cp, nil
}

func (f *fakeUserStore) List(ctx context.Context) ([]*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*user.User, 0, len(f.users))
	for _, u := range f.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeUserStore) AppendActivity(ctx context.Context, userID string, a workout.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	u.Activities = append(u.Activities, a)
	return nil
}

var serviceNow = time.Date(2025, 7, 4, 17, 0, 0, 0, time.UTC)

func newTestService(badges *fakeBadgeStore, users *fakeUserStore) *BadgeService {
	svc := NewBadgeService(badges, users)
	svc.now = func() time.Time { return serviceNow }
	return svc
}

func ergDay(daysAgo, meters int) workout.Activity {
	return workout.Activity{Activity: "Erg", Points: meters, Date: serviceNow.AddDate(0, 0, -daysAgo)}
}

func statsFor(activities []workout.Activity) stats.UserStats {
	return stats.Compute(activities, serviceNow)
}

func TestReconcileFirstRunNoNotifications(t *testing.T) {
	badges := newFakeBadgeStore()
	users := newFakeUserStore()
	svc := newTestService(badges, users)

	activities := []workout.Activity{ergDay(0, 1_100_000)}

	earned, err := svc.Reconcile(context.Background(), "u1", statsFor(activities), activities)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if earned != nil {
		t.Errorf("first run reported newly earned badges: %v", earned)
	}

	stored, _ := badges.Get(context.Background(), "u1")
	if stored == nil {
		t.Fatal("first run did not persist a document")
	}
	if !stored.Badges["million-meter-champion"].Earned {
		t.Error("million-meter-champion should be earned in the stored doc")
	}
}

func TestReconcileReportsNewlyEarned(t *testing.T) {
	badges := newFakeBadgeStore()
	users := newFakeUserStore()
	svc := newTestService(badges, users)
	ctx := context.Background()

	// baseline with modest activity
	base := []workout.Activity{ergDay(0, 5000)}
	if _, err := svc.Reconcile(ctx, "u1", statsFor(base), base); err != nil {
		t.Fatalf("baseline reconcile failed: %v", err)
	}

	// user crosses the 10k lifetime threshold
	activities := []workout.Activity{ergDay(0, 5000), ergDay(0, 6000)}
	earned, err := svc.Reconcile(ctx, "u1", statsFor(activities), activities)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if len(earned) != 1 {
		t.Fatalf("newly earned = %v, want exactly fresh-legs", earned)
	}
	if earned[0].ID != "fresh-legs" || earned[0].Name != "Fresh Legs" {
		t.Errorf("newly earned = %+v", earned[0])
	}
	if !earned[0].EarnedDate.Equal(serviceNow) {
		t.Errorf("EarnedDate = %v, want %v", earned[0].EarnedDate, serviceNow)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	badges := newFakeBadgeStore()
	users := newFakeUserStore()
	svc := newTestService(badges, users)
	ctx := context.Background()

	activities := []workout.Activity{ergDay(0, 50_000), ergDay(1, 50_000)}
	st := statsFor(activities)

	if _, err := svc.Reconcile(ctx, "u1", st, activities); err != nil {
		t.Fatalf("first reconcile failed: %v", err)
	}
	first, _ := badges.Get(ctx, "u1")

	earned, err := svc.Reconcile(ctx, "u1", st, activities)
	if err != nil {
		t.Fatalf("second reconcile failed: %v", err)
	}
	if len(earned) != 0 {
		t.Errorf("repeat run reported newly earned: %v", earned)
	}

	second, _ := badges.Get(ctx, "u1")
	if len(first.Badges) != len(second.Badges) {
		t.Fatalf("badge sets differ: %d vs %d", len(first.Badges), len(second.Badges))
	}
	for id, a := range first.Badges {
		b := second.Badges[id]
		if a.Earned != b.Earned || a.Progress != b.Progress || a.MaxProgress != b.MaxProgress {
			t.Errorf("badge %s changed between identical runs: %+v vs %+v", id, a, b)
		}
		if (a.EarnedDate == nil) != (b.EarnedDate == nil) {
			t.Errorf("badge %s earnedDate presence changed", id)
		}
		if a.EarnedDate != nil && !a.EarnedDate.Equal(*b.EarnedDate) {
			t.Errorf("badge %s earnedDate moved: %v vs %v", id, a.EarnedDate, b.EarnedDate)
		}
	}
}

func TestReconcileEarnedNeverRegresses(t *testing.T) {
	badges := newFakeBadgeStore()
	users := newFakeUserStore()
	svc := newTestService(badges, users)
	ctx := context.Background()

	// earn fresh-legs
	high := []workout.Activity{ergDay(0, 20_000)}
	if _, err := svc.Reconcile(ctx, "u1", statsFor(high), high); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	stored, _ := badges.Get(ctx, "u1")
	originalDate := stored.Badges["fresh-legs"].EarnedDate
	if originalDate == nil {
		t.Fatal("fresh-legs should be earned with a date")
	}

	// a data correction removes most meters
	low := []workout.Activity{ergDay(0, 2_000)}
	earned, err := svc.Reconcile(ctx, "u1", statsFor(low), low)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if len(earned) != 0 {
		t.Errorf("regression run reported newly earned: %v", earned)
	}

	stored, _ = badges.Get(ctx, "u1")
	fl := stored.Badges["fresh-legs"]
	if !fl.Earned {
		t.Error("fresh-legs lost its earned state after data correction")
	}
	if fl.EarnedDate == nil || !fl.EarnedDate.Equal(*originalDate) {
		t.Errorf("earnedDate = %v, want original %v", fl.EarnedDate, originalDate)
	}
	// progress reflects current reality even while earned sticks
	if fl.Progress != 2_000 {
		t.Errorf("progress = %d, want fresh value 2000", fl.Progress)
	}
}

func TestReconcileKeepsEarlierEarnedDate(t *testing.T) {
	badges := newFakeBadgeStore()
	users := newFakeUserStore()
	svc := newTestService(badges, users)
	ctx := context.Background()

	past := serviceNow.AddDate(0, 0, -10)
	seed := &badge.Data{
		UserID: "u1",
		Badges: map[string]badge.Progress{
			"fresh-legs": {Earned: true, EarnedDate: &past, Progress: 10_000, MaxProgress: 10_000, LastUpdated: past},
		},
		LastCalculated: past,
	}
	if err := badges.Set(ctx, seed); err != nil {
		t.Fatal(err)
	}

	activities := []workout.Activity{ergDay(0, 20_000)}
	if _, err := svc.Reconcile(ctx, "u1", statsFor(activities), activities); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	stored, _ := badges.Get(ctx, "u1")
	fl := stored.Badges["fresh-legs"]
	if fl.EarnedDate == nil || !fl.EarnedDate.Equal(past) {
		t.Errorf("earnedDate = %v, want the earlier %v", fl.EarnedDate, past)
	}
}

func TestReconcileWriteFailure(t *testing.T) {
	badges := newFakeBadgeStore()
	users := newFakeUserStore()
	svc := newTestService(badges, users)
	ctx := context.Background()

	base := []workout.Activity{ergDay(0, 5000)}
	if _, err := svc.Reconcile(ctx, "u1", statsFor(base), base); err != nil {
		t.Fatalf("baseline reconcile failed: %v", err)
	}

	badges.failSet = true
	activities := []workout.Activity{ergDay(0, 20_000)}
	earned, err := svc.Reconcile(ctx, "u1", statsFor(activities), activities)
	if err == nil {
		t.Fatal("expected error when persist fails")
	}
	if len(earned) != 0 {
		t.Errorf("failed persist still reported newly earned: %v", earned)
	}

	// retried before giving up
	if badges.sets < 2 {
		t.Errorf("Set called %d times, expected retries", badges.sets)
	}
}

func TestGrantManualBadge(t *testing.T) {
	badges := newFakeBadgeStore()
	users := newFakeUserStore()
	svc := newTestService(badges, users)
	ctx := context.Background()

	users.users["u1"] = &user.User{ID: "u1", Username: "casey", Activities: []workout.Activity{ergDay(0, 5000)}}

	if err := svc.GrantManualBadge(ctx, "u1", "marathon"); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	stored, _ := badges.Get(ctx, "u1")
	m := stored.Badges["marathon"]
	if !m.Earned || m.Progress != 1 || m.MaxProgress != 1 || m.EarnedDate == nil {
		t.Errorf("marathon = %+v", m)
	}

	// the grant survives an automatic reconciliation
	if _, err := svc.ReconcileUser(ctx, "u1"); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	stored, _ = badges.Get(ctx, "u1")
	if !stored.Badges["marathon"].Earned {
		t.Error("manual grant lost after reconciliation")
	}
}

func TestGrantManualBadgeRejectsAutomatic(t *testing.T) {
	svc := newTestService(newFakeBadgeStore(), newFakeUserStore())

	if err := svc.GrantManualBadge(context.Background(), "u1", "fresh-legs"); err == nil {
		t.Error("granting an automatic badge should fail")
	}
	if err := svc.GrantManualBadge(context.Background(), "u1", "no-such-badge"); err == nil {
		t.Error("granting an unknown badge should fail")
	}
}

func TestReconcileAll(t *testing.T) {
	badges := newFakeBadgeStore()
	users := newFakeUserStore()
	svc := newTestService(badges, users)
	ctx := context.Background()

	for _, id := range []string{"u1", "u2", "u3"} {
		users.users[id] = &user.User{ID: id, Activities: []workout.Activity{ergDay(0, 15_000)}}
	}

	processed, failed, err := svc.ReconcileAll(ctx)
	if err != nil {
		t.Fatalf("ReconcileAll failed: %v", err)
	}
	if processed != 3 || failed != 0 {
		t.Errorf("processed=%d failed=%d", processed, failed)
	}

	for _, id := range []string{"u1", "u2", "u3"} {
		stored, _ := badges.Get(ctx, id)
		if stored == nil {
			t.Errorf("user %s has no badge document after sweep", id)
			continue
		}
		if !stored.Badges["fresh-legs"].Earned {
			t.Errorf("user %s fresh-legs not earned", id)
		}
	}
}

func TestBadgesLazyInitialization(t *testing.T) {
	badges := newFakeBadgeStore()
	users := newFakeUserStore()
	svc := newTestService(badges, users)
	ctx := context.Background()

	users.users["u1"] = &user.User{ID: "u1", Activities: []workout.Activity{ergDay(0, 15_000)}}

	data, err := svc.Badges(ctx, "u1")
	if err != nil {
		t.Fatalf("Badges failed: %v", err)
	}
	if data == nil || len(data.Badges) == 0 {
		t.Fatal("lazy initialization returned no badges")
	}
	if !data.Badges["fresh-legs"].Earned {
		t.Error("fresh-legs should be earned")
	}

	// second read hits the stored doc
	again, err := svc.Badges(ctx, "u1")
	if err != nil {
		t.Fatalf("Badges failed: %v", err)
	}
	if !again.LastCalculated.Equal(data.LastCalculated) {
		t.Error("second read recomputed instead of returning stored doc")
	}
}
