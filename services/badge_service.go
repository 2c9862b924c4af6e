package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"

	"millionMetersAPI/internal/badge"
	"millionMetersAPI/internal/stats"
	"millionMetersAPI/internal/store"
	"millionMetersAPI/internal/workout"
)

var (
	reconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badge_reconciliations_total",
			Help: "Total number of badge reconciliation runs",
		},
		[]string{"result"},
	)
	badgesEarnedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_earned_total",
			Help: "Total number of newly earned badges",
		},
		[]string{"badge_id"},
	)
)

// InitMetrics registers the badge service metrics. Call this from main.go.
func InitMetrics() {
	prometheus.MustRegister(reconciliationsTotal)
	prometheus.MustRegister(badgesEarnedTotal)
}

// EarnedBadge is the notification payload for a badge earned during a
// reconciliation run. It is a side channel for the caller, not persisted
// state.
type EarnedBadge struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	EarnedDate time.Time `json:"earned_date"`
}

// BadgeService owns badge reconciliation: it recomputes badge state from the
// activity log, merges it with the stored document so earned badges never
// regress, persists the result, and reports newly earned badges.
//
// Reconciliation is serialized per user id; runs for distinct users proceed
// in parallel.
type BadgeService struct {
	badges store.BadgeStore
	users  store.UserStore
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewBadgeService(badges store.BadgeStore, users store.UserStore) *BadgeService {
	return &BadgeService{
		badges: badges,
		users:  users,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *BadgeService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.locks[userID]
	if !exists {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// ReconcileUser loads the user's activity log, recomputes aggregates, and
// reconciles badge state.
func (s *BadgeService) ReconcileUser(ctx context.Context, userID string) ([]EarnedBadge, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	if u == nil {
		return nil, fmt.Errorf("user not found")
	}

	st := stats.Compute(u.Activities, s.now())
	return s.Reconcile(ctx, userID, st, u.Activities)
}

// Reconcile recomputes badge state from the given aggregates and activity
// log and merges it with the stored document.
//
// Merge policy: a badge the stored document marks earned stays earned no
// matter what the fresh evaluation says, and keeps the earlier of the two
// earned dates; every other field takes the fresh value. Newly earned
// badges are reported only after the write confirms, so a failed persist
// never announces a badge the store does not hold.
func (s *BadgeService) Reconcile(ctx context.Context, userID string, st stats.UserStats, activities []workout.Activity) ([]EarnedBadge, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()

	stored, err := s.badges.Get(ctx, userID)
	if err != nil {
		reconciliationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load badge document: %w", err)
	}

	fresh := badge.EvaluateAll(st, activities, now)

	if stored == nil {
		// First computation for this user: persist the fresh state as the
		// baseline. No notifications, there is nothing to compare against.
		data := &badge.Data{UserID: userID, Badges: fresh, LastCalculated: now}
		if err := s.persist(ctx, data); err != nil {
			reconciliationsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		reconciliationsTotal.WithLabelValues("initialized").Inc()
		return nil, nil
	}

	merged := make(map[string]badge.Progress, len(fresh))
	for id, fb := range fresh {
		if old, ok := stored.Badges[id]; ok && old.Earned {
			fb.Earned = true
			fb.EarnedDate = earlierDate(old.EarnedDate, fb.EarnedDate)
		}
		merged[id] = fb
	}

	var newlyEarned []EarnedBadge
	for id, mb := range merged {
		old, had := stored.Badges[id]
		if mb.Earned && (!had || !old.Earned) && mb.EarnedDate != nil {
			newlyEarned = append(newlyEarned, EarnedBadge{
				ID:         id,
				Name:       badge.Name(id),
				EarnedDate: *mb.EarnedDate,
			})
		}
	}
	sort.Slice(newlyEarned, func(i, j int) bool { return newlyEarned[i].ID < newlyEarned[j].ID })

	data := &badge.Data{UserID: userID, Badges: merged, LastCalculated: now}
	if err := s.persist(ctx, data); err != nil {
		reconciliationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	for _, e := range newlyEarned {
		badgesEarnedTotal.WithLabelValues(e.ID).Inc()
	}
	reconciliationsTotal.WithLabelValues("ok").Inc()

	return newlyEarned, nil
}

// persist writes the badge document, retrying transient failures with
// capped exponential backoff. Evaluation succeeding while the write fails
// must surface as a failed reconciliation.
func (s *BadgeService) persist(ctx context.Context, data *badge.Data) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	err := backoff.Retry(func() error {
		return s.badges.Set(ctx, data)
	}, policy)
	if err != nil {
		return fmt.Errorf("failed to persist badge document for %s: %w", data.UserID, err)
	}
	return nil
}

// Badges returns the user's stored badge document, computing and persisting
// it first if the user has none yet.
func (s *BadgeService) Badges(ctx context.Context, userID string) (*badge.Data, error) {
	stored, err := s.badges.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load badge document: %w", err)
	}
	if stored != nil {
		return stored, nil
	}

	if _, err := s.ReconcileUser(ctx, userID); err != nil {
		return nil, err
	}

	stored, err = s.badges.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load badge document: %w", err)
	}
	if stored == nil {
		return nil, fmt.Errorf("badge document missing after initialization")
	}
	return stored, nil
}

// GrantManualBadge is the admin override for manual-kind badges. The merge
// policy keeps the grant earned on every later automatic run.
func (s *BadgeService) GrantManualBadge(ctx context.Context, userID, badgeID string) error {
	def, ok := badge.Lookup(badgeID)
	if !ok {
		return fmt.Errorf("unknown badge id %q", badgeID)
	}
	if def.Kind != badge.KindManual {
		return fmt.Errorf("badge %q is not a manual badge", badgeID)
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()

	stored, err := s.badges.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load badge document: %w", err)
	}
	if stored == nil {
		stored = &badge.Data{UserID: userID, Badges: make(map[string]badge.Progress), LastCalculated: now}
	}

	earnedAt := now
	if old, ok := stored.Badges[badgeID]; ok && old.Earned && old.EarnedDate != nil {
		earnedAt = *old.EarnedDate
	}
	stored.Badges[badgeID] = badge.Progress{
		Earned:      true,
		EarnedDate:  &earnedAt,
		Progress:    1,
		MaxProgress: 1,
		LastUpdated: now,
	}

	if err := s.persist(ctx, stored); err != nil {
		return err
	}

	log.Printf("Granted manual badge %s to user %s", badgeID, userID)
	return nil
}

// ReconcileAll sweeps every user through reconciliation with a small worker
// pool. Users are independent, so failures are logged per user and do not
// stop the sweep. Returns how many users were processed and how many failed.
func (s *BadgeService) ReconcileAll(ctx context.Context) (processed, failed int, err error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list users: %w", err)
	}

	const workers = 5
	jobs := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for userID := range jobs {
				if _, err := s.ReconcileUser(ctx, userID); err != nil {
					log.Printf("Badge sweep: failed to reconcile user %s: %v", userID, err)
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}()
	}

	for _, u := range users {
		jobs <- u.ID
	}
	close(jobs)
	wg.Wait()

	log.Printf("Badge sweep complete: %d users, %d failures", len(users), failed)
	return len(users), failed, nil
}

func earlierDate(stored, fresh *time.Time) *time.Time {
	if stored == nil {
		return fresh
	}
	if fresh == nil {
		return stored
	}
	if stored.Before(*fresh) {
		return stored
	}
	return fresh
}
