package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"millionMetersAPI/internal/store"
	"millionMetersAPI/internal/workout"
)

// WorkoutService handles workout submission and listing. A submission
// appends to the user's activity log and immediately reconciles badges so
// the client can show anything newly earned.
type WorkoutService struct {
	users  store.UserStore
	badges *BadgeService
}

func NewWorkoutService(users store.UserStore, badges *BadgeService) *WorkoutService {
	return &WorkoutService{users: users, badges: badges}
}

// SubmitRequest is the payload for a workout submission. Distance is in the
// workout type's native unit (meters for erg and on-the-water, miles for
// run and bike, yards for swim, minutes for lift).
type SubmitRequest struct {
	WorkoutType string   `json:"workoutType"`
	BoatType    string   `json:"boatType,omitempty"`
	Distance    float64  `json:"distance"`
	Images      []string `json:"images,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// SubmitResult reports the recorded activity and any badges the submission
// earned.
type SubmitResult struct {
	Activity     workout.Activity `json:"activity"`
	EarnedBadges []EarnedBadge    `json:"earnedBadges,omitempty"`
}

// Submit validates the request, converts the distance to meters, appends
// the activity, and reconciles badges. A reconciliation failure does not
// fail the submission; the nightly sweep will catch the user up.
func (s *WorkoutService) Submit(ctx context.Context, userID string, req SubmitRequest) (*SubmitResult, error) {
	if req.Distance <= 0 {
		return nil, fmt.Errorf("distance must be positive")
	}
	workoutType := workout.Normalize(req.WorkoutType)
	meters := workout.ConvertToMeters(workoutType, req.BoatType, req.Distance)
	if meters <= 0 {
		return nil, fmt.Errorf("unsupported workout type %q", req.WorkoutType)
	}

	a := workout.Activity{
		ID:       uuid.NewString(),
		Activity: workout.DisplayName(workoutType),
		Points:   meters,
		Date:     time.Now().UTC(),
		Images:   req.Images,
		Notes:    strings.TrimSpace(req.Notes),
	}

	if err := s.users.AppendActivity(ctx, userID, a); err != nil {
		return nil, fmt.Errorf("failed to record workout: %w", err)
	}

	earned, err := s.badges.ReconcileUser(ctx, userID)
	if err != nil {
		log.Printf("Workout recorded but badge reconciliation failed for user %s: %v", userID, err)
		return &SubmitResult{Activity: a}, nil
	}

	return &SubmitResult{Activity: a, EarnedBadges: earned}, nil
}

// List returns the user's activities sorted newest first. Activities whose
// date cannot be parsed sort last.
func (s *WorkoutService) List(ctx context.Context, userID string) ([]workout.Activity, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("user not found")
	}

	activities := make([]workout.Activity, len(u.Activities))
	copy(activities, u.Activities)

	sort.SliceStable(activities, func(i, j int) bool {
		di, iok := workout.ParseDate(activities[i].Date)
		dj, jok := workout.ParseDate(activities[j].Date)
		if iok != jok {
			return iok
		}
		return di.After(dj)
	})

	return activities, nil
}
