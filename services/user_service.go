package services

import (
	"context"
	"fmt"
	"time"

	"millionMetersAPI/internal/stats"
	"millionMetersAPI/internal/store"
	"millionMetersAPI/internal/user"
)

// UserService serves profile and per-user aggregate reads.
type UserService struct {
	users store.UserStore
	now   func() time.Time
}

func NewUserService(users store.UserStore) *UserService {
	return &UserService{users: users, now: time.Now}
}

// Profile is the user profile plus activity count, without the full log.
type Profile struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	ProfileImage  string `json:"profileImage,omitempty"`
	ActivityCount int    `json:"activityCount"`
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		ID:            u.ID,
		Username:      u.Name(),
		ProfileImage:  u.ProfileImage,
		ActivityCount: len(u.Activities),
	}, nil
}

// GetStats recomputes the user's aggregates from the activity log.
func (s *UserService) GetStats(ctx context.Context, userID string) (*stats.UserStats, error) {
	u, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	st := stats.Compute(u.Activities, s.now())
	return &st, nil
}

func (s *UserService) get(ctx context.Context, userID string) (*user.User, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("user not found")
	}
	return u, nil
}
