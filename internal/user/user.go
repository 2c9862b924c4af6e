package user

import "millionMetersAPI/internal/workout"

// User mirrors a document in the users collection. The badge engine and
// stats only ever read it; the activity log is the one field this service
// appends to.
type User struct {
	ID           string             `json:"id" firestore:"-"`
	Username     string             `json:"username" firestore:"username"`
	ProfileImage string             `json:"profile_image" firestore:"profileImage"`
	Activities   []workout.Activity `json:"activities" firestore:"activities"`
}

// Name returns a display name, falling back to a short id prefix for users
// who never set one.
func (u *User) Name() string {
	if u.Username != "" {
		return u.Username
	}
	if len(u.ID) > 8 {
		return "User " + u.ID[:8]
	}
	return "User " + u.ID
}
