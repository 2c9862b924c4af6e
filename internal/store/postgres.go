package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"millionMetersAPI/internal/badge"
	"millionMetersAPI/internal/user"
	"millionMetersAPI/internal/workout"
)

// PostgresStore backs the badge port with a JSONB document table so
// deployments off Firestore keep the same keyed-document contract:
//
//	CREATE TABLE badge_docs (
//	    user_id         TEXT PRIMARY KEY,
//	    doc             JSONB NOT NULL,
//	    last_calculated TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (*badge.Data, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM badge_docs WHERE user_id = $1`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get badge document for %s: %w", userID, err)
	}

	var data badge.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal badge document for %s: %w", userID, err)
	}
	data.UserID = userID
	return &data, nil
}

func (s *PostgresStore) Set(ctx context.Context, data *badge.Data) error {
	// json omitempty on Progress.EarnedDate keeps unearned badges free of
	// null sentinels, same as the Firestore backend.
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal badge document for %s: %w", data.UserID, err)
	}

	query := `
	INSERT INTO badge_docs (user_id, doc, last_calculated)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id)
	DO UPDATE SET doc = $2, last_calculated = $3
	`
	if _, err := s.db.Exec(ctx, query, data.UserID, raw, data.LastCalculated); err != nil {
		return fmt.Errorf("failed to write badge document for %s: %w", data.UserID, err)
	}
	return nil
}

// PostgresUserStore reads user rows whose activity log lives in a JSONB
// column:
//
//	CREATE TABLE users (
//	    id            TEXT PRIMARY KEY,
//	    username      TEXT NOT NULL DEFAULT '',
//	    profile_image TEXT NOT NULL DEFAULT '',
//	    activities    JSONB NOT NULL DEFAULT '[]'
//	);
type PostgresUserStore struct {
	db *pgxpool.Pool
}

func NewPostgresUserStore(db *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) Get(ctx context.Context, userID string) (*user.User, error) {
	u := &user.User{}
	var raw []byte
	query := `SELECT id, username, profile_image, activities FROM users WHERE id = $1`
	err := s.db.QueryRow(ctx, query, userID).Scan(&u.ID, &u.Username, &u.ProfileImage, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	if err := json.Unmarshal(raw, &u.Activities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activities for %s: %w", userID, err)
	}
	return u, nil
}

func (s *PostgresUserStore) List(ctx context.Context) ([]*user.User, error) {
	rows, err := s.db.Query(ctx, `SELECT id, username, profile_image, activities FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u := &user.User{}
		var raw []byte
		if err := rows.Scan(&u.ID, &u.Username, &u.ProfileImage, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if err := json.Unmarshal(raw, &u.Activities); err != nil {
			return nil, fmt.Errorf("failed to unmarshal activities for %s: %w", u.ID, err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func (s *PostgresUserStore) AppendActivity(ctx context.Context, userID string, a workout.Activity) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}

	query := `
	UPDATE users
	SET activities = activities || $2::jsonb
	WHERE id = $1
	`
	result, err := s.db.Exec(ctx, query, userID, raw)
	if err != nil {
		return fmt.Errorf("failed to append activity for %s: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}
