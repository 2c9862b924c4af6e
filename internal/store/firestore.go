package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"millionMetersAPI/internal/badge"
	"millionMetersAPI/internal/user"
	"millionMetersAPI/internal/workout"
)

const (
	badgesCollection = "badges"
	usersCollection  = "users"
)

// FirestoreStore backs both ports with Firestore, matching the original
// deployment's document layout: one badge document per user in "badges",
// user documents with an embedded activities array in "users".
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreClient initializes the Firestore client. Credentials come from
// the FIREBASE_SERVICE_ACCOUNT_JSON environment variable (Base64 encoded),
// falling back to a local service account key file.
func NewFirestoreClient(ctx context.Context, localFilePath string) (*firestore.Client, error) {
	var opt option.ClientOption

	encodedCreds := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")
	if encodedCreds != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		log.Println("Firestore: initializing from FIREBASE_SERVICE_ACCOUNT_JSON environment variable")
	} else {
		if _, err := os.Stat(localFilePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("firebase key file not found: %s, and FIREBASE_SERVICE_ACCOUNT_JSON is not set", localFilePath)
		}
		opt = option.WithCredentialsFile(localFilePath)
		log.Printf("Firestore: initializing from local file: %s", localFilePath)
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}

	return client, nil
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Get(ctx context.Context, userID string) (*badge.Data, error) {
	doc, err := s.client.Collection(badgesCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get badge document for %s: %w", userID, err)
	}

	var data badge.Data
	if err := doc.DataTo(&data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal badge document for %s: %w", userID, err)
	}
	data.UserID = userID
	return &data, nil
}

func (s *FirestoreStore) Set(ctx context.Context, data *badge.Data) error {
	// Progress.EarnedDate carries firestore:",omitempty" so unearned badges
	// are written without the field rather than with a null.
	_, err := s.client.Collection(badgesCollection).Doc(data.UserID).Set(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to write badge document for %s: %w", data.UserID, err)
	}
	return nil
}

// FirestoreUserStore reads the users collection and appends submissions to a
// user's activity log.
type FirestoreUserStore struct {
	client *firestore.Client
}

func NewFirestoreUserStore(client *firestore.Client) *FirestoreUserStore {
	return &FirestoreUserStore{client: client}
}

func (s *FirestoreUserStore) Get(ctx context.Context, userID string) (*user.User, error) {
	doc, err := s.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	var u user.User
	if err := doc.DataTo(&u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user %s: %w", userID, err)
	}
	u.ID = doc.Ref.ID
	return &u, nil
}

func (s *FirestoreUserStore) List(ctx context.Context) ([]*user.User, error) {
	iter := s.client.Collection(usersCollection).Documents(ctx)
	defer iter.Stop()

	var users []*user.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}

		var u user.User
		if err := doc.DataTo(&u); err != nil {
			// A malformed user document should not take down a full sweep.
			log.Printf("Skipping unparseable user document %s: %v", doc.Ref.ID, err)
			continue
		}
		u.ID = doc.Ref.ID
		users = append(users, &u)
	}
	return users, nil
}

func (s *FirestoreUserStore) AppendActivity(ctx context.Context, userID string, a workout.Activity) error {
	_, err := s.client.Collection(usersCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "activities", Value: firestore.ArrayUnion(a)},
	})
	if err != nil {
		return fmt.Errorf("failed to append activity for %s: %w", userID, err)
	}
	return nil
}
