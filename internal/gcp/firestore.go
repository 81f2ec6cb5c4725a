package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

// firestoreDatabase maps an unset database ID to the project's default
// database.
func firestoreDatabase(databaseID string) string {
	if databaseID == "" {
		return firestore.DefaultDatabaseID
	}
	return databaseID
}

// NewFirestoreClient opens databaseID (FIRESTORE_DATABASE) in projectID.
// Document records and governance policies may live in a named database.
func NewFirestoreClient(ctx context.Context, projectID, databaseID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	db := firestoreDatabase(databaseID)
	client, err := firestore.NewClientWithDatabase(ctx, projectID, db)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client for database %q: %w", db, err)
	}
	return client, nil
}
