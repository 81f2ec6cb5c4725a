// Package governance checks review content against organisational
// governance policies and reports violations.
package governance

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

// Policy is a governance policy document.
type Policy struct {
	ID          string `firestore:"-" json:"id"`
	Title       string `firestore:"title" json:"title"`
	Description string `firestore:"description" json:"description"`
	Rules       string `firestore:"rules" json:"rules"`
	Severity    string `firestore:"severity" json:"severity"`
}

// PolicySource loads policies by ID. IDs with no matching policy are skipped.
type PolicySource interface {
	Policies(ctx context.Context, ids []string) ([]Policy, error)
}

// FirestorePolicySource reads policies from a Firestore collection.
type FirestorePolicySource struct {
	client     *firestore.Client
	collection string
}

func NewFirestorePolicySource(client *firestore.Client, collection string) *FirestorePolicySource {
	return &FirestorePolicySource{client: client, collection: collection}
}

func (s *FirestorePolicySource) Policies(ctx context.Context, ids []string) ([]Policy, error) {
	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, s.client.Collection(s.collection).Doc(id))
	}
	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to load governance policies: %w", err)
	}

	policies := make([]Policy, 0, len(snaps))
	for _, snap := range snaps {
		if snap == nil || !snap.Exists() {
			continue
		}
		var p Policy
		if err := snap.DataTo(&p); err != nil {
			return nil, fmt.Errorf("failed to decode policy %s: %w", snap.Ref.ID, err)
		}
		p.ID = snap.Ref.ID
		policies = append(policies, p)
	}
	return policies, nil
}
