package docstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

const (
	INCIDENTS_COLLECTION = "incidents"
	ALERTS_COLLECTION    = "alerts"
)

// Mirror copies documents into firestore so mobile clients can listen for changes
type Mirror struct {
	client *firestore.Client
}

func NewMirror(ctx context.Context, projectID, credentialsFilePath string) (*Mirror, error) {
	var opts []option.ClientOption
	if credentialsFilePath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFilePath))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewMirror: %v", err)
	}

	return &Mirror{client: client}, nil
}

// Put replaces the document 'docID' in 'collection' with 'data'
func (m *Mirror) Put(ctx context.Context, collection, docID string, data map[string]interface{}) error {
	if !IsMirroredCollection(collection) {
		return fmt.Errorf("unknown collection '%v'", collection)
	}

	_, err := m.client.Collection(collection).Doc(docID).Set(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to mirror %v/%v: %v", collection, docID, err)
	}

	return nil
}

func (m *Mirror) Close() error {
	return m.client.Close()
}

func IsMirroredCollection(collection string) bool {
	return collection == INCIDENTS_COLLECTION || collection == ALERTS_COLLECTION
}
