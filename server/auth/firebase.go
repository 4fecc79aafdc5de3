package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	firebaseAuth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseIdentity is what we keep from a verified Firebase ID token
type FirebaseIdentity struct {
	UID   string
	Email string
}

type FirebaseVerifier struct {
	client *firebaseAuth.Client
}

func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFilePath string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFilePath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFilePath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewFirebaseVerifier: %v", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewFirebaseVerifier: %v", err)
	}

	return &FirebaseVerifier{client: client}, nil
}

func (fv *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*FirebaseIdentity, error) {
	token, err := fv.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}

	identity := &FirebaseIdentity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}

	return identity, nil
}
