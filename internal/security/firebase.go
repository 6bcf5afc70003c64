package security

import (
	"context"
	"fmt"

	"carehub-backend/internal/logger"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// idTokenVerifier is the part of the Firebase auth client we use.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier accepts Firebase ID tokens.
type FirebaseVerifier struct {
	client idTokenVerifier
}

// NewFirebaseVerifier initializes the Firebase app for projectID. An empty
// credentialsFile falls back to application default credentials.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Principal, error) {
	logger.ExternalServiceCall("firebase", "VerifyIDToken")
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		logger.ExternalServiceResult("firebase", "VerifyIDToken", err)
		if auth.IsIDTokenExpired(err) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	logger.ExternalServiceResult("firebase", "VerifyIDToken", nil, "uid", token.UID)

	email, _ := token.Claims["email"].(string)
	return &Principal{ID: token.UID, Email: email}, nil
}
