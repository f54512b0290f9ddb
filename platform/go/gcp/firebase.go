package gcp

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// GetApp creates a Firebase App instance. credentialsPath may be empty, in
// which case application default credentials apply.
func GetApp(ctx context.Context, credentialsPath string) (app *firebase.App, err error) {
	if credentialsPath != "" {
		sa := option.WithCredentialsFile(credentialsPath)
		app, err = firebase.NewApp(ctx, nil, sa)
	} else {
		app, err = firebase.NewApp(ctx, nil)
	}

	if err != nil {
		return nil, err
	}
	return
}

// InitFirebaseAuth initializes the Firebase App and returns an Auth client.
func InitFirebaseAuth(ctx context.Context, credentialsPath string) (*firebase.App, *firebaseauth.Client, error) {
	firebaseApp, err := GetApp(ctx, credentialsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing firebase app [%w]", err)
	}

	fbAuth, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing firebase auth [%w]", err)
	}

	return firebaseApp, fbAuth, nil
}
