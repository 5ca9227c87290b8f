// Package auth verifies identity-provider bearer tokens.
package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/imrishuroy/go-marketplace-api/internal/apperr"
)

// Verifier resolves a bearer token to the caller's email.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// tokenVerifier is the part of the Firebase auth client we use.
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// Firebase verifies Firebase ID tokens.
type Firebase struct {
	client tokenVerifier
}

// NewFirebase builds a verifier from a base64-encoded service account JSON document.
func NewFirebase(ctx context.Context, serviceKeyB64 string) (*Firebase, error) {
	creds, err := DecodeServiceKey(serviceKeyB64)
	if err != nil {
		return nil, err
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &Firebase{client: client}, nil
}

// DecodeServiceKey accepts the base64 form used in deployment env files.
func DecodeServiceKey(b64 string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, fmt.Errorf("decode service key: %w", err)
	}
	return raw, nil
}

func (f *Firebase) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperr.ErrAuthenticationMissing
	}
	tok, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("verify id token: %v: %w", err, apperr.ErrAuthenticationInvalid)
	}
	email, _ := tok.Claims["email"].(string)
	if email == "" {
		return "", fmt.Errorf("token for %s has no email claim: %w", tok.UID, apperr.ErrAuthenticationInvalid)
	}
	return strings.ToLower(email), nil
}

// Static maps fixed tokens to emails. It backs local development and tests.
type Static map[string]string

func (s Static) Verify(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", apperr.ErrAuthenticationMissing
	}
	email, ok := s[token]
	if !ok {
		return "", fmt.Errorf("unknown token: %w", apperr.ErrAuthenticationInvalid)
	}
	return strings.ToLower(email), nil
}
