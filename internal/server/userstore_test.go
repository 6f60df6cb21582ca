package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/askarov/filevault/internal/auth"
	"github.com/askarov/filevault/internal/config"
	"github.com/askarov/filevault/internal/vault"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		TokenSecret: "access-secret",
		TokenTTL:    time.Minute,
		BcryptCost:  4,
	}
}

func TestAuthUserStoreRoundTrip(t *testing.T) {
	store := NewAuthUserStore(vault.NewMemoryStore())
	ctx := context.Background()

	created, err := store.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.ID == 0 || created.Username != "alice" || created.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", created)
	}

	found, err := store.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("expected user %d, got %d", created.ID, found.ID)
	}
}

func TestAuthUserStoreTranslatesSentinels(t *testing.T) {
	store := NewAuthUserStore(vault.NewMemoryStore())
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, "alice", "hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := store.CreateUser(ctx, "alice", "hash"); !errors.Is(err, auth.ErrUsernameTaken) {
		t.Fatalf("expected auth.ErrUsernameTaken, got %v", err)
	}
	if _, err := store.GetUserByUsername(ctx, "nobody"); !errors.Is(err, auth.ErrUserNotFound) {
		t.Fatalf("expected auth.ErrUserNotFound, got %v", err)
	}
}

// The auth service accepts the adapted store end to end: this is the wiring
// main relies on.
func TestAuthServiceOverVaultStore(t *testing.T) {
	service := auth.NewService(NewAuthUserStore(vault.NewMemoryStore()), testAuthConfig())

	result, err := service.Register(context.Background(), "alice", "StrongPass1!")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.Token.AccessToken == "" {
		t.Fatalf("expected token issued")
	}

	claims, err := service.ValidateAccessToken(result.Token.AccessToken)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != result.User.ID {
		t.Fatalf("expected claims for user %d, got %d", result.User.ID, claims.UserID)
	}
}
