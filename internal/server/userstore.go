package server

import (
	"context"
	"errors"

	"github.com/askarov/filevault/internal/auth"
	"github.com/askarov/filevault/internal/vault"
)

// userStoreAdapter bridges the vault metadata store to the auth.UserStore
// contract, translating sentinel errors between the two packages.
type userStoreAdapter struct {
	store vault.Store
}

// NewAuthUserStore exposes the vault's user records to the auth service.
func NewAuthUserStore(store vault.Store) auth.UserStore {
	return userStoreAdapter{store: store}
}

func (a userStoreAdapter) CreateUser(ctx context.Context, username, passwordHash string) (auth.User, error) {
	user, err := a.store.CreateUser(ctx, username, passwordHash)
	if err != nil {
		if errors.Is(err, vault.ErrUsernameTaken) {
			return auth.User{}, auth.ErrUsernameTaken
		}
		return auth.User{}, err
	}
	return authUser(user), nil
}

func (a userStoreAdapter) GetUserByUsername(ctx context.Context, username string) (auth.User, error) {
	user, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, vault.ErrNotFound) {
			return auth.User{}, auth.ErrUserNotFound
		}
		return auth.User{}, err
	}
	return authUser(user), nil
}

func authUser(u vault.User) auth.User {
	return auth.User{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}
