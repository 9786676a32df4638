package photos

import (
	"context"
	"errors"
	"fmt"

	"github.com/akarpov87/identity-gateway/internal/common"
	"github.com/akarpov87/identity-gateway/internal/cryptox"
	"github.com/akarpov87/identity-gateway/internal/gateway/models"
	"github.com/akarpov87/identity-gateway/internal/gateway/repositories/profiles"
)

// Adapter keys off the email. It is the only adapter with a write-back
// dependency on the relational store: the minted API key is sealed and
// stored on the profile row, so it must run after the relational adapter.
type Adapter struct {
	client   *Client
	profiles profiles.Repository
	sealKey  []byte
}

func New(client *Client, p profiles.Repository, sealKey []byte) *Adapter {
	return &Adapter{client: client, profiles: p, sealKey: sealKey}
}

func (a *Adapter) Kind() models.StoreKind {
	return models.StorePhotos
}

func (a *Adapter) EnsureProvisioned(ctx context.Context, p *models.Principal) (bool, error) {
	if p.ID == "" {
		return false, errors.New("photo account provisioning requires a profile id")
	}

	if _, err := a.client.FindAccount(ctx, p.Email); err == nil {
		return false, nil
	} else if !errors.Is(err, common.ErrorNotFound) {
		return false, fmt.Errorf("account lookup: %w", err)
	}

	acct, err := a.client.CreateAccount(ctx, p.Email)
	if err != nil {
		// A concurrent request won the creation race and is writing the
		// credential; nothing left to do here.
		if errors.Is(err, ErrAccountExists) {
			return false, nil
		}
		return false, fmt.Errorf("account create: %w", err)
	}

	key, err := a.client.CreateAPIKey(ctx, acct.ID)
	if err != nil {
		return false, fmt.Errorf("api key create: %w", err)
	}

	sealed, err := cryptox.Seal([]byte(key), a.sealKey)
	if err != nil {
		return false, fmt.Errorf("api key seal: %w", err)
	}
	if err := a.profiles.SetPhotoCredential(ctx, p.ID, acct.ID, sealed); err != nil {
		return false, fmt.Errorf("credential write-back: %w", err)
	}
	return true, nil
}
