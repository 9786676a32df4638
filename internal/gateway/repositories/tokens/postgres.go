package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/akarpov87/identity-gateway/internal/common"
	"github.com/akarpov87/identity-gateway/internal/dbx"
	"github.com/akarpov87/identity-gateway/internal/gateway/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByHash looks up a token by its SHA-256 fingerprint. The hash column
// carries a unique index, so the lookup is a single index probe. Scopes are
// stored space-separated in a single text column.
func (r *PostgresRepository) FindByHash(ctx context.Context, hash []byte) (*models.TokenOwner, error) {
	query :=
		`SELECT t.id, t.user_id, p.email, p.role, p.tier, t.scopes, t.expires_at
		 FROM api_tokens t
		 JOIN profiles p ON p.id = t.user_id
		 WHERE t.hash = $1
		 `

	owner := &models.TokenOwner{}
	var role, tier, scopes string
	var expires sql.NullTime

	err := r.db.QueryRowContext(ctx, query, hash).
		Scan(&owner.TokenID, &owner.UserID, &owner.Email, &role, &tier, &scopes, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	owner.Role = models.ParseRole(role)
	owner.Tier = models.ParseTier(tier)
	owner.Scopes = strings.Fields(scopes)
	if expires.Valid {
		owner.ExpiresAt = &expires.Time
	}
	return owner, nil
}

func (r *PostgresRepository) TouchLastUsed(ctx context.Context, tokenID string) error {
	query :=
		`UPDATE api_tokens SET last_used_at = now()
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, tokenID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
