package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

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

// Upsert inserts the profile row keyed by unique email. Concurrent
// first-time requests for the same email race on the unique index; the
// loser's insert turns into the conflict branch and reads the winner's
// row, so exactly one UUID is ever minted per email.
func (r *PostgresRepository) Upsert(ctx context.Context, email string) (*models.Principal, bool, error) {

	query :=
		`INSERT INTO profiles (id, email)
		 VALUES ($1, $2)
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING id, email, role, tier, (xmax = 0) AS inserted
		 `

	p := &models.Principal{}
	var role, tier string
	var inserted bool

	err := r.db.QueryRowContext(ctx, query, uuid.NewString(), email).
		Scan(&p.ID, &p.Email, &role, &tier, &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("db error: %w", err)
	}

	p.Role = models.ParseRole(role)
	p.Tier = models.ParseTier(tier)
	return p, inserted, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Principal, error) {
	query :=
		`SELECT id, email, role, tier FROM profiles
		 WHERE email = $1
		 `

	p := &models.Principal{}
	var role, tier string

	err := r.db.QueryRowContext(ctx, query, email).Scan(&p.ID, &p.Email, &role, &tier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	p.Role = models.ParseRole(role)
	p.Tier = models.ParseTier(tier)
	return p, nil
}

func (r *PostgresRepository) SetPhotoCredential(ctx context.Context, userID, accountID string, sealedKey []byte) error {
	query :=
		`UPDATE profiles
		 SET photo_account_id = $2, photo_api_key = $3
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, userID, accountID, sealedKey)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}
