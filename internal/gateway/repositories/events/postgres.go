package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/akarpov87/identity-gateway/internal/dbx"
	"github.com/akarpov87/identity-gateway/internal/gateway/models"
)

// PostgresRecorder implements Recorder over dbx.DBTX.
type PostgresRecorder struct {
	db dbx.DBTX
}

func NewPostgresRecorder(db dbx.DBTX) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

func (r *PostgresRecorder) Record(ctx context.Context, userID string, store models.StoreKind) error {
	query :=
		`INSERT INTO provisioning_events (id, user_id, store_kind)
		 VALUES ($1, $2, $3)
		 `

	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), userID, string(store)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
