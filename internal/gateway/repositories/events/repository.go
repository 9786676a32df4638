// Package events records provisioning events for auditing. The backing
// table is optional: a missing table degrades to warnings, never failures.
package events

import (
	"context"

	"github.com/akarpov87/identity-gateway/internal/gateway/models"
)

type Recorder interface {
	// Record notes that a store provisioned a principal for the first time.
	Record(ctx context.Context, userID string, store models.StoreKind) error
}
