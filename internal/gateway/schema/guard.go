// Package schema verifies and repairs the gateway's backing schema on
// startup. Migrations are embedded goose SQL files and are safe to replay;
// an advisory lock keeps concurrent replicas from migrating at the same
// time. Critical relations must exist after migration or startup aborts,
// optional ones only produce a warning unless strict mode is enabled.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/akarpov87/identity-gateway/internal/common"
	"github.com/akarpov87/identity-gateway/internal/gateway/migrations"
	"github.com/akarpov87/identity-gateway/internal/logging"
)

// lockID is the pg_advisory_lock key shared by all gateway replicas.
const lockID int64 = 824461

const documentCheckTimeout = 3 * time.Second

// Mode selects how a missing optional relation is treated.
type Mode string

const (
	// ModeLenient logs a warning and continues.
	ModeLenient Mode = "lenient"
	// ModeStrict treats optional misses like critical ones.
	ModeStrict Mode = "strict"
)

// ParseMode maps a config string to a Mode, defaulting to lenient.
func ParseMode(s string) Mode {
	if Mode(s) == ModeStrict {
		return ModeStrict
	}
	return ModeLenient
}

var (
	criticalRelations = []string{"profiles", "api_tokens"}
	optionalRelations = []string{"provisioning_events"}
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Guard runs migrations and verifies the resulting schema.
type Guard struct {
	db     *sql.DB
	logger logging.Logger
	mode   Mode

	// set when a document store participates in the schema check
	documentCollection string
	listCollections    func(ctx context.Context) ([]string, error)
}

type Option func(*Guard)

func WithMode(mode Mode) Option {
	return func(g *Guard) { g.mode = mode }
}

// WithDocumentStore enables an optional existence check for the named
// collection in the document database.
func WithDocumentStore(db *mongo.Database, collection string) Option {
	return func(g *Guard) {
		g.documentCollection = collection
		g.listCollections = func(ctx context.Context) ([]string, error) {
			return db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: collection}})
		}
	}
}

func New(db *sql.DB, logger logging.Logger, opts ...Option) *Guard {
	g := &Guard{db: db, logger: logger, mode: ModeLenient}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Ensure migrates the relational schema and verifies every relation the
// gateway depends on. It is idempotent and safe to call from multiple
// replicas at once.
func (g *Guard) Ensure(ctx context.Context) error {
	conn, err := g.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquiring connection: %v", common.ErrSchemaFatal, err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", lockID); err != nil {
		return fmt.Errorf("%w: acquiring schema lock: %v", common.ErrSchemaFatal, err)
	}
	defer func() {
		// unlock even when ctx is already cancelled
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if _, err := conn.ExecContext(unlockCtx, "SELECT pg_advisory_unlock($1)", lockID); err != nil {
			g.logger.Warn(unlockCtx, "releasing schema lock", "error", err)
		}
	}()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("%w: setting dialect: %v", common.ErrSchemaFatal, err)
	}
	if err := gooseUpContext(ctx, g.db, "."); err != nil {
		return fmt.Errorf("%w: running migrations: %v", common.ErrSchemaFatal, err)
	}

	for _, name := range criticalRelations {
		exists, err := g.relationExists(ctx, name)
		if err != nil {
			return fmt.Errorf("%w: checking relation %s: %v", common.ErrSchemaFatal, name, err)
		}
		if !exists {
			return fmt.Errorf("%w: relation %s missing after migration", common.ErrSchemaFatal, name)
		}
	}

	for _, name := range optionalRelations {
		exists, err := g.relationExists(ctx, name)
		if err != nil {
			return fmt.Errorf("%w: checking relation %s: %v", common.ErrSchemaFatal, name, err)
		}
		if exists {
			continue
		}
		if g.mode == ModeStrict {
			return fmt.Errorf("%w: optional relation %s missing", common.ErrSchemaFatal, name)
		}
		g.logger.Warn(ctx, "optional relation missing, continuing without it", "relation", name)
	}

	return g.checkDocumentStore(ctx)
}

func (g *Guard) relationExists(ctx context.Context, name string) (bool, error) {
	var reg sql.NullString
	if err := g.db.QueryRowContext(ctx, "SELECT to_regclass($1)", name).Scan(&reg); err != nil {
		return false, err
	}
	return reg.Valid, nil
}

// checkDocumentStore verifies the document collection exists. The document
// store is optional infrastructure, so failures follow the optional-relation
// policy.
func (g *Guard) checkDocumentStore(ctx context.Context) error {
	if g.listCollections == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, documentCheckTimeout)
	defer cancel()

	names, err := g.listCollections(ctx)
	if err != nil {
		if g.mode == ModeStrict {
			return fmt.Errorf("%w: checking document collection %s: %v", common.ErrSchemaFatal, g.documentCollection, err)
		}
		g.logger.Warn(ctx, "document store unreachable, skipping collection check",
			"collection", g.documentCollection, "error", err)
		return nil
	}
	if len(names) == 0 {
		if g.mode == ModeStrict {
			return fmt.Errorf("%w: document collection %s missing", common.ErrSchemaFatal, g.documentCollection)
		}
		g.logger.Warn(ctx, "document collection missing, continuing without it",
			"collection", g.documentCollection)
	}
	return nil
}
