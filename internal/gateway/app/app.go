// Package app initializes and runs the identity gateway. It wires the
// storage backends, verifies the schema, handles graceful shutdown, and
// starts the forward-auth HTTP server.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/akarpov87/identity-gateway/internal/cryptox"
	"github.com/akarpov87/identity-gateway/internal/gateway"
	"github.com/akarpov87/identity-gateway/internal/gateway/config"
	"github.com/akarpov87/identity-gateway/internal/gateway/httpapi"
	"github.com/akarpov87/identity-gateway/internal/gateway/keyset"
	"github.com/akarpov87/identity-gateway/internal/gateway/provision"
	"github.com/akarpov87/identity-gateway/internal/gateway/repositories/events"
	"github.com/akarpov87/identity-gateway/internal/gateway/repositories/profiles"
	"github.com/akarpov87/identity-gateway/internal/gateway/repositories/tokens"
	"github.com/akarpov87/identity-gateway/internal/gateway/resolver"
	"github.com/akarpov87/identity-gateway/internal/gateway/schema"
	"github.com/akarpov87/identity-gateway/internal/gateway/stores"
	"github.com/akarpov87/identity-gateway/internal/gateway/stores/document"
	"github.com/akarpov87/identity-gateway/internal/gateway/stores/graph"
	"github.com/akarpov87/identity-gateway/internal/gateway/stores/object"
	"github.com/akarpov87/identity-gateway/internal/gateway/stores/photos"
	"github.com/akarpov87/identity-gateway/internal/gateway/stores/relational"
	"github.com/akarpov87/identity-gateway/internal/gateway/verifier"
	"github.com/akarpov87/identity-gateway/internal/logging"
)

// sealSalt keys the photo-credential seal. Changing it invalidates every
// stored credential, so it is fixed for the lifetime of a deployment.
var sealSalt = []byte("identity-gateway/photo-credential")

type App struct {
	config *config.Config
	logger logging.Logger

	db          *sql.DB
	mongoClient *mongo.Client
	neo4jDriver neo4j.DriverWithContext

	guard  *schema.Guard
	server *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(c.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("document store init error: %w", err)
	}

	neo4jDriver, err := neo4j.NewDriverWithContext(c.Neo4jURI, neo4j.BasicAuth(c.Neo4jUser, c.Neo4jPassword, ""))
	if err != nil {
		return nil, fmt.Errorf("graph store init error: %w", err)
	}

	s3Client, err := object.NewS3Client(context.Background(), object.Settings{
		RootUser:     c.S3RootUser,
		RootPassword: c.S3RootPassword,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	profilesRepo := profiles.NewPostgresRepository(db)
	tokensRepo := tokens.NewPostgresRepository(db)

	sealKey := cryptox.DeriveKey([]byte(c.SealSecret), sealSalt)
	photoClient := photos.NewClient(c.PhotoAPIBaseURL, c.PhotoAdminKey)

	adapters := []stores.Adapter{
		relational.New(profilesRepo),
		graph.New(neo4jDriver),
		object.New(s3Client, c.S3Bucket),
		document.New(),
		photos.New(photoClient, profilesRepo, sealKey),
	}

	coordinator, err := provision.New(adapters, logger,
		provision.WithCallTimeout(c.ProvisionTimeout),
		provision.WithMaxInFlight(c.ProvisionMaxInFlight),
		provision.WithRecorder(events.NewPostgresRecorder(db)),
	)
	if err != nil {
		return nil, fmt.Errorf("coordinator init error: %w", err)
	}

	keys := keyset.New(c.JWKSURL, c.KeyCacheTTL)
	v := verifier.New(keys, tokensRepo, verifier.Config{
		AssertionHeader: c.AssertionHeader,
		Audience:        c.Audience,
		RequiredScope:   c.RequiredScope,
		FallbackEmail:   c.FallbackEmail,
	}, logger)

	gw := gateway.New(v, resolver.New(profilesRepo), coordinator, logger)

	guard := schema.New(db, logger,
		schema.WithMode(schema.ParseMode(c.SchemaMode)),
		schema.WithDocumentStore(mongoClient.Database(c.MongoDatabase), c.MongoCollection),
	)

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		mongoClient: mongoClient,
		neo4jDriver: neo4jDriver,
		guard:       guard,
		server:      httpapi.NewServer(c.EndpointAddrHTTP, gw, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run verifies the schema and serves until the context is cancelled or a
// termination signal arrives. A fatal schema problem prevents the server
// from ever accepting traffic.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.guard.Ensure(ctx); err != nil {
		app.logger.Error(ctx, "schema verification failed", "error", err)
		return err
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.close()
	return nil
}

func (app *App) close() {
	ctx := context.Background()
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "closing database", "error", err)
	}
	if err := app.mongoClient.Disconnect(ctx); err != nil {
		app.logger.Warn(ctx, "closing document store", "error", err)
	}
	if err := app.neo4jDriver.Close(ctx); err != nil {
		app.logger.Warn(ctx, "closing graph store", "error", err)
	}
}
