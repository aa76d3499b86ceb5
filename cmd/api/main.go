package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"archie-core-forms-layer/internal/application"
	"archie-core-forms-layer/internal/application/submission_handlers"
	"archie-core-forms-layer/internal/config"
	apiinfra "archie-core-forms-layer/internal/infrastructure/api"
	"archie-core-forms-layer/internal/infrastructure/broker"
	"archie-core-forms-layer/internal/infrastructure/cache"
	"archie-core-forms-layer/internal/infrastructure/encryption"
	"archie-core-forms-layer/internal/infrastructure/hubspot"
	"archie-core-forms-layer/internal/infrastructure/mailchimp"
	"archie-core-forms-layer/internal/infrastructure/metrics"
	"archie-core-forms-layer/internal/infrastructure/pubsub"
	"archie-core-forms-layer/internal/infrastructure/repository"
	shopifyinfra "archie-core-forms-layer/internal/infrastructure/shopify"
	"archie-core-forms-layer/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// storage holds the repositories of the selected backend
type storage struct {
	mappings    ports.MappingRepository
	credentials ports.CredentialsRepository
	settings    ports.SettingsRepository
	dispatchLog ports.DispatchLog
	close       func()
}

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger = logger.Level(cfg.LogLevel)

	ctx := context.Background()

	// Initialize repositories
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("Failed to initialize storage")
	}
	defer store.close()

	// Initialize infrastructure (implementations)
	encryptionService, err := encryption.NewService(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	var schemaCache ports.SchemaCache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisSchemaCache(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisCache.Close()
		schemaCache = redisCache
	} else {
		logger.Warn().Msg("REDIS_URL not set, using in-process schema cache")
		schemaCache = cache.NewMemorySchemaCache()
	}

	recorder := metrics.NewRecorder()
	dispatchPubSub := pubsub.NewDispatchPubSub(logger)

	// Integration adapters
	adapters := application.NewAdapterRegistry(
		hubspot.NewClient(logger),
		mailchimp.NewClient(logger),
		shopifyinfra.NewClient(cfg.Shopify.APIKey, cfg.Shopify.APISecret, logger),
	)

	// Initialize application services
	credentialsService := application.NewCredentialsService(store.credentials, encryptionService, schemaCache, logger)
	connectionService := application.NewConnectionService(adapters, credentialsService, logger)
	schemaService := application.NewSchemaService(adapters, credentialsService, schemaCache, recorder, cfg.SchemaCacheTTL, logger)
	mappingService := application.NewMappingService(store.mappings, store.settings, schemaService, application.NewReconciler(), logger)
	integrationService := application.NewIntegrationService(adapters, store.credentials, store.mappings, store.settings, logger)

	dispatcher := application.NewDispatcher(adapters, credentialsService, store.mappings, store.settings, recorder, cfg.RemoteTimeout, logger)
	if cfg.VerifyBeforeDispatch {
		dispatcher.UseConnectionGate(connectionService)
	}
	dispatcher.AddObserver(recorder)
	dispatcher.AddObserver(dispatchPubSub)
	if store.dispatchLog != nil {
		dispatcher.AddObserver(store.dispatchLog)
	}

	if cfg.Broker.Enabled() {
		publisher, err := broker.NewPublisher(broker.Config{
			URL:      cfg.Broker.URL,
			ClientID: cfg.Broker.ClientID,
			Username: cfg.Broker.Username,
			Password: cfg.Broker.Password,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to message broker")
		}
		defer publisher.Close()
		dispatcher.AddObserver(publisher)
	}

	// Initialize submission router and register handlers
	submissionRouter := application.NewSubmissionRouter(store.settings, logger)
	submissionRouter.RegisterHandler(submission_handlers.NewCRMHandler(dispatcher, logger))
	submissionRouter.RegisterHandler(submission_handlers.NewAudienceHandler(dispatcher, logger))
	submissionRouter.RegisterHandler(submission_handlers.NewCustomerHandler(dispatcher, logger))

	apiHandler := apiinfra.NewHandler(apiinfra.Services{
		Adapters:     adapters,
		Integrations: integrationService,
		Credentials:  credentialsService,
		Connection:   connectionService,
		Schema:       schemaService,
		Mappings:     mappingService,
		Submissions:  submissionRouter,
		Events:       dispatchPubSub,
		DispatchLog:  store.dispatchLog,
	}, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Health check - must be public for monitoring
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", recorder.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	apiHandler.RegisterRoutes(r)

	logger.Info().
		Str("port", cfg.Port).
		Str("storage", cfg.StorageBackend).
		Strs("integrations", adapters.IDs()).
		Msg("Starting API server")
	logger.Info().Msg("Swagger documentation available at " + cfg.AppURL + "/swagger/index.html")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

func openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*storage, error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		db, err := repository.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info().Msg("Connected to PostgreSQL")
		return postgresStorage(cfg, db), nil

	case config.StorageMemory:
		logger.Warn().Msg("Using in-memory storage, data is lost on restart")
		s := &storage{
			mappings:    repository.NewMemoryMappingRepository(),
			credentials: repository.NewMemoryCredentialsRepository(),
			settings:    repository.NewMemorySettingsRepository(),
			close:       func() {},
		}
		if cfg.DispatchLogEnabled {
			s.dispatchLog = repository.NewMemoryDispatchLog(0)
		}
		return s, nil

	default:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.Mongo.Database)
		if err := repository.EnsureIndexes(connectCtx, db); err != nil {
			client.Disconnect(context.Background())
			return nil, err
		}
		logger.Info().Str("database", cfg.Mongo.Database).Msg("Connected to MongoDB")

		s := &storage{
			mappings:    repository.NewMongoMappingRepository(db),
			credentials: repository.NewMongoCredentialsRepository(db),
			settings:    repository.NewMongoSettingsRepository(db),
			close:       func() { client.Disconnect(context.Background()) },
		}
		if cfg.DispatchLogEnabled {
			s.dispatchLog = repository.NewMongoDispatchLog(db)
		}
		return s, nil
	}
}

func postgresStorage(cfg *config.Config, db *sql.DB) *storage {
	s := &storage{
		mappings:    repository.NewPostgresMappingRepository(db),
		credentials: repository.NewPostgresCredentialsRepository(db),
		settings:    repository.NewPostgresSettingsRepository(db),
		close:       func() { db.Close() },
	}
	if cfg.DispatchLogEnabled {
		s.dispatchLog = repository.NewPostgresDispatchLog(db)
	}
	return s
}
