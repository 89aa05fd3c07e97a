package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gocql/gocql"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"speeddating/app/repository"
	"speeddating/config"
)

// HealthCheck reports whether a backing store is reachable
type HealthCheck func(ctx context.Context) error

// Stores holds the repositories selected by STORE_DRIVER and FEEDBACK_STORE
type Stores struct {
	Sessions repository.SessionRepository
	Users    repository.UserRepository
	Feedback repository.FeedbackRepository
	// Memory is set when STORE_DRIVER=memory, so callers can seed profiles
	Memory *repository.MemoryStore

	checks  map[string]HealthCheck
	closers []func(ctx context.Context) error
}

// Open connects to the configured stores and prepares their indexes and tables
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	stores := &Stores{checks: map[string]HealthCheck{}}

	switch cfg.StoreDriver {
	case config.StoreMemory:
		mem := repository.NewMemoryStore()
		stores.Sessions, stores.Users, stores.Feedback, stores.Memory = mem, mem, mem, mem
		slog.Warn("using in-memory session store, data is lost on restart")
	case config.StoreMongo:
		client, err := InitMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		stores.onClose(client.Disconnect)
		stores.checks["mongo"] = func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		}

		repo := repository.NewMongoRepository(client.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			stores.Close(ctx)
			return nil, fmt.Errorf("failed to create mongo indexes: %w", err)
		}
		stores.Sessions, stores.Users, stores.Feedback = repo, repo, repo
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.FeedbackStore == config.StoreCassandra {
		session, err := InitCassandra(cfg)
		if err != nil {
			stores.Close(ctx)
			return nil, err
		}
		stores.onClose(func(context.Context) error {
			session.Close()
			return nil
		})
		stores.checks["cassandra"] = func(ctx context.Context) error {
			return CassandraHealthCheck(ctx, session)
		}

		feedback := repository.NewCassandraFeedbackRepository(session)
		if err := feedback.Migrate(ctx); err != nil {
			stores.Close(ctx)
			return nil, fmt.Errorf("failed to migrate cassandra feedback table: %w", err)
		}
		stores.Feedback = feedback
	}

	return stores, nil
}

// Checks returns the health checks of every connected store
func (s *Stores) Checks() map[string]HealthCheck {
	out := make(map[string]HealthCheck, len(s.checks))
	for name, check := range s.checks {
		out[name] = check
	}
	return out
}

// Close releases every connection in reverse order of opening
func (s *Stores) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	if err := errors.Join(errs...); err != nil {
		return err
	}
	slog.Info("database connections closed")
	return nil
}

func (s *Stores) onClose(fn func(ctx context.Context) error) {
	s.closers = append(s.closers, fn)
}

// InitMongo connects to MongoDB and pings the primary
func InitMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second).
		SetMaxPoolSize(50)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	slog.Info("mongodb connected")
	return client, nil
}

// InitCassandra creates the Cassandra session used for feedback
func InitCassandra(cfg *config.Config) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.CassandraHost)
	cluster.Port = cfg.CassandraPort
	cluster.Keyspace = cfg.CassandraKeyspace
	cluster.Authenticator = gocql.PasswordAuthenticator{
		Username: cfg.CassandraUsername,
		Password: cfg.CassandraPassword,
	}

	// Set consistency and timeout
	cluster.Consistency = gocql.Quorum
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second

	cluster.RetryPolicy = &gocql.SimpleRetryPolicy{
		NumRetries: 3,
	}

	cluster.NumConns = 10
	cluster.MaxWaitSchemaAgreement = 2 * time.Minute

	slog.Info("connecting to cassandra", "host", cfg.CassandraHost, "port", cfg.CassandraPort)

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Cassandra: %w", err)
	}

	if err := session.Query("SELECT release_version FROM system.local").Exec(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to test Cassandra connection: %w", err)
	}

	slog.Info("cassandra session initialized", "keyspace", cfg.CassandraKeyspace)
	return session, nil
}

// CassandraHealthCheck runs a trivial query against system.local
func CassandraHealthCheck(ctx context.Context, session *gocql.Session) error {
	if session == nil {
		return fmt.Errorf("cassandra session is not initialized")
	}
	return session.Query("SELECT release_version FROM system.local").WithContext(ctx).Exec()
}
