package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/filegate/filegate/config"
	"github.com/filegate/filegate/internal/adapters/badgerkv"
	"github.com/filegate/filegate/internal/adapters/memkv"
	"github.com/filegate/filegate/internal/adapters/memsession"
	redissess "github.com/filegate/filegate/internal/adapters/redis"
	"github.com/filegate/filegate/internal/adapters/rediskv"
	"github.com/filegate/filegate/internal/data"
	"github.com/filegate/filegate/internal/policystore"
	"github.com/filegate/filegate/internal/ports"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

// ConnectDB establishes a connection to the PostgreSQL database.
func ConnectDB(cfg config.DBConfig, logger *slog.Logger) (*sql.DB, error) {
	// Build DSN using url.URL to safely handle special characters in credentials
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()

	db, err := sql.Open("pgx", u.String())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if logger != nil {
		logger.Info("database connected",
			"host", cfg.Host,
			"port", cfg.Port,
			"database", cfg.Name,
		)
	}

	return db, nil
}

// ConnectRedis establishes a connection to Redis.
//
//nolint:ireturn // returning redis.UniversalClient matches the adapter constructors.
func ConnectRedis(cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if logger != nil {
		logger.Info("redis connected", "addr", cfg.Addr)
	}

	return client, nil
}

// StorageDeps carries the shared connections storage construction may use.
// Connections are opened lazily: only the selected backends connect.
type StorageDeps struct {
	Config *config.AppConfig
	Logger *slog.Logger

	db     *sql.DB
	redis  redis.UniversalClient
	badger *badgerkv.Store
}

// Redis returns the shared Redis client, connecting on first use.
//
//nolint:ireturn // returning redis.UniversalClient matches the adapter constructors.
func (d *StorageDeps) Redis() (redis.UniversalClient, error) {
	if d.redis == nil {
		client, err := ConnectRedis(d.Config.Redis, d.Logger)
		if err != nil {
			return nil, err
		}
		d.redis = client
	}
	return d.redis, nil
}

// DB returns the shared database handle, connecting on first use.
func (d *StorageDeps) DB() (*sql.DB, error) {
	if d.db == nil {
		db, err := ConnectDB(d.Config.Postgres, d.Logger)
		if err != nil {
			return nil, err
		}
		d.db = db
	}
	return d.db, nil
}

// Close releases whatever connections were opened.
func (d *StorageDeps) Close() error {
	var errs []error
	if d.badger != nil {
		if err := d.badger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close badger: %w", err))
		}
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// BuildPolicyStore constructs the policy store for the configured backend.
//
//nolint:ireturn // Returning the port keeps backend selection behind bootstrap.
func BuildPolicyStore(ctx context.Context, deps *StorageDeps) (ports.PolicyStore, error) {
	cfg := deps.Config
	logger := deps.Logger

	switch cfg.Storage.Policies {
	case config.BackendMemory:
		return policystore.New(policystore.Options{
			Settings: memkv.New(),
			Logger:   logger,
		})

	case config.BackendBadger:
		store, err := badgerkv.Open(badgerkv.Options{
			Dir:      cfg.Badger.Dir,
			InMemory: cfg.Badger.InMemory,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		deps.badger = store
		return policystore.New(policystore.Options{
			Settings: store,
			Logger:   logger,
		})

	case config.BackendRedis:
		client, err := deps.Redis()
		if err != nil {
			return nil, err
		}
		return policystore.New(policystore.Options{
			Settings: rediskv.New(client),
			Logger:   logger,
		})

	case config.BackendPostgres:
		db, err := deps.DB()
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrationsOnStart {
			if err := data.RunMigrations(ctx, db); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
			if logger != nil {
				logger.Info("database migrations applied")
			}
		} else if logger != nil {
			logger.Info("skipping database migrations on startup", "reason", "disabled via config")
		}
		return data.NewPolicyRepo(db), nil

	default:
		return nil, fmt.Errorf("unsupported policy backend: %q", cfg.Storage.Policies)
	}
}

// BuildSessionStore constructs the session store. Sessions live in memory
// unless SESSIONS_IN_REDIS is set.
//
//nolint:ireturn // Returning the port keeps backend selection behind bootstrap.
func BuildSessionStore(deps *StorageDeps) (ports.SessionStore, error) {
	if !deps.Config.Storage.SessionsInRedis {
		return memsession.New(), nil
	}
	client, err := deps.Redis()
	if err != nil {
		return nil, err
	}
	return redissess.NewSessionStore(client), nil
}
