package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketplace-escrow/pkg/config"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
)

const (
	DriverPostgres = config.DriverPostgres
	DriverSQLite   = config.DriverSQLite

	defaultTxAttempts = 3
	txRetryBase       = 20 * time.Millisecond
)

// Client wraps the shared GORM connection and runs units of work on it.
type Client struct {
	conn       *gorm.DB
	driver     string
	txAttempts int
	logg       *logger.Logger
	retryPause func(attempt int) time.Duration
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens the configured database. SQLite connections get the escrow schema applied
// and are pinned to one connection, since SQLite has no row locks to serialize on.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DriverPostgres
	}

	dialector, err := dialectorFor(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newQueryLogger(logg, cfg.SlowQueryThreshold),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	configurePool(sqlDB, cfg)

	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		if err := EnsureSQLiteSchema(ctx, conn); err != nil {
			return nil, err
		}
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "driver", driver), "database connection established")
	}

	client := NewFromConn(conn)
	client.logg = logg
	if cfg.TxMaxAttempts > 0 {
		client.txAttempts = cfg.TxMaxAttempts
	}
	return client, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DriverPostgres:
		return postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func configurePool(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// NewFromConn wraps an already opened connection.
func NewFromConn(conn *gorm.DB) *Client {
	return &Client{
		conn:       conn,
		driver:     conn.Dialector.Name(),
		txAttempts: defaultTxAttempts,
		retryPause: func(attempt int) time.Duration { return time.Duration(attempt) * txRetryBase },
	}
}

func (c *Client) Driver() string {
	return c.driver
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn in a transaction. A deadlock or serialization failure rolls back and
// replays fn from scratch, so fn must keep no state across attempts.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = c.transaction(ctx, fn)
		if err == nil || !IsRetryable(err) || attempt >= c.txAttempts {
			return err
		}
		if c.logg != nil {
			c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
				"attempt": attempt,
				"error":   err.Error(),
			}), "transaction conflict, retrying")
		}
		timer := time.NewTimer(c.retryPause(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *Client) transaction(ctx context.Context, fn func(tx *gorm.DB) error) (err error) {
	tx := c.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// ForUpdate scopes a query to take row-exclusive locks (SELECT ... FOR UPDATE).
// Dialects without row locks ignore the clause.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
