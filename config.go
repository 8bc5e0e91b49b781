package spcall

import (
	"context"
	"sync"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/godror/godror"       // Oracle driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ignaciocaff/spcall/internal/core"
)

// Config describes the connection and logging of a Context.
type Config = core.Config

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	return core.LoadConfig(path)
}

// ParseConfig parses a YAML configuration document.
func ParseConfig(data []byte) (*Config, error) {
	return core.ParseConfig(data)
}

var (
	mu         sync.RWMutex
	defaultCtx *Context
	appContext context.Context
)

// Configure installs the default Context used by the pkg package.
// It panics when dbConn is nil.
func Configure(dbConn *sqlx.DB, ctx context.Context, opts ...Option) *Context {
	if dbConn == nil {
		panic("spcall: Configure called without a database connection")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	c := NewContext(dbConn, opts...)

	mu.Lock()
	defer mu.Unlock()
	defaultCtx = c
	appContext = ctx
	return c
}

// Default returns the Context installed by Configure, or nil.
func Default() *Context {
	mu.RLock()
	defer mu.RUnlock()
	return defaultCtx
}

// AppContext returns the context.Context installed by Configure.
func AppContext() context.Context {
	mu.RLock()
	defer mu.RUnlock()
	if appContext == nil {
		return context.Background()
	}
	return appContext
}

// Open connects to the database described by cfg and returns a Context
// using the configured dialect, logger and default timeout.
func Open(ctx context.Context, cfg Config) (*Context, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dialect, err := DialectFor(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "connect %s", cfg.Dialect)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	logger.Info("database connected",
		zap.String("dialect", dialect.Name()),
		zap.String("driver", cfg.Driver))
	return NewContext(db,
		WithDialect(dialect),
		WithLogger(logger),
		WithDefaultTimeout(cfg.DefaultTimeoutMinutes),
	), nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	logger, err := zc.Build()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return logger, nil
}
