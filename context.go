package spcall

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Context is the data-access context that procedures are invoked through.
// It owns at most one dedicated connection, opened by the multi-set calls.
// A Context must not be used from several goroutines at once.
type Context struct {
	db      *sqlx.DB
	dialect Dialect
	logger  *zap.Logger
	conn    *sqlx.Conn

	// defaultTimeout applies to multi-set calls passing a zero timeout.
	defaultTimeout int
}

// Option configures a Context built by NewContext.
type Option func(*Context)

// WithDefaultTimeout sets the timeout, in minutes, used by calls that pass 0.
func WithDefaultTimeout(minutes int) Option {
	return func(c *Context) {
		c.defaultTimeout = minutes
	}
}

// WithLogger sets the logger calls report to. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Context) {
		c.logger = logger
	}
}

// WithDialect overrides the dialect derived from the driver name.
func WithDialect(d Dialect) Option {
	return func(c *Context) {
		c.dialect = d
	}
}

// NewContext wraps db. The dialect defaults to the one matching the
// driver name sqlx was opened with, falling back to MSSQL.
func NewContext(db *sqlx.DB, opts ...Option) *Context {
	c := &Context{db: db, logger: zap.NewNop()}
	if d, err := DialectForDriver(db.DriverName()); err == nil {
		c.dialect = d
	} else {
		c.dialect = MSSQL{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Context) DB() *sqlx.DB { return c.db }

func (c *Context) Dialect() Dialect { return c.dialect }

func (c *Context) Logger() *zap.Logger { return c.logger }

// IsOpen reports whether the context currently holds a dedicated connection.
func (c *Context) IsOpen() bool { return c.conn != nil }

// open takes a dedicated connection from the pool unless one is held.
func (c *Context) open(ctx context.Context) (*sqlx.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := c.db.Connx(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	c.conn = conn
	return conn, nil
}

// closeConn hands the dedicated connection back to the pool.
func (c *Context) closeConn() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return errors.WithStack(err)
}

// Close releases the dedicated connection, if any. The underlying *sqlx.DB
// stays open; it belongs to whoever created it.
func (c *Context) Close() error {
	return c.closeConn()
}

// params returns p's parameters named with the dialect's bind marker
// instead of the profile's. Values are copied, p is left untouched.
func (c *Context) params(p Procedure) []*Parameter {
	from, to := p.Marker(), c.dialect.Marker()
	if from == to {
		return p.Parameters()
	}
	src := p.Parameters()
	out := make([]*Parameter, len(src))
	for i, param := range src {
		out[i] = &Parameter{
			Name:      to + strings.TrimPrefix(param.Name, from),
			Value:     param.Value,
			Direction: param.Direction,
		}
	}
	return out
}

// queryer is what the text-form calls run against: the held connection when
// one is open, the pool otherwise.
type queryer interface {
	sqlx.ExecerContext
	sqlx.QueryerContext
}

func (c *Context) queryer() queryer {
	if c.conn != nil {
		return c.conn
	}
	return c.db
}
