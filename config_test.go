package spcall_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignaciocaff/spcall"
)

func TestConfigurePanicsWithoutDB(t *testing.T) {
	assert.Panics(t, func() {
		spcall.Configure(nil, context.Background())
	})
}

func TestConfigureInstallsDefault(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := spcall.Configure(sqlx.NewDb(db, "sqlserver"), nil)
	assert.Same(t, c, spcall.Default())
	assert.Equal(t, "mssql", c.Dialect().Name())
	assert.Equal(t, context.Background(), spcall.AppContext())
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	_, err := spcall.Open(context.Background(), spcall.Config{Dialect: "db2", DSN: "x"})
	assert.EqualError(t, err, `config: unknown dialect "db2"`)

	_, err = spcall.Open(context.Background(), spcall.Config{Dialect: "mysql"})
	assert.EqualError(t, err, "config: dsn is required")

	_, err = spcall.Open(context.Background(), spcall.Config{Dialect: "mysql", DSN: "u:p@/db", LogLevel: "loud"})
	assert.ErrorContains(t, err, `log level "loud"`)
}

func TestParseConfig(t *testing.T) {
	cfg, err := spcall.ParseConfig([]byte(`
dialect: postgres
dsn: postgres://app@localhost/orders
default_timeout_minutes: 3
`))
	require.NoError(t, err)
	assert.Equal(t, "pgx", cfg.Driver)
	assert.Equal(t, 3, cfg.DefaultTimeoutMinutes)
}

func TestNewContextDialectFromDriver(t *testing.T) {
	tests := map[string]string{
		"oracle":    "go-ora",
		"godror":    "oracle",
		"sqlserver": "mssql",
		"mssql":     "mssql",
		"pgx":       "postgres",
		"mysql":     "mysql",
		"sqlmock":   "mssql",
	}
	for driver, dialect := range tests {
		db, _, err := sqlmock.New()
		require.NoError(t, err)

		c := spcall.NewContext(sqlx.NewDb(db, driver))
		assert.Equal(t, dialect, c.Dialect().Name(), driver)
		require.NoError(t, db.Close())
	}
}

func TestDialectForDriver(t *testing.T) {
	d, err := spcall.DialectForDriver("oracle")
	require.NoError(t, err)
	assert.Equal(t, spcall.OracleRefCursor{}, d)

	_, err = spcall.DialectForDriver("sqlite3")
	assert.EqualError(t, err, `unknown driver "sqlite3"`)
}
