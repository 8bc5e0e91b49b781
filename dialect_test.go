package spcall_test

import (
	"database/sql"
	"reflect"
	"testing"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignaciocaff/spcall"
)

func params(values map[string]any, names ...string) []*spcall.Parameter {
	out := make([]*spcall.Parameter, len(names))
	for i, n := range names {
		out[i] = &spcall.Parameter{Name: n, Value: values[n]}
	}
	return out
}

func TestDialectText(t *testing.T) {
	at := params(nil, "@orderId", "@customer")
	colon := params(nil, ":orderId", ":customer")

	tests := []struct {
		dialect   spcall.Dialect
		params    []*spcall.Parameter
		call      string
		procedure string
	}{
		{spcall.MSSQL{}, at, "EXEC GetOrder @orderId,@customer", "GetOrder"},
		{spcall.MSSQL{}, nil, "EXEC GetOrder", "GetOrder"},
		{spcall.Oracle{}, colon, "BEGIN GetOrder(:orderId,:customer); END;", "BEGIN GetOrder(:orderId,:customer); END;"},
		{spcall.OracleRefCursor{}, colon, "BEGIN GetOrder(:1, :2); END;", "BEGIN GetOrder(:1, :2); END;"},
		{spcall.Postgres{}, at, "SELECT * FROM GetOrder($1, $2)", "CALL GetOrder($1, $2)"},
		{spcall.MySQL{}, at, "CALL GetOrder(?, ?)", "CALL GetOrder(?, ?)"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.Name(), func(t *testing.T) {
			assert.Equal(t, tt.call, tt.dialect.CallText("GetOrder", tt.params))
			assert.Equal(t, tt.procedure, tt.dialect.ProcedureText("GetOrder", tt.params))
		})
	}
}

func TestDialectFor(t *testing.T) {
	for name, want := range map[string]string{
		"mssql":     "mssql",
		"SQLServer": "mssql",
		"godror":    "oracle",
		"go-ora":    "go-ora",
		"pgx":       "postgres",
		"mysql":     "mysql",
	} {
		d, err := spcall.DialectFor(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, d.Name())
	}

	_, err := spcall.DialectFor("sqlite")
	assert.EqualError(t, err, `unknown dialect "sqlite"`)
}

func TestNamedArgs(t *testing.T) {
	ps := params(map[string]any{"@orderId": 42, "@customer": "ACME"}, "@orderId", "@customer")
	args, err := spcall.MSSQL{}.Args(ps)
	require.NoError(t, err)
	assert.Equal(t, []any{sql.Named("orderId", 42), sql.Named("customer", "ACME")}, args)

	ps = params(map[string]any{":orderId": 42}, ":orderId")
	args, err = spcall.Oracle{}.Args(ps)
	require.NoError(t, err)
	assert.Equal(t, []any{sql.Named("orderId", 42)}, args)
}

func TestPositionalArgsEncodeTablesAsJSON(t *testing.T) {
	table := spcall.NewTable([]OrderLine{{Sku: "A-1", Qty: 2}}, lineColumns[:2]...)
	ps := params(map[string]any{"@orderId": 42, "@lines": table}, "@orderId", "@lines")

	for _, d := range []spcall.Dialect{spcall.Postgres{}, spcall.MySQL{}, spcall.OracleRefCursor{}} {
		args, err := d.Args(ps)
		require.NoError(t, err, d.Name())
		require.Len(t, args, 2)
		assert.Equal(t, 42, args[0])
		assert.JSONEq(t, `[{"sku":"A-1","qty":2}]`, args[1].(string))
	}
}

func TestMSSQLTableValuedParameter(t *testing.T) {
	table := spcall.NewTable([]OrderLine{
		{Sku: "A-1", Qty: 2},
		{Sku: "B-2", Qty: 1, Discount: floatPtr(0.5)},
	}, lineColumns...)
	ps := params(map[string]any{"@lines": table}, "@lines")

	_, err := spcall.MSSQL{}.Args(ps)
	assert.EqualError(t, err, "no table type declared for parameter @lines")

	d := spcall.MSSQL{TableTypes: map[string]string{"@lines": "dbo.OrderLineType"}}
	args, err := d.Args(ps)
	require.NoError(t, err)
	require.Len(t, args, 1)

	named := args[0].(sql.NamedArg)
	assert.Equal(t, "lines", named.Name)
	tvp, ok := named.Value.(mssql.TVP)
	require.True(t, ok)
	assert.Equal(t, "dbo.OrderLineType", tvp.TypeName)

	rows := reflect.ValueOf(tvp.Value)
	require.Equal(t, reflect.Slice, rows.Kind())
	require.Equal(t, 2, rows.Len())
	assert.Equal(t, "A-1", rows.Index(0).Field(0).String())
	assert.Equal(t, int64(2), rows.Index(0).Field(1).Int())
	assert.True(t, rows.Index(0).Field(2).IsNil())
	assert.Equal(t, 0.5, rows.Index(1).Field(2).Elem().Float())
}
