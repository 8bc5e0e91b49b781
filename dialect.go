package spcall

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ignaciocaff/spcall/internal/core"
)

// Dialect turns a procedure name and its parameters into command text and
// driver arguments.
type Dialect interface {
	Name() string
	// Marker is the prefix of bind tokens, "" for positional dialects.
	// Parameter names reach CallText and Args already carrying it.
	Marker() string
	// CallText is the text form used by the no-result and single-set calls.
	CallText(name string, params []*Parameter) string
	// ProcedureText is the stored-procedure command used by the multi-set calls.
	ProcedureText(name string, params []*Parameter) string
	Args(params []*Parameter) ([]any, error)
}

// cursorQuerier is implemented by dialects that return result sets through
// cursor out parameters instead of the statement's own rows.
type cursorQuerier interface {
	queryCursors(ctx context.Context, ex sqlx.ExecerContext, name string, params []*Parameter, sets int) (resultSets, error)
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "mssql", "sqlserver":
		return MSSQL{}, nil
	case "oracle", "godror":
		return Oracle{}, nil
	case "go-ora", "oracle-refcursor":
		return OracleRefCursor{}, nil
	case "postgres", "pgx":
		return Postgres{}, nil
	case "mysql":
		return MySQL{}, nil
	}
	return nil, errors.Errorf("unknown dialect %q", name)
}

// DialectForDriver returns the dialect for a database/sql driver name.
// go-ora registers itself as "oracle", godror as "godror".
func DialectForDriver(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlserver", "mssql":
		return MSSQL{}, nil
	case "godror":
		return Oracle{}, nil
	case "oracle":
		return OracleRefCursor{}, nil
	case "pgx", "postgres":
		return Postgres{}, nil
	case "mysql":
		return MySQL{}, nil
	}
	return nil, errors.Errorf("unknown driver %q", driver)
}

// MSSQL targets SQL Server through go-mssqldb. Tables are sent as
// table-valued parameters typed by TableTypes, keyed by parameter name.
type MSSQL struct {
	TableTypes map[string]string
}

func (MSSQL) Name() string   { return "mssql" }
func (MSSQL) Marker() string { return "@" }

func (MSSQL) CallText(name string, params []*Parameter) string {
	if len(params) == 0 {
		return "EXEC " + name
	}
	return "EXEC " + name + " " + joinNames(params)
}

// ProcedureText is the bare name; go-mssqldb sends it as an RPC call.
func (MSSQL) ProcedureText(name string, _ []*Parameter) string {
	return name
}

func (d MSSQL) Args(params []*Parameter) ([]any, error) {
	args := make([]any, len(params))
	for i, p := range params {
		v := p.Value
		if t, ok := v.(*Table); ok {
			tvp, err := d.tvp(p.Name, t)
			if err != nil {
				return nil, err
			}
			v = tvp
		}
		args[i] = sql.Named(strings.TrimPrefix(p.Name, "@"), v)
	}
	return args, nil
}

func (d MSSQL) tvp(param string, t *Table) (mssql.TVP, error) {
	typeName := t.TypeName
	if typeName == "" {
		typeName = d.TableTypes[param]
	}
	if typeName == "" {
		return mssql.TVP{}, errors.Errorf("no table type declared for parameter %s", param)
	}
	fields := make([]reflect.StructField, len(t.Columns))
	for i, c := range t.Columns {
		ft := c.Type
		if c.Nullable {
			ft = reflect.PointerTo(ft)
		}
		fields[i] = reflect.StructField{
			Name: fmt.Sprintf("C%d", i),
			Type: ft,
			Tag:  reflect.StructTag(fmt.Sprintf(`tvp:"%s"`, c.Name)),
		}
	}
	rowType := reflect.StructOf(fields)
	rows := reflect.MakeSlice(reflect.SliceOf(rowType), len(t.Rows), len(t.Rows))
	for i, row := range t.Rows {
		r := rows.Index(i)
		for j, cell := range row {
			if cell == nil {
				continue
			}
			v := reflect.ValueOf(cell)
			if !v.Type().ConvertibleTo(t.Columns[j].Type) {
				return mssql.TVP{}, errors.Errorf("column %s: cannot use %T as %s", t.Columns[j].Name, cell, t.Columns[j].Type)
			}
			v = v.Convert(t.Columns[j].Type)
			if t.Columns[j].Nullable {
				p := reflect.New(t.Columns[j].Type)
				p.Elem().Set(v)
				v = p
			}
			r.Field(j).Set(v)
		}
	}
	return mssql.TVP{TypeName: typeName, Value: rows.Interface()}, nil
}

// Oracle targets godror. Result sets are the implicit results returned by
// DBMS_SQL.RETURN_RESULT.
type Oracle struct{}

func (Oracle) Name() string   { return "oracle" }
func (Oracle) Marker() string { return ":" }

func (Oracle) CallText(name string, params []*Parameter) string {
	return plsqlBlock(name, joinNames(params))
}

func (o Oracle) ProcedureText(name string, params []*Parameter) string {
	return o.CallText(name, params)
}

func (Oracle) Args(params []*Parameter) ([]any, error) {
	return namedJSONArgs(params, ":")
}

// OracleRefCursor targets go-ora. Each result set is a SYS_REFCURSOR out
// parameter placed before the input parameters, all bound by position.
type OracleRefCursor struct{}

func (OracleRefCursor) Name() string   { return "go-ora" }
func (OracleRefCursor) Marker() string { return ":" }

func (OracleRefCursor) CallText(name string, params []*Parameter) string {
	return plsqlBlock(name, placeholders(len(params), func(i int) string {
		return fmt.Sprintf(":%d", i+1)
	}))
}

func (o OracleRefCursor) ProcedureText(name string, params []*Parameter) string {
	return o.CallText(name, params)
}

func (OracleRefCursor) Args(params []*Parameter) ([]any, error) {
	return positionalJSONArgs(params)
}

func (o OracleRefCursor) queryCursors(ctx context.Context, ex sqlx.ExecerContext, name string, params []*Parameter, sets int) (resultSets, error) {
	args, err := o.Args(params)
	if err != nil {
		return nil, err
	}
	cursors, err := core.QueryCursors(ctx, ex, name, sets, args...)
	if err != nil {
		return nil, err
	}
	return cursors, nil
}

// Postgres targets pgx through database/sql. Functions are queried with
// SELECT, procedures are invoked with CALL.
type Postgres struct{}

func (Postgres) Name() string   { return "postgres" }
func (Postgres) Marker() string { return "" }

func (Postgres) CallText(name string, params []*Parameter) string {
	return fmt.Sprintf("SELECT * FROM %s(%s)", name, placeholders(len(params), func(i int) string {
		return fmt.Sprintf("$%d", i+1)
	}))
}

func (Postgres) ProcedureText(name string, params []*Parameter) string {
	return fmt.Sprintf("CALL %s(%s)", name, placeholders(len(params), func(i int) string {
		return fmt.Sprintf("$%d", i+1)
	}))
}

func (Postgres) Args(params []*Parameter) ([]any, error) {
	return positionalJSONArgs(params)
}

// MySQL targets go-sql-driver/mysql.
type MySQL struct{}

func (MySQL) Name() string   { return "mysql" }
func (MySQL) Marker() string { return "" }

func (MySQL) CallText(name string, params []*Parameter) string {
	return fmt.Sprintf("CALL %s(%s)", name, placeholders(len(params), func(int) string { return "?" }))
}

func (m MySQL) ProcedureText(name string, params []*Parameter) string {
	return m.CallText(name, params)
}

func (MySQL) Args(params []*Parameter) ([]any, error) {
	return positionalJSONArgs(params)
}

func plsqlBlock(name, args string) string {
	return fmt.Sprintf("BEGIN %s(%s); END;", name, args)
}

func joinNames(params []*Parameter) string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return strings.Join(names, ",")
}

func placeholders(n int, mark func(int) string) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = mark(i)
	}
	return strings.Join(marks, ", ")
}

func namedJSONArgs(params []*Parameter, marker string) ([]any, error) {
	args := make([]any, len(params))
	for i, p := range params {
		v, err := jsonTable(p.Value)
		if err != nil {
			return nil, err
		}
		args[i] = sql.Named(strings.TrimPrefix(p.Name, marker), v)
	}
	return args, nil
}

func positionalJSONArgs(params []*Parameter) ([]any, error) {
	args := make([]any, len(params))
	for i, p := range params {
		v, err := jsonTable(p.Value)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// jsonTable encodes tables as JSON text for dialects without table-valued
// parameters. Other values pass through.
func jsonTable(v any) (any, error) {
	t, ok := v.(*Table)
	if !ok {
		return v, nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return string(b), nil
}
