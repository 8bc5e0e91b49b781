package core

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	ora "github.com/sijms/go-ora/v2"
	"go.uber.org/multierr"
)

// DataSet is one materialized cursor, as returned by ora.RefCursor.Query.
type DataSet interface {
	Columns() []string
	Next(dest []driver.Value) error
	Close() error
}

// DataSource opens the rows of one result set.
type DataSource interface {
	Query() (DataSet, error)
	Close() error
}

type refCursor struct {
	cursor *ora.RefCursor
}

func (r refCursor) Query() (DataSet, error) {
	ds, err := r.cursor.Query()
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func (r refCursor) Close() error {
	return r.cursor.Close()
}

// CursorSets reads a fixed list of result sets in order.
type CursorSets struct {
	sources []DataSource
	current int
	err     error
}

func NewCursorSets(sources ...DataSource) *CursorSets {
	return &CursorSets{sources: sources}
}

// QueryCursors runs spName with one ref cursor out parameter per result set,
// ahead of args, and returns the cursors ready to be read.
func QueryCursors(ctx context.Context, ex sqlx.ExecerContext, spName string, sets int, args ...any) (*CursorSets, error) {
	cursors := make([]ora.RefCursor, sets)
	cmdText := buildCmdText(spName, sets, len(args))
	execArgs := buildExecutionArguments(cursors, args...)

	if _, err := ex.ExecContext(ctx, cmdText, execArgs...); err != nil {
		return nil, errors.WithStack(err)
	}

	sources := make([]DataSource, sets)
	for i := range cursors {
		sources[i] = refCursor{cursor: &cursors[i]}
	}
	return NewCursorSets(sources...), nil
}

// Scan materializes the current result set into dest, a pointer to a slice.
func (c *CursorSets) Scan(dest any) error {
	if c.current >= len(c.sources) {
		return nil
	}
	ds, err := c.sources[c.current].Query()
	if err != nil {
		c.err = err
		return errors.WithStack(err)
	}
	cols := ds.Columns()
	allRows, err := populateRows(ds, make([]driver.Value, len(cols)))
	if err == nil {
		err = mapToSlice(dest, cols, allRows)
	}
	err = multierr.Append(err, ds.Close())
	if err != nil {
		c.err = err
	}
	return err
}

func (c *CursorSets) NextResultSet() bool {
	if c.current+1 >= len(c.sources) {
		return false
	}
	c.current++
	return true
}

func (c *CursorSets) Err() error {
	return c.err
}

func (c *CursorSets) Close() error {
	var err error
	for _, src := range c.sources {
		err = multierr.Append(err, src.Close())
	}
	return err
}

func populateRows(cursor DataSet, rows []driver.Value) ([][]driver.Value, error) {
	var allRows [][]driver.Value
	for {
		if err := cursor.Next(rows); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.WithStack(err)
		}
		newRow := make([]driver.Value, len(rows))
		copy(newRow, rows)
		allRows = append(allRows, newRow)
	}
	return allRows, nil
}

func mapToSlice(slicePtr any, cols []string, allRows [][]driver.Value) error {
	slicePtrValue := reflect.ValueOf(slicePtr)
	if slicePtrValue.Kind() != reflect.Pointer || slicePtrValue.Elem().Kind() != reflect.Slice {
		return errors.Errorf("expected a pointer to a slice, got %T", slicePtr)
	}
	sliceValue := slicePtrValue.Elem()
	elemType := sliceValue.Type().Elem()

	for _, val := range allRows {
		if val == nil {
			continue
		}
		newElem := reflect.New(elemType).Elem()
		var err error
		if elemType.Kind() == reflect.Struct {
			err = mapTo(newElem, cols, val)
		} else if len(val) == 1 {
			err = assign(newElem, val[0])
		} else {
			err = errors.Errorf("cannot scan %d columns into %s", len(val), elemType)
		}
		if err != nil {
			return err
		}
		sliceValue.Set(reflect.Append(sliceValue, newElem))
	}
	return nil
}

func mapTo(v reflect.Value, cols []string, dests []driver.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		structField := v.Field(i)
		if !structField.CanSet() {
			continue
		}
		posInCol := columnIndex(field, cols)
		if posInCol < 0 {
			continue
		}
		if err := assign(structField, dests[posInCol]); err != nil {
			return errors.Wrapf(err, "column %s", cols[posInCol])
		}
	}
	return nil
}

// columnIndex finds the column for field: the db tag, then the oracle tag,
// then the field name compared case-insensitively.
func columnIndex(field reflect.StructField, cols []string) int {
	name := field.Name
	for _, key := range []string{"db", "oracle"} {
		if tag, ok := field.Tag.Lookup(key); ok {
			tagValue := strings.Split(tag, ",")[0]
			if tagValue == "-" {
				return -1
			}
			if tagValue != "" {
				name = tagValue
				break
			}
		}
	}
	for j, elem := range cols {
		if strings.EqualFold(elem, name) {
			return j
		}
	}
	return -1
}

func assign(dest reflect.Value, value driver.Value) error {
	if value == nil {
		dest.Set(reflect.Zero(dest.Type()))
		return nil
	}
	fieldType := dest.Type()
	if fieldType.Kind() == reflect.Pointer {
		inner := reflect.New(fieldType.Elem())
		if err := fieldStrategyByType(fieldType.Elem(), value, inner.Elem()); err != nil {
			return err
		}
		dest.Set(inner)
		return nil
	}
	return fieldStrategyByType(fieldType, value, dest)
}

func buildExecutionArguments(cursors []ora.RefCursor, args ...any) []any {
	execArgs := make([]any, len(cursors)+len(args))
	for i := range cursors {
		execArgs[i] = sql.Out{Dest: &cursors[i]}
	}
	copy(execArgs[len(cursors):], args)
	return execArgs
}

func buildCmdText(spName string, cursors, args int) string {
	marks := make([]string, cursors+args)
	for i := range marks {
		marks[i] = fmt.Sprintf(":%d", i+1)
	}
	return fmt.Sprintf("BEGIN %s(%s); END;", spName, strings.Join(marks, ", "))
}

func trimTrailingWhitespace(input string) string {
	if len(input) == 0 {
		return input
	}
	return strings.TrimRight(input, " ")
}

func fieldStrategyByType(fieldType reflect.Type, value driver.Value, destValue reflect.Value) error {
	kind := fieldType.Kind()
	switch value := value.(type) {
	case string:
		switch {
		case isInt(kind):
			desInt, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil {
				return errors.WithStack(err)
			}
			destValue.SetInt(desInt)
		case kind == reflect.String:
			destValue.SetString(trimTrailingWhitespace(value))
		case kind == reflect.Bool:
			if value == "S" || value == "N" {
				destValue.SetBool(value == "S")
			}
		case kind == reflect.Float32 || kind == reflect.Float64:
			f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return errors.WithStack(err)
			}
			destValue.SetFloat(f)
		}
	case []byte:
		return fieldStrategyByType(fieldType, string(value), destValue)
	case int64:
		switch {
		case isInt(kind):
			destValue.SetInt(value)
		case kind == reflect.Float32 || kind == reflect.Float64:
			destValue.SetFloat(float64(value))
		case kind == reflect.Bool:
			destValue.SetBool(value != 0)
		case kind == reflect.String:
			destValue.SetString(strconv.FormatInt(value, 10))
		}
	case float64:
		switch {
		case kind == reflect.Float32 || kind == reflect.Float64:
			destValue.SetFloat(value)
		case isInt(kind):
			destValue.SetInt(int64(value))
		case kind == reflect.String:
			destValue.SetString(strconv.FormatFloat(value, 'f', -1, 64))
		}
	case bool:
		if kind == reflect.Bool {
			destValue.SetBool(value)
		} else if kind == reflect.String {
			destValue.SetString(strconv.FormatBool(value))
		}
	case time.Time:
		if fieldType == reflect.TypeOf(time.Time{}) {
			destValue.Set(reflect.ValueOf(value))
		} else if kind == reflect.String {
			destValue.SetString(value.Format(time.RFC3339))
		}
	default:
		return errors.Errorf("unhandled type: %T", value)
	}
	return nil
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}
