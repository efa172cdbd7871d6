package rqlite

// scanner.go maps SQL rows onto Go values with reflection. Both drivers are
// covered: SQLite yields int64/string/[]byte, rqlite yields float64/string.

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// scanIntoDest scans all rows into dest (pointer to slice of structs, maps or scalars).
func scanIntoDest(rows *sql.Rows, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrNotPointer
	}
	sliceVal := rv.Elem()
	if sliceVal.Kind() != reflect.Slice {
		return ErrNotSlice
	}
	elemType := sliceVal.Type().Elem()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	for rows.Next() {
		item := reflect.New(elemType).Elem()
		if err := scanCurrentRow(rows, cols, item); err != nil {
			return err
		}
		sliceVal.Set(reflect.Append(sliceVal, item))
	}
	return rows.Err()
}

// scanIntoSingle scans the current row into dest (pointer to struct, map or scalar).
func scanIntoSingle(rows *sql.Rows, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrNotPointer
	}
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	return scanCurrentRow(rows, cols, rv.Elem())
}

func scanCurrentRow(rows *sql.Rows, cols []string, target reflect.Value) error {
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return err
	}

	switch {
	case target.Kind() == reflect.Map:
		out := make(map[string]any, len(cols))
		for i, c := range cols {
			out[c] = normalizeSQLValue(raw[i])
		}
		target.Set(reflect.ValueOf(out))
		return nil
	case target.Kind() == reflect.Struct && target.Type() != nullStringType && target.Type() != nullInt64Type:
		fieldIndex := buildFieldIndex(target.Type())
		for i, c := range cols {
			idx, ok := fieldIndex[strings.ToLower(c)]
			if !ok {
				continue
			}
			if err := setReflectValue(target.Field(idx), raw[i]); err != nil {
				return fmt.Errorf("column %s: %w", c, err)
			}
		}
		return nil
	default:
		if len(cols) != 1 {
			return fmt.Errorf("scalar destination needs exactly one column, got %d", len(cols))
		}
		return setReflectValue(target, raw[0])
	}
}

// normalizeSQLValue converts SQL values to standard Go types.
func normalizeSQLValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return v
	}
}

// buildFieldIndex creates a map of lowercase column names to field indices.
func buildFieldIndex(t reflect.Type) map[string]int {
	m := make(map[string]int)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		col := strings.Split(f.Tag.Get("db"), ",")[0]
		if col == "-" {
			continue
		}
		if col == "" {
			col = f.Name
		}
		m[strings.ToLower(col)] = i
	}
	return m
}

var (
	nullStringType = reflect.TypeOf(sql.NullString{})
	nullInt64Type  = reflect.TypeOf(sql.NullInt64{})
)

// setReflectValue sets a reflect.Value from a raw SQL value. NULL leaves the zero value.
func setReflectValue(field reflect.Value, raw any) error {
	if raw == nil {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		switch v := raw.(type) {
		case string:
			field.SetString(v)
		case []byte:
			field.SetString(string(v))
		default:
			field.SetString(fmt.Sprint(v))
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(raw)
		if err != nil {
			return err
		}
		if field.OverflowInt(n) {
			return fmt.Errorf("value %d overflows %s", n, field.Type())
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt64(raw)
		if err != nil {
			return err
		}
		if n < 0 || field.OverflowUint(uint64(n)) {
			return fmt.Errorf("value %d does not fit %s", n, field.Type())
		}
		field.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		switch v := raw.(type) {
		case float64:
			field.SetFloat(v)
		case int64:
			field.SetFloat(float64(v))
		default:
			f, err := strconv.ParseFloat(fmt.Sprint(normalizeSQLValue(v)), 64)
			if err != nil {
				return fmt.Errorf("cannot convert %T to float", raw)
			}
			field.SetFloat(f)
		}
	case reflect.Bool:
		n, err := toInt64(raw)
		if err != nil {
			if b, ok := raw.(bool); ok {
				field.SetBool(b)
				return nil
			}
			return err
		}
		field.SetBool(n != 0)
	case reflect.Struct:
		switch field.Type() {
		case nullStringType:
			var s string
			if err := setReflectValue(reflect.ValueOf(&s).Elem(), raw); err != nil {
				return err
			}
			field.Set(reflect.ValueOf(sql.NullString{String: s, Valid: true}))
		case nullInt64Type:
			n, err := toInt64(raw)
			if err != nil {
				return err
			}
			field.Set(reflect.ValueOf(sql.NullInt64{Int64: n, Valid: true}))
		default:
			return fmt.Errorf("unsupported struct field type %s", field.Type())
		}
	case reflect.Ptr:
		elem := reflect.New(field.Type().Elem())
		if err := setReflectValue(elem.Elem(), raw); err != nil {
			return err
		}
		field.Set(elem)
	default:
		return fmt.Errorf("unsupported dest field kind: %s", field.Kind())
	}
	return nil
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		// RQLite/JSON returns numbers as float64
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("value %v is not an integer", v)
		}
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to int", raw)
	}
}
