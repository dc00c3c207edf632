package querysql

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/prequel/internal/ir"
	"github.com/roach88/prequel/internal/queryir"
)

// ErrUnsupported marks predicates that have no SQL rendering. Callers fall
// back to in-memory evaluation with queryir.Eval.
var ErrUnsupported = errors.New("unsupported in SQL")

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// The records table stores attributes as a canonical JSON object, so every
// attribute read goes through json_type/json_extract. The compiled filter
// agrees with queryir.Eval on every input, including cross-kind comparisons.
//
// All values are parameterized, attribute paths included. Every query
// carries an ORDER BY with a unique tiebreaker.
type SQLCompiler struct {
	// Args binds scope parameters referenced by the filter.
	Args queryir.Args
}

// NewSQLCompiler creates a compiler with the given bound arguments.
func NewSQLCompiler(args queryir.Args) *SQLCompiler {
	return &SQLCompiler{Args: args}
}

// Compile converts a query to (sql, params). The statement selects
// record_key values in insertion order.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	if q.From == "" {
		return "", nil, fmt.Errorf("select: model name is required")
	}
	params := []any{q.From}

	var where string
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		where = " AND (" + filterSQL + ")"
		params = append(params, filterParams...)
	}

	sql := "SELECT record_key FROM records WHERE model = ?" + where + " ORDER BY " + stableOrderKey()
	return sql, params, nil
}

// stableOrderKey is insertion order with the key as a unique tiebreaker.
func stableOrderKey() string {
	return "seq ASC, record_key COLLATE BINARY ASC"
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}

	switch pred := p.(type) {
	case queryir.Equals:
		v, err := c.resolve(pred.Value)
		if err != nil {
			return "", nil, err
		}
		return compileEquals(pred.Field, v)
	case queryir.NotEquals:
		v, err := c.resolve(pred.Value)
		if err != nil {
			return "", nil, err
		}
		sql, params, err := compileEquals(pred.Field, v)
		if err != nil {
			return "", nil, err
		}
		return negate(sql), params, nil
	case queryir.Less:
		v, err := c.resolve(pred.Value)
		if err != nil {
			return "", nil, err
		}
		return compileOrdered(pred.Field, v, "<")
	case queryir.Greater:
		v, err := c.resolve(pred.Value)
		if err != nil {
			return "", nil, err
		}
		return compileOrdered(pred.Field, v, ">")
	case queryir.Matches:
		return c.compileMatches(pred)
	case queryir.And:
		return c.compileJunction(pred.Predicates, " AND ", "1 = 1")
	case queryir.Or:
		return c.compileJunction(pred.Predicates, " OR ", "1 = 0")
	case queryir.Not:
		if pred.Predicate == nil {
			return "", nil, fmt.Errorf("not: missing predicate")
		}
		sql, params, err := c.compilePredicate(pred.Predicate)
		if err != nil {
			return "", nil, err
		}
		return negate(sql), params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) resolve(o queryir.Operand) (ir.Value, error) {
	if !o.IsParam() {
		if o.Value == nil {
			return ir.Null{}, nil
		}
		return o.Value, nil
	}
	v, ok := c.Args[o.Param]
	if !ok {
		return nil, fmt.Errorf("unbound parameter %q", o.Param)
	}
	return v, nil
}

func (c *SQLCompiler) compileJunction(preds []queryir.Predicate, sep, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(preds))
	var all []any
	for _, p := range preds {
		sql, params, err := c.compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sql+")")
		all = append(all, params...)
	}
	return strings.Join(parts, sep), all, nil
}

func (c *SQLCompiler) compileMatches(m queryir.Matches) (string, []any, error) {
	v, err := c.resolve(m.Pattern)
	if err != nil {
		return "", nil, err
	}
	s, ok := v.(ir.String)
	if !ok {
		return "", nil, fmt.Errorf("matches %s: pattern must be a string, got %T", m.Field, v)
	}
	if _, err := regexp.Compile(string(s)); err != nil {
		return "", nil, fmt.Errorf("matches %s: %w", m.Field, err)
	}
	path, err := jsonPath(m.Field)
	if err != nil {
		return "", nil, err
	}
	sql := "json_type(attrs, ?) = 'text' AND regexp(?, json_extract(attrs, ?))"
	return sql, []any{path, string(s), path}, nil
}

// compileEquals matches a value of the same kind and content. Null matches
// both a stored null and a missing attribute.
func compileEquals(field string, v ir.Value) (string, []any, error) {
	path, err := jsonPath(field)
	if err != nil {
		return "", nil, err
	}
	rank, err := kindRank(v)
	if err != nil {
		return "", nil, err
	}
	if rank == 0 {
		return rankExpr + " = 0", []any{path}, nil
	}
	param, err := irValueToParam(v)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("%s = %d AND json_extract(attrs, ?) = ?", rankExpr, rank)
	return sql, []any{path, path, param}, nil
}

// compileOrdered mirrors ir.Compare: kinds order first, then values of the
// same kind compare naturally. A missing or null attribute never matches.
func compileOrdered(field string, v ir.Value, op string) (string, []any, error) {
	path, err := jsonPath(field)
	if err != nil {
		return "", nil, err
	}
	rank, err := kindRank(v)
	if err != nil {
		return "", nil, err
	}
	if rank == 0 {
		if op == "<" {
			return "1 = 0", nil, nil
		}
		return rankExpr + " > 0", []any{path}, nil
	}
	param, err := irValueToParam(v)
	if err != nil {
		return "", nil, err
	}

	var sql string
	if op == "<" {
		sql = fmt.Sprintf("%s BETWEEN 1 AND %d AND (%s < %d OR json_extract(attrs, ?) < ?)",
			rankExpr, rank, rankExpr, rank)
	} else {
		sql = fmt.Sprintf("%s >= %d AND (%s > %d OR json_extract(attrs, ?) > ?)",
			rankExpr, rank, rankExpr, rank)
	}
	return sql, []any{path, path, path, param}, nil
}

// rankExpr computes the kind rank of the attribute at the bound path, using
// the same order as ir.Compare: null/missing, bool, int, string.
const rankExpr = "(CASE COALESCE(json_type(attrs, ?), 'null')" +
	" WHEN 'null' THEN 0 WHEN 'true' THEN 1 WHEN 'false' THEN 1" +
	" WHEN 'integer' THEN 2 WHEN 'text' THEN 3 WHEN 'array' THEN 4" +
	" WHEN 'object' THEN 5 ELSE 6 END)"

func kindRank(v ir.Value) (int, error) {
	switch v.(type) {
	case nil, ir.Null:
		return 0, nil
	case ir.Bool:
		return 1, nil
	case ir.Int:
		return 2, nil
	case ir.String:
		return 3, nil
	case ir.Array, ir.Object:
		return 0, fmt.Errorf("%w: %T operand", ErrUnsupported, v)
	default:
		return 0, fmt.Errorf("unsupported value type: %T", v)
	}
}

// negate inverts a fragment, treating SQL NULL as false first.
func negate(sql string) string {
	return "NOT COALESCE((" + sql + "), 0)"
}

// jsonPath renders the SQLite JSON path for a top-level attribute.
func jsonPath(field string) (string, error) {
	if field == "" {
		return "", fmt.Errorf("empty attribute name")
	}
	if strings.ContainsAny(field, "\"\\") {
		return "", fmt.Errorf("%w: attribute name %q", ErrUnsupported, field)
	}
	return `$."` + field + `"`, nil
}

// irValueToParam converts a scalar value to a driver parameter. Bools are
// passed as 0/1, which is what json_extract yields for JSON booleans.
func irValueToParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case ir.Bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case ir.Null:
		return nil, nil
	case ir.Array:
		return nil, fmt.Errorf("%w: array parameter", ErrUnsupported)
	case ir.Object:
		return nil, fmt.Errorf("%w: object parameter", ErrUnsupported)
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
