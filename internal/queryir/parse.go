package queryir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/prequel/internal/ir"
)

// operators in match order; two-character forms first.
var whereOps = []struct {
	tok  string
	make func(field string, v ir.Value) Predicate
}{
	{"!=", func(f string, v ir.Value) Predicate { return NotEquals{Field: f, Value: Lit(v)} }},
	{"=", func(f string, v ir.Value) Predicate { return Equals{Field: f, Value: Lit(v)} }},
	{"<", func(f string, v ir.Value) Predicate { return Less{Field: f, Value: Lit(v)} }},
	{">", func(f string, v ir.Value) Predicate { return Greater{Field: f, Value: Lit(v)} }},
	{"~", func(f string, v ir.Value) Predicate { return Matches{Field: f, Pattern: Lit(v)} }},
}

// ParseWhere parses the command-line filter form "field<op>value", where op
// is one of = != < > ~. Several clauses may be given; they are ANDed.
//
// Values are typed loosely: null, true, false and integers become their
// respective kinds, a double-quoted value is always a string, and anything
// else is a bare string.
func ParseWhere(clauses ...string) (Predicate, error) {
	if len(clauses) == 0 {
		return nil, nil
	}
	preds := make([]Predicate, 0, len(clauses))
	for _, c := range clauses {
		p, err := parseClause(c)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return And{Predicates: preds}, nil
}

func parseClause(clause string) (Predicate, error) {
	best, bestAt := -1, -1
	for i, op := range whereOps {
		at := strings.Index(clause, op.tok)
		if at < 0 {
			continue
		}
		// earliest operator wins; on a tie the longer token (listed first) wins
		if bestAt < 0 || at < bestAt {
			best, bestAt = i, at
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("invalid filter %q: expected field<op>value with op one of = != < > ~", clause)
	}

	op := whereOps[best]
	field := strings.TrimSpace(clause[:bestAt])
	if field == "" {
		return nil, fmt.Errorf("invalid filter %q: missing field", clause)
	}
	raw := strings.TrimSpace(clause[bestAt+len(op.tok):])

	var v ir.Value
	if op.tok == "~" {
		v = ir.String(unquote(raw))
	} else {
		v = parseLiteral(raw)
	}
	return op.make(field, v), nil
}

func parseLiteral(raw string) ir.Value {
	switch raw {
	case "null":
		return ir.Null{}
	case "true":
		return ir.Bool(true)
	case "false":
		return ir.Bool(false)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ir.Int(n)
	}
	return ir.String(unquote(raw))
}

func unquote(raw string) string {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		if s, err := strconv.Unquote(raw); err == nil {
			return s
		}
		return raw[1 : len(raw)-1]
	}
	return raw
}
