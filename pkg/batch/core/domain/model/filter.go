package model

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
)

// Operator is a comparison operator of a filter condition.
type Operator string

const (
	OpEq    Operator = "="
	OpNe    Operator = "!="
	OpLt    Operator = "<"
	OpLe    Operator = "<="
	OpGt    Operator = ">"
	OpGe    Operator = ">="
	OpIn    Operator = "in"
	OpNotIn Operator = "notin"
	OpLike  Operator = "like"
)

// IsOrdering reports whether the operator compares by order rather than equality.
func (o Operator) IsOrdering() bool {
	switch o {
	case OpLt, OpLe, OpGt, OpGe:
		return true
	default:
		return false
	}
}

func (o Operator) isKeyword() bool {
	return o == OpIn || o == OpNotIn || o == OpLike
}

// Condition restricts one column. Values holds one entry except for in/notin.
type Condition struct {
	Column   string
	Operator Operator
	Values   []string
}

// String renders the condition in the form accepted by ParseCondition.
func (c Condition) String() string {
	if c.Operator.isKeyword() {
		return fmt.Sprintf("%s %s %s", c.Column, c.Operator, strings.Join(c.Values, ","))
	}
	value := ""
	if len(c.Values) > 0 {
		value = c.Values[0]
	}
	return c.Column + string(c.Operator) + value
}

// Filter is a conjunction of conditions. The zero value selects every row.
type Filter struct {
	Conditions []Condition
}

// IsEmpty reports whether the filter has no conditions.
func (f Filter) IsEmpty() bool {
	return len(f.Conditions) == 0
}

// String renders the filter as conditions joined by " AND ".
func (f Filter) String() string {
	parts := make([]string, len(f.Conditions))
	for i, c := range f.Conditions {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}

var (
	keywordCondition  = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s+(?i:(notin|in|like))\s+(.+?)\s*$`)
	symbolicCondition = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*(<=|>=|!=|=|<|>)\s*(.*?)\s*$`)
	conjunction       = regexp.MustCompile(`(?i)\s+AND\s+`)
)

// ParseCondition parses "col<op>value" or "col in|notin|like values".
func ParseCondition(expr string) (Condition, error) {
	if m := keywordCondition.FindStringSubmatch(expr); m != nil {
		op := Operator(strings.ToLower(m[2]))
		var values []string
		if op == OpLike {
			values = []string{unquote(m[3])}
		} else {
			for _, v := range strings.Split(m[3], ",") {
				values = append(values, unquote(strings.TrimSpace(v)))
			}
		}
		return Condition{Column: m[1], Operator: op, Values: values}, nil
	}
	if m := symbolicCondition.FindStringSubmatch(expr); m != nil {
		return Condition{Column: m[1], Operator: Operator(m[2]), Values: []string{unquote(m[3])}}, nil
	}
	return Condition{}, exception.NewInvalidFilterError("filter", fmt.Sprintf("cannot parse condition '%s'", expr))
}

// ParseFilter parses each expression, which may itself hold several conditions joined by AND.
func ParseFilter(exprs []string) (Filter, error) {
	var f Filter
	for _, expr := range exprs {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		for _, part := range conjunction.Split(expr, -1) {
			c, err := ParseCondition(part)
			if err != nil {
				return Filter{}, err
			}
			f.Conditions = append(f.Conditions, c)
		}
	}
	return f, nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '\'' && v[len(v)-1] == '\'') || (v[0] == '"' && v[len(v)-1] == '"') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
