// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/magpierre/pivotwider/datatable"
)

// Comparison operators
type CompOp int

const (
	OpEqual CompOp = iota
	OpNotEqual
	OpGreater
	OpLess
	OpGreaterEqual
	OpLessEqual
	OpContains
)

// Attribute names a column property an expression can test.
type Attribute string

const (
	AttrName     Attribute = "name"
	AttrType     Attribute = "type"
	AttrPosition Attribute = "position"
)

// Expression represents a single comparison
type Expression struct {
	Attribute Attribute
	Operator  CompOp
	Value     string
}

// Query represents a complete query with multiple expressions.
// Logic operators are applied left to right without precedence.
type Query struct {
	Expressions []Expression
	LogicOps    []LogicOp // Operations between expressions
}

// ParseExpression compiles a column selection expression such as
//
//	type = Float AND name ~ est
//	position >= 2 OR name = id
//
// into a selector. A term without an operator selects columns whose name
// contains it. The result selects columns in table order.
func ParseExpression(exprStr string) (*PredicateSelector, error) {
	query, err := ParseQuery(exprStr)
	if err != nil {
		return nil, err
	}
	return &PredicateSelector{
		Match: func(info ColumnInfo) bool { return query.Evaluate(info) },
		Label: strings.TrimSpace(exprStr),
	}, nil
}

// ParseQuery parses a query string into a Query structure
func ParseQuery(queryStr string) (*Query, error) {
	if strings.TrimSpace(queryStr) == "" {
		return nil, fmt.Errorf("%w: empty expression", datatable.ErrInvalidFilter)
	}

	query := &Query{
		Expressions: make([]Expression, 0),
		LogicOps:    make([]LogicOp, 0),
	}

	// Split by AND/OR (case-insensitive)
	for _, part := range splitByLogicOps(queryStr) {
		if part.isOperator {
			if strings.ToUpper(part.text) == "AND" {
				query.LogicOps = append(query.LogicOps, LogicAND)
			} else {
				query.LogicOps = append(query.LogicOps, LogicOR)
			}
			continue
		}
		expr, err := parseExpression(part.text)
		if err != nil {
			return nil, err
		}
		query.Expressions = append(query.Expressions, expr)
	}

	// Validate: should have N expressions and N-1 operators
	if len(query.Expressions) == 0 || len(query.LogicOps) != len(query.Expressions)-1 {
		return nil, fmt.Errorf("%w: mismatched expressions and operators in %q",
			datatable.ErrInvalidFilter, queryStr)
	}

	return query, nil
}

type queryPart struct {
	text       string
	isOperator bool
}

// splitByLogicOps splits query by AND/OR while preserving the operators
func splitByLogicOps(query string) []queryPart {
	parts := make([]queryPart, 0)
	var current strings.Builder
	i := 0

	flush := func() {
		if text := strings.TrimSpace(current.String()); text != "" {
			parts = append(parts, queryPart{text: text})
		}
		current.Reset()
	}

	for i < len(query) {
		matched := false
		for _, op := range []string{"AND", "OR"} {
			n := len(op)
			if i+n <= len(query) && strings.ToUpper(query[i:i+n]) == op &&
				(i == 0 || isWhitespace(query[i-1])) && (i+n >= len(query) || isWhitespace(query[i+n])) {
				flush()
				parts = append(parts, queryPart{text: op, isOperator: true})
				i += n
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		current.WriteByte(query[i])
		i++
	}
	flush()

	return parts
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// parseExpression parses a single expression like "type = Float"
func parseExpression(exprStr string) (Expression, error) {
	exprStr = strings.TrimSpace(exprStr)

	// Try to find operators (in order of length to match >= before =)
	operators := []struct {
		op     CompOp
		symbol string
	}{
		{OpGreaterEqual, ">="},
		{OpLessEqual, "<="},
		{OpNotEqual, "!="},
		{OpEqual, "="},
		{OpGreater, ">"},
		{OpLess, "<"},
		{OpContains, "~"}, // Use ~ for contains
	}

	for _, opInfo := range operators {
		idx := strings.Index(exprStr, opInfo.symbol)
		if idx <= 0 {
			continue
		}
		attr := Attribute(strings.ToLower(strings.TrimSpace(exprStr[:idx])))
		value := strings.TrimSpace(exprStr[idx+len(opInfo.symbol):])

		// Remove quotes from value if present
		value = strings.Trim(value, "\"'")

		switch attr {
		case AttrName:
		case AttrType:
			if _, err := datatable.ParseDataType(value); err != nil {
				return Expression{}, fmt.Errorf("%w: %v", datatable.ErrInvalidFilter, err)
			}
		case AttrPosition, "pos":
			attr = AttrPosition
			if _, err := strconv.Atoi(value); err != nil {
				return Expression{}, fmt.Errorf("%w: position %q is not an integer", datatable.ErrInvalidFilter, value)
			}
		default:
			return Expression{}, fmt.Errorf("%w: unknown attribute %q", datatable.ErrInvalidFilter, attr)
		}

		return Expression{Attribute: attr, Operator: opInfo.op, Value: value}, nil
	}

	// If no operator found, treat as a contains search on the name
	return Expression{
		Attribute: AttrName,
		Operator:  OpContains,
		Value:     strings.Trim(exprStr, "\"'"),
	}, nil
}

// Evaluate evaluates the query against one column.
func (q *Query) Evaluate(info ColumnInfo) bool {
	if q == nil || len(q.Expressions) == 0 {
		return true // Empty query matches all
	}

	result := evaluateExpression(q.Expressions[0], info)

	// Apply logical operators
	for i := 0; i < len(q.LogicOps); i++ {
		nextResult := evaluateExpression(q.Expressions[i+1], info)

		switch q.LogicOps[i] {
		case LogicAND:
			result = result && nextResult
		case LogicOR:
			result = result || nextResult
		}
	}

	return result
}

// evaluateExpression evaluates a single expression against a column
func evaluateExpression(expr Expression, info ColumnInfo) bool {
	switch expr.Attribute {
	case AttrPosition:
		want, _ := strconv.Atoi(expr.Value)
		return compareInt(info.Position, want, expr.Operator)
	case AttrType:
		return compareString(info.Type.String(), expr.Value, expr.Operator)
	default:
		return compareString(info.Name, expr.Value, expr.Operator)
	}
}

func compareInt(got, want int, op CompOp) bool {
	switch op {
	case OpEqual:
		return got == want
	case OpNotEqual:
		return got != want
	case OpGreater:
		return got > want
	case OpLess:
		return got < want
	case OpGreaterEqual:
		return got >= want
	case OpLessEqual:
		return got <= want
	case OpContains:
		return strings.Contains(strconv.Itoa(got), strconv.Itoa(want))
	}
	return false
}

// compareString compares two strings case-insensitively
func compareString(cellValue, compareValue string, op CompOp) bool {
	switch op {
	case OpEqual:
		return strings.EqualFold(cellValue, compareValue)
	case OpNotEqual:
		return !strings.EqualFold(cellValue, compareValue)
	case OpContains:
		return strings.Contains(strings.ToLower(cellValue), strings.ToLower(compareValue))
	}

	cmp := strings.Compare(strings.ToLower(cellValue), strings.ToLower(compareValue))
	switch op {
	case OpGreater:
		return cmp > 0
	case OpLess:
		return cmp < 0
	case OpGreaterEqual:
		return cmp >= 0
	case OpLessEqual:
		return cmp <= 0
	}

	return false
}
