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

// Package script compiles pivot aggregators from Go source using the yaegi
// interpreter, so values_fn can be supplied at run time.
//
// A script defines a function named Aggregate with one of the signatures
//
//	func Aggregate(values []interface{}) interface{}
//	func Aggregate(values []float64) float64
//
// The package clause is optional. Values are passed as plain Go values:
// nil for nulls, int64, float64, string, bool, time.Time, []byte and
// []interface{} for lists. Decimals are passed as float64.
package script

import (
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/magpierre/pivotwider/datatable"
	"github.com/magpierre/pivotwider/pivot"
)

// FuncName is the function a script must define.
const FuncName = "Aggregate"

const defaultPackage = "agg"

var (
	// ErrNoAggregate is returned when a script does not define Aggregate.
	ErrNoAggregate = errors.New("script: Aggregate is not defined")

	// ErrSignature is returned when Aggregate has an unsupported signature.
	ErrSignature = errors.New("script: unsupported Aggregate signature")
)

// Aggregator is a pivot.Aggregator backed by interpreted Go code.
type Aggregator struct {
	generic func([]interface{}) interface{}
	numeric func([]float64) float64
}

// Compile interprets src and returns its Aggregate function.
func Compile(src string) (*Aggregator, error) {
	pkg, src := packageName(src)

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib: %w", err)
	}
	if _, err := i.Eval(src); err != nil {
		return nil, fmt.Errorf("failed to compile script: %w", err)
	}

	v, err := i.Eval(pkg + "." + FuncName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAggregate, err)
	}

	switch fn := v.Interface().(type) {
	case func([]interface{}) interface{}:
		return &Aggregator{generic: fn}, nil
	case func([]float64) float64:
		return &Aggregator{numeric: fn}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrSignature, fn)
	}
}

// Load compiles the script stored at path.
func Load(path string) (*Aggregator, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Compile(string(src))
}

// Aggregate implements pivot.Aggregator. A panic in the script is returned
// as an error.
func (a *Aggregator) Aggregate(values []datatable.Value) (out datatable.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("script panicked: %v", r)
		}
	}()

	if a.numeric != nil {
		floats := make([]float64, len(values))
		for i, v := range values {
			if v.IsNull {
				return datatable.NewNullValue(datatable.TypeFloat), nil
			}
			f, err := datatable.Cast(v, datatable.TypeFloat)
			if err != nil {
				return datatable.Value{}, err
			}
			floats[i] = f.Raw.(float64)
		}
		return datatable.NewValue(a.numeric(floats), datatable.TypeFloat), nil
	}

	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = plain(v)
	}
	result, err := datatable.ValueOf(a.generic(args))
	if err != nil {
		return datatable.Value{}, fmt.Errorf("script result: %w", err)
	}
	return result, nil
}

var _ pivot.Aggregator = (*Aggregator)(nil)

// packageName returns the package the script declares, adding a package
// clause when there is none.
func packageName(src string) (string, string) {
	f, err := parser.ParseFile(token.NewFileSet(), "", src, parser.PackageClauseOnly)
	if err == nil && f.Name != nil {
		return f.Name.Name, src
	}
	return defaultPackage, "package " + defaultPackage + "\n\n" + src
}

// plain converts a value to the Go value handed to scripts.
func plain(v datatable.Value) interface{} {
	if v.IsNull {
		return nil
	}
	switch v.Type {
	case datatable.TypeDecimal:
		return v.Raw.(decimal.Decimal).InexactFloat64()
	case datatable.TypeDate, datatable.TypeTimestamp:
		return v.Raw.(time.Time)
	case datatable.TypeList:
		elems := v.List()
		out := make([]interface{}, len(elems))
		for i, e := range elems {
			out[i] = plain(e)
		}
		return out
	}
	return v.Raw
}
