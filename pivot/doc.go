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

// Package pivot reshapes long tables into wide ones.
//
// A long table holds one observation per row: some id columns, one or more
// names_from columns naming the measured variable and one or more
// values_from columns holding its value. Wider turns every distinct id tuple
// into a row and every distinct names_from combination into a column:
//
//	id  name  value            id  a   b
//	1   a     10        =>     1   10  20
//	1   b     20               2   30  NA
//	2   a     30
//
// The reshape is driven by a Spec, one entry per output column, which
// BuildSpec derives from the data or which the caller supplies with WithSpec.
// Wider runs in four stages:
//
//  1. rows: distinct id tuples in first-occurrence order
//  2. columns: each input row matched to a spec entry per value column
//  3. cells: contributors grouped per cell and summarised by an Aggregator
//  4. materialise: a dense grid per value column, prefilled with the fill
//     value, split into columns and reordered to spec order
//
// Cells with more than one contributor and no aggregator become lists and
// raise a Warning with code CodeAmbiguousCells. Configure WithValuesFn or
// WithValuesFnFor to summarise them, or pass List to request lists silently.
package pivot
