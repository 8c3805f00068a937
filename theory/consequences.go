// Copyright 2022 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package theory

import (
	"fmt"

	"github.com/congress-policy/runtime/ast"
)

// Evaluate returns every binding of vars that proves body true against self
// (and the theories it includes). It is the same search Select and Abduce
// are built on, exposed directly for callers that need bindings for a goal
// with more than one head atom, such as Runtime.Project evaluating an
// action invocation.
func Evaluate(self Theory, vars []ast.Variable, body []ast.Literal, findAll bool) []map[ast.Variable]ast.Constant {
	return topDownEvaluation(self, vars, body, nil, findAll)
}

// Consequences returns every true instance, across tableNames, of a query
// built from fresh variables: the full extension of each table as self (and
// its includes) currently derives it. filter, if non-nil, restricts which
// tables are queried at all. Used by Runtime.Project to collect the update
// atoms and result atoms an action invocation derived.
func Consequences(self Theory, tableNames []string, filter func(string) bool) []ast.Atom {
	var results []ast.Atom
	seen := make(map[string]bool)
	for _, table := range tableNames {
		if filter != nil && !filter(table) {
			continue
		}
		formulas := self.HeadIndex(table)
		if len(formulas) == 0 {
			continue
		}
		arity := self.Head(formulas[0]).Arity()
		args := make([]ast.Term, arity)
		for i := range args {
			args[i] = ast.Variable{Name: fmt.Sprintf("x%d", i)}
		}
		query := ast.NewAtom(table, args...)
		for _, f := range Select(self, query, true) {
			atom := f.(ast.Atom)
			key := atom.String()
			if !seen[key] {
				seen[key] = true
				results = append(results, atom)
			}
		}
	}
	return results
}
