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

// Package theory implements the engine shared by every kind of theory in
// the runtime: top-down SLD resolution with bidirectional unification,
// negation-as-failure and abduction (topdown.go), a non-recursive bag of
// rules (nonrecursive.go), the delta rules that drive incremental
// maintenance (deltarule.go), and the materialized-view theory that ties a
// database to its delta rules (materialized.go).
package theory

import (
	"github.com/congress-policy/runtime/ast"
	"github.com/congress-policy/runtime/trace"
	"github.com/congress-policy/runtime/unify"
)

// Formula is whatever a concrete theory stores per head table: an
// ast.Rule for a rule-based theory, a *database.Tuple for a Database.
// Theory implementations type-assert their own formulas back out of Head
// and Body.
type Formula interface{}

// Theory is the capability interface the top-down engine evaluates
// against. A concrete theory (a database.Database wrapped by
// NewDatabaseTheory, NonrecursiveRuleTheory, MaterializedViewTheory)
// implements this so the same topDownEval /
// topDownTh routines can run against all of them uniformly.
type Theory interface {
	// Name identifies the theory for logging.
	Name() string

	// HeadIndex returns every stored Formula whose head is about table.
	HeadIndex(table string) []Formula

	// Head returns the atom to unify a goal literal against.
	Head(f Formula) ast.Atom

	// Body returns the literals to push onto the search stack once Head
	// unifies; an empty slice means f is a fact.
	Body(f Formula) []ast.Literal

	// BiUnify unifies Head(f) (in u1) against goal (in u2).
	BiUnify(f Formula, u1 *unify.BiUnifier, goal ast.Literal, u2 *unify.BiUnifier) ([]unify.Change, bool)

	// Includes returns the theories this theory delegates to during
	// top-down evaluation, beyond its own contents.
	Includes() []Theory

	// Tracer returns the tracer used for this theory's debug logging.
	Tracer() *trace.Tracer
}

// base is embedded by concrete theories to share name/tracer/includes
// bookkeeping.
type base struct {
	name     string
	tracer   *trace.Tracer
	includes []Theory
}

func newBase(name string) base {
	return base{name: name, tracer: trace.NewTracer()}
}

func (b *base) Name() string { return b.name }

func (b *base) Tracer() *trace.Tracer { return b.tracer }

func (b *base) SetTracer(t *trace.Tracer) { b.tracer = t }

func (b *base) Includes() []Theory { return b.includes }

func (b *base) AddInclude(t Theory) { b.includes = append(b.includes, t) }

// RemoveInclude removes the first Theory in includes identical to t (by
// pointer equality, the only sensible notion for an interface holding a
// pointer-typed concrete theory). It is a no-op if t is not present.
func (b *base) RemoveInclude(t Theory) {
	for i, inc := range b.includes {
		if inc == t {
			b.includes = append(b.includes[:i], b.includes[i+1:]...)
			return
		}
	}
}

func (b *base) log(table, msg string, depth int) {
	b.tracer.Log(table, b.name+": "+msg, depth)
}
