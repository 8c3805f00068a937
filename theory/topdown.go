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
	"bitbucket.org/creachadair/stringset"

	"github.com/congress-policy/runtime/ast"
	"github.com/congress-policy/runtime/unify"
)

// context is the search state for one in-progress top-down proof: the
// literals still to be proven, which one is next, the unifier they share,
// and the enclosing context (the caller that pushed this one), so that
// finishing this literal can resume the search one level up.
type context struct {
	literals []ast.Literal
	index    int
	binding  *unify.BiUnifier
	previous *context
	depth    int
}

// result is a single solution: the query variables' values, plus (for
// abduction) the literals that were saved along the way instead of proven.
type result struct {
	binding map[ast.Variable]ast.Constant
	support []ast.Literal
}

// caller holds the parts of a top-down search that don't change as the
// search descends into nested contexts: which variables the answer is
// phrased in, whether to stop at the first answer, which theory the search
// began at (for evaluating included theories), and, during abduction,
// which literals to save rather than prove.
type caller struct {
	variables []ast.Variable
	binding   *unify.BiUnifier
	theory    Theory
	findAll   bool
	save      func(lit ast.Literal, u *unify.BiUnifier) bool
	results   []result
	support   []savedLiteral
}

type savedLiteral struct {
	lit     ast.Literal
	binding *unify.BiUnifier
}

// Select returns every instance of query provable against self (and the
// theories it includes). If findAll is false, at most one instance is
// returned.
func Select(self Theory, query ast.Formula, findAll bool) []ast.Formula {
	var literals []ast.Literal
	var vars []ast.Variable
	switch q := query.(type) {
	case ast.Atom:
		literals = []ast.Literal{ast.PosLiteral(q)}
		vars = q.Variables()
	case ast.Rule:
		literals = q.Body
		vars = q.Variables()
	default:
		return nil
	}
	bindings := topDownEvaluation(self, vars, literals, nil, findAll)
	var out []ast.Formula
	for _, b := range bindings {
		out = append(out, plugFormula(query, b))
	}
	return out
}

func plugFormula(f ast.Formula, b map[ast.Variable]ast.Constant) ast.Formula {
	m := mapBinding(b)
	switch v := f.(type) {
	case ast.Atom:
		return v.Plug(m)
	case ast.Rule:
		return ast.NewRule(v.Head.Plug(m))
	default:
		return f
	}
}

type mapBinding map[ast.Variable]ast.Constant

func (m mapBinding) Resolve(v ast.Variable) ast.Term {
	if c, ok := m[v]; ok {
		return c
	}
	return v
}

// Abduce computes rules whose head is an instance of query and whose body
// is a set of literals about tablenames that, if true, would make that
// instance of query true. Saving stops once a proof succeeds; any literal
// relevant to proving a negated literal is never saved (negation-as-failure
// has to be unconditionally true or false).
func Abduce(self Theory, query ast.Formula, tablenames stringset.Set, findAll bool) []ast.Rule {
	var literals []ast.Literal
	var head ast.Atom
	switch q := query.(type) {
	case ast.Atom:
		literals = []ast.Literal{ast.PosLiteral(q)}
		head = q
	case ast.Rule:
		literals = q.Body
		head = q.Head
	default:
		return nil
	}
	save := func(lit ast.Literal, u *unify.BiUnifier) bool {
		return tablenames.Contains(lit.Tablename())
	}
	abductions := topDownAbduction(self, head.Variables(), literals, nil, findAll, save)
	var results []ast.Rule
	for _, r := range abductions {
		m := mapBinding(r.binding)
		plugged := head.Plug(m)
		results = append(results, ast.NewRule(plugged, r.support...))
	}
	return results
}

func topDownEvaluation(self Theory, vars []ast.Variable, literals []ast.Literal, binding *unify.BiUnifier, findAll bool) []map[ast.Variable]ast.Constant {
	results := topDownAbduction(self, vars, literals, binding, findAll, nil)
	out := make([]map[ast.Variable]ast.Constant, len(results))
	for i, r := range results {
		out[i] = r.binding
	}
	return out
}

func topDownAbduction(self Theory, vars []ast.Variable, literals []ast.Literal, binding *unify.BiUnifier, findAll bool, save func(ast.Literal, *unify.BiUnifier) bool) []result {
	if binding == nil {
		binding = unify.New()
	}
	c := &caller{variables: vars, binding: binding, theory: self, findAll: findAll, save: save}
	if len(literals) == 0 {
		topDownFinish(nil, c, true)
	} else {
		ctx := &context{literals: literals, index: 0, binding: binding, depth: 0}
		topDownEval(ctx, c)
	}
	return dedupResults(c.results)
}

func dedupResults(results []result) []result {
	var out []result
	for _, r := range results {
		dup := false
		for _, seen := range out {
			if sameBinding(r.binding, seen.binding) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}

func sameBinding(a, b map[ast.Variable]ast.Constant) bool {
	if len(a) != len(b) {
		return false
	}
	for v, c := range a {
		oc, ok := b[v]
		if !ok || !c.Equals(oc) {
			return false
		}
	}
	return true
}

// topDownEval proves the literal at context's current index, then (via
// topDownFinish) continues with the remaining literals.
func topDownEval(ctx *context, c *caller) bool {
	lit := ctx.literals[ctx.index]

	if c.save != nil && c.save(lit, ctx.binding) {
		c.support = append(c.support, savedLiteral{lit, ctx.binding})
		success := topDownFinish(ctx, c, true)
		c.support = c.support[:len(c.support)-1]
		return success
	}

	switch {
	case lit.IsNegated():
		plugged := lit.Atom.Plug(ctx.binding)
		if !plugged.IsGround() {
			panic("negated literals must be ground when evaluated: " + lit.String())
		}
		newCtx := &context{literals: []ast.Literal{lit.Complement()}, index: 0, binding: ctx.binding, depth: ctx.depth + 1}
		newCaller := &caller{variables: c.variables, binding: c.binding, theory: c.theory, findAll: false}
		if topDownIncludes(c.theory, newCtx, newCaller) {
			return false
		}
		return topDownFinish(ctx, c, false)
	case lit.Tablename() == ast.TrueBuiltin:
		return topDownFinish(ctx, c, false)
	case lit.Tablename() == ast.FalseBuiltin:
		return false
	default:
		return topDownIncludes(c.theory, ctx, c)
	}
}

// topDownIncludes evaluates ctx's current literal against self and every
// theory self includes, stopping at the first success unless find_all.
func topDownIncludes(self Theory, ctx *context, c *caller) bool {
	if topDownTh(self, ctx, c) && !c.findAll {
		return true
	}
	for _, inc := range self.Includes() {
		if topDownIncludes(inc, ctx, c) && !c.findAll {
			return true
		}
	}
	return false
}

// topDownTh tries to prove ctx's current literal against self's own
// contents (never its includes).
func topDownTh(self Theory, ctx *context, c *caller) bool {
	lit := ctx.literals[ctx.index]
	self.Tracer().Log(lit.Tablename(), "Call: "+lit.Plug(ctx.binding).String(), ctx.depth)
	for _, f := range self.HeadIndex(lit.Tablename()) {
		u := unify.New()
		changes, ok := self.BiUnify(f, u, lit, ctx.binding)
		if !ok {
			continue
		}
		body := self.Body(f)
		var proved bool
		if len(body) == 0 {
			proved = topDownFinish(ctx, c, true)
		} else {
			newCtx := &context{literals: body, index: 0, binding: u, previous: ctx, depth: ctx.depth + 1}
			proved = topDownEval(newCtx, c)
		}
		unify.UndoAll(changes)
		if proved && !c.findAll {
			return true
		}
	}
	self.Tracer().Log(lit.Tablename(), "Fail: "+lit.Plug(ctx.binding).String(), ctx.depth)
	return false
}

// topDownFinish is called once the literal at ctx's index has been proven.
// It either advances to the next literal in ctx, pops back to ctx.previous
// once ctx is exhausted, or (ctx == nil) records a solution.
func topDownFinish(ctx *context, c *caller, redo bool) bool {
	if ctx == nil {
		if c != nil {
			binding := unify.Flatten(c.binding, c.variables)
			support := make([]ast.Literal, len(c.support))
			for i, s := range c.support {
				support[i] = s.lit.Plug(s.binding)
			}
			c.results = append(c.results, result{binding: binding, support: support})
		}
		return true
	}
	if ctx.index < len(ctx.literals)-1 {
		ctx.index++
		finished := topDownEval(ctx, c)
		ctx.index--
		return finished
	}
	return topDownFinish(ctx.previous, c, redo)
}
