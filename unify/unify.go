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

// Package unify implements two-scope unification with an explicit undo log.
//
// A BiUnifier maps (Variable, owning-BiUnifier) pairs to (Term,
// owning-BiUnifier) pairs. Because bindings are scoped by the BiUnifier
// instance that owns them, two atoms that happen to share a variable name
// (e.g. a rule head and a goal literal) can be unified against each other
// without renaming, simply by giving them distinct BiUnifier instances.
package unify

import "github.com/congress-policy/runtime/ast"

type entry struct {
	term  ast.Term
	owner *BiUnifier // nil if term is a Constant
}

// BiUnifier is a scope: a set of variable bindings introduced while trying
// to prove one rule body or unify one rule head against a goal.
type BiUnifier struct {
	bindings map[ast.Variable]entry
}

// New returns an empty BiUnifier, representing a fresh scope.
func New() *BiUnifier {
	return &BiUnifier{bindings: make(map[ast.Variable]entry)}
}

// Change records a single addition to a BiUnifier, so that it can be undone.
type Change struct {
	unifier *BiUnifier
	v       ast.Variable
}

// ApplyFull resolves v by following the chain of bindings (possibly
// crossing into other BiUnifiers) to a fixed point. It returns the final
// term (a Constant, or the furthest still-unbound Variable) and the
// BiUnifier in which that final result lives: the one whose binding holds
// the Constant, or the one where the unbound Variable was reached (u itself
// if v is unbound in u).
func (u *BiUnifier) ApplyFull(v ast.Variable) (ast.Term, *BiUnifier) {
	cur := u
	curVar := v
	for {
		e, ok := cur.bindings[curVar]
		if !ok {
			return curVar, cur
		}
		if c, ok := e.term.(ast.Constant); ok {
			return c, cur
		}
		nextVar := e.term.(ast.Variable)
		cur = e.owner
		curVar = nextVar
	}
}

// Resolve implements ast.Binding.
func (u *BiUnifier) Resolve(v ast.Variable) ast.Term {
	t, _ := u.ApplyFull(v)
	return t
}

// Add binds v (which must live in u, i.e. be the result of a prior
// ApplyFull call on u) to term, which lives in owner (nil if term is a
// Constant). It returns a Change that Undo/UndoAll can use to remove the
// binding again.
func (u *BiUnifier) Add(v ast.Variable, term ast.Term, owner *BiUnifier) Change {
	u.bindings[v] = entry{term, owner}
	return Change{u, v}
}

// Undo removes a single binding previously returned by Add.
func Undo(c Change) {
	delete(c.unifier.bindings, c.v)
}

// UndoAll undoes a list of changes in reverse order, restoring both
// unifiers involved in a bi_unify_atoms call to their state before it ran.
func UndoAll(changes []Change) {
	for i := len(changes) - 1; i >= 0; i-- {
		Undo(changes[i])
	}
}

func resolveTerm(t ast.Term, u *BiUnifier) (ast.Term, *BiUnifier) {
	if v, ok := t.(ast.Variable); ok {
		return u.ApplyFull(v)
	}
	return t, u
}

// UnifyTerms unifies a single pair of terms living in u1 and u2
// respectively, extending changes with any new bindings. Terms are flat
// (constants or variables); there is no occurs-check.
func UnifyTerms(t1 ast.Term, u1 *BiUnifier, t2 ast.Term, u2 *BiUnifier, changes *[]Change) bool {
	rt1, ru1 := resolveTerm(t1, u1)
	rt2, ru2 := resolveTerm(t2, u2)
	c1, isConst1 := rt1.(ast.Constant)
	c2, isConst2 := rt2.(ast.Constant)

	switch {
	case isConst1 && isConst2:
		return c1.Equals(c2)
	case isConst1 && !isConst2:
		*changes = append(*changes, ru2.Add(rt2.(ast.Variable), c1, nil))
		return true
	case !isConst1 && isConst2:
		*changes = append(*changes, ru1.Add(rt1.(ast.Variable), c2, nil))
		return true
	default:
		v1, v2 := rt1.(ast.Variable), rt2.(ast.Variable)
		if ru1 == ru2 && v1 == v2 {
			return true // already identified
		}
		*changes = append(*changes, ru1.Add(v1, v2, ru2))
		return true
	}
}

// BiUnifyAtoms unifies a1 (living in u1) against a2 (living in u2). On
// success it returns the list of changes made (which UndoAll can revert)
// and true. On failure it undoes any partial progress itself and returns
// (nil, false), leaving both unifiers unchanged.
func BiUnifyAtoms(a1 ast.Atom, u1 *BiUnifier, a2 ast.Atom, u2 *BiUnifier) ([]Change, bool) {
	if a1.Table != a2.Table || len(a1.Args) != len(a2.Args) {
		return nil, false
	}
	var changes []Change
	for i := range a1.Args {
		if !UnifyTerms(a1.Args[i], u1, a2.Args[i], u2, &changes) {
			UndoAll(changes)
			return nil, false
		}
	}
	return changes, true
}

// Flatten applies u to every variable in vars and returns a ground
// substitution. A variable that does not resolve to a Constant is left out
// of the result.
func Flatten(u *BiUnifier, vars []ast.Variable) map[ast.Variable]ast.Constant {
	result := make(map[ast.Variable]ast.Constant, len(vars))
	for _, v := range vars {
		t, _ := u.ApplyFull(v)
		if c, ok := t.(ast.Constant); ok {
			result[v] = c
		}
	}
	return result
}
