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

package runtime

import (
	"fmt"

	"bitbucket.org/creachadair/stringset"
	"go.uber.org/multierr"

	"github.com/congress-policy/runtime/ast"
	"github.com/congress-policy/runtime/event"
	"github.com/congress-policy/runtime/proof"
	"github.com/congress-policy/runtime/theory"
)

// Select returns every instance of query provable against target.
func (rt *Runtime) Select(query ast.Formula, target Target) []ast.Formula {
	return theory.Select(rt.GetTarget(target), query, true)
}

// ComputeRoute reroutes an atomic modification targeting Classify or
// Database to Enforcement, so enforcement's own derivations (including
// action triggers) run; rule modifications stay on their declared target.
// This is the one place the source's ambiguity about rerouting rule
// inserts is resolved: per spec.md's documented Open Question, rule
// inserts are never rerouted.
func (rt *Runtime) ComputeRoute(formula ast.Formula, target Target) Target {
	if _, ok := formula.(ast.Atom); ok {
		if target == Classify || target == Database {
			return Enforcement
		}
	}
	return target
}

// Insert inserts formula into target (after routing) and reacts to
// whatever events that produced.
func (rt *Runtime) Insert(formula ast.Formula, target Target) ([]event.Event, error) {
	return rt.modify(formula, target, true)
}

// Delete deletes formula from target (after routing) and reacts to
// whatever events that produced.
func (rt *Runtime) Delete(formula ast.Formula, target Target) ([]event.Event, error) {
	return rt.modify(formula, target, false)
}

func (rt *Runtime) modify(formula ast.Formula, target Target, insert bool) ([]event.Event, error) {
	routed := rt.ComputeRoute(formula, target)
	var events []event.Event

	switch routed {
	case Database:
		atom, ok := formula.(ast.Atom)
		if !ok {
			return nil, fmt.Errorf("runtime: the database theory only accepts atoms, got %T", formula)
		}
		ev, err := rt.database.Modify(atom, insert, proof.Collection{})
		if err != nil {
			return nil, err
		}
		if ev != nil {
			events = []event.Event{*ev}
		}
	case Classify:
		events = rt.classify.Modify(formula, insert)
	case Enforcement:
		events = rt.enforcement.Modify(formula, insert)
	case Action:
		rule, err := asRule(formula)
		if err != nil {
			return nil, err
		}
		if insert {
			rt.action.Insert(rule)
		} else {
			rt.action.Delete(rule)
		}
	case Service:
		rule, err := asRule(formula)
		if err != nil {
			return nil, err
		}
		if insert {
			rt.service.Insert(rule)
		} else {
			rt.service.Delete(rule)
		}
	}

	rt.reactToChanges(events)
	return events, nil
}

func asRule(formula ast.Formula) (ast.Rule, error) {
	switch f := formula.(type) {
	case ast.Rule:
		return f, nil
	case ast.Atom:
		return ast.NewRule(f), nil
	default:
		return ast.Rule{}, fmt.Errorf("runtime: expected an atom or rule, got %T", formula)
	}
}

// reactToChanges scans events for an insert of a ground atom whose table is
// an action name, and executes each one.
func (rt *Runtime) reactToChanges(events []event.Event) {
	if len(events) == 0 {
		return
	}
	actionNames := rt.actionNameSet()
	var actions []ast.Atom
	for _, e := range events {
		if !e.IsInsert() {
			continue
		}
		atom, ok := e.Formula.(ast.Atom)
		if !ok || !atom.IsGround() || !actionNames.Contains(atom.Table) {
			continue
		}
		actions = append(actions, atom)
	}
	if len(actions) > 0 {
		rt.Execute(actions)
	}
}

// Execute runs actions through the configured ExecuteHook. An ungrounded
// action is a precondition failure that is logged and skipped rather than
// aborting the whole batch; every skip is folded into the returned error
// via multierr so callers that want the detail can range over
// multierr.Errors, while callers that only care whether execution was
// clean can just check err != nil.
func (rt *Runtime) Execute(actions []ast.Atom) error {
	var err error
	for _, a := range actions {
		if !a.IsGround() {
			msg := fmt.Sprintf("skipping ungrounded action: %s", a)
			rt.log.Warn(msg)
			err = multierr.Append(err, fmt.Errorf(msg))
			continue
		}
		rt.executeHook(rt, a)
	}
	return err
}

// Explain reconstructs one cross-rule proof tree for formula (which may be
// negated) against the classification theory, or reports that it is not
// currently true.
func (rt *Runtime) Explain(formula ast.Literal) (theory.ExplainTree, bool) {
	return rt.classify.Explain(formula)
}

// Remediate finds a collection of action invocations that, if executed,
// would make formula false: it explains formula in terms of Classify's base
// tables, then abduces, for each base-table leaf of that proof, the update
// goal that would remove the leaf's contribution (inserting it if the leaf
// was used negatively, deleting it if it was used positively), against the
// action theory restricted to known action names.
func (rt *Runtime) Remediate(formula ast.Literal) ([]ast.Rule, error) {
	baseTables := stringset.New(rt.classify.BaseTables()...)
	tree, ok := rt.classify.Explain(formula)
	if !ok {
		return nil, nil
	}
	actionNames := rt.actionNameSet()

	var results []ast.Rule
	for _, leaf := range tree.Leaves() {
		if !baseTables.Contains(leaf.Tablename()) {
			continue
		}
		goalTable := leaf.Tablename() + "-"
		if leaf.IsNegated() {
			goalTable = leaf.Tablename() + "+"
		}
		goal := ast.Atom{Table: goalTable, Args: leaf.Atom.Args}
		results = append(results, theory.Abduce(rt.action, goal, actionNames, false)...)
	}
	return results, nil
}

// RemediateRule remediates a rule by its head, the rule-formula counterpart
// to Remediate's literal argument.
func (rt *Runtime) RemediateRule(r ast.Rule) ([]ast.Rule, error) {
	return rt.Remediate(ast.PosLiteral(r.Head))
}
