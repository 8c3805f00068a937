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
	"strings"

	"github.com/congress-policy/runtime/ast"
	"github.com/congress-policy/runtime/database"
	"github.com/congress-policy/runtime/event"
	"github.com/congress-policy/runtime/proof"
	"github.com/congress-policy/runtime/trace"
	"github.com/congress-policy/runtime/unify"
)

// ExplainTree is a single proof that spans rule applications: unlike a
// proof.Proof, which records one rule's binding, an ExplainTree's root is
// the literal it justifies and its children justify that rule instance's
// body literals in turn. A negated root is always a leaf: proving a
// negative literal true is a negation-as-failure check, not a derivation,
// so there is nothing further to recurse into.
type ExplainTree struct {
	Root     ast.Literal
	Children []ExplainTree
}

// Leaves returns the literals at the bottom of the tree: base facts and
// negated literals, whichever the proof ultimately rested on.
func (e ExplainTree) Leaves() []ast.Literal {
	if len(e.Children) == 0 {
		return []ast.Literal{e.Root}
	}
	var result []ast.Literal
	for _, c := range e.Children {
		result = append(result, c.Leaves()...)
	}
	return result
}

func (e ExplainTree) strTree(depth int) string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", depth))
	sb.WriteString(e.Root.String())
	sb.WriteRune('\n')
	for _, c := range e.Children {
		sb.WriteString(c.strTree(depth + 1))
	}
	return sb.String()
}

func (e ExplainTree) String() string { return e.strTree(0) }

// MaterializedViewTheory stores view contents explicitly and keeps them in
// sync with changes to its own rules and to the base tables it reads from
// included theories, via an event queue and the delta rules derived from
// its own rule set. Recursive rules are allowed: propagation keeps
// processing the queue until it drains, however many rounds that takes.
type MaterializedViewTheory struct {
	base
	queue      event.Queue
	database   *database.Database
	deltaRules *DeltaRuleTheory
}

// NewMaterializedViewTheory returns an empty theory named name.
func NewMaterializedViewTheory(name string) *MaterializedViewTheory {
	return &MaterializedViewTheory{
		base:       newBase(name),
		database:   database.New(name + "Database"),
		deltaRules: NewDeltaRuleTheory(name + "Delta"),
	}
}

// Include adds other to the theories this theory delegates to for its base
// tables.
func (t *MaterializedViewTheory) Include(other Theory) { t.AddInclude(other) }

// SetTracer installs tr for this theory and its database/delta-rule
// sub-theories.
func (t *MaterializedViewTheory) SetTracer(tr *trace.Tracer) {
	t.base.SetTracer(tr)
	t.database.SetTracer(tr)
	t.deltaRules.SetTracer(tr)
}

// Database exposes the underlying fact store, e.g. for Runtime.Explain.
func (t *MaterializedViewTheory) Database() *database.Database { return t.database }

// Insert inserts formula (an atom or a rule) and returns the resulting
// events.
func (t *MaterializedViewTheory) Insert(formula ast.Formula) []event.Event {
	return t.Modify(formula, true)
}

// Delete deletes formula and returns the resulting events.
func (t *MaterializedViewTheory) Delete(formula ast.Formula) []event.Event {
	return t.Modify(formula, false)
}

// Modify inserts or deletes formula and returns every non-noop event the
// change produced, across the whole propagation.
func (t *MaterializedViewTheory) Modify(formula ast.Formula, insert bool) []event.Event {
	t.log("", "Materialized.modify", 0)
	t.enqueueWithIncluded(formula, insert)
	changes := t.processQueue()
	return changes
}

// enqueueWithIncluded handles the asymmetry between atoms (which are first
// applied to the included theories that hold base facts, with the events
// they return enqueued here; processQueue then also records each such atom
// in this theory's own database) and rules (which only ever affect this
// theory's own views,
// but must have their current consequences enqueued around the rule event
// itself, so recursion sees a consistent queue order).
func (t *MaterializedViewTheory) enqueueWithIncluded(formula ast.Formula, insert bool) {
	switch f := formula.(type) {
	case ast.Atom:
		if t.IsView(f.Table) {
			panic("cannot directly modify a table computed from other tables: " + f.Table)
		}
		for _, inc := range t.Includes() {
			ev := modifyIncluded(inc, f, insert)
			if ev != nil {
				t.enqueue(*ev)
			}
		}
	case ast.Rule:
		for _, rule := range eliminateSelfJoins([]ast.Rule{f}) {
			bindings := topDownEvaluation(t, rule.Variables(), rule.Body, nil, true)
			ruleEvent := event.Event{Formula: rule, Insert: insert}
			if insert {
				t.enqueue(ruleEvent)
				t.processNewBindings(bindings, rule.Head, insert, rule)
			} else {
				t.processNewBindings(bindings, rule.Head, insert, rule)
				t.enqueue(ruleEvent)
			}
		}
	}
}

// modifyIncluded applies an atomic insert/delete to an included theory,
// whichever concrete kind it is, and returns the resulting event if any.
// Only MaterializedViewTheory and database.Database are meaningful
// includees in this runtime's theory graph; other Theory implementations
// never store base facts and so never produce events here.
func modifyIncluded(th Theory, atom ast.Atom, insert bool) *event.Event {
	switch inc := th.(type) {
	case *MaterializedViewTheory:
		evs := inc.Modify(atom, insert)
		if len(evs) == 0 {
			return nil
		}
		return &evs[len(evs)-1]
	case *databaseTheory:
		ev, err := inc.db.Modify(atom, insert, proof.Collection{})
		if err != nil || ev == nil {
			return nil
		}
		return ev
	default:
		return nil
	}
}

func (t *MaterializedViewTheory) enqueue(e event.Event) {
	t.log(e.Tablename(), "enqueue: "+e.String(), 0)
	t.queue.Enqueue(e)
}

// processQueue drains the event queue, feeding each atom event through
// propagation (possibly enqueueing more events) before applying it to the
// database, and feeding each rule event to the delta-rule theory. It
// returns every event that was not a noop.
func (t *MaterializedViewTheory) processQueue() []event.Event {
	t.log("", "Processing queue", 0)
	var history []event.Event
	for t.queue.Len() > 0 {
		e := t.queue.Dequeue()
		switch f := e.Formula.(type) {
		case ast.Rule:
			if changed := t.deltaRules.Modify(f, e.Insert); changed != nil {
				history = append(history, e)
			}
		case ast.Atom:
			t.propagate(e)
			ev, err := t.database.Modify(f, e.Insert, e.Proofs)
			if err == nil && ev != nil {
				history = append(history, *ev)
			}
		}
	}
	return history
}

// propagate computes the events generated by e and the theory's delta
// rules, and enqueues them.
func (t *MaterializedViewTheory) propagate(e event.Event) {
	atom, ok := e.Formula.(ast.Atom)
	if !ok {
		return
	}
	for _, delta := range t.deltaRules.RulesWithTrigger(atom.Table) {
		t.propagateRule(e, delta)
	}
}

// propagateRule computes and enqueues the events generated by a single
// delta rule firing against e.
func (t *MaterializedViewTheory) propagateRule(e event.Event, delta DeltaRule) {
	atom, ok := e.Formula.(ast.Atom)
	if !ok {
		return
	}
	binding := unify.New()
	changes, ok := unify.BiUnifyAtoms(delta.Trigger.Atom, binding, atom, unify.New())
	if !ok {
		return
	}
	defer unify.UndoAll(changes)

	bindings := topDownEvaluation(t, deltaRuleVariables(delta), delta.Body, binding, true)

	insertDelete := e.Insert
	if delta.Trigger.IsNegated() {
		insertDelete = !insertDelete
	}
	t.processNewBindings(bindings, delta.Head, insertDelete, delta.Original)
}

func deltaRuleVariables(delta DeltaRule) []ast.Variable {
	seen := make(map[ast.Variable]bool)
	var vars []ast.Variable
	add := func(vs []ast.Variable) {
		for _, v := range vs {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	add(delta.Trigger.Variables())
	add(delta.Head.Variables())
	for _, lit := range delta.Body {
		add(lit.Variables())
	}
	return vars
}

// processNewBindings applies atom to each binding, groups the results by
// the distinct tuple produced (recording one proof per binding that
// produced it), and enqueues an insert or delete event per distinct tuple.
func (t *MaterializedViewTheory) processNewBindings(bindings []map[ast.Variable]ast.Constant, atom ast.Atom, insert bool, original ast.Rule) {
	type grouped struct {
		atom   ast.Atom
		proofs proof.Collection
	}
	var order []ast.Atom
	byAtom := make(map[string]*grouped)

	for _, b := range bindings {
		newAtom := atom.Plug(mapBinding(b))
		key := newAtom.String()
		g, ok := byAtom[key]
		if !ok {
			g = &grouped{atom: newAtom}
			byAtom[key] = g
			order = append(order, newAtom)
		}
		g.proofs = g.proofs.Union(proof.New(proof.Proof{Binding: proof.Binding(b), Rule: original}))
	}

	for _, a := range order {
		g := byAtom[a.String()]
		t.enqueue(event.Event{Formula: g.atom, Insert: insert, Proofs: g.proofs})
	}
}

// IsView reports whether table is computed by one of this theory's rules.
func (t *MaterializedViewTheory) IsView(table string) bool { return t.deltaRules.IsView(table) }

// IsKnown reports whether table is referenced anywhere in this theory.
func (t *MaterializedViewTheory) IsKnown(table string) bool { return t.deltaRules.IsKnown(table) }

// BaseTables returns the tables this theory reads but does not compute.
func (t *MaterializedViewTheory) BaseTables() []string { return t.deltaRules.BaseTables() }

// Content returns every derived atom currently materialized.
func (t *MaterializedViewTheory) Content() []ast.Atom { return t.database.Contents() }

// Explain reconstructs one cross-rule proof tree for query, which may be
// negated, or reports that query is not currently true.
func (t *MaterializedViewTheory) Explain(query ast.Literal) (ExplainTree, bool) {
	return t.explainAux(query, 0)
}

func (t *MaterializedViewTheory) explainAux(query ast.Literal, depth int) (ExplainTree, bool) {
	t.log(query.Tablename(), "Explaining "+query.String(), depth)
	if query.IsNegated() {
		return ExplainTree{Root: query}, true
	}
	local := t.database.Explain(query.Atom)
	if local.IsEmpty() {
		if !t.factKnown(query.Atom) {
			return ExplainTree{}, false
		}
		// A base fact: true with no further justification needed.
		return ExplainTree{Root: query}, true
	}
	chosen := local.List()[0]
	var children []ExplainTree
	for _, lit := range instantiateBody(chosen.Rule, chosen.Binding) {
		child, ok := t.explainAux(lit, depth+1)
		if !ok {
			return ExplainTree{}, false
		}
		children = append(children, child)
	}
	return ExplainTree{Root: query, Children: children}, true
}

func (t *MaterializedViewTheory) factKnown(query ast.Atom) bool {
	for _, a := range t.database.Contents() {
		if a.Equals(query) {
			return true
		}
	}
	return false
}

func instantiateBody(rule ast.Rule, binding proof.Binding) []ast.Literal {
	m := make(mapBinding, len(binding))
	for v, c := range binding {
		m[v] = c
	}
	result := make([]ast.Literal, len(rule.Body))
	for i, lit := range rule.Body {
		result[i] = lit.Plug(m)
	}
	return result
}

// HeadIndex implements Theory by delegating straight to the database: a
// MaterializedViewTheory's own top-down search always bottoms out in its
// materialized tuples, never in its rules (those only drive propagation).
func (t *MaterializedViewTheory) HeadIndex(table string) []Formula {
	tuples := t.database.HeadIndex(table)
	out := make([]Formula, len(tuples))
	for i, tup := range tuples {
		out[i] = tup
	}
	return out
}

// Head implements Theory.
func (t *MaterializedViewTheory) Head(f Formula) ast.Atom {
	tup := f.(*database.Tuple)
	return tup.Atom()
}

// Body implements Theory: materialized tuples are always facts.
func (t *MaterializedViewTheory) Body(Formula) []ast.Literal { return nil }

// BiUnify implements Theory.
func (t *MaterializedViewTheory) BiUnify(f Formula, u1 *unify.BiUnifier, goal ast.Literal, u2 *unify.BiUnifier) ([]unify.Change, bool) {
	tup := f.(*database.Tuple)
	return tup.Match(goal.Atom, u2)
}

// databaseTheory adapts a *database.Database to the Theory capability
// interface, so a bare Database can sit directly in an includes list (the
// Database theory, per the runtime's theory registry).
type databaseTheory struct {
	base
	db *database.Database
}

// NewDatabaseTheory wraps db as a Theory.
func NewDatabaseTheory(name string, db *database.Database) Theory {
	return &databaseTheory{base: newBase(name), db: db}
}

func (d *databaseTheory) HeadIndex(table string) []Formula {
	tuples := d.db.HeadIndex(table)
	out := make([]Formula, len(tuples))
	for i, tup := range tuples {
		out[i] = tup
	}
	return out
}

func (d *databaseTheory) Head(f Formula) ast.Atom { return f.(*database.Tuple).Atom() }

func (d *databaseTheory) Body(Formula) []ast.Literal { return nil }

func (d *databaseTheory) BiUnify(f Formula, u1 *unify.BiUnifier, goal ast.Literal, u2 *unify.BiUnifier) ([]unify.Change, bool) {
	tup := f.(*database.Tuple)
	return tup.Match(goal.Atom, u2)
}
