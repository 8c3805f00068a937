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

	"bitbucket.org/creachadair/stringset"

	"github.com/congress-policy/runtime/ast"
)

// DeltaRule is the fragment of a rule relevant to one of its body
// literals: if trigger changes, head may need to be recomputed, and
// proving it requires the remaining literals in body. A rule with n body
// literals produces n delta rules, one per trigger.
type DeltaRule struct {
	Trigger  ast.Literal
	Head     ast.Atom
	Body     []ast.Literal
	Original ast.Rule
}

// Equals reports structural equality.
func (d DeltaRule) Equals(o DeltaRule) bool {
	if !d.Trigger.Equals(o.Trigger) || !d.Head.Equals(o.Head) || len(d.Body) != len(o.Body) {
		return false
	}
	for i, lit := range d.Body {
		if !lit.Equals(o.Body[i]) {
			return false
		}
	}
	return true
}

// Tables returns every table mentioned in the delta rule.
func (d DeltaRule) Tables() stringset.Set {
	s := stringset.New(d.Head.Table, d.Trigger.Tablename())
	for _, lit := range d.Body {
		s.Add(lit.Tablename())
	}
	return s
}

func (d DeltaRule) String() string {
	return fmt.Sprintf("<trigger: %s, head: %s, body: %v>", d.Trigger, d.Head, d.Body)
}

// selfJoinTableName names the synthetic table introduced to break the
// index-th self-join of table/arity within one rule body.
func selfJoinTableName(table string, arity, index int) string {
	return fmt.Sprintf("___%s_%d_%d", table, arity, index)
}

// eliminateSelfJoins returns rules equivalent to the input but with every
// repeated (table, arity) occurrence within one body renamed to a fresh
// synthetic table, plus wrapping rules that define those synthetic tables
// in terms of the original. Facts (rules with an empty body) pass through
// unchanged.
func eliminateSelfJoins(rules []ast.Rule) []ast.Rule {
	type tableArity struct {
		table string
		arity int
	}
	globalSelfJoins := make(map[tableArity]int)

	var results []ast.Rule
	for _, rule := range rules {
		if rule.IsFact() {
			results = append(results, rule)
			continue
		}
		occurrences := make(map[tableArity]int)
		newBody := make([]ast.Literal, len(rule.Body))
		for i, lit := range rule.Body {
			ta := tableArity{lit.Tablename(), len(lit.Atom.Args)}
			occurrences[ta]++
			if occurrences[ta] == 1 {
				newBody[i] = lit
				continue
			}
			index := occurrences[ta] - 1
			renamed := ast.Atom{Table: selfJoinTableName(ta.table, ta.arity, index), Args: lit.Atom.Args}
			newBody[i] = ast.Literal{Atom: renamed, Negated: lit.Negated}
			if globalSelfJoins[ta] < index {
				globalSelfJoins[ta] = index
			}
		}
		results = append(results, ast.NewRule(rule.Head, newBody...))
	}

	for ta, maxIndex := range globalSelfJoins {
		for i := 1; i <= maxIndex; i++ {
			args := make([]ast.Term, ta.arity)
			for j := range args {
				args[j] = ast.Variable{Name: fmt.Sprintf("x%d", j)}
			}
			head := ast.NewAtom(selfJoinTableName(ta.table, ta.arity, i), args...)
			body := ast.PosLiteral(ast.NewAtom(ta.table, args...))
			results = append(results, ast.NewRule(head, body))
		}
	}
	return results
}

// computeDeltaRules turns rules (assumed free of self-joins after
// eliminateSelfJoins) into their per-literal DeltaRules.
func computeDeltaRules(rules []ast.Rule) []DeltaRule {
	rules = eliminateSelfJoins(rules)
	var deltas []DeltaRule
	for _, rule := range rules {
		if rule.IsFact() {
			continue
		}
		for i, literal := range rule.Body {
			var rest []ast.Literal
			for j, lit := range rule.Body {
				if j != i {
					rest = append(rest, lit)
				}
			}
			deltas = append(deltas, DeltaRule{
				Trigger:  literal,
				Head:     rule.Head,
				Body:     rest,
				Original: rule,
			})
		}
	}
	return deltas
}

// DeltaRuleTheory indexes DeltaRules by trigger table, and tracks which
// tables are views (defined by some rule's head) versus base tables (known
// only because something references them), so propagation can tell which
// changes might ripple further.
type DeltaRuleTheory struct {
	base
	contents  map[string][]DeltaRule
	originals []ast.Rule
	views     map[string]int
	allTables map[string]int
}

// NewDeltaRuleTheory returns an empty theory named name.
func NewDeltaRuleTheory(name string) *DeltaRuleTheory {
	return &DeltaRuleTheory{
		base:      newBase(name),
		contents:  make(map[string][]DeltaRule),
		views:     make(map[string]int),
		allTables: make(map[string]int),
	}
}

// Modify inserts or deletes rule, returning the rule in a singleton slice
// if the theory actually changed, or nil if it was a noop (duplicate
// insert, or deleting a rule that wasn't present).
func (t *DeltaRuleTheory) Modify(rule ast.Rule, insert bool) []ast.Rule {
	t.log("", "DeltaRuleTheory.modify", 0)
	var changed bool
	if insert {
		changed = t.Insert(rule)
	} else {
		changed = t.Delete(rule)
	}
	if changed {
		return []ast.Rule{rule}
	}
	return nil
}

func (t *DeltaRuleTheory) findOriginal(rule ast.Rule) int {
	for i, r := range t.originals {
		if r.Equals(rule) {
			return i
		}
	}
	return -1
}

// Insert adds rule's delta rules to the theory. Returns false if an equal
// rule was already present.
func (t *DeltaRuleTheory) Insert(rule ast.Rule) bool {
	t.log(rule.Tablename(), "Insert: "+rule.String(), 0)
	if t.findOriginal(rule) >= 0 {
		return false
	}
	for _, delta := range computeDeltaRules([]ast.Rule{rule}) {
		t.insertDelta(delta)
	}
	t.originals = append(t.originals, rule)
	return true
}

func (t *DeltaRuleTheory) insertDelta(delta DeltaRule) {
	t.views[delta.Head.Table]++
	for table := range delta.Tables() {
		t.allTables[table]++
	}
	t.contents[delta.Trigger.Tablename()] = append(t.contents[delta.Trigger.Tablename()], delta)
}

// Delete removes rule's delta rules from the theory. Returns false if rule
// wasn't present.
func (t *DeltaRuleTheory) Delete(rule ast.Rule) bool {
	t.log(rule.Tablename(), "Delete: "+rule.String(), 0)
	i := t.findOriginal(rule)
	if i < 0 {
		return false
	}
	for _, delta := range computeDeltaRules([]ast.Rule{rule}) {
		t.deleteDelta(delta)
	}
	t.originals = append(t.originals[:i], t.originals[i+1:]...)
	return true
}

func (t *DeltaRuleTheory) deleteDelta(delta DeltaRule) {
	if _, ok := t.views[delta.Head.Table]; ok {
		t.views[delta.Head.Table]--
		if t.views[delta.Head.Table] == 0 {
			delete(t.views, delta.Head.Table)
		}
	}
	for table := range delta.Tables() {
		if _, ok := t.allTables[table]; ok {
			t.allTables[table]--
			if t.allTables[table] == 0 {
				delete(t.allTables, table)
			}
		}
	}
	rules := t.contents[delta.Trigger.Tablename()]
	for i, existing := range rules {
		if existing.Equals(delta) {
			t.contents[delta.Trigger.Tablename()] = append(rules[:i], rules[i+1:]...)
			return
		}
	}
}

// RulesWithTrigger returns the delta rules triggered by a change to table.
func (t *DeltaRuleTheory) RulesWithTrigger(table string) []DeltaRule {
	return t.contents[table]
}

// IsView reports whether table is defined by at least one rule's head.
func (t *DeltaRuleTheory) IsView(table string) bool {
	_, ok := t.views[table]
	return ok
}

// IsKnown reports whether table is referenced anywhere in the theory.
func (t *DeltaRuleTheory) IsKnown(table string) bool {
	_, ok := t.allTables[table]
	return ok
}

// BaseTables returns the tables that are referenced but never defined by a
// rule head: the theory's extensional inputs.
func (t *DeltaRuleTheory) BaseTables() []string {
	var result []string
	for table := range t.allTables {
		if !t.IsView(table) {
			result = append(result, table)
		}
	}
	return result
}
