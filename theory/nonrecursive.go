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
	"github.com/congress-policy/runtime/ast"
	"github.com/congress-policy/runtime/unify"
)

// NonrecursiveRuleTheory is a plain bag of rules, indexed by head table,
// with no materialization: every Select re-derives its answers by running
// the top-down engine from scratch. It backs the Action and Service
// theories, and also the scratch theory Runtime.Project includes while it
// applies a sequence.
type NonrecursiveRuleTheory struct {
	base
	contents map[string][]ast.Rule
}

// NewNonrecursiveRuleTheory returns an empty theory named name.
func NewNonrecursiveRuleTheory(name string) *NonrecursiveRuleTheory {
	return &NonrecursiveRuleTheory{base: newBase(name), contents: make(map[string][]ast.Rule)}
}

// Include adds other to the theories this theory delegates to during
// top-down evaluation.
func (t *NonrecursiveRuleTheory) Include(other Theory) { t.AddInclude(other) }

// Exclude removes other from the theories this theory delegates to, used by
// Runtime.Project to detach its scratch theory once a sequence is applied.
func (t *NonrecursiveRuleTheory) Exclude(other Theory) { t.RemoveInclude(other) }

// Insert adds rule, returning false if an equal rule (by ast.Rule.Equals)
// is already present, matching the original's duplicate elimination.
func (t *NonrecursiveRuleTheory) Insert(rule ast.Rule) bool {
	table := rule.Head.Table
	t.log(table, "Insert: "+rule.String(), 0)
	for _, existing := range t.contents[table] {
		if existing.Equals(rule) {
			return false
		}
	}
	t.contents[table] = append(t.contents[table], rule)
	return true
}

// Delete removes rule, returning false if it was not present.
func (t *NonrecursiveRuleTheory) Delete(rule ast.Rule) bool {
	table := rule.Head.Table
	t.log(table, "Delete: "+rule.String(), 0)
	rules := t.contents[table]
	for i, existing := range rules {
		if existing.Equals(rule) {
			t.contents[table] = append(rules[:i], rules[i+1:]...)
			return true
		}
	}
	return false
}

// Define empties the theory and inserts rules.
func (t *NonrecursiveRuleTheory) Define(rules []ast.Rule) {
	t.contents = make(map[string][]ast.Rule)
	for _, rule := range rules {
		t.Insert(rule)
	}
}

// Content returns every rule stored in the theory, in no particular order.
func (t *NonrecursiveRuleTheory) Content() []ast.Rule {
	var results []ast.Rule
	for _, rules := range t.contents {
		results = append(results, rules...)
	}
	return results
}

// DefinedTableNames returns the head tables this theory writes to.
func (t *NonrecursiveRuleTheory) DefinedTableNames() []string {
	var names []string
	for table := range t.contents {
		names = append(names, table)
	}
	return names
}

// HeadIndex implements Theory.
func (t *NonrecursiveRuleTheory) HeadIndex(table string) []Formula {
	rules := t.contents[table]
	out := make([]Formula, len(rules))
	for i, r := range rules {
		out[i] = r
	}
	return out
}

// Head implements Theory.
func (t *NonrecursiveRuleTheory) Head(f Formula) ast.Atom { return f.(ast.Rule).Head }

// Body implements Theory.
func (t *NonrecursiveRuleTheory) Body(f Formula) []ast.Literal { return f.(ast.Rule).Body }

// BiUnify implements Theory.
func (t *NonrecursiveRuleTheory) BiUnify(f Formula, u1 *unify.BiUnifier, goal ast.Literal, u2 *unify.BiUnifier) ([]unify.Change, bool) {
	return unify.BiUnifyAtoms(t.Head(f), u1, goal.Atom, u2)
}
