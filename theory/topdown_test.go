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
	"testing"

	"bitbucket.org/creachadair/stringset"

	"github.com/congress-policy/runtime/ast"
)

func TestSelectWithNegationAsFailure(t *testing.T) {
	th := NewNonrecursiveRuleTheory("test")
	th.Insert(ast.NewRule(ast.NewAtom("employee", ast.String("alice"))))
	th.Insert(ast.NewRule(ast.NewAtom("employee", ast.String("bob"))))
	th.Insert(ast.NewRule(ast.NewAtom("suspended", ast.String("bob"))))

	x := ast.Variable{Name: "X"}
	th.Insert(ast.NewRule(
		ast.NewAtom("active", x),
		ast.PosLiteral(ast.NewAtom("employee", x)),
		ast.NegLiteral(ast.NewAtom("suspended", x)),
	))

	got := Select(th, ast.NewAtom("active", ast.Variable{Name: "A"}), true)
	if len(got) != 1 {
		t.Fatalf("Select(active) returned %d results, want 1: %v", len(got), got)
	}
	if !got[0].(ast.Atom).Equals(ast.NewAtom("active", ast.String("alice"))) {
		t.Errorf("Select(active) = %v, want active(alice)", got[0])
	}
}

func TestNegatedLiteralMustBeGround(t *testing.T) {
	th := NewNonrecursiveRuleTheory("test")
	th.Insert(ast.NewRule(ast.NewAtom("employee", ast.String("alice"))))
	x, y := ast.Variable{Name: "X"}, ast.Variable{Name: "Y"}
	th.Insert(ast.NewRule(
		ast.NewAtom("active", x),
		ast.PosLiteral(ast.NewAtom("employee", x)),
		ast.NegLiteral(ast.NewAtom("suspended", y)),
	))

	defer func() {
		if recover() == nil {
			t.Error("expected a panic evaluating a non-ground negated literal")
		}
	}()
	Select(th, ast.NewAtom("active", ast.Variable{Name: "A"}), true)
}

func TestAbduceSavesUnknownLiterals(t *testing.T) {
	th := NewNonrecursiveRuleTheory("test")
	x := ast.Variable{Name: "X"}
	th.Insert(ast.NewRule(
		ast.NewAtom("may_access", x, ast.String("secret")),
		ast.PosLiteral(ast.NewAtom("has_clearance", x)),
	))

	rules := Abduce(th, ast.NewAtom("may_access", ast.String("alice"), ast.String("secret")),
		stringset.New("has_clearance"), true)
	if len(rules) != 1 {
		t.Fatalf("Abduce() returned %d rules, want 1: %v", len(rules), rules)
	}
	rule := rules[0]
	if !rule.Head.Equals(ast.NewAtom("may_access", ast.String("alice"), ast.String("secret"))) {
		t.Errorf("Abduce() head = %v, want may_access(alice, secret)", rule.Head)
	}
	if len(rule.Body) != 1 || rule.Body[0].Tablename() != "has_clearance" {
		t.Errorf("Abduce() body = %v, want a single has_clearance literal", rule.Body)
	}
}

func TestAbduceSavesTopLevelNegatedLiteral(t *testing.T) {
	// Saving applies to whatever literal the tablenames predicate matches,
	// negation included, when that literal is directly part of the query
	// being abduced over (as opposed to a literal nested inside the proof
	// of some other negation).
	th := NewNonrecursiveRuleTheory("test")
	th.Insert(ast.NewRule(ast.NewAtom("employee", ast.String("alice"))))
	x := ast.Variable{Name: "X"}
	th.Insert(ast.NewRule(
		ast.NewAtom("active", x),
		ast.PosLiteral(ast.NewAtom("employee", x)),
		ast.NegLiteral(ast.NewAtom("suspended", x)),
	))

	rules := Abduce(th, ast.NewAtom("active", ast.String("alice")), stringset.New("suspended"), true)
	if len(rules) != 1 {
		t.Fatalf("Abduce() returned %d rules, want 1: %v", len(rules), rules)
	}
	if len(rules[0].Body) != 1 || !rules[0].Body[0].Negated || rules[0].Body[0].Tablename() != "suspended" {
		t.Errorf("Abduce() body = %v, want a single negated suspended literal", rules[0].Body)
	}
}

func TestAbduceNeverSavesLiteralsNestedInsideANegation(t *testing.T) {
	// blocked is not in tablenames, so "not blocked(X)" is evaluated rather
	// than saved; flagged is in tablenames but only appears nested inside
	// that negation's own proof search, where abduction is disabled.
	th := NewNonrecursiveRuleTheory("test")
	th.Insert(ast.NewRule(ast.NewAtom("employee", ast.String("alice"))))
	x := ast.Variable{Name: "X"}
	th.Insert(ast.NewRule(
		ast.NewAtom("blocked", x),
		ast.PosLiteral(ast.NewAtom("flagged", x)),
	))
	th.Insert(ast.NewRule(
		ast.NewAtom("active", x),
		ast.PosLiteral(ast.NewAtom("employee", x)),
		ast.NegLiteral(ast.NewAtom("blocked", x)),
	))

	rules := Abduce(th, ast.NewAtom("active", ast.String("alice")), stringset.New("flagged"), true)
	if len(rules) != 1 {
		t.Fatalf("Abduce() returned %d rules, want 1: %v", len(rules), rules)
	}
	if len(rules[0].Body) != 0 {
		t.Errorf("Abduce() body = %v, want empty (flagged must never be saved while proving a negation)", rules[0].Body)
	}
}
