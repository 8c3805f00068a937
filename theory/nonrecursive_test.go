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

	"github.com/congress-policy/runtime/ast"
)

func TestNonrecursiveInsertDedup(t *testing.T) {
	th := NewNonrecursiveRuleTheory("test")
	r := ast.NewRule(ast.NewAtom("p", ast.Integer(1)))
	if !th.Insert(r) {
		t.Fatal("first Insert() = false, want true")
	}
	if th.Insert(r) {
		t.Error("second Insert() of an equal rule = true, want false (dedup)")
	}
	if len(th.Content()) != 1 {
		t.Errorf("Content() has %d rules, want 1", len(th.Content()))
	}
}

func TestNonrecursiveDelete(t *testing.T) {
	th := NewNonrecursiveRuleTheory("test")
	r := ast.NewRule(ast.NewAtom("p", ast.Integer(1)))
	th.Insert(r)
	if !th.Delete(r) {
		t.Fatal("Delete() = false, want true")
	}
	if th.Delete(r) {
		t.Error("Delete() of an absent rule = true, want false")
	}
	if len(th.Content()) != 0 {
		t.Errorf("Content() has %d rules after delete, want 0", len(th.Content()))
	}
}

func TestNonrecursiveDefineReplacesContents(t *testing.T) {
	th := NewNonrecursiveRuleTheory("test")
	th.Insert(ast.NewRule(ast.NewAtom("p", ast.Integer(1))))
	th.Define([]ast.Rule{ast.NewRule(ast.NewAtom("q", ast.Integer(2)))})
	if len(th.Content()) != 1 || th.Content()[0].Head.Table != "q" {
		t.Errorf("Define() did not replace contents: %v", th.Content())
	}
}

func TestNonrecursiveSelectFactAndRule(t *testing.T) {
	th := NewNonrecursiveRuleTheory("test")
	th.Insert(ast.NewRule(ast.NewAtom("parent", ast.String("alice"), ast.String("bob"))))
	th.Insert(ast.NewRule(ast.NewAtom("parent", ast.String("bob"), ast.String("carol"))))
	x, y, z := ast.Variable{Name: "X"}, ast.Variable{Name: "Y"}, ast.Variable{Name: "Z"}
	th.Insert(ast.NewRule(
		ast.NewAtom("grandparent", x, z),
		ast.PosLiteral(ast.NewAtom("parent", x, y)),
		ast.PosLiteral(ast.NewAtom("parent", y, z)),
	))

	got := Select(th, ast.NewAtom("grandparent", ast.Variable{Name: "A"}, ast.Variable{Name: "B"}), true)
	if len(got) != 1 {
		t.Fatalf("Select(grandparent) returned %d results, want 1: %v", len(got), got)
	}
	atom := got[0].(ast.Atom)
	if !atom.Equals(ast.NewAtom("grandparent", ast.String("alice"), ast.String("carol"))) {
		t.Errorf("Select(grandparent) = %v, want grandparent(alice, carol)", atom)
	}
}

func TestNonrecursiveSelectFindAllVsFirst(t *testing.T) {
	th := NewNonrecursiveRuleTheory("test")
	th.Insert(ast.NewRule(ast.NewAtom("p", ast.Integer(1))))
	th.Insert(ast.NewRule(ast.NewAtom("p", ast.Integer(2))))

	all := Select(th, ast.NewAtom("p", ast.Variable{Name: "X"}), true)
	if len(all) != 2 {
		t.Errorf("Select(findAll=true) returned %d results, want 2", len(all))
	}
	one := Select(th, ast.NewAtom("p", ast.Variable{Name: "X"}), false)
	if len(one) != 1 {
		t.Errorf("Select(findAll=false) returned %d results, want 1", len(one))
	}
}
