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
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/congress-policy/runtime/ast"
)

func sortedAtomStrings(atoms []ast.Atom) []string {
	var out []string
	for _, a := range atoms {
		out = append(out, a.String())
	}
	sort.Strings(out)
	return out
}

func TestConsequencesDefaultsToOwnDefinedTables(t *testing.T) {
	base := NewNonrecursiveRuleTheory("base")
	base.Insert(ast.NewRule(ast.NewAtom("p", ast.Integer(1))))

	th := NewNonrecursiveRuleTheory("derived")
	th.Include(base)
	th.Insert(ast.NewRule(ast.NewAtom("q", ast.Integer(2))))

	got := sortedAtomStrings(Consequences(th, th.DefinedTableNames(), nil))
	want := []string{"q(2)"}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(ast.Constant{})); diff != "" {
		t.Errorf("Consequences() only covers the theory's own defined tables, not its includes (-want +got):\n%s", diff)
	}
}

func TestConsequencesFilter(t *testing.T) {
	th := NewNonrecursiveRuleTheory("derived")
	th.Insert(ast.NewRule(ast.NewAtom("p+", ast.Integer(1))))
	th.Insert(ast.NewRule(ast.NewAtom("q", ast.Integer(2))))

	got := sortedAtomStrings(Consequences(th, th.DefinedTableNames(), ast.IsUpdateTable))
	want := []string{"p+(1)"}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(ast.Constant{})); diff != "" {
		t.Errorf("Consequences() with filter (-want +got):\n%s", diff)
	}
}

func TestEvaluateFindsBindings(t *testing.T) {
	th := NewNonrecursiveRuleTheory("test")
	th.Insert(ast.NewRule(ast.NewAtom("edge", ast.String("a"), ast.String("b"))))
	th.Insert(ast.NewRule(ast.NewAtom("edge", ast.String("b"), ast.String("c"))))

	x, y := ast.Variable{Name: "X"}, ast.Variable{Name: "Y"}
	bindings := Evaluate(th, []ast.Variable{x, y}, []ast.Literal{
		ast.PosLiteral(ast.NewAtom("edge", x, y)),
	}, true)

	var got []string
	for _, b := range bindings {
		got = append(got, b[x].String()+"->"+b[y].String())
	}
	sort.Strings(got)
	want := []string{"a->b", "b->c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Evaluate() bindings (-want +got):\n%s", diff)
	}
}
