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
	"github.com/congress-policy/runtime/database"
)

// newTestView returns a materialized view whose base facts are stored by an
// included plain database theory, matching how the runtime wires a
// MaterializedViewTheory to the Database holding its extensional input.
func newTestView(name string) *MaterializedViewTheory {
	th := NewMaterializedViewTheory(name)
	th.Include(NewDatabaseTheory(name+"Base", database.New(name+"Base")))
	return th
}

func contentStrings(t *MaterializedViewTheory, table string) map[string]bool {
	out := make(map[string]bool)
	for _, atom := range t.Content() {
		if atom.Table == table {
			out[atom.String()] = true
		}
	}
	return out
}

func TestMaterializedBaseFactAndRule(t *testing.T) {
	th := newTestView("test")
	x := ast.Variable{Name: "X"}
	th.Insert(ast.NewRule(ast.NewAtom("p", x), ast.PosLiteral(ast.NewAtom("q", x))))
	th.Insert(ast.NewAtom("q", ast.Integer(1)))

	got := contentStrings(th, "p")
	if !got["p(1)"] || len(got) != 1 {
		t.Fatalf("Content()[p] = %v, want {p(1)}", got)
	}

	th.Delete(ast.NewAtom("q", ast.Integer(1)))
	got = contentStrings(th, "p")
	if len(got) != 0 {
		t.Errorf("Content()[p] after deleting q(1) = %v, want {}", got)
	}
}

func TestMaterializedRecursiveTransitiveClosure(t *testing.T) {
	th := newTestView("test")
	x, y, z := ast.Variable{Name: "X"}, ast.Variable{Name: "Y"}, ast.Variable{Name: "Z"}
	th.Insert(ast.NewRule(ast.NewAtom("r", x, y), ast.PosLiteral(ast.NewAtom("e", x, y))))
	th.Insert(ast.NewRule(
		ast.NewAtom("r", x, z),
		ast.PosLiteral(ast.NewAtom("r", x, y)),
		ast.PosLiteral(ast.NewAtom("e", y, z)),
	))
	th.Insert(ast.NewAtom("e", ast.Integer(1), ast.Integer(2)))
	th.Insert(ast.NewAtom("e", ast.Integer(2), ast.Integer(3)))
	th.Insert(ast.NewAtom("e", ast.Integer(3), ast.Integer(4)))

	want := map[string]bool{"r(1, 2)": true, "r(1, 3)": true, "r(1, 4)": true,
		"r(2, 3)": true, "r(2, 4)": true, "r(3, 4)": true}
	got := contentStrings(th, "r")
	if len(got) != len(want) {
		t.Fatalf("Content()[r] = %v, want %v", got, want)
	}
	for k := range want {
		if !got[k] {
			t.Errorf("Content()[r] missing %s, got %v", k, got)
		}
	}
}

func TestMaterializedNegationAsFailure(t *testing.T) {
	th := newTestView("test")
	x := ast.Variable{Name: "X"}
	th.Insert(ast.NewRule(
		ast.NewAtom("s", x),
		ast.PosLiteral(ast.NewAtom("t", x)),
		ast.NegLiteral(ast.NewAtom("u", x)),
	))
	th.Insert(ast.NewAtom("t", ast.Integer(1)))
	th.Insert(ast.NewAtom("t", ast.Integer(2)))
	th.Insert(ast.NewAtom("u", ast.Integer(1)))

	got := contentStrings(th, "s")
	if !got["s(2)"] || len(got) != 1 {
		t.Fatalf("Content()[s] = %v, want {s(2)}", got)
	}

	th.Insert(ast.NewAtom("u", ast.Integer(2)))
	got = contentStrings(th, "s")
	if len(got) != 0 {
		t.Errorf("Content()[s] after inserting u(2) = %v, want {}", got)
	}
}

func TestMaterializedProofBasedDeletion(t *testing.T) {
	th := newTestView("test")
	x := ast.Variable{Name: "X"}
	th.Insert(ast.NewRule(ast.NewAtom("p", x), ast.PosLiteral(ast.NewAtom("q", x))))
	th.Insert(ast.NewRule(ast.NewAtom("p", x), ast.PosLiteral(ast.NewAtom("r", x))))
	th.Insert(ast.NewAtom("q", ast.Integer(1)))
	th.Insert(ast.NewAtom("r", ast.Integer(1)))

	if got := contentStrings(th, "p"); !got["p(1)"] {
		t.Fatalf("Content()[p] = %v, want {p(1)}", got)
	}

	th.Delete(ast.NewAtom("q", ast.Integer(1)))
	if got := contentStrings(th, "p"); !got["p(1)"] {
		t.Fatalf("p(1) should survive while still proven via r(1), got %v", got)
	}

	th.Delete(ast.NewAtom("r", ast.Integer(1)))
	if got := contentStrings(th, "p"); len(got) != 0 {
		t.Errorf("p(1) should disappear once its last proof is withdrawn, got %v", got)
	}
}

func TestMaterializedSelfJoinCorrectness(t *testing.T) {
	th := newTestView("test")
	x, y := ast.Variable{Name: "X"}, ast.Variable{Name: "Y"}
	th.Insert(ast.NewRule(
		ast.NewAtom("sibling", x, y),
		ast.PosLiteral(ast.NewAtom("parent", ast.String("carol"), x)),
		ast.PosLiteral(ast.NewAtom("parent", ast.String("carol"), y)),
	))
	th.Insert(ast.NewAtom("parent", ast.String("carol"), ast.String("alice")))
	th.Insert(ast.NewAtom("parent", ast.String("carol"), ast.String("bob")))

	got := contentStrings(th, "sibling")
	want := map[string]bool{
		`sibling("alice", "alice")`: true,
		`sibling("alice", "bob")`:   true,
		`sibling("bob", "alice")`:   true,
		`sibling("bob", "bob")`:     true,
	}
	if len(got) != len(want) {
		t.Fatalf("Content()[sibling] = %v, want %v", got, want)
	}
	for k := range want {
		if !got[k] {
			t.Errorf("Content()[sibling] missing %s, got %v", k, got)
		}
	}
}

func TestMaterializedInsertIntoViewPanics(t *testing.T) {
	th := newTestView("test")
	x := ast.Variable{Name: "X"}
	th.Insert(ast.NewRule(ast.NewAtom("p", x), ast.PosLiteral(ast.NewAtom("q", x))))

	defer func() {
		if recover() == nil {
			t.Error("expected a panic inserting directly into a view table")
		}
	}()
	th.Insert(ast.NewAtom("p", ast.Integer(1)))
}
