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

package proof

import (
	"testing"

	"github.com/congress-policy/runtime/ast"
)

func rule(table string) ast.Rule {
	return ast.NewRule(ast.NewAtom(table, ast.Integer(1)))
}

func TestCollectionDedup(t *testing.T) {
	p := Proof{Binding: Binding{ast.Variable{Name: "X"}: ast.Integer(1)}, Rule: rule("p")}
	c := New(p, p)
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after adding the same proof twice", c.Len())
	}
}

func TestCollectionUnionSubtract(t *testing.T) {
	p1 := Proof{Binding: Binding{ast.Variable{Name: "X"}: ast.Integer(1)}, Rule: rule("p")}
	p2 := Proof{Binding: Binding{ast.Variable{Name: "X"}: ast.Integer(2)}, Rule: rule("p")}
	a := New(p1)
	b := New(p2)

	union := a.Union(b)
	if union.Len() != 2 {
		t.Fatalf("Union().Len() = %d, want 2", union.Len())
	}
	if !union.Contains(p1) || !union.Contains(p2) {
		t.Error("Union() missing an expected proof")
	}

	diff := union.Subtract(a)
	if diff.Len() != 1 || !diff.Contains(p2) {
		t.Errorf("Subtract() = %v, want just %v", diff, p2)
	}
}

func TestCollectionEquals(t *testing.T) {
	p1 := Proof{Binding: Binding{ast.Variable{Name: "X"}: ast.Integer(1)}, Rule: rule("p")}
	p2 := Proof{Binding: Binding{ast.Variable{Name: "X"}: ast.Integer(2)}, Rule: rule("p")}

	a := New(p1, p2)
	b := New(p2, p1) // different order
	if !a.Equals(b) {
		t.Error("expected collections with the same proofs in different order to be equal")
	}

	c := New(p1)
	if a.Equals(c) {
		t.Error("expected collections with different contents to not be equal")
	}
}

func TestEmptyCollection(t *testing.T) {
	var c Collection
	if !c.IsEmpty() {
		t.Error("zero-value Collection should be empty")
	}
	p := Proof{Binding: Binding{}, Rule: rule("p")}
	if c.Contains(p) {
		t.Error("empty collection should not contain anything")
	}
}
