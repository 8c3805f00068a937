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

package database

import (
	"testing"

	"github.com/congress-policy/runtime/ast"
	"github.com/congress-policy/runtime/proof"
	"github.com/congress-policy/runtime/unify"
)

func someProof(table string) proof.Collection {
	return proof.New(proof.Proof{
		Binding: proof.Binding{},
		Rule:    ast.NewRule(ast.NewAtom(table, ast.Integer(1))),
	})
}

func TestInsertAndExplain(t *testing.T) {
	db := New("test")
	a := ast.NewAtom("p", ast.Integer(1), ast.String("x"))
	if err := db.Insert(a, someProof("p")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	got := db.Explain(a)
	if got.IsEmpty() {
		t.Error("expected Explain() to return the proof just inserted")
	}
}

func TestModifyNoopOnDuplicateProof(t *testing.T) {
	db := New("test")
	a := ast.NewAtom("p", ast.Integer(1))
	pf := someProof("p")
	ev, err := db.Modify(a, true, pf)
	if err != nil || ev == nil {
		t.Fatalf("first Modify() = %v, %v, want a non-nil event", ev, err)
	}
	ev2, err := db.Modify(a, true, pf)
	if err != nil {
		t.Fatalf("second Modify() error = %v", err)
	}
	if ev2 != nil {
		t.Errorf("second Modify() with the same proof should be a noop, got %v", ev2)
	}
}

func TestDeleteRemovesTupleWhenProofsExhausted(t *testing.T) {
	db := New("test")
	a := ast.NewAtom("p", ast.Integer(1))
	pf := someProof("p")
	if err := db.Insert(a, pf); err != nil {
		t.Fatal(err)
	}
	if err := db.Delete(a, pf); err != nil {
		t.Fatal(err)
	}
	if !db.Explain(a).IsEmpty() {
		t.Error("expected tuple to be gone once its only proof was withdrawn")
	}
}

func TestTupleMatch(t *testing.T) {
	db := New("test")
	a := ast.NewAtom("p", ast.Integer(1), ast.String("x"))
	db.Insert(a, someProof("p"))

	x := ast.Variable{Name: "X"}
	u := unify.New()
	tuples := db.HeadIndex("p")
	if len(tuples) != 1 {
		t.Fatalf("HeadIndex() returned %d tuples, want 1", len(tuples))
	}
	changes, ok := tuples[0].Match(ast.NewAtom("p", ast.Integer(1), x), u)
	if !ok {
		t.Fatal("expected tuple to match atom with a free variable")
	}
	if got, _ := u.ApplyFull(x); !got.Equals(ast.String("x")) {
		t.Errorf("X resolved to %v, want \"x\"", got)
	}
	unify.UndoAll(changes)
}
