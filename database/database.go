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

// Package database holds the ground extensional facts of a theory: plain
// tuples, each carrying the set of proofs that currently justify it.
package database

import (
	"fmt"
	"sort"
	"strings"

	"bitbucket.org/creachadair/stringset"

	"github.com/congress-policy/runtime/ast"
	"github.com/congress-policy/runtime/event"
	"github.com/congress-policy/runtime/proof"
	"github.com/congress-policy/runtime/trace"
	"github.com/congress-policy/runtime/unify"
)

// Tuple is one ground row stored under a table name, together with the
// proofs that justify it. A tuple with no remaining proofs is deleted.
type Tuple struct {
	Table  string
	Values []ast.Constant
	Proofs proof.Collection
}

func newTuple(table string, values []ast.Constant, proofs proof.Collection) *Tuple {
	return &Tuple{Table: table, Values: values, Proofs: proofs}
}

func (t *Tuple) sameValues(values []ast.Constant) bool {
	if len(t.Values) != len(values) {
		return false
	}
	for i, v := range t.Values {
		if !v.Equals(values[i]) {
			return false
		}
	}
	return true
}

// Atom reconstructs the ast.Atom this tuple represents.
func (t *Tuple) Atom() ast.Atom {
	args := make([]ast.Term, len(t.Values))
	for i, v := range t.Values {
		args[i] = v
	}
	return ast.NewAtom(t.Table, args...)
}

// Match unifies t's values positionally against atom's arguments under u2,
// where t itself is implicitly ground (it lives in no scope of its own). On
// success it returns the changes made to u2 (via UndoAll-compatible
// unify.Change values); on failure it returns (nil, false) having undone any
// partial progress.
func (t *Tuple) Match(atom ast.Atom, u2 *unify.BiUnifier) ([]unify.Change, bool) {
	if len(t.Values) != len(atom.Args) {
		return nil, false
	}
	var changes []unify.Change
	for i, arg := range atom.Args {
		if !unify.UnifyTerms(t.Values[i], nil, arg, u2, &changes) {
			unify.UndoAll(changes)
			return nil, false
		}
	}
	return changes, true
}

func (t *Tuple) String() string {
	var sb strings.Builder
	sb.WriteRune('(')
	for i, v := range t.Values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.String())
	}
	sb.WriteRune(')')
	sb.WriteString(t.Proofs.String())
	return sb.String()
}

// Database is a theory's extensional data: a set of tables, each holding
// tuples with their justifying proofs.
type Database struct {
	Name   string
	data   map[string][]*Tuple
	tracer *trace.Tracer
}

// New returns an empty Database.
func New(name string) *Database {
	return &Database{Name: name, data: make(map[string][]*Tuple), tracer: trace.NewTracer()}
}

// SetTracer installs the tracer used for per-table debug logging.
func (db *Database) SetTracer(t *trace.Tracer) { db.tracer = t }

func (db *Database) log(table, msg string) {
	if db.tracer != nil {
		db.tracer.Log(table, fmt.Sprintf("%s DB: %s", db.Name, msg), 0)
	}
}

// TableNames returns the tables with at least one tuple.
func (db *Database) TableNames() stringset.Set {
	s := stringset.New()
	for table, tuples := range db.data {
		if len(tuples) > 0 {
			s.Add(table)
		}
	}
	return s
}

// Contents returns every stored tuple as an Atom, across all tables.
func (db *Database) Contents() []ast.Atom {
	var tables []string
	for table := range db.data {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	var results []ast.Atom
	for _, table := range tables {
		for _, tuple := range db.data[table] {
			results = append(results, tuple.Atom())
		}
	}
	return results
}

// HeadIndex returns the tuples stored for table, satisfying the Theory
// capability interface (each tuple stands for a fact with an empty body).
func (db *Database) HeadIndex(table string) []*Tuple {
	return db.data[table]
}

// isNoop reports whether applying e to db would have no observable effect:
// an insert whose proofs are already a subset of an existing tuple's
// proofs, or a delete of a tuple/proof set that isn't present.
func (db *Database) isNoop(atom ast.Atom, insert bool, proofs proof.Collection) bool {
	existing, ok := db.data[atom.Table]
	if !ok {
		return !insert
	}
	values, err := atom.ArgumentNames()
	if err != nil {
		return !insert
	}
	for _, tuple := range existing {
		if tuple.sameValues(values) {
			return proofs.Subtract(tuple.Proofs).IsEmpty() == insert
		}
	}
	return !insert
}

// Modify inserts or deletes atom (justified by proofs) and returns the
// resulting event, or nil if the change was a noop.
func (db *Database) Modify(atom ast.Atom, insert bool, proofs proof.Collection) (*event.Event, error) {
	db.log(atom.Table, fmt.Sprintf("Modify: %s", atom))
	if db.isNoop(atom, insert, proofs) {
		db.log(atom.Table, fmt.Sprintf("noop: %s", atom))
		return nil, nil
	}
	if insert {
		if err := db.Insert(atom, proofs); err != nil {
			return nil, err
		}
		ev := event.NewInsert(atom, proofs)
		return &ev, nil
	}
	if err := db.Delete(atom, proofs); err != nil {
		return nil, err
	}
	ev := event.NewDelete(atom, proofs)
	return &ev, nil
}

// Insert adds atom to the database, merging proofs into any existing tuple
// with the same values.
func (db *Database) Insert(atom ast.Atom, proofs proof.Collection) error {
	values, err := atom.ArgumentNames()
	if err != nil {
		return fmt.Errorf("database: insert requires a ground atom, got %v: %w", atom, err)
	}
	db.log(atom.Table, fmt.Sprintf("Insert: %s", atom))
	for _, tuple := range db.data[atom.Table] {
		if tuple.sameValues(values) {
			tuple.Proofs = tuple.Proofs.Union(proofs)
			return nil
		}
	}
	db.data[atom.Table] = append(db.data[atom.Table], newTuple(atom.Table, values, proofs))
	return nil
}

// Delete withdraws proofs from the tuple matching atom, removing the tuple
// altogether once no proof remains.
func (db *Database) Delete(atom ast.Atom, proofs proof.Collection) error {
	values, err := atom.ArgumentNames()
	if err != nil {
		return fmt.Errorf("database: delete requires a ground atom, got %v: %w", atom, err)
	}
	db.log(atom.Table, fmt.Sprintf("Delete: %s", atom))
	tuples := db.data[atom.Table]
	for i, tuple := range tuples {
		if tuple.sameValues(values) {
			tuple.Proofs = tuple.Proofs.Subtract(proofs)
			if tuple.Proofs.IsEmpty() {
				db.data[atom.Table] = append(tuples[:i], tuples[i+1:]...)
			}
			return nil
		}
	}
	return nil
}

// Explain returns the proofs justifying the ground atom, or an empty
// collection if it is not present or not ground.
func (db *Database) Explain(atom ast.Atom) proof.Collection {
	if !atom.IsGround() {
		return proof.Collection{}
	}
	values, err := atom.ArgumentNames()
	if err != nil {
		return proof.Collection{}
	}
	for _, tuple := range db.data[atom.Table] {
		if tuple.sameValues(values) {
			return tuple.Proofs
		}
	}
	return proof.Collection{}
}

// Union returns a new Database holding every tuple in db or other, merging
// proofs for tuples present in both. Used by tests that compare expected
// and actual theory state.
func (db *Database) Union(other *Database) *Database {
	result := New(db.Name)
	for _, atom := range db.Contents() {
		result.Insert(atom, db.Explain(atom))
	}
	for _, atom := range other.Contents() {
		result.Insert(atom, other.Explain(atom))
	}
	return result
}

// Difference returns the atoms present in db but not in other (ignoring
// proofs), used by tests to compute a symmetric-difference-style diagnostic.
func (db *Database) Difference(other *Database) []ast.Atom {
	var results []ast.Atom
	for table, tuples := range db.data {
		otherTuples, ok := other.data[table]
		for _, tuple := range tuples {
			found := false
			if ok {
				for _, ot := range otherTuples {
					if ot.sameValues(tuple.Values) {
						found = true
						break
					}
				}
			}
			if !found {
				results = append(results, tuple.Atom())
			}
		}
	}
	return results
}

func (db *Database) String() string {
	var tables []string
	for table := range db.data {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	var sb strings.Builder
	sb.WriteRune('{')
	for i, table := range tables {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: [", table)
		for j, tuple := range db.data[table] {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(tuple.String())
		}
		sb.WriteRune(']')
	}
	sb.WriteRune('}')
	return sb.String()
}
