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

// Package event holds the work queue used by incremental materialized-view
// maintenance: each insert or delete against a MaterializedViewTheory
// enqueues an Event, and propagation drains the queue, possibly enqueueing
// further events derived from delta rules.
package event

import (
	"fmt"
	"strings"

	"github.com/congress-policy/runtime/ast"
	"github.com/congress-policy/runtime/proof"
)

// Event is a pending insert or delete of a Formula (an ast.Atom fact or an
// ast.Rule), together with the proofs that justify it (relevant only for
// atom events; a rule carries no proofs of its own).
type Event struct {
	Formula ast.Formula
	Insert  bool
	Proofs  proof.Collection
}

// NewInsert constructs an insert event.
func NewInsert(f ast.Formula, proofs proof.Collection) Event {
	return Event{Formula: f, Insert: true, Proofs: proofs}
}

// NewDelete constructs a delete event.
func NewDelete(f ast.Formula, proofs proof.Collection) Event {
	return Event{Formula: f, Insert: false, Proofs: proofs}
}

// IsInsert reports whether this event is an insert (as opposed to delete).
func (e Event) IsInsert() bool { return e.Insert }

// Tablename returns the table name of the event's formula: the atom's
// table, or a rule's head table.
func (e Event) Tablename() string {
	switch f := e.Formula.(type) {
	case ast.Atom:
		return f.Table
	case ast.Rule:
		return f.Head.Table
	default:
		return ""
	}
}

// String returns a debug representation.
func (e Event) String() string {
	verb := "insert"
	if !e.Insert {
		verb = "delete"
	}
	return fmt.Sprintf("%s(%s, %s)", verb, e.Formula, e.Proofs)
}

// Equals reports whether e and o represent the same pending change.
func (e Event) Equals(o Event) bool {
	if e.Insert != o.Insert {
		return false
	}
	switch f := e.Formula.(type) {
	case ast.Atom:
		of, ok := o.Formula.(ast.Atom)
		return ok && f.Equals(of) && e.Proofs.Equals(o.Proofs)
	case ast.Rule:
		of, ok := o.Formula.(ast.Rule)
		return ok && f.Equals(of)
	default:
		return false
	}
}

// Queue is a FIFO of pending Events.
type Queue struct {
	items []Event
}

// Enqueue appends e to the back of the queue.
func (q *Queue) Enqueue(e Event) {
	q.items = append(q.items, e)
}

// Dequeue removes and returns the event at the front of the queue. It
// panics if the queue is empty; callers must check Len first.
func (q *Queue) Dequeue() Event {
	e := q.items[0]
	q.items = q.items[1:]
	return e
}

// Len returns the number of pending events.
func (q *Queue) Len() int { return len(q.items) }

// String returns a debug representation.
func (q *Queue) String() string {
	var sb strings.Builder
	sb.WriteRune('[')
	for i, e := range q.items {
		if i > 0 {
			sb.WriteRune(',')
		}
		sb.WriteString(e.String())
	}
	sb.WriteRune(']')
	return sb.String()
}
