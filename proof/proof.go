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

// Package proof records, for each derived tuple, the set of rule
// applications that justify it, so that a tuple can be retracted when its
// last justification is withdrawn.
package proof

import (
	"fmt"
	"strings"

	"github.com/congress-policy/runtime/ast"
)

// Binding is the variable substitution a rule was applied under.
type Binding map[ast.Variable]ast.Constant

func (b Binding) equals(o Binding) bool {
	if len(b) != len(o) {
		return false
	}
	for v, c := range b {
		oc, ok := o[v]
		if !ok || !c.Equals(oc) {
			return false
		}
	}
	return true
}

func (b Binding) String() string {
	var sb strings.Builder
	sb.WriteRune('{')
	first := true
	for v, c := range b {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&sb, "%s: %s", v, c)
	}
	sb.WriteRune('}')
	return sb.String()
}

// Proof records that Rule, applied under Binding, derives a tuple.
type Proof struct {
	Binding Binding
	Rule    ast.Rule
}

// Equals reports whether p and o record the same rule application.
func (p Proof) Equals(o Proof) bool {
	return p.Binding.equals(o.Binding) && p.Rule.Equals(o.Rule)
}

// String returns a debug representation, e.g. "apply({X: 1}, p(X) :- q(X).)".
func (p Proof) String() string {
	return fmt.Sprintf("apply(%s, %s)", p.Binding, p.Rule)
}

// Collection is a set of Proofs: a tuple derived by more than one rule
// application carries one Proof per application, so that deleting the facts
// behind one application doesn't retract a tuple still justified by
// another. Membership, not order or count, is what matters: adding a proof
// already present is a no-op, mirroring a Python set built from a list.
type Collection struct {
	contents []Proof
}

// New returns a Collection containing the given proofs, with duplicates
// (by Equals) collapsed.
func New(proofs ...Proof) Collection {
	var c Collection
	for _, p := range proofs {
		c.add(p)
	}
	return c
}

func (c *Collection) add(p Proof) {
	for _, existing := range c.contents {
		if existing.Equals(p) {
			return
		}
	}
	c.contents = append(c.contents, p)
}

// Contains reports whether p is already in the collection.
func (c Collection) Contains(p Proof) bool {
	for _, existing := range c.contents {
		if existing.Equals(p) {
			return true
		}
	}
	return false
}

// Len returns the number of distinct proofs.
func (c Collection) Len() int { return len(c.contents) }

// IsEmpty reports whether the collection has no proofs.
func (c Collection) IsEmpty() bool { return len(c.contents) == 0 }

// List returns the proofs in the collection, in no particular order.
// Callers must not mutate the returned slice.
func (c Collection) List() []Proof { return c.contents }

// Union returns the collection containing every proof in c or in other
// (duplicates collapsed).
func (c Collection) Union(other Collection) Collection {
	result := New(c.contents...)
	for _, p := range other.contents {
		result.add(p)
	}
	return result
}

// Subtract returns the proofs in c that are not also in other.
func (c Collection) Subtract(other Collection) Collection {
	var result Collection
	for _, p := range c.contents {
		if !other.Contains(p) {
			result.add(p)
		}
	}
	return result
}

// subsetOf reports whether every proof in c is also in other.
func (c Collection) subsetOf(other Collection) bool {
	for _, p := range c.contents {
		if !other.Contains(p) {
			return false
		}
	}
	return true
}

// Equals reports whether c and o contain the same set of proofs.
func (c Collection) Equals(o Collection) bool {
	return c.subsetOf(o) && o.subsetOf(c)
}

// String returns a debug representation.
func (c Collection) String() string {
	var sb strings.Builder
	sb.WriteRune('{')
	for i, p := range c.contents {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteRune('}')
	return sb.String()
}
