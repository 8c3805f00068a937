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

// Package ast contains the term and formula representations for the policy
// language: variables, constants, atoms, literals and rules.
package ast

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
)

// Term is either a Variable or a Constant.
type Term interface {
	// Marker method.
	isTerm()

	// String returns a source-like representation.
	String() string

	// Equals reports structural equality.
	Equals(Term) bool

	// IsGround reports whether this term contains no variables.
	IsGround() bool

	// Hash returns a hash code consistent with Equals.
	Hash() uint64
}

// Binding resolves a variable to the term it is ultimately bound to.
// Implementations (see package unify) are expected to have already chased
// any chain of variable-to-variable bindings to a fixed point: Resolve
// either returns a Constant, or the furthest variable in the chain that is
// still unbound.
type Binding interface {
	Resolve(Variable) Term
}

// Variable represents a named logic variable.
type Variable struct {
	Name string
}

func (v Variable) isTerm() {}

// String returns the variable's name.
func (v Variable) String() string { return v.Name }

// Equals reports whether u is the same variable.
func (v Variable) Equals(u Term) bool {
	o, ok := u.(Variable)
	return ok && v.Name == o.Name
}

// IsGround always returns false for a variable.
func (v Variable) IsGround() bool { return false }

// Hash returns a hash code for this variable.
func (v Variable) Hash() uint64 {
	h := fnv.New64()
	h.Write([]byte("var:"))
	h.Write([]byte(v.Name))
	return h.Sum64()
}

// ConstantType identifies the kind of value a Constant carries.
type ConstantType int

const (
	// StringType marks a string constant.
	StringType ConstantType = iota
	// IntegerType marks an integer (int64) constant.
	IntegerType
	// FloatType marks a floating point constant.
	FloatType
)

func (t ConstantType) String() string {
	switch t {
	case StringType:
		return "string"
	case IntegerType:
		return "integer"
	case FloatType:
		return "float"
	default:
		return "?"
	}
}

// Constant is an ObjectConstant: a ground value tagged with its type.
type Constant struct {
	Type ConstantType
	str  string // value for StringType
	num  int64  // value for IntegerType, or bit pattern of the float64 for FloatType
}

// String constructs a string constant.
func String(s string) Constant {
	return Constant{Type: StringType, str: s}
}

// Integer constructs an integer constant.
func Integer(n int64) Constant {
	return Constant{Type: IntegerType, num: n}
}

// Float constructs a floating point constant.
func Float(f float64) Constant {
	return Constant{Type: FloatType, num: int64(math.Float64bits(f))}
}

func (c Constant) isTerm() {}

// StringValue returns the string value, if this is a string constant.
func (c Constant) StringValue() (string, error) {
	if c.Type != StringType {
		return "", fmt.Errorf("not a string constant: %v", c)
	}
	return c.str, nil
}

// IntegerValue returns the integer value, if this is an integer constant.
func (c Constant) IntegerValue() (int64, error) {
	if c.Type != IntegerType {
		return 0, fmt.Errorf("not an integer constant: %v", c)
	}
	return c.num, nil
}

// FloatValue returns the float value, if this is a float constant.
func (c Constant) FloatValue() (float64, error) {
	if c.Type != FloatType {
		return 0, fmt.Errorf("not a float constant: %v", c)
	}
	return math.Float64frombits(uint64(c.num)), nil
}

// String returns a source-like representation of the constant.
func (c Constant) String() string {
	switch c.Type {
	case StringType:
		return strconv.Quote(c.str)
	case IntegerType:
		return strconv.FormatInt(c.num, 10)
	case FloatType:
		return strconv.FormatFloat(math.Float64frombits(uint64(c.num)), 'g', -1, 64)
	default:
		return "?"
	}
}

// Equals reports structural equality with another term.
func (c Constant) Equals(u Term) bool {
	o, ok := u.(Constant)
	if !ok {
		return false
	}
	if c.Type != o.Type {
		return false
	}
	switch c.Type {
	case StringType:
		return c.str == o.str
	default:
		return c.num == o.num
	}
}

// IsGround always returns true for a constant.
func (c Constant) IsGround() bool { return true }

// Hash returns a hash code for this constant.
func (c Constant) Hash() uint64 {
	h := fnv.New64()
	fmt.Fprintf(h, "const:%d:", c.Type)
	if c.Type == StringType {
		h.Write([]byte(c.str))
	} else {
		fmt.Fprintf(h, "%d", c.num)
	}
	return h.Sum64()
}

// Atom is a predicate symbol (the table name) applied to a tuple of terms.
type Atom struct {
	Table string
	Args  []Term
}

// NewAtom is a convenience constructor.
func NewAtom(table string, args ...Term) Atom {
	return Atom{Table: table, Args: args}
}

// Tablename returns the table this atom is about.
func (a Atom) Tablename() string { return a.Table }

// Arity returns the number of arguments.
func (a Atom) Arity() int { return len(a.Args) }

// IsGround reports whether every argument is a constant.
func (a Atom) IsGround() bool {
	for _, arg := range a.Args {
		if !arg.IsGround() {
			return false
		}
	}
	return true
}

// ArgumentNames returns the constant arguments of a ground atom, or an error
// if any argument is not a constant.
func (a Atom) ArgumentNames() ([]Constant, error) {
	result := make([]Constant, len(a.Args))
	for i, arg := range a.Args {
		c, ok := arg.(Constant)
		if !ok {
			return nil, fmt.Errorf("argument %d of %v is not ground", i, a)
		}
		result[i] = c
	}
	return result, nil
}

// Variables returns the distinct variables occurring in this atom, in
// first-occurrence order.
func (a Atom) Variables() []Variable {
	var vars []Variable
	seen := make(map[Variable]bool)
	for _, arg := range a.Args {
		if v, ok := arg.(Variable); ok && !seen[v] {
			seen[v] = true
			vars = append(vars, v)
		}
	}
	return vars
}

// Plug substitutes every variable argument via the binding, leaving
// constants and any still-unbound variables untouched.
func (a Atom) Plug(b Binding) Atom {
	if b == nil {
		return a
	}
	newArgs := make([]Term, len(a.Args))
	for i, arg := range a.Args {
		if v, ok := arg.(Variable); ok {
			newArgs[i] = b.Resolve(v)
		} else {
			newArgs[i] = arg
		}
	}
	return Atom{a.Table, newArgs}
}

// String returns a source-like representation.
func (a Atom) String() string {
	var sb strings.Builder
	sb.WriteString(a.Table)
	sb.WriteRune('(')
	for i, arg := range a.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.String())
	}
	sb.WriteRune(')')
	return sb.String()
}

// Equals reports structural equality with another atom.
func (a Atom) Equals(o Atom) bool {
	if a.Table != o.Table || len(a.Args) != len(o.Args) {
		return false
	}
	for i, arg := range a.Args {
		if !arg.Equals(o.Args[i]) {
			return false
		}
	}
	return true
}

// Hash returns a hash code for this atom, consistent with Equals.
func (a Atom) Hash() uint64 {
	h := fnv.New64()
	h.Write([]byte(a.Table))
	for _, arg := range a.Args {
		b := make([]byte, 8)
		x := arg.Hash()
		for i := 0; i < 8; i++ {
			b[i] = byte(x >> (8 * i))
		}
		h.Write(b)
	}
	return h.Sum64()
}

func (a Atom) isFormula() {}

// Literal is an Atom together with a polarity bit. Literals only appear in
// rule bodies.
type Literal struct {
	Atom    Atom
	Negated bool
}

// PosLiteral constructs a non-negated literal.
func PosLiteral(a Atom) Literal { return Literal{Atom: a} }

// NegLiteral constructs a negated literal.
func NegLiteral(a Atom) Literal { return Literal{Atom: a, Negated: true} }

// IsNegated reports whether this literal is negated.
func (l Literal) IsNegated() bool { return l.Negated }

// MakePositive returns the underlying atom, ignoring polarity.
func (l Literal) MakePositive() Atom { return l.Atom }

// Complement returns the literal with flipped polarity.
func (l Literal) Complement() Literal { return Literal{l.Atom, !l.Negated} }

// Tablename returns the table name of the underlying atom.
func (l Literal) Tablename() string { return l.Atom.Table }

// IsGround reports whether the underlying atom is ground.
func (l Literal) IsGround() bool { return l.Atom.IsGround() }

// Variables returns the variables of the underlying atom.
func (l Literal) Variables() []Variable { return l.Atom.Variables() }

// Plug substitutes variables in the underlying atom.
func (l Literal) Plug(b Binding) Literal {
	return Literal{l.Atom.Plug(b), l.Negated}
}

// String returns a source-like representation.
func (l Literal) String() string {
	if l.Negated {
		return "not " + l.Atom.String()
	}
	return l.Atom.String()
}

// Equals reports structural equality with another literal.
func (l Literal) Equals(o Literal) bool {
	return l.Negated == o.Negated && l.Atom.Equals(o.Atom)
}

// Rule is a Horn clause: head :- body (possibly empty).
type Rule struct {
	Head Atom
	Body []Literal
}

// NewRule constructs a rule.
func NewRule(head Atom, body ...Literal) Rule {
	return Rule{Head: head, Body: body}
}

// IsFact reports whether this rule has an empty body, i.e. is equivalent to
// asserting its head unconditionally.
func (r Rule) IsFact() bool { return len(r.Body) == 0 }

// Tablename returns the head's table name.
func (r Rule) Tablename() string { return r.Head.Table }

// Variables returns the distinct variables occurring in head or body.
func (r Rule) Variables() []Variable {
	var vars []Variable
	seen := make(map[Variable]bool)
	add := func(vs []Variable) {
		for _, v := range vs {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	add(r.Head.Variables())
	for _, lit := range r.Body {
		add(lit.Variables())
	}
	return vars
}

// String returns a source-like representation.
func (r Rule) String() string {
	if r.IsFact() {
		return r.Head.String() + "."
	}
	var sb strings.Builder
	sb.WriteString(r.Head.String())
	sb.WriteString(" :- ")
	for i, lit := range r.Body {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(lit.String())
	}
	sb.WriteRune('.')
	return sb.String()
}

// Equals reports structural equality with another rule.
func (r Rule) Equals(o Rule) bool {
	if !r.Head.Equals(o.Head) || len(r.Body) != len(o.Body) {
		return false
	}
	for i, lit := range r.Body {
		if !lit.Equals(o.Body[i]) {
			return false
		}
	}
	return true
}

func (r Rule) isFormula() {}

// Formula is either an Atom or a Rule: the two things the runtime's public
// operations (select, insert, delete, ...) accept.
type Formula interface {
	isFormula()
	String() string
}

// TrueBuiltin and FalseBuiltin are the names of the two built-in 0-ary
// tables recognized directly by the engine (see theory.topDownEval).
const (
	TrueBuiltin  = "true"
	FalseBuiltin = "false"
)
