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

package ast

import "strings"

// An update atom is an atom whose table name ends in "+" or "-",
// representing a pending insert or delete against some other table. This is
// the naming convention used at the boundary between the action theory and
// the classification theory (see runtime.Runtime.Project).
const (
	insertSuffix = "+"
	deleteSuffix = "-"
)

// IsUpdateTable reports whether table names a pending insert or delete.
func IsUpdateTable(table string) bool {
	return strings.HasSuffix(table, insertSuffix) || strings.HasSuffix(table, deleteSuffix)
}

// IsInsertTable reports whether table names a pending insert.
func IsInsertTable(table string) bool {
	return strings.HasSuffix(table, insertSuffix)
}

// DropUpdate strips the trailing "+"/"-" from table, if present.
func DropUpdate(table string) string {
	if strings.HasSuffix(table, insertSuffix) || strings.HasSuffix(table, deleteSuffix) {
		return table[:len(table)-1]
	}
	return table
}

// InvertUpdateTable swaps a trailing "+" for "-" and vice versa.
func InvertUpdateTable(table string) string {
	switch {
	case strings.HasSuffix(table, insertSuffix):
		return table[:len(table)-1] + deleteSuffix
	case strings.HasSuffix(table, deleteSuffix):
		return table[:len(table)-1] + insertSuffix
	default:
		return table
	}
}

// DropUpdate returns the atom with the update suffix stripped from its
// table name.
func (a Atom) DropUpdate() Atom {
	return Atom{DropUpdate(a.Table), a.Args}
}

// InvertUpdate returns the atom with its update polarity flipped.
func (a Atom) InvertUpdate() Atom {
	return Atom{InvertUpdateTable(a.Table), a.Args}
}

// DropUpdate returns the rule with the update suffix stripped from its
// head's table name.
func (r Rule) DropUpdate() Rule {
	return Rule{r.Head.DropUpdate(), r.Body}
}

// InvertUpdate returns the rule with its head's update polarity flipped.
func (r Rule) InvertUpdate() Rule {
	return Rule{r.Head.InvertUpdate(), r.Body}
}
