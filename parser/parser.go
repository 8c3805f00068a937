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

// Package parser defines the boundary between the policy language's
// surface syntax and the core engine. The grammar itself is out of scope:
// this package declares only the interface runtime.Runtime depends on, so
// that a caller can inject a concrete parser (e.g. ANTLR-generated, the way
// mangle's own parser sits behind mangle's interpreter package) without the
// core importing a grammar.
package parser

import "github.com/congress-policy/runtime/ast"

// Parser turns surface syntax into the AST the engine operates on.
type Parser interface {
	// Parse returns every formula in text, in source order.
	Parse(text string) ([]ast.Formula, error)

	// Parse1 parses text as exactly one formula. It returns an error if
	// text contains zero or more than one.
	Parse1(text string) (ast.Formula, error)

	// ParseFile reads and parses the formulas in the file at path.
	ParseFile(path string) ([]ast.Formula, error)
}
