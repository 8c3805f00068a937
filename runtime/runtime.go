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

// Package runtime is the façade: a fixed registry of theories (database,
// classification, enforcement, action, service) wired together per
// original_source/runtime.py's Runtime class, plus the operations
// (select, insert, delete, explain, simulate, execute, remediate) that
// route through that registry.
package runtime

import (
	"fmt"

	"bitbucket.org/creachadair/stringset"

	"github.com/congress-policy/runtime/ast"
	"github.com/congress-policy/runtime/database"
	"github.com/congress-policy/runtime/parser"
	"github.com/congress-policy/runtime/theory"
	"github.com/congress-policy/runtime/trace"
)

// Target names one of the five theories a Runtime wires together.
type Target int

const (
	// Database holds the extensional facts ENFORCEMENT derives from.
	Database Target = iota
	// Classify is the materialized view policy rules write to.
	Classify
	// Enforcement includes Classify and is where all atomic data changes
	// actually land, once routed.
	Enforcement
	// Action holds the rules mapping action invocations to update atoms.
	Action
	// Service is a standalone bag of rules with no bearing on enforcement.
	Service
)

func (t Target) String() string {
	switch t {
	case Database:
		return "database"
	case Classify:
		return "classification"
	case Enforcement:
		return "enforcement"
	case Action:
		return "action"
	case Service:
		return "service"
	default:
		return "unknown"
	}
}

// ExecuteHook is invoked once per ground action atom Runtime.Execute runs.
// The default hook only logs; callers inject their own to produce real
// side effects in the world the policy is governing.
type ExecuteHook func(rt *Runtime, action ast.Atom)

// Config carries the optional collaborators a Runtime is built with.
type Config struct {
	// Parser is used by LoadFile and by the string-accepting convenience
	// wrappers. It may be nil; those entry points then return an error.
	Parser parser.Parser

	// ExecuteHook runs when Execute is asked to perform a ground action.
	// Defaults to logging the action via the Runtime's ExecutionLogger.
	ExecuteHook ExecuteHook

	// Tracer, if set, is installed across every theory in the registry.
	Tracer *trace.Tracer
}

// Runtime is the policy engine's façade.
type Runtime struct {
	database    *database.Database
	databaseTh  theory.Theory
	classify    *theory.MaterializedViewTheory
	enforcement *theory.MaterializedViewTheory
	action      *theory.NonrecursiveRuleTheory
	service     *theory.NonrecursiveRuleTheory

	parser      parser.Parser
	executeHook ExecuteHook
	log         trace.ExecutionLogger
	skolemSeq   int
}

// New returns a Runtime with its theory registry wired per the standard
// includes graph: Database ⊂ Classify ⊂ Enforcement; Action includes
// Classify; Service stands alone.
func New(cfg Config) *Runtime {
	db := database.New("database")
	dbTheory := theory.NewDatabaseTheory("database", db)

	classify := theory.NewMaterializedViewTheory("classification")
	classify.Include(dbTheory)

	enforcement := theory.NewMaterializedViewTheory("enforcement")
	enforcement.Include(classify)

	action := theory.NewNonrecursiveRuleTheory("action")
	action.Include(classify)

	service := theory.NewNonrecursiveRuleTheory("service")

	hook := cfg.ExecuteHook
	if hook == nil {
		hook = defaultExecuteHook
	}

	rt := &Runtime{
		database:    db,
		databaseTh:  dbTheory,
		classify:    classify,
		enforcement: enforcement,
		action:      action,
		service:     service,
		parser:      cfg.Parser,
		executeHook: hook,
	}
	if cfg.Tracer != nil {
		rt.SetTracer(cfg.Tracer)
	}
	return rt
}

func defaultExecuteHook(rt *Runtime, action ast.Atom) {
	rt.log.Info("execute: " + action.String())
}

// SetTracer installs tr across every theory in the registry.
func (rt *Runtime) SetTracer(tr *trace.Tracer) {
	rt.database.SetTracer(tr)
	rt.classify.SetTracer(tr)
	rt.enforcement.SetTracer(tr)
	rt.action.SetTracer(tr)
	rt.service.SetTracer(tr)
}

// DebugMode traces every table across the whole registry.
func (rt *Runtime) DebugMode() { rt.SetTracer(trace.NewDebugTracer()) }

// ProductionMode turns tracing off across the whole registry.
func (rt *Runtime) ProductionMode() { rt.SetTracer(trace.NewTracer()) }

// Log returns the messages Runtime.Execute and friends have accumulated
// (e.g. ungrounded actions skipped rather than run).
func (rt *Runtime) Log() string { return rt.log.Contents() }

// GetTarget resolves a Target to the theory.Theory it names.
func (rt *Runtime) GetTarget(target Target) theory.Theory {
	switch target {
	case Database:
		return rt.databaseTh
	case Classify:
		return rt.classify
	case Action:
		return rt.action
	case Service:
		return rt.service
	default:
		return rt.enforcement
	}
}

// GetActionNames returns every table name x such that action(x) holds in
// the action theory: the vocabulary of tables that, when an atom over them
// is inserted, triggers Execute.
func (rt *Runtime) GetActionNames() []string {
	var names []string
	for _, f := range theory.Select(rt.action, ast.NewAtom("action", ast.Variable{Name: "X"}), true) {
		atom, ok := f.(ast.Atom)
		if !ok || atom.Arity() != 1 {
			continue
		}
		c, ok := atom.Args[0].(ast.Constant)
		if !ok {
			continue
		}
		if s, err := c.StringValue(); err == nil {
			names = append(names, s)
		}
	}
	return names
}

// LoadFile parses path via the configured parser and inserts every
// resulting formula into target.
func (rt *Runtime) LoadFile(path string, target Target) error {
	if rt.parser == nil {
		return fmt.Errorf("runtime: LoadFile requires a parser.Parser (none configured)")
	}
	formulas, err := rt.parser.ParseFile(path)
	if err != nil {
		return fmt.Errorf("runtime: parsing %s: %w", path, err)
	}
	for _, f := range formulas {
		if _, err := rt.Insert(f, target); err != nil {
			return fmt.Errorf("runtime: inserting formula from %s: %w", path, err)
		}
	}
	return nil
}

// Parse1 parses text as a single formula using the configured parser.
func (rt *Runtime) Parse1(text string) (ast.Formula, error) {
	if rt.parser == nil {
		return nil, fmt.Errorf("runtime: Parse1 requires a parser.Parser (none configured)")
	}
	return rt.parser.Parse1(text)
}

// actionNameSet is a small convenience used by Project and reactToChanges.
func (rt *Runtime) actionNameSet() stringset.Set {
	return stringset.New(rt.GetActionNames()...)
}
