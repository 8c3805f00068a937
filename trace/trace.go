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

// Package trace implements per-table execution tracing and a small
// in-memory execution log, the two diagnostic facilities theories and the
// runtime thread through their evaluation routines.
package trace

import (
	"strings"

	log "github.com/golang/glog"
)

// traceVerbosity is the glog -v level at which trace output is emitted.
// Running with -v=2 turns on every Tracer that has anything traced.
const traceVerbosity = 2

// allTables is the sentinel that, when traced, matches every table.
const allTables = "*"

// Tracer decides which tables' evaluation steps are worth logging. The zero
// value traces nothing.
type Tracer struct {
	expressions map[string]bool
}

// NewTracer returns a Tracer that traces nothing until Trace is called.
func NewTracer() *Tracer {
	return &Tracer{expressions: make(map[string]bool)}
}

// NewDebugTracer returns a Tracer that traces every table, the equivalent of
// the runtime's debug mode.
func NewDebugTracer() *Tracer {
	t := NewTracer()
	t.Trace(allTables)
	return t
}

// Trace adds table to the set of traced tables. Pass "*" to trace
// everything.
func (t *Tracer) Trace(table string) {
	if t.expressions == nil {
		t.expressions = make(map[string]bool)
	}
	t.expressions[table] = true
}

// IsTraced reports whether table (or everything) is traced.
func (t *Tracer) IsTraced(table string) bool {
	if t == nil {
		return false
	}
	return t.expressions[table] || t.expressions[allTables]
}

// Log writes msg, indented by depth levels, if table is traced. It is a
// no-op (and cheap) otherwise.
func (t *Tracer) Log(table, msg string, depth int) {
	if !t.IsTraced(table) {
		return
	}
	if log.V(traceVerbosity) {
		log.Infof("%s%s", strings.Repeat("| ", depth), msg)
	}
}

// ExecutionLogger accumulates human-readable messages, independent of the
// Tracer's table-scoped debug output; Runtime.Execute and the default
// ExecuteHook write to it. Messages accumulate across calls until Empty is
// called.
type ExecutionLogger struct {
	messages []string
}

// Debug appends msg to the log.
func (l *ExecutionLogger) Debug(msg string) { l.messages = append(l.messages, msg) }

// Info appends msg to the log.
func (l *ExecutionLogger) Info(msg string) { l.messages = append(l.messages, msg) }

// Warn appends msg to the log.
func (l *ExecutionLogger) Warn(msg string) { l.messages = append(l.messages, msg) }

// Error appends msg to the log.
func (l *ExecutionLogger) Error(msg string) { l.messages = append(l.messages, msg) }

// Critical appends msg to the log.
func (l *ExecutionLogger) Critical(msg string) { l.messages = append(l.messages, msg) }

// Contents returns the accumulated messages joined by newlines.
func (l *ExecutionLogger) Contents() string {
	return strings.Join(l.messages, "\n")
}

// Empty clears the log.
func (l *ExecutionLogger) Empty() {
	l.messages = nil
}
