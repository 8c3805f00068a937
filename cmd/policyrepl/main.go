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

// Binary policyrepl is an interactive shell for the policy runtime.
//
// Parsing surface syntax is out of scope for this module (see
// package parser): this binary is built against the parser.Parser
// interface, but ships with NewParser left nil. Link a build that sets
// NewParser to a concrete parser.Parser implementation to get a runnable
// binary; run as-is, it reports that requirement and exits.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	log "github.com/golang/glog"

	"github.com/congress-policy/runtime/ast"
	"github.com/congress-policy/runtime/parser"
	"github.com/congress-policy/runtime/runtime"
)

// NewParser constructs the parser.Parser this binary runs against. It is
// nil in this module; a caller linking a real grammar implementation
// replaces it (e.g. in an init func of another file built alongside this
// one, or by vendoring this main into a binary of their own).
var NewParser func() parser.Parser

var (
	load = flag.String("load", "", "comma-separated list of policy files to load into classification")
	exec = flag.String("exec", "", "if non-empty, runs a single query and exits 0 if the result is non-empty, 1 otherwise")
)

const (
	normalPrompt    = "policy> "
	continuedPrompt = "   ...> "
)

func main() {
	flag.Parse()

	if NewParser == nil {
		fmt.Fprintln(os.Stderr, "policyrepl: no parser.Parser is linked into this binary; see package main doc comment")
		os.Exit(2)
	}

	rt := runtime.New(runtime.Config{Parser: NewParser()})

	for _, path := range strings.Split(*load, ",") {
		if path == "" {
			continue
		}
		if err := rt.LoadFile(path, runtime.Classify); err != nil {
			log.Exitf("loading %s: %v", path, err)
		}
	}

	if *exec != "" {
		runQuery(rt, *exec)
		return
	}

	if err := loop(rt); err != io.EOF {
		log.Exit(err)
	}
}

func runQuery(rt *runtime.Runtime, text string) {
	query, err := rt.Parse1(text)
	if err != nil {
		log.Exitf("parsing query %q: %v", text, err)
	}
	results := rt.Select(query, runtime.Classify)
	var lines []string
	for _, f := range results {
		lines = append(lines, f.String())
	}
	fmt.Println(strings.Join(lines, "\n"))
	if len(results) != 0 {
		fmt.Println("#PASS")
		os.Exit(0)
	}
	fmt.Println("#FAIL")
	os.Exit(1)
}

func showHelp() {
	fmt.Println(`
<clause>.            inserts a fact or rule into classification
?<goal>              queries classification for every instance of goal
::explain <goal>     shows one proof tree for goal
::remediate <goal>   shows action invocations that would falsify goal
::load <path>        loads a policy file into classification
::help               display this help text
<Ctrl-D>             quit`)
}

func nextLine(prompt string) (string, error) {
	rl, err := readline.New(prompt)
	if err != nil {
		return "", err
	}
	line, err := rl.Readline()
	if err != nil {
		return "", err
	}
	readline.AddHistory(line)
	return strings.TrimSpace(line), nil
}

func loop(rt *runtime.Runtime) error {
	showHelp()
	for {
		line, err := nextLine(normalPrompt)
		if err != nil {
			return err
		}

		switch {
		case line == "":
			continue

		case line == "::help":
			showHelp()

		case strings.HasPrefix(line, "::load "):
			path := strings.TrimPrefix(line, "::load ")
			if err := rt.LoadFile(path, runtime.Classify); err != nil {
				fmt.Printf("load failed: %v\n", err)
			}

		case strings.HasPrefix(line, "::explain "):
			handleExplain(rt, strings.TrimPrefix(line, "::explain "))

		case strings.HasPrefix(line, "::remediate "):
			handleRemediate(rt, strings.TrimPrefix(line, "::remediate "))

		case strings.HasPrefix(line, "?"):
			handleQuery(rt, strings.TrimPrefix(line, "?"))

		default:
			clauseText := line
			for !strings.HasSuffix(clauseText, ".") {
				more, err := nextLine(continuedPrompt)
				if err != nil {
					return err
				}
				clauseText = clauseText + more
			}
			handleDefine(rt, strings.TrimSuffix(clauseText, "."))
		}
	}
}

func handleQuery(rt *runtime.Runtime, text string) {
	query, err := rt.Parse1(text)
	if err != nil {
		fmt.Printf("parse error: %v\n", err)
		return
	}
	for _, f := range rt.Select(query, runtime.Classify) {
		fmt.Println(f.String())
	}
}

func handleDefine(rt *runtime.Runtime, text string) {
	formula, err := rt.Parse1(text)
	if err != nil {
		fmt.Printf("parse error: %v\n", err)
		return
	}
	if _, err := rt.Insert(formula, runtime.Classify); err != nil {
		fmt.Printf("insert failed: %v\n", err)
	}
}

func handleExplain(rt *runtime.Runtime, text string) {
	formula, err := rt.Parse1(text)
	if err != nil {
		fmt.Printf("parse error: %v\n", err)
		return
	}
	atom, ok := formula.(ast.Atom)
	if !ok {
		fmt.Println("::explain takes a single goal atom")
		return
	}
	tree, ok := rt.Explain(ast.PosLiteral(atom))
	if !ok {
		fmt.Println("not provable")
		return
	}
	fmt.Println(tree.String())
}

func handleRemediate(rt *runtime.Runtime, text string) {
	formula, err := rt.Parse1(text)
	if err != nil {
		fmt.Printf("parse error: %v\n", err)
		return
	}
	atom, ok := formula.(ast.Atom)
	if !ok {
		fmt.Println("::remediate takes a single goal atom")
		return
	}
	rules, err := rt.Remediate(ast.PosLiteral(atom))
	if err != nil {
		fmt.Printf("remediate failed: %v\n", err)
		return
	}
	if len(rules) == 0 {
		fmt.Println("no remediation found")
		return
	}
	for _, r := range rules {
		fmt.Println(r.String())
	}
}
