/*
 * or1ksim-go - Command parser.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package parser implements the interactive debug console's command
// line: a fixed table of commands matched by unique-prefix, each with
// its own hand-rolled argument scanner, in the same shape as the
// teacher's command/parser package.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/openrisc/or1ksim-go/internal/cpu"
)

type cmd struct {
	name     string
	min      int
	process  func(*cmdLine, *cpu.CPU) (bool, error)
	complete func(*cmdLine) []string
}

type cmdLine struct {
	line string
	pos  int
}

var cmdList = []cmd{
	{name: "quit", min: 1, process: quit},
	{name: "reset", min: 2, process: reset},
	{name: "run", min: 3, process: run},
	{name: "trace", min: 1, process: trace},
	{name: "printreg", min: 2, process: printReg},
	{name: "dumpmem", min: 2, process: dumpMem},
	{name: "putmem", min: 2, process: putMem},
	{name: "setpc", min: 2, process: setPC},
	{name: "break", min: 5, process: setBreak},
	{name: "breaks", min: 6, process: listBreaks},
	{name: "history", min: 4, process: history},
	{name: "stall", min: 2, process: stall},
	{name: "unstall", min: 2, process: unstall},
	{name: "stats", min: 2, process: stats},
	{name: "info", min: 1, process: info},
	{name: "disasm", min: 2, process: disasm},
	{name: "set", min: 1, process: setConfig},
}

// ProcessCommand parses and executes one line typed at the console.
// It returns false when the session should exit.
func ProcessCommand(commandLine string, c *cpu.CPU) (bool, error) {
	line := cmdLine{line: commandLine}
	name := line.getWord()
	if name == "" {
		return true, nil
	}

	match := matchList(name)
	if len(match) == 0 {
		return true, errors.New("command not found: " + name)
	}
	if len(match) > 1 {
		return true, errors.New("ambiguous command: " + name)
	}
	return match[0].process(&line, c)
}

// CompleteCmd drives tab completion for the liner-backed console.
func CompleteCmd(commandLine string) []string {
	line := cmdLine{line: commandLine}
	name := line.getWord()

	if !line.isEOL() {
		match := matchList(name)
		if len(match) == 1 && match[0].complete != nil {
			return prefixResults(commandLine, match[0].complete(&line))
		}
		return nil
	}

	var out []string
	for _, c := range cmdList {
		if strings.HasPrefix(c.name, name) {
			out = append(out, c.name)
		}
	}
	return out
}

func prefixResults(full string, completions []string) []string {
	out := make([]string, len(completions))
	for i, c := range completions {
		out[i] = c
	}
	_ = full
	return out
}

func matchCommand(c cmd, name string) bool {
	if len(name) > len(c.name) || len(name) < c.min {
		return false
	}
	return c.name[:len(name)] == name
}

func matchList(name string) []cmd {
	var out []cmd
	for _, c := range cmdList {
		if matchCommand(c, name) {
			out = append(out, c)
		}
	}
	return out
}

func (l *cmdLine) isEOL() bool {
	return l.pos >= len(l.line)
}

func (l *cmdLine) skipSpace() {
	for !l.isEOL() && unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
}

// getWord reads the next whitespace-delimited token, lowercased.
func (l *cmdLine) getWord() string {
	l.skipSpace()
	start := l.pos
	for !l.isEOL() && !unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
	return strings.ToLower(l.line[start:l.pos])
}

// getRemainder returns everything left on the line, trimmed.
func (l *cmdLine) getRemainder() string {
	l.skipSpace()
	rest := l.line[l.pos:]
	l.pos = len(l.line)
	return strings.TrimSpace(rest)
}

func parseAddr(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %w", s, err)
	}
	return uint32(v), nil
}
