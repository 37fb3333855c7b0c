/*
 * or1ksim-go - Configuration file parser
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

// Package configparser reads the declarative
//
//	section <name>
//	    key value
//	    key = value
//	end
//
// configuration grammar, hand-scanned character by character in the
// same recursive-descent style as the teacher's original line-oriented
// parser, generalized from "one model per line" to "one section per
// block".
package configparser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// Option is one key/value pair found inside a section body.
type Option struct {
	Key   string
	Value string
}

type sectionHandler func(key, value string) error

var sections = map[string]sectionHandler{}

// RegisterSection installs the handler that will receive every
// key/value pair found inside "section name ... end" blocks named
// name. Subsystems call this from their own init() functions, the
// same self-registration discipline the teacher's devices use with
// config.RegisterModel/RegisterOption/RegisterSwitch.
func RegisterSection(name string, fn func(key, value string) error) {
	sections[strings.ToLower(name)] = fn
}

// LoadFile reads and applies every section in the named configuration
// file.
func LoadFile(name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return Load(f)
}

// Load reads and applies every section in r.
func Load(r io.Reader) error {
	br := bufio.NewReader(r)
	lineNo := 0
	var current string
	inSection := false

	for {
		raw, err := br.ReadString('\n')
		lineNo++
		line := &lineScanner{text: raw}
		line.skipSpace()

		if !line.isEOL() {
			word, werr := line.getWord()
			if werr != nil {
				return fmt.Errorf("config: line %d: %w", lineNo, werr)
			}
			switch strings.ToLower(word) {
			case "section":
				line.skipSpace()
				name, nerr := line.getWord()
				if nerr != nil {
					return fmt.Errorf("config: line %d: expected section name: %w", lineNo, nerr)
				}
				current = strings.ToLower(name)
				inSection = true
			case "end":
				inSection = false
				current = ""
			case "":
				// blank line inside a section; ignore
			default:
				if !inSection {
					return fmt.Errorf("config: line %d: %q outside any section", lineNo, word)
				}
				value, verr := line.getValue()
				if verr != nil {
					return fmt.Errorf("config: line %d: %w", lineNo, verr)
				}
				h, ok := sections[current]
				if !ok {
					return fmt.Errorf("config: line %d: unknown section %q", lineNo, current)
				}
				if err := h(word, value); err != nil {
					return fmt.Errorf("config: line %d: %w", lineNo, err)
				}
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	if inSection {
		return fmt.Errorf("config: unterminated section %q", current)
	}
	return nil
}

// lineScanner is a hand-rolled character-at-a-time reader over one
// input line, in the same style as the teacher's optionLine.
type lineScanner struct {
	text string
	pos  int
}

func (l *lineScanner) isEOL() bool {
	if l.pos >= len(l.text) {
		return true
	}
	return l.text[l.pos] == '#' || l.text[l.pos] == '\n'
}

func (l *lineScanner) skipSpace() {
	for l.pos < len(l.text) && unicode.IsSpace(rune(l.text[l.pos])) {
		l.pos++
	}
}

func (l *lineScanner) getWord() (string, error) {
	l.skipSpace()
	start := l.pos
	for l.pos < len(l.text) && !unicode.IsSpace(rune(l.text[l.pos])) && l.text[l.pos] != '=' && l.text[l.pos] != '#' {
		l.pos++
	}
	if start == l.pos {
		return "", fmt.Errorf("expected a word")
	}
	return l.text[start:l.pos], nil
}

// getValue consumes an optional '=' and returns the remainder of the
// line, quote-aware, trimmed of trailing whitespace and comments.
func (l *lineScanner) getValue() (string, error) {
	l.skipSpace()
	if l.pos < len(l.text) && l.text[l.pos] == '=' {
		l.pos++
	}
	l.skipSpace()
	if l.pos < len(l.text) && l.text[l.pos] == '"' {
		return l.getQuoted()
	}
	start := l.pos
	for !l.isEOL() {
		l.pos++
	}
	return strings.TrimRight(l.text[start:l.pos], " \t"), nil
}

func (l *lineScanner) getQuoted() (string, error) {
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.text) {
		ch := l.text[l.pos]
		if ch == '"' {
			if l.pos+1 < len(l.text) && l.text[l.pos+1] == '"' {
				sb.WriteByte('"')
				l.pos += 2
				continue
			}
			l.pos++
			return sb.String(), nil
		}
		sb.WriteByte(ch)
		l.pos++
	}
	return "", fmt.Errorf("unterminated quoted string")
}
