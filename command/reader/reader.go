/*
 * or1ksim-go - Command reader.
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

// Package reader drives the interactive console prompt using
// peterh/liner for line editing and tab completion, the same library
// and wiring the teacher uses in command/reader/reader.go.
package reader

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/peterh/liner"

	"github.com/openrisc/or1ksim-go/command/parser"
	"github.com/openrisc/or1ksim-go/internal/cpu"
	"github.com/openrisc/or1ksim-go/internal/logutil"
)

var readerLog = logutil.ForModule(slog.Default(), "console")

// ConsoleReader runs the interactive prompt loop until the user quits
// or aborts with Ctrl-D.
func ConsoleReader(c *cpu.CPU) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(l string) []string {
		return parser.CompleteCmd(l)
	})

	for {
		command, err := line.Prompt("or1ksim> ")
		if err == nil {
			line.AppendHistory(command)
			keepGoing, perr := parser.ProcessCommand(command, c)
			if perr != nil {
				fmt.Println("Error: " + perr.Error())
			}
			if !keepGoing {
				return
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		readerLog.Error("error reading line", "error", err)
		return
	}
}
