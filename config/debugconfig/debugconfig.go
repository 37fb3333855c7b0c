/*
 * or1ksim-go - debug channel configuration
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

// Package debugconfig parses the "debug" configuration section and the
// -d command-line flag into a table of per-module slog levels (Levels).
package debugconfig

import (
	"fmt"
	"log/slog"
	"strings"

	config "github.com/openrisc/or1ksim-go/config/configparser"
)

// Levels holds the resolved per-module debug level. No subsystem
// logger reads it; log output is filtered only by the level set on the
// shared handler.
var Levels = map[string]slog.Level{}

var knownModules = map[string]bool{
	"cpu": true, "mmu": true, "cache": true, "except": true,
	"tick": true, "pic": true, "debug": true, "scheduler": true,
	"decode": true, "rsp": true, "config": true, "loader": true,
}

func init() {
	config.RegisterSection("debug", setLevel)
}

func setLevel(key, value string) error {
	module := strings.ToLower(key)
	if !knownModules[module] {
		return fmt.Errorf("debugconfig: unknown module %q", key)
	}
	lvl, err := parseLevel(value)
	if err != nil {
		return err
	}
	Levels[module] = lvl
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "on", "1", "true":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "off", "0", "false", "":
		return slog.LevelError + 4, nil
	default:
		return 0, fmt.Errorf("debugconfig: invalid level %q", s)
	}
}

// ParseFlag parses the -d command-line flag's comma-separated
// module=level list ("mmu=debug,cache=off") and merges it into
// Levels, letting the flag override whatever the config file set.
func ParseFlag(spec string) error {
	if spec == "" {
		return nil
	}
	for _, part := range strings.Split(spec, ",") {
		kv := strings.SplitN(part, "=", 2)
		module := strings.ToLower(strings.TrimSpace(kv[0]))
		level := "debug"
		if len(kv) == 2 {
			level = kv[1]
		}
		if err := setLevel(module, level); err != nil {
			return err
		}
	}
	return nil
}
