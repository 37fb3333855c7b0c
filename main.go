/*
 * or1ksim-go - Main process.
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

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/openrisc/or1ksim-go/command/reader"
	config "github.com/openrisc/or1ksim-go/config/configparser"
	"github.com/openrisc/or1ksim-go/config/debugconfig"
	"github.com/openrisc/or1ksim-go/internal/cpu"
	"github.com/openrisc/or1ksim-go/internal/loader"
	"github.com/openrisc/or1ksim-go/internal/logutil"
	"github.com/openrisc/or1ksim-go/internal/memory"
	"github.com/openrisc/or1ksim-go/internal/scheduler"
	"github.com/openrisc/or1ksim-go/rsp"
)

var Logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("file", 'f', "", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.StringLong("debug", 'd', "", "Per-module debug levels, e.g. mmu=debug,cache=off")
	optSrv := getopt.StringLong("srv", 0, "", "Start the GDB RSP server on host:port")
	optNoSrv := getopt.BoolLong("nosrv", 0, "Disable the GDB RSP server even if configured")
	optInteractive := getopt.BoolLong("interactive", 'i', "Drop into the interactive console instead of running immediately")
	optMemSize := getopt.Uint64Long("mem", 'm', 0x0100_0000, "RAM size in bytes")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	optVersion := getopt.BoolLong("version", 'V', "Print version and exit")
	getopt.SetParameters("[executable]")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}
	if *optVersion {
		fmt.Println("or1ksim-go 1.0")
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	Logger = slog.New(logutil.New(file, &slog.HandlerOptions{Level: programLevel}, false))
	slog.SetDefault(Logger)

	Logger.Info("or1ksim-go started")

	if *optConfig != "" {
		if err := config.LoadFile(*optConfig); err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
	}
	if err := debugconfig.ParseFlag(*optDebug); err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	mem := &memory.Map{}
	if err := mem.RegisterRegion(memory.NewRAM("ram", 0, uint32(*optMemSize))); err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	sched := &scheduler.Queue{}
	core := cpu.New(mem, sched)

	if args := getopt.Args(); len(args) > 0 {
		entry, err := loader.Load(args[0], mem)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		core.PC = entry
		core.NPC = entry + 4
		Logger.Info("loaded executable", "path", args[0], "entry", fmt.Sprintf("%#08x", entry))
	}

	var server *rsp.Server
	if *optSrv != "" && !*optNoSrv {
		var err error
		server, err = rsp.Listen(*optSrv, cpu.RSPAdapter{C: core})
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		Logger.Info("rsp server listening", "addr", *optSrv)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if *optInteractive {
		reader.ConsoleReader(core)
	} else {
		go func() {
			for !core.Halted {
				core.Step()
			}
			sigChan <- syscall.SIGTERM
		}()
		<-sigChan
		fmt.Println("shutting down")
	}

	if server != nil {
		server.Stop()
	}
	Logger.Info("or1ksim-go stopped")
}
