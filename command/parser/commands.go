package parser

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/openrisc/or1ksim-go/internal/cpu"
	"github.com/openrisc/or1ksim-go/internal/debug"
	"github.com/openrisc/or1ksim-go/internal/decode"
	"github.com/openrisc/or1ksim-go/internal/logutil"
)

var parserLog = logutil.ForModule(slog.Default(), "command")

func quit(l *cmdLine, c *cpu.CPU) (bool, error) {
	parserLog.Info("quit")
	return false, nil
}

func reset(l *cmdLine, c *cpu.CPU) (bool, error) {
	parserLog.Info("reset")
	c.Reset()
	return true, nil
}

// run executes up to n instructions (default: until halted or
// stalled), optionally suppressing the closing "ran N instructions"
// summary line ("run 1000 hush").
func run(l *cmdLine, c *cpu.CPU) (bool, error) {
	n := -1
	if w := l.getWord(); w != "" {
		v, err := strconv.Atoi(w)
		if err != nil {
			return true, fmt.Errorf("run: %w", err)
		}
		n = v
	}
	hush := l.getWord() == "hush"

	count := 0
	for (n < 0 || count < n) && !c.Halted && !c.Stalled {
		c.Step()
		count++
	}
	if !hush {
		fmt.Printf("ran %d instructions, PC=%#08x\n", count, c.PC)
	}
	return true, nil
}

func trace(l *cmdLine, c *cpu.CPU) (bool, error) {
	c.Step()
	fmt.Printf("PC=%#08x\n", c.PC)
	return true, nil
}

func printReg(l *cmdLine, c *cpu.CPU) (bool, error) {
	name := l.getWord()
	valStr := l.getWord()
	n, err := regIndex(name)
	if err != nil {
		return true, err
	}
	if valStr == "" {
		fmt.Printf("r%d = %#08x\n", n, c.Reg(uint8(n)))
		return true, nil
	}
	v, err := parseAddr(valStr)
	if err != nil {
		return true, err
	}
	c.SetReg(uint8(n), v)
	return true, nil
}

func regIndex(name string) (int, error) {
	name = strings.TrimPrefix(strings.ToLower(name), "r")
	n, err := strconv.Atoi(name)
	if err != nil || n < 0 || n > 31 {
		return 0, fmt.Errorf("bad register %q", name)
	}
	return n, nil
}

func dumpMem(l *cmdLine, c *cpu.CPU) (bool, error) {
	fromStr := l.getWord()
	toStr := l.getWord()
	from, err := parseAddr(fromStr)
	if err != nil {
		return true, err
	}
	to := from + 16
	if toStr != "" {
		to, err = parseAddr(toStr)
		if err != nil {
			return true, err
		}
	}
	for addr := from; addr <= to; addr += 4 {
		v, cls, _ := c.Mem.ReadWord(addr)
		if cls != 0 {
			fmt.Printf("%#08x: <fault>\n", addr)
			continue
		}
		fmt.Printf("%#08x: %#08x\n", addr, v)
	}
	return true, nil
}

func putMem(l *cmdLine, c *cpu.CPU) (bool, error) {
	addrStr := l.getWord()
	valStr := l.getWord()
	addr, err := parseAddr(addrStr)
	if err != nil {
		return true, err
	}
	val, err := parseAddr(valStr)
	if err != nil {
		return true, err
	}
	c.Mem.WriteWord(addr, val)
	return true, nil
}

func setPC(l *cmdLine, c *cpu.CPU) (bool, error) {
	addr, err := parseAddr(l.getWord())
	if err != nil {
		return true, err
	}
	c.PC = addr
	c.NPC = addr + 4
	return true, nil
}

func setBreak(l *cmdLine, c *cpu.CPU) (bool, error) {
	addr, err := parseAddr(l.getWord())
	if err != nil {
		return true, err
	}
	for i := range c.Debug.Points {
		if !c.Debug.Points[i].Enabled {
			c.Debug.Points[i] = debug.Matchpoint{
				Enabled: true, Op: debug.CompareEQ, Value: addr, Generates: true,
			}
			fmt.Printf("breakpoint %d set at %#08x\n", i, addr)
			return true, nil
		}
	}
	return true, fmt.Errorf("no free matchpoint comparators")
}

func listBreaks(l *cmdLine, c *cpu.CPU) (bool, error) {
	for i, mp := range c.Debug.Points {
		if mp.Enabled {
			fmt.Printf("%d: %#08x\n", i, mp.Value)
		}
	}
	return true, nil
}

func history(l *cmdLine, c *cpu.CPU) (bool, error) {
	for _, h := range c.Hist {
		ins := decode.Decode(h.Raw)
		fmt.Printf("%#08x: %v\n", h.PC, ins)
	}
	return true, nil
}

func stall(l *cmdLine, c *cpu.CPU) (bool, error) {
	c.Stalled = true
	return true, nil
}

func unstall(l *cmdLine, c *cpu.CPU) (bool, error) {
	c.Stalled = false
	return true, nil
}

func stats(l *cmdLine, c *cpu.CPU) (bool, error) {
	arg := l.getWord()
	if arg == "clear" {
		c.Counters = cpu.Counters{}
		return true, nil
	}
	fmt.Printf("retired=%d loads=%d stores=%d branches=%d mispredicts=%d icache(h/m)=%d/%d dcache(h/m)=%d/%d\n",
		c.Counters.Retired, c.Counters.Loads, c.Counters.Stores, c.Counters.Branches, c.Counters.Mispredicts,
		c.Counters.ICacheHits, c.Counters.ICacheMisses, c.Counters.DCacheHits, c.Counters.DCacheMisses)
	return true, nil
}

func info(l *cmdLine, c *cpu.CPU) (bool, error) {
	fmt.Printf("PC=%#08x NPC=%#08x SR=%#08x halted=%v stalled=%v\n", c.PC, c.NPC, c.SR, c.Halted, c.Stalled)
	return true, nil
}

func disasm(l *cmdLine, c *cpu.CPU) (bool, error) {
	from, err := parseAddr(l.getWord())
	if err != nil {
		return true, err
	}
	to := from + 16
	if s := l.getWord(); s != "" {
		to, err = parseAddr(s)
		if err != nil {
			return true, err
		}
	}
	for addr := from; addr <= to; addr += 4 {
		raw, cls, _ := c.Mem.ReadWord(addr)
		if cls != 0 {
			break
		}
		fmt.Printf("%#08x: %v\n", addr, decode.Decode(raw))
	}
	return true, nil
}

func setConfig(l *cmdLine, c *cpu.CPU) (bool, error) {
	section := l.getWord()
	key := l.getWord()
	value := l.getRemainder()
	fmt.Printf("set %s.%s = %s (runtime set not yet wired to config registry)\n", section, key, value)
	return true, nil
}
