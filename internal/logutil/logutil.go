// Package logutil wraps slog with the teacher's LogHandler pattern: a
// single handler that writes to an optional log file and mirrors every
// record above debug level to stderr, with a debug toggle that mirrors
// debug records too.
package logutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler implements slog.Handler, grounded directly on the teacher's
// util/logger.LogHandler.
type Handler struct {
	out   io.Writer
	h     slog.Handler
	mu    *sync.Mutex
	debug bool
	attrs []slog.Attr
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &Handler{out: h.out, h: h.h.WithAttrs(attrs), mu: h.mu, debug: h.debug, attrs: merged}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{out: h.out, h: h.h.WithGroup(name), mu: h.mu, debug: h.debug, attrs: h.attrs}
}

// moduleKey is the attribute every subsystem logger is tagged with by
// ForModule. Handle pulls it out of the generic attribute list and
// renders it as a bracketed prefix (e.g. "[mmu]") instead of a plain
// key=value pair, so a log file stays grep-able by subsystem without
// every subsystem having to remember to format it that way itself.
const moduleKey = "module"

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	formattedTime := r.Time.Format("2006/01/02 15:04:05")

	module := ""
	var attrs []string
	collect := func(a slog.Attr) bool {
		if a.Key == moduleKey && module == "" {
			module = a.Value.String()
			return true
		}
		attrs = append(attrs, a.String())
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	strs := []string{formattedTime, level}
	if module != "" {
		strs = append(strs, "["+module+"]")
	}
	strs = append(strs, r.Message)
	strs = append(strs, attrs...)
	line := []byte(strings.Join(strs, " ") + "\n")

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.out != nil {
		_, err = h.out.Write(line)
	}
	if h.debug || r.Level > slog.LevelDebug {
		_, err = os.Stderr.Write(line)
	}
	return err
}

// SetDebug toggles whether debug-level records also go to stderr.
func (h *Handler) SetDebug(debug bool) {
	h.debug = debug
}

// New builds a Handler writing to file (nil to disable file output).
func New(file io.Writer, opts *slog.HandlerOptions, debug bool) *Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &Handler{
		out:   file,
		h:     slog.NewTextHandler(file, opts),
		mu:    &sync.Mutex{},
		debug: debug,
	}
}

// ForModule tags every record logged through the returned Logger with
// the given subsystem name, so lines from the mmu, cache, scheduler,
// pic and the rest of the core can be told apart in a shared log file
// without each subsystem hand-rolling its own attribute.
func ForModule(base *slog.Logger, name string) *slog.Logger {
	return base.With(slog.String(moduleKey, name))
}
