package placebo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogFunc selects the log sink of a Context.
type LogFunc uint8

const (
	// NoLog discards all output.
	NoLog LogFunc = iota
	// LogSimple writes logfmt lines via slog.TextHandler.
	LogSimple
	// LogColor writes compact level-colored lines for terminals.
	LogColor
)

var logFuncs = seqTable("LogFunc", []LogFunc{NoLog, LogSimple, LogColor}, "none", "simple", "color")

func (f LogFunc) String() string { return logFuncs.name(f) }

// LogLevel is the verbosity of a Context.
type LogLevel uint8

const (
	LogNone LogLevel = iota
	LogFatal
	LogErr
	LogWarn
	LogInfo
	LogDebug
	LogTrace
)

var logLevels = seqTable("LogLevel",
	[]LogLevel{LogNone, LogFatal, LogErr, LogWarn, LogInfo, LogDebug, LogTrace},
	"none", "fatal", "error", "warn", "info", "debug", "trace")

func (l LogLevel) String() string { return logLevels.name(l) }

// ParseLogLevel looks a level up by name.
func ParseLogLevel(s string) (LogLevel, error) { return logLevels.parse(s) }

// NativeTag returns the level's native tag.
func (l LogLevel) NativeTag() int32 { return logLevels.tag(l) }

// Extra slog levels beyond the standard four.
const (
	slogTrace = slog.LevelDebug - 4
	slogFatal = slog.LevelError + 4
	// slogOff is above every level a record can carry.
	slogOff = slog.Level(1 << 20)
)

// Slog returns the minimum slog level enabled by l.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogFatal:
		return slogFatal
	case LogErr:
		return slog.LevelError
	case LogWarn:
		return slog.LevelWarn
	case LogInfo:
		return slog.LevelInfo
	case LogDebug:
		return slog.LevelDebug
	case LogTrace:
		return slogTrace
	default:
		return slogOff
	}
}

// LogLevelFromSlog returns the LogLevel whose threshold admits level.
func LogLevelFromSlog(level slog.Level) LogLevel {
	switch {
	case level >= slogOff:
		return LogNone
	case level >= slogFatal:
		return LogFatal
	case level >= slog.LevelError:
		return LogErr
	case level >= slog.LevelWarn:
		return LogWarn
	case level >= slog.LevelInfo:
		return LogInfo
	case level >= slog.LevelDebug:
		return LogDebug
	default:
		return LogTrace
	}
}

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// ANSI escapes per level.
const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31;1m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
	ansiGray   = "\x1b[90m"
)

// colorHandler writes one line per record:
//
//	[placebo] WARN swapchain: surface not ready frame=3
//
// with the level colored by severity.
type colorHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	attrs  string
	prefix string
}

func newColorHandler(w io.Writer, level slog.Leveler) *colorHandler {
	return &colorHandler{mu: new(sync.Mutex), w: w, level: level}
}

func (h *colorHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString("[placebo] ")
	color, name := levelStyle(r.Level)
	b.WriteString(color)
	b.WriteString(name)
	b.WriteString(ansiReset)
	b.WriteByte(' ')
	b.WriteString(r.Message)
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		writeAttr(&b, h.prefix, a)
	}
	h2 := *h
	h2.attrs = b.String()
	return &h2
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(b, p, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(ansiGray)
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteString("=")
	b.WriteString(ansiReset)
	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if strings.ContainsAny(s, " \t\"=") {
			s = fmt.Sprintf("%q", s)
		}
		b.WriteString(s)
	case slog.KindDuration:
		b.WriteString(a.Value.Duration().Round(time.Microsecond).String())
	default:
		b.WriteString(a.Value.String())
	}
}

func levelStyle(l slog.Level) (color, name string) {
	switch {
	case l >= slogFatal:
		return ansiRed, "FATAL"
	case l >= slog.LevelError:
		return ansiRed, "ERROR"
	case l >= slog.LevelWarn:
		return ansiYellow, "WARN"
	case l >= slog.LevelInfo:
		return "", "INFO"
	case l >= slog.LevelDebug:
		return ansiCyan, "DEBUG"
	default:
		return ansiGray, "TRACE"
	}
}

// replaceLevel names the extra levels in slog.TextHandler output.
func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if l, ok := a.Value.Any().(slog.Level); ok {
		_, name := levelStyle(l)
		a.Value = slog.StringValue(name)
	}
	return a
}

// logger returns the logger of ctx, or a silent one for a nil ctx.
func logger(ctx *Context) *slog.Logger {
	if ctx == nil {
		return newNopLogger()
	}
	return ctx.Logger()
}
