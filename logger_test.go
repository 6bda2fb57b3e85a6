package placebo

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevelSlogMapping(t *testing.T) {
	for _, l := range logLevels.values() {
		if l == LogNone {
			continue
		}
		assert.Equal(t, l, LogLevelFromSlog(l.Slog()), l.String())
	}
	assert.Equal(t, LogNone, LogLevelFromSlog(LogNone.Slog()))
	assert.Equal(t, LogWarn, LogLevelFromSlog(slog.LevelWarn+1))
	assert.Equal(t, LogTrace, LogLevelFromSlog(slog.LevelDebug-8))
}

func TestColorHandler(t *testing.T) {
	var buf bytes.Buffer
	ctx := MustNewContext(ContextParams{LogFunc: LogColor, LogLevel: LogInfo, Writer: &buf})
	t.Cleanup(func() { _ = ctx.Destroy() })

	log := ctx.Logger().With("swapchain", 2).WithGroup("frame")
	log.Warn("surface not ready", "index", 3, "why", "minimized window")
	log.Debug("hidden")

	out := buf.String()
	require.Equal(t, 1, strings.Count(out, "\n"), out)
	assert.True(t, strings.HasPrefix(out, "[placebo] "+ansiYellow+"WARN"+ansiReset+" surface not ready"), out)
	assert.Contains(t, out, "swapchain="+ansiReset+"2")
	assert.Contains(t, out, "frame.index="+ansiReset+"3")
	assert.Contains(t, out, `"minimized window"`)
}

func TestSimpleHandlerLevelNames(t *testing.T) {
	var buf bytes.Buffer
	ctx := MustNewContext(ContextParams{LogFunc: LogSimple, LogLevel: LogTrace, Writer: &buf})
	t.Cleanup(func() { _ = ctx.Destroy() })

	ctx.Logger().Log(t.Context(), slogTrace, "deep")
	ctx.Logger().Log(t.Context(), slogFatal, "boom")
	assert.Contains(t, buf.String(), "level=TRACE")
	assert.Contains(t, buf.String(), "level=FATAL")
}

func TestContextUpdate(t *testing.T) {
	var buf bytes.Buffer
	ctx := MustNewContext(DefaultContextParams())
	t.Cleanup(func() { _ = ctx.Destroy() })

	ctx.Logger().Info("dropped")
	require.NoError(t, ctx.Update(&ContextParams{LogFunc: LogSimple, LogLevel: LogInfo, Writer: &buf}))
	ctx.Logger().Info("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")

	require.NoError(t, ctx.Update(nil))
	assert.Equal(t, DefaultContextParams(), ctx.Params())
	ctx.Logger().Info("silent")
	assert.NotContains(t, buf.String(), "silent")

	assert.ErrorIs(t, ctx.Update(&ContextParams{LogFunc: LogFunc(9)}), ErrInvalidParams)
	_, err := NewContext(ContextParams{LogLevel: LogLevel(42)})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestLoggerNilContext(t *testing.T) {
	l := logger(nil)
	require.NotNil(t, l)
	assert.False(t, l.Enabled(t.Context(), slog.LevelError))
}
