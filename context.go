package placebo

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// ContextParams configures the log sink of a Context.
type ContextParams struct {
	LogFunc  LogFunc
	LogLevel LogLevel
	// Writer receives log output. Nil means os.Stderr.
	Writer io.Writer
}

// DefaultContextParams returns the parameters used by Update(nil): no
// logging, info level.
func DefaultContextParams() ContextParams {
	return ContextParams{LogFunc: NoLog, LogLevel: LogInfo}
}

// Context is the root of the object graph. It owns no GPU resources; it
// carries the log sink every object created from it writes to.
//
// Context is safe for concurrent use.
type Context struct {
	mu     sync.Mutex
	params ContextParams
	logger atomic.Pointer[slog.Logger]
	life   lifetime
}

// NewContext creates a context.
func NewContext(params ContextParams) (*Context, error) {
	c := &Context{}
	if err := c.configure(params); err != nil {
		return nil, stageError(StageContext, err)
	}
	c.Logger().Debug("placebo: context created", "log", params.LogFunc, "level", params.LogLevel)
	return c, nil
}

// MustNewContext is like NewContext but panics on error.
func MustNewContext(params ContextParams) *Context {
	return must(NewContext(params))
}

func (c *Context) configure(p ContextParams) error {
	if _, ok := logFuncs.byValue[p.LogFunc]; !ok {
		return fmt.Errorf("%w: log func %d", ErrInvalidParams, p.LogFunc)
	}
	if _, ok := logLevels.byValue[p.LogLevel]; !ok {
		return fmt.Errorf("%w: log level %d", ErrInvalidParams, p.LogLevel)
	}
	w := p.Writer
	if w == nil {
		w = os.Stderr
	}

	var l *slog.Logger
	switch {
	case p.LogFunc == NoLog || p.LogLevel == LogNone:
		l = newNopLogger()
	case p.LogFunc == LogColor:
		l = slog.New(newColorHandler(w, p.LogLevel.Slog()))
	default:
		l = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:       p.LogLevel.Slog(),
			ReplaceAttr: replaceLevel,
		}))
	}

	c.mu.Lock()
	c.params = p
	c.mu.Unlock()
	c.logger.Store(l)
	return nil
}

// Update reconfigures the log sink in place. Objects created from the
// context pick up the new sink immediately. A nil params restores
// DefaultContextParams.
func (c *Context) Update(params *ContextParams) error {
	if !c.life.alive() {
		return ErrStaleHandle
	}
	p := DefaultContextParams()
	if params != nil {
		p = *params
	}
	return c.configure(p)
}

// Params returns the current parameters.
func (c *Context) Params() ContextParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// Logger returns the logger of the context. After Destroy it discards
// everything.
func (c *Context) Logger() *slog.Logger {
	if l := c.logger.Load(); l != nil {
		return l
	}
	return newNopLogger()
}

// Destroy releases the context. It fails with ErrLiveResources while
// instances created from it are alive. Destroy is idempotent.
func (c *Context) Destroy() error {
	first, err := c.life.retire()
	if err != nil {
		c.Logger().Error("placebo: context destroyed with live instances", "instances", c.life.dependents())
		return err
	}
	if first {
		c.Logger().Debug("placebo: context destroyed")
		c.logger.Store(newNopLogger())
	}
	return nil
}
