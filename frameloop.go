package placebo

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RenderErrorPolicy decides what a FrameLoop does when a frame fails to
// render.
type RenderErrorPolicy uint8

const (
	// DropFrame logs the failure and continues. The slot is still
	// submitted and swapped, so it shows whatever it last held, which is
	// the frame rendered Depth swaps earlier.
	DropFrame RenderErrorPolicy = iota
	// Abort stops the loop and returns the error.
	Abort
)

var renderErrorPolicies = seqTable("RenderErrorPolicy", []RenderErrorPolicy{DropFrame, Abort}, "drop", "abort")

func (p RenderErrorPolicy) String() string { return renderErrorPolicies.name(p) }

// FrameLoop drives a swapchain: it starts a frame, renders Image onto it,
// submits and presents it. Frames that cannot be started are retried after
// Backoff.
type FrameLoop struct {
	Swapchain *Swapchain
	Renderer  *Renderer
	Image     *Image
	// Params is passed to RenderImage. Nil selects DefaultRenderParams.
	Params *RenderParams
	// TargetOverlays are drawn over every frame after scaling.
	TargetOverlays []Overlay
	// Draw replaces the default rendering of Image when set.
	Draw func(frame SwapchainFrame) error

	OnRenderError RenderErrorPolicy
	// Backoff is the wait after a frame could not be started. Zero means
	// 10ms.
	Backoff time.Duration
	// ReportInterval is the period of FPS reports. Zero means 5s.
	ReportInterval time.Duration

	stats      FrameStats
	reportAt   time.Time
	reportBase uint64
	now        func() time.Time
}

// FrameStats counts what happened to the frames of a FrameLoop.
type FrameStats struct {
	// Presented frames were rendered and swapped. Dropped frames are
	// not included.
	Presented uint64
	// Skipped frames could not be started.
	Skipped uint64
	// Dropped frames failed to render.
	Dropped uint64
}

// Stats returns the frame counters.
func (l *FrameLoop) Stats() FrameStats { return l.stats }

func (l *FrameLoop) log() *slog.Logger {
	if l.Renderer != nil {
		return l.Renderer.ctx.Logger()
	}
	return l.Swapchain.gpu.log()
}

func (l *FrameLoop) clock() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Now()
}

// Step runs one iteration. It reports whether the swapchain advanced. A
// false result without error means the frame could not be started and
// should be retried later. Dropped frames advance the swapchain but are
// not counted as presented.
func (l *FrameLoop) Step() (bool, error) {
	if l.Swapchain == nil {
		return false, fmt.Errorf("%w: frame loop without swapchain", ErrInvalidParams)
	}
	frame, ok := l.Swapchain.StartFrame()
	if !ok {
		l.stats.Skipped++
		return false, nil
	}

	dropped := false
	if err := l.draw(frame); err != nil {
		dropped = true
		l.stats.Dropped++
		if l.OnRenderError == Abort {
			if serr := l.Swapchain.SubmitFrame(); serr != nil {
				l.log().Warn("placebo: submit after failed render", "error", serr)
			}
			return false, err
		}
		l.log().Warn("placebo: failed rendering frame", "error", err)
	}

	if err := l.Swapchain.SubmitFrame(); err != nil {
		return false, fmt.Errorf("placebo: submit frame: %w", err)
	}
	l.Swapchain.SwapBuffers()
	if !dropped {
		l.stats.Presented++
	}
	l.report()
	return true, nil
}

func (l *FrameLoop) draw(frame SwapchainFrame) error {
	if l.Draw != nil {
		return l.Draw(frame)
	}
	if l.Renderer == nil || l.Image == nil {
		return fmt.Errorf("%w: frame loop without renderer or image", ErrInvalidParams)
	}
	var target RenderTarget
	target.FromSwapchain(frame)
	target.SetOverlays(l.TargetOverlays)
	return l.Renderer.RenderImage(l.Image, &target, l.Params)
}

func (l *FrameLoop) report() {
	interval := l.ReportInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := l.clock()
	if l.reportAt.IsZero() {
		l.reportAt, l.reportBase = now, l.stats.Presented
		return
	}
	if elapsed := now.Sub(l.reportAt); elapsed >= interval {
		frames := l.stats.Presented - l.reportBase
		l.log().Info("placebo: frame rate", "fps", float64(frames)/elapsed.Seconds(),
			"skipped", l.stats.Skipped, "dropped", l.stats.Dropped)
		l.reportAt, l.reportBase = now, l.stats.Presented
	}
}

// Run calls Step until ctx is done or a frame fails fatally. It returns
// nil when ctx ends the loop.
func (l *FrameLoop) Run(ctx context.Context) error {
	backoff := l.Backoff
	if backoff <= 0 {
		backoff = 10 * time.Millisecond
	}
	for {
		if ctx.Err() != nil {
			return nil
		}
		presented, err := l.Step()
		if err != nil {
			return err
		}
		if presented {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
	}
}
