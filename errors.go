package placebo

import (
	"errors"
	"fmt"

	"github.com/gogpu/placebo/internal/native"
)

// Sentinel errors.
var (
	// ErrLiveResources is returned when an object is destroyed while objects
	// created from it are still alive.
	ErrLiveResources = errors.New("placebo: dependent resources still alive")

	// ErrStaleHandle is returned when an object is used after it, or the
	// device it was created on, has been destroyed.
	ErrStaleHandle = errors.New("placebo: stale handle")

	// ErrFrameInProgress is returned by StartFrame callers that try to begin
	// a frame before the previous one was submitted.
	ErrFrameInProgress = errors.New("placebo: frame already in progress")

	// ErrNoFrame is returned by SubmitFrame without a started frame.
	ErrNoFrame = errors.New("placebo: no frame in progress")

	// ErrRender marks a failed RenderImage call. The frame is dropped.
	ErrRender = errors.New("placebo: render failed")

	// ErrUpload marks a failed plane upload.
	ErrUpload = errors.New("placebo: upload failed")

	// ErrUnsupportedFormat is returned for pixel layouts that cannot be
	// mapped to a texture format.
	ErrUnsupportedFormat = errors.New("placebo: unsupported format")

	// ErrInvalidParams is returned for parameter values outside their
	// valid range.
	ErrInvalidParams = errors.New("placebo: invalid parameters")

	// ErrInvalidMask is returned for component masks with non-contiguous or
	// overlapping bits.
	ErrInvalidMask = errors.New("placebo: invalid component mask")
)

// Stage identifies the object whose creation failed.
type Stage uint8

const (
	StageContext Stage = iota
	StageInstance
	StageDevice
	StageTexture
	StageBuffer
	StageSwapchain
	StageRenderer
	StageFilter
)

func (s Stage) String() string {
	switch s {
	case StageContext:
		return "context"
	case StageInstance:
		return "instance"
	case StageDevice:
		return "device"
	case StageTexture:
		return "texture"
	case StageBuffer:
		return "buffer"
	case StageSwapchain:
		return "swapchain"
	case StageRenderer:
		return "renderer"
	case StageFilter:
		return "filter"
	default:
		return fmt.Sprintf("Stage(%d)", s)
	}
}

// StageError reports a fatal creation failure.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("placebo: create %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageError(s Stage, err error) error {
	return &StageError{Stage: s, Err: err}
}

// nativeError translates arena errors into the package sentinels.
func nativeError(err error) error {
	if errors.Is(err, native.ErrStale) || errors.Is(err, native.ErrDeviceClosed) {
		return fmt.Errorf("%w: %w", ErrStaleHandle, err)
	}
	return err
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
