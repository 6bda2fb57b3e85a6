// Command placebo-view renders an image, with an optional overlay and ICC
// display profile, into a window.
//
//	placebo-view [--headless] [--frames N] image [overlay [iccprofile]]
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"
	"golang.org/x/term"

	"github.com/gogpu/placebo"
)

const (
	windowWidth  = 640
	windowHeight = 480
)

func main() {
	app := cli.NewApp()
	app.Name = "placebo-view"
	app.Usage = "render an image through the placebo pipeline"
	app.ArgsUsage = "image [overlay [iccprofile]]"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "headless",
			Usage: "render without a window and exit after --frames frames",
		},
		cli.IntFlag{
			Name:  "frames",
			Value: 60,
			Usage: "number of frames to present in headless mode",
		},
		cli.StringFlag{
			Name:  "backend",
			Value: "auto",
			Usage: "graphics backend (auto, vulkan, noop)",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "debug",
			Usage: "log level (none, fatal, error, warn, info, debug, trace)",
		},
	}
	app.Action = func(c *cli.Context) error {
		if c.NArg() < 1 {
			return cli.ShowAppHelp(c)
		}
		cfg := config{
			image:      c.Args().Get(0),
			overlay:    c.Args().Get(1),
			iccProfile: c.Args().Get(2),
			headless:   c.Bool("headless"),
			frames:     c.Int("frames"),
		}
		var err error
		if cfg.backend, err = placebo.ParseBackend(c.String("backend")); err != nil {
			return err
		}
		if cfg.logLevel, err = placebo.ParseLogLevel(c.String("log-level")); err != nil {
			return err
		}
		return run(cfg)
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("placebo-view failed", "error", err)
		os.Exit(1)
	}
}

type config struct {
	image, overlay, iccProfile string
	headless                   bool
	frames                     int
	backend                    placebo.Backend
	logLevel                   placebo.LogLevel
}

func run(cfg config) (err error) {
	logFunc := placebo.LogSimple
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logFunc = placebo.LogColor
	}
	ctx, err := placebo.NewContext(placebo.ContextParams{LogFunc: logFunc, LogLevel: cfg.logLevel})
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, ctx.Destroy()) }()

	backend := cfg.backend
	if cfg.headless {
		backend = placebo.BackendNoop
	}
	inst, err := placebo.NewInstance(ctx, placebo.InstanceParams{Backend: backend})
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, inst.Destroy()) }()

	var (
		surface  placebo.Surface
		window   *windowSurface
		headless *placebo.HeadlessSurface
	)
	if cfg.headless {
		headless = placebo.NewHeadlessSurface()
		surface = headless
	} else {
		window = &windowSurface{}
		surface = window
	}
	handle, err := inst.CreateSurface(surface)
	if err != nil {
		return err
	}
	defer inst.DestroySurface(handle)

	dev, err := placebo.NewDevice(ctx, placebo.DeviceParams{
		Instance:      inst,
		Surface:       handle,
		AllowSoftware: true,
	})
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, dev.Destroy()) }()
	gpu := dev.GPU()

	sw, err := placebo.NewSwapchain(dev, placebo.DefaultSwapchainParams(handle))
	if err != nil {
		return err
	}
	defer sw.Destroy()
	w, h, err := sw.Resize(windowWidth, windowHeight)
	if err != nil {
		return err
	}
	if w != windowWidth || h != windowHeight {
		ctx.Logger().Info("window dimensions differ", "width", w, "height", h)
	}

	imgTex := &placebo.Texture{}
	defer imgTex.Destroy()
	var imgPlane placebo.Plane
	if err := uploadFile(gpu, cfg.image, &imgPlane, imgTex); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	img := &placebo.Image{
		Planes: []placebo.Plane{imgPlane},
		Repr:   placebo.ColorRepr{Alpha: placebo.AlphaIndependent},
	}

	var targetOverlays []placebo.Overlay
	if cfg.overlay != "" {
		osdTex := &placebo.Texture{}
		defer osdTex.Destroy()
		var osdPlane placebo.Plane
		if err := uploadFile(gpu, cfg.overlay, &osdPlane, osdTex); err != nil {
			return fmt.Errorf("overlay: %w", err)
		}
		targetOverlays = append(targetOverlays, placebo.Overlay{
			Plane: osdPlane,
			Rect:  placebo.Rect2D{X1: osdPlane.Width(), Y1: osdPlane.Height()},
			Mode:  placebo.OverlayNormal,
			Repr:  img.Repr,
			Color: img.Color,
		})
	}

	params := placebo.DefaultRenderParams()
	var profile placebo.IccProfile
	if cfg.iccProfile != "" {
		if profile, err = loadProfile(cfg.iccProfile); err != nil {
			return err
		}
		lut := placebo.DefaultLut3DParams()
		params.Lut3D = &lut
	}

	rr, err := placebo.NewRenderer(ctx, gpu)
	if err != nil {
		return err
	}
	defer rr.Destroy()

	loop := &placebo.FrameLoop{
		Swapchain: sw,
		Renderer:  rr,
		Image:     img,
		Params:    &params,
		Draw: func(frame placebo.SwapchainFrame) error {
			var target placebo.RenderTarget
			target.FromSwapchain(frame)
			target.Profile = profile
			target.SetOverlays(targetOverlays)
			return rr.RenderImage(img, &target, &params)
		},
	}

	if cfg.headless {
		for headless.Presented() < cfg.frames {
			if _, err := loop.Step(); err != nil {
				return err
			}
		}
		stats := loop.Stats()
		ctx.Logger().Info("headless run finished", "presented", stats.Presented, "dropped", stats.Dropped)
		return nil
	}
	return runWindow(&viewer{surface: window, swapchain: sw, loop: loop}, "placebo-view: "+cfg.image)
}
