// Package placebo is a color-managed image rendering and presentation
// pipeline on top of gogpu/wgpu.
//
// # Overview
//
// Raw pixel planes and optional overlays are uploaded into device textures
// and rendered through a configurable scaling and color-management pipeline
// onto a render target, usually the current frame of a swapchain.
//
// # Object graph
//
// Objects form a strict ownership chain:
//
//	Context → Instance → Device → {Texture, Buffer, Swapchain, Renderer}
//
// Each object is created from its parent and must be destroyed before it.
// Destroying a parent with live children fails with [ErrLiveResources];
// using a handle after its device was destroyed fails with
// [ErrStaleHandle]. Destroy is idempotent on every object.
//
// # Quick Start
//
//	ctx := placebo.MustNewContext(placebo.ContextParams{LogFunc: placebo.LogSimple, LogLevel: placebo.LogInfo})
//	defer ctx.Destroy()
//
//	inst := placebo.MustNewInstance(ctx, placebo.InstanceParams{})
//	defer inst.Destroy()
//
//	surface, err := inst.CreateSurface(window) // window implements placebo.Surface
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	dev := placebo.MustNewDevice(ctx, placebo.DeviceParams{Instance: inst, Surface: surface, AllowSoftware: true})
//	defer dev.Destroy()
//
//	sw := placebo.MustNewSwapchain(dev, placebo.DefaultSwapchainParams(surface))
//	defer sw.Destroy()
//	if _, _, err := sw.Resize(1280, 720); err != nil {
//		log.Fatal(err)
//	}
//
//	r := placebo.MustNewRenderer(ctx, dev.GPU())
//	defer r.Destroy()
//
//	params := placebo.DefaultRenderParams()
//	for {
//		frame, ok := sw.StartFrame()
//		if !ok {
//			time.Sleep(10 * time.Millisecond)
//			continue
//		}
//		var target placebo.RenderTarget
//		target.FromSwapchain(frame)
//		if err := r.RenderImage(&img, &target, &params); err != nil {
//			log.Print(err)
//		}
//		if err := sw.SubmitFrame(); err != nil {
//			log.Fatal(err)
//		}
//		sw.SwapBuffers()
//	}
//
// [FrameLoop] implements this loop with backoff, frame rate reporting and a
// configurable render failure policy.
//
// # Rendering
//
// The renderer works in linear light: it decodes the source representation,
// linearizes it, optionally debands, scales with the configured filter
// kernels, maps tone and gamut when source and target color spaces differ,
// re-encodes to the target and dithers before writing. Image overlays are
// drawn in source space before scaling, target overlays in target space
// after scaling.
//
// # Thread Safety
//
// A Device and everything created from it is owned by a single goroutine.
// The frame protocol StartFrame → RenderImage → SubmitFrame → SwapBuffers
// must be followed strictly in order.
package placebo
