package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Output pipelines draw a fullscreen triangle sampling one texture. The
// shader must declare a uniform block at binding 0, a 2D float texture at
// binding 1 and a sampler at binding 2, with vs_main and fs_main entry
// points.
type pipelineEntry struct {
	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
	sampler    hal.Sampler
	format     gputypes.TextureFormat
}

func (p *pipelineEntry) destroy(dev hal.Device) {
	if p.pipeline != nil {
		dev.DestroyRenderPipeline(p.pipeline)
	}
	if p.pipeLayout != nil {
		dev.DestroyPipelineLayout(p.pipeLayout)
	}
	if p.layout != nil {
		dev.DestroyBindGroupLayout(p.layout)
	}
	if p.sampler != nil {
		dev.DestroySampler(p.sampler)
	}
}

// CreateOutputPipeline builds the render pipeline for shader writing to
// textures of the given format.
func (d *Device) CreateOutputPipeline(label string, shader ShaderID, format gputypes.TextureFormat) (PipelineID, error) {
	d.mu.RLock()
	if err := d.check(ID(shader)); err != nil {
		d.mu.RUnlock()
		return 0, err
	}
	module, ok := d.shaders[shader]
	d.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: shader %#x", ErrStale, uint64(shader))
	}

	p := &pipelineEntry{format: format}
	if err := p.build(d.device, label, module); err != nil {
		p.destroy(d.device)
		return 0, err
	}

	id := PipelineID(d.newID())
	d.mu.Lock()
	d.pipelines[id] = p
	d.mu.Unlock()
	return id, nil
}

func (p *pipelineEntry) build(dev hal.Device, label string, module hal.ShaderModule) error {
	var err error
	p.layout, err = dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: label + " layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("native: create bind group layout: %w", err)
	}

	p.pipeLayout, err = dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + " pipeline layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.layout},
	})
	if err != nil {
		return fmt.Errorf("native: create pipeline layout: %w", err)
	}

	p.pipeline, err = dev.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{Format: p.format, WriteMask: gputypes.ColorWriteMaskAll},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return fmt.Errorf("native: create render pipeline %q: %w", label, err)
	}

	// Texels map one to one onto the target, so nearest sampling is exact.
	p.sampler, err = dev.CreateSampler(&hal.SamplerDescriptor{
		Label:        label + " sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		return fmt.Errorf("native: create sampler: %w", err)
	}
	return nil
}

// DestroyPipeline releases an output pipeline.
func (d *Device) DestroyPipeline(id PipelineID) error {
	d.mu.Lock()
	if err := d.check(ID(id)); err != nil {
		d.mu.Unlock()
		return err
	}
	p, ok := d.pipelines[id]
	if ok {
		delete(d.pipelines, id)
	}
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: pipeline %#x", ErrStale, uint64(id))
	}
	p.destroy(d.device)
	return nil
}

// Draw runs the output pipeline once: src is sampled over the whole of
// dst with uniforms bound as the parameter block. It returns after the
// GPU has finished.
func (d *Device) Draw(pipeline PipelineID, uniforms BufferID, src, dst TextureID) error {
	d.mu.RLock()
	err := d.check(ID(pipeline))
	for _, id := range []ID{ID(uniforms), ID(src), ID(dst)} {
		if err == nil {
			err = d.check(id)
		}
	}
	if err != nil {
		d.mu.RUnlock()
		return err
	}
	p, okP := d.pipelines[pipeline]
	ub, okU := d.buffers[uniforms]
	st, okS := d.textures[src]
	dt, okD := d.textures[dst]
	d.mu.RUnlock()
	if !okP || !okU || !okS || !okD {
		return fmt.Errorf("%w: draw with released objects", ErrStale)
	}
	if dt.desc.Format != p.format {
		return fmt.Errorf("native: draw %v pipeline into %v texture", p.format, dt.desc.Format)
	}

	view := func(e *textureEntry) (hal.TextureView, error) {
		return d.device.CreateTextureView(e.tex, &hal.TextureViewDescriptor{
			Label:           e.desc.Label + " view",
			Format:          e.desc.Format,
			Dimension:       gputypes.TextureViewDimension2D,
			Aspect:          gputypes.TextureAspectAll,
			MipLevelCount:   1,
			ArrayLayerCount: 1,
		})
	}
	srcView, err := view(st)
	if err != nil {
		return fmt.Errorf("native: create source view: %w", err)
	}
	defer d.device.DestroyTextureView(srcView)
	dstView, err := view(dt)
	if err != nil {
		return fmt.Errorf("native: create target view: %w", err)
	}
	defer d.device.DestroyTextureView(dstView)

	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "native output bindings",
		Layout: p.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: ub.buf.NativeHandle(), Size: ub.desc.Size}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: srcView.NativeHandle()}},
			{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return fmt.Errorf("native: create bind group: %w", err)
	}
	defer d.device.DestroyBindGroup(group)

	w, h := float32(dt.desc.Width), float32(dt.desc.Height)
	return d.submit("native output", func(enc hal.CommandEncoder) {
		rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "native output pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:    dstView,
				LoadOp:  gputypes.LoadOpLoad,
				StoreOp: gputypes.StoreOpStore,
			}},
		})
		rp.SetPipeline(p.pipeline)
		rp.SetBindGroup(0, group, nil)
		rp.SetViewport(0, 0, w, h, 0, 1)
		rp.Draw(3, 1, 0, 0)
		rp.End()
	})
}
