package placebo

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/placebo/internal/native"
	"github.com/gogpu/placebo/internal/params"
)

//go:embed shaders/output.wgsl
var outputShaderWGSL string

// outputPass is the compiled output shader and its render pipeline for
// one framebuffer format.
type outputPass struct {
	shader   native.ShaderID
	pipeline native.PipelineID
}

func (o outputPass) release(dev *native.Device) error {
	return errors.Join(dev.DestroyPipeline(o.pipeline), dev.DestroyShaderModule(o.shader))
}

// outputPass returns the output pass drawing into format, building it on
// first use.
func (r *Renderer) outputPass(f *Format) (outputPass, error) {
	return r.outputs.GetOrCreate(f.Name, func() (outputPass, error) {
		spirv, err := native.CompileWGSL(outputShaderWGSL)
		if err != nil {
			return outputPass{}, err
		}
		dev := r.gpu.dev.native
		shader, err := dev.CreateShaderModule("placebo output "+f.Name, spirv)
		if err != nil {
			return outputPass{}, err
		}
		pipeline, err := dev.CreateOutputPipeline("placebo output "+f.Name, shader, f.Container())
		if err != nil {
			_ = dev.DestroyShaderModule(shader)
			return outputPass{}, err
		}
		r.ctx.Logger().Debug("placebo: output pass built", "format", f.Name, "words", len(spirv))
		return outputPass{shader: shader, pipeline: pipeline}, nil
	})
}

// draw copies src into dst through the output pipeline.
func (r *Renderer) draw(pass outputPass, src, dst *Texture) error {
	return nativeError(r.gpu.dev.native.Draw(pass.pipeline, r.uniforms.id, src.id, dst.id))
}

// uniformWords is the size of the per-frame parameter block: the output
// scale and offset read by the output shader, a header of frame-level
// values and every stage's packed parameters.
var uniformWords = 8 + 4 +
	params.SchemaOf[ColorMapParams]().Words() +
	params.SchemaOf[DebandParams]().Words() +
	params.SchemaOf[SigmoidParams]().Words() +
	params.SchemaOf[PeakDetectParams]().Words() +
	params.SchemaOf[DitherParams]().Words()

func packOpt[T any](v *T) []float32 {
	if v == nil {
		return make([]float32, params.SchemaOf[T]().Words())
	}
	return params.Pack(*v)
}

// packUniforms lays out the frame parameters as uploaded to the GPU.
func packUniforms(p *RenderParams, c *colorPipeline, frame uint64) []byte {
	words := make([]float32, 0, uniformWords)
	// The host path has already produced the final values.
	words = append(words, 1, 1, 1, 1, 0, 0, 0, 0)
	words = append(words, float32(c.srcPeak), float32(c.dst.SigPeak), float32(frame%(1<<24)), float32(p.AntiringingStrength))
	words = append(words, packOpt(p.ColorMap)...)
	words = append(words, packOpt(p.Deband)...)
	words = append(words, packOpt(p.Sigmoid)...)
	words = append(words, packOpt(p.PeakDetect)...)
	words = append(words, packOpt(p.Dither)...)
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(w))
	}
	return buf
}

// uploadUniforms writes the frame parameters to the uniform buffer.
func (r *Renderer) uploadUniforms(p *RenderParams, c *colorPipeline) error {
	data := packUniforms(p, c, r.frame)
	if r.uniforms == nil {
		buf, err := NewBuffer(r.gpu, BufferParams{Type: BufUniform, Memory: MemDevice, Size: len(data), HostWritable: true})
		if err != nil {
			return fmt.Errorf("placebo: uniform buffer: %w", err)
		}
		r.uniforms = buf
	}
	return r.uniforms.Write(0, data)
}
