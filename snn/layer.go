// Copyright (c) 2021, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"

	"github.com/emer/etable/etensor"
	"github.com/snnkit/snnkit/spikefn"
)

// LayerState is the capability interface every layer exposes to the
// simulation loop: one advance per timestep, reset at sample
// boundaries, and the shared simulation clock.
type LayerState interface {
	// Name returns the layer name, unique within its network.
	Name() string

	// IsSpiking reports whether the layer owns neuron state.
	IsSpiking() bool

	// Advance consumes the inbound layers' current-step outputs and
	// computes this layer's output for the same step.
	Advance()

	// Reset reinitializes state at a sample boundary.  Whether the
	// membrane state actually clears depends on the reset modulus.
	Reset(sampleIdx int)

	// Time returns the current simulation time in msec.
	Time() float32

	// SetTime sets the simulation time in msec.
	SetTime(t float32)

	// Output returns the layer's current-step output spikes.
	Output() *etensor.Float32
}

// ConvParams are the convolution geometry parameters.
type ConvParams struct {
	StrideY int  `def:"1" desc:"vertical stride"`
	StrideX int  `def:"1" desc:"horizontal stride"`
	SamePad bool `desc:"pad so output spatial size = ceil(input / stride); otherwise valid (no padding)"`
}

func (cp *ConvParams) Defaults() {
	cp.StrideY = 1
	cp.StrideX = 1
}

// PoolParams are the pooling window parameters.
type PoolParams struct {
	SizeY   int     `def:"2" desc:"window height"`
	SizeX   int     `def:"2" desc:"window width"`
	StrideY int     `def:"2" desc:"vertical stride"`
	StrideX int     `def:"2" desc:"horizontal stride"`
	GateP   float32 `def:"0.8" desc:"success probability of the Bernoulli gate on max-pooling outputs"`
}

func (pp *PoolParams) Defaults() {
	pp.SizeY = 2
	pp.SizeX = 2
	pp.StrideY = 2
	pp.StrideX = 2
	pp.GateP = 0.8
}

// PadParams are the zero-padding amounts per spatial edge.
type PadParams struct {
	Top    int `desc:"rows added above"`
	Bottom int `desc:"rows added below"`
	Left   int `desc:"columns added left"`
	Right  int `desc:"columns added right"`
}

// UpSampleParams are the nearest-neighbor upsampling factors.
type UpSampleParams struct {
	ScaleY int `def:"2" desc:"row repeat factor"`
	ScaleX int `def:"2" desc:"column repeat factor"`
}

func (up *UpSampleParams) Defaults() {
	up.ScaleY = 2
	up.ScaleX = 2
}

// Layer is one layer of a converted spiking network.  The structural
// fields are fixed at build; only the NeuronState buffers and the
// per-step output change during simulation.
type Layer struct {
	Nm      string         `desc:"name of the layer, unique within the network"`
	Kind    LayerKinds     `desc:"layer kind, determining forward computation and whether it spikes"`
	Idx     int            `desc:"depth index in topological order, drives bias relaxation"`
	Shp     etensor.Shape  `desc:"output shape without the batch dimension -- [units] or [H, W, C] channels-last"`
	InShp   etensor.Shape  `desc:"input shape without the batch dimension"`
	Inbound []string       `desc:"names of inbound layers"`
	In      []*Layer       `view:"-" desc:"resolved inbound layers"`
	Act     ActParams      `view:"add-fields" desc:"spiking activation parameters"`
	State   NeuronState    `view:"-" desc:"per-neuron state buffers, allocated at build for spiking kinds"`
	Conv    ConvParams     `viewif:"Kind=[Conv2D,DepthwiseConv2D]" desc:"convolution geometry"`
	Pool    PoolParams     `viewif:"Kind=[AvgPool2D,MaxPool2D]" desc:"pooling geometry"`
	Pad     PadParams      `viewif:"Kind=ZeroPad2D" desc:"zero padding amounts"`
	Up      UpSampleParams `viewif:"Kind=UpSample2D" desc:"upsampling factors"`

	Wts   *etensor.Float32 `view:"-" desc:"weights: dense [in, out], conv [ky, kx, inC, outC], depthwise [ky, kx, C]"`
	Bias  *etensor.Float32 `view:"-" desc:"per-unit bias, scaled by dt at build"`
	Bias0 []float32        `view:"-" desc:"dt-scaled trained bias values, the target of bias relaxation"`
	W0    []float32        `view:"-" desc:"trained weights snapshot, taken lazily by first-layer rescaling"`

	Out     *etensor.Float32 `view:"-" desc:"current-step output spikes, batch-leading"`
	Impulse *etensor.Float32 `view:"-" desc:"scratch input current for this step"`
	XBuf    *etensor.Float32 `view:"-" desc:"scratch payload-added input frame"`

	FanOut   int `inactive:"+" desc:"outgoing connections per neuron, summed over spiking consumers (passthroughs are transparent), for synaptic-op accounting"`
	NBias    int `inactive:"+" desc:"number of bias-bearing neurons in this layer, for neuron-op accounting"`
	ResetMod int `inactive:"+" desc:"reset state before every Nth sample, 0 = only before the first"`
	Batch    int `inactive:"+" desc:"batch size fixed at build"`
}

func (ly *Layer) Name() string    { return ly.Nm }
func (ly *Layer) IsSpiking() bool { return ly.Kind.IsSpiking() }

func (ly *Layer) Time() float32     { return ly.State.Time }
func (ly *Layer) SetTime(t float32) { ly.State.Time = t }

func (ly *Layer) Output() *etensor.Float32 { return ly.Out }

// BatchShape returns the batch-leading output shape.
func (ly *Layer) BatchShape() []int {
	return append([]int{ly.Batch}, ly.Shp.Shapes()...)
}

// InBatchShape returns the batch-leading input shape.
func (ly *Layer) InBatchShape() []int {
	return append([]int{ly.Batch}, ly.InShp.Shapes()...)
}

// Build allocates the layer's buffers for the given batch size and
// shared configuration.  Structural fields (Kind, Shp, InShp, Wts,
// Bias, Inbound) must be set beforehand.
func (ly *Layer) Build(batch int, cfg *Config) error {
	ly.Batch = batch
	ly.ResetMod = cfg.ResetMod
	ly.Act.FromConfig(cfg)
	if cm, ok := cfg.ClampSched[ly.Idx]; ok {
		ly.Act.ClampUntil = cm
	}
	if ly.Pool.GateP == 0 {
		ly.Pool.GateP = cfg.PoolGateP
	}
	ly.Out = &etensor.Float32{}
	ly.Out.SetShape(ly.BatchShape(), nil, nil)
	if ly.Kind == Input || !ly.Kind.IsSpiking() {
		return nil
	}
	ly.Impulse = &etensor.Float32{}
	ly.Impulse.SetShape(ly.BatchShape(), nil, nil)
	ly.XBuf = &etensor.Float32{}
	ly.XBuf.SetShape(ly.InBatchShape(), nil, nil)
	ly.State.Alloc(ly.BatchShape(), ly.InBatchShape(),
		cfg.TauRefrac > 0, cfg.Payloads, cfg.OnlineNorm, cfg.ClampVar, cfg.RecordSpikes)
	ly.State.VThresh = ly.Act.VThresh
	ly.State.Time = cfg.Dt
	if ly.Kind.HasWeights() {
		if ly.Wts == nil {
			return fmt.Errorf("snn.Layer %s: kind %v requires weights", ly.Nm, ly.Kind)
		}
		if ly.Bias != nil {
			ly.Bias0 = make([]float32, len(ly.Bias.Values))
			copy(ly.Bias0, ly.Bias.Values)
		}
	}
	return nil
}

// Reset reinitializes the layer state at a sample boundary.  The
// membrane, accumulator and clock only clear when the sample index
// hits the reset modulus; refractory, payload and spike-train buffers
// clear every time.  No-op for stateless layers.
func (ly *Layer) Reset(sampleIdx int) {
	if !ly.Kind.IsSpiking() {
		return
	}
	mod := ly.ResetMod
	if mod <= 0 {
		// fully continuous: reset only before the first sample
		mod = sampleIdx + 1
	}
	memReset := sampleIdx%mod == 0
	ly.Act.ResetState(&ly.State, ly.Bias, memReset)
}

// SetFrame copies the encoded input frame into an Input layer's
// output.  The frame must match the layer's batch-leading shape.
func (ly *Layer) SetFrame(frame etensor.Tensor) error {
	if frame.Len() != ly.Out.Len() {
		return fmt.Errorf("snn.Layer %s: input frame len %d != %d", ly.Nm, frame.Len(), ly.Out.Len())
	}
	ly.Out.CopyFrom(frame)
	return nil
}

// Advance computes this layer's output for the current step from the
// inbound layers' already-computed outputs.  For spiking kinds this
// runs the forward computation into the impulse buffer and then the
// full membrane update sequence.
func (ly *Layer) Advance() {
	if ly.Kind == Input {
		return
	}
	if !ly.Kind.IsSpiking() {
		ly.passthrough()
		return
	}
	x := ly.In[0].Out
	if ly.Act.ClampVar {
		ly.Act.UpdateVariance(&ly.State, x)
	}
	xin := x
	if ly.Act.Payloads && ly.In[0].State.Payloads != nil {
		// inject presynaptic payloads where the presynaptic neuron spiked
		pv := ly.In[0].State.Payloads.Values
		for i, v := range x.Values {
			if v != 0 {
				ly.XBuf.Values[i] = v + pv[i]
			} else {
				ly.XBuf.Values[i] = 0
			}
		}
		xin = ly.XBuf
	}
	switch ly.Kind {
	case Dense:
		ly.denseForward(xin)
	case Conv2D:
		ly.convForward(xin)
	case DepthwiseConv2D:
		ly.depthwiseForward(xin)
	case AvgPool2D:
		ly.avgPoolForward(xin)
	case MaxPool2D:
		ly.maxPoolForward(xin)
	}
	ly.Act.Advance(&ly.State, ly.Impulse, xin, ly.Out)
}

// SpikeCount returns the number of nonzero spikes in the current
// output, for operation accounting.
func (ly *Layer) SpikeCount() int {
	n := 0
	for _, v := range ly.Out.Values {
		if v != 0 {
			n++
		}
	}
	return n
}

// defaultActFunc returns the activation policy for a layer kind given
// the analog model's activation tag.  Pooling layers always use the
// bipolar policy.
func defaultActFunc(kind LayerKinds, tag string) (spikefn.ActFuncs, error) {
	if kind == AvgPool2D || kind == MaxPool2D {
		return spikefn.BipolarLinear, nil
	}
	switch tag {
	case "", "relu":
		return spikefn.Linear, nil
	case "linear", "sigmoid":
		return spikefn.BipolarLinear, nil
	case "binary_sigmoid":
		return spikefn.BinarySigmoid, nil
	case "binary_tanh":
		return spikefn.BinaryTanh, nil
	case "leakyrelu":
		return spikefn.LeakyReLU, nil
	case "softmax":
		return spikefn.Softmax, nil
	case "quantized":
		return spikefn.Quantized, nil
	}
	return spikefn.Linear, fmt.Errorf("snn: unknown activation tag %q", tag)
}
