// Copyright (c) 2021, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"
	"log"

	"github.com/emer/etable/etensor"
	"github.com/snnkit/snnkit/spikefn"
)

// LayerSpec describes one layer of the analog model being converted,
// as produced by the external model-parsing step.
type LayerSpec struct {
	Name       string           `desc:"unique layer name"`
	Kind       LayerKinds       `desc:"layer kind"`
	Shape      []int            `desc:"output shape without batch: [units] or [H, W, C]"`
	Inbound    []string         `desc:"names of inbound layers -- empty only for the input layer"`
	Activation string           `desc:"analog activation tag: relu, linear, sigmoid, binary_sigmoid, binary_tanh, leakyrelu, softmax, quantized"`
	Wts        *etensor.Float32 `desc:"trained weights: dense [in, out], conv [kY, kX, inC, outC], depthwise [kY, kX, C]"`
	Bias       *etensor.Float32 `desc:"trained per-unit bias"`
	Conv       ConvParams       `desc:"convolution geometry"`
	Pool       PoolParams       `desc:"pooling geometry"`
	Pad        PadParams        `desc:"zero padding"`
	Up         UpSampleParams   `desc:"upsampling factors"`
}

// Network is the layer graph of a converted spiking network.  Layers
// are held in topological order, fixed at build; each simulation step
// propagates one input frame through all layers in that order.
type Network struct {
	Nm       string            `desc:"network name"`
	Layers   []*Layer          `desc:"layers in topological order"`
	LayMap   map[string]*Layer `view:"-" desc:"name to layer lookup"`
	Batch    int               `inactive:"+" desc:"batch size fixed at build"`
	Cfg      Config            `desc:"configuration the network was built with"`
	InLay    *Layer            `view:"-" desc:"the input layer"`
	OutLay   *Layer            `view:"-" desc:"the final (readout) layer"`
	InFanOut int               `inactive:"+" desc:"fan-out of one input element into the first spiking layer"`
}

func NewNetwork(name string) *Network {
	return &Network{Nm: name, LayMap: make(map[string]*Layer)}
}

// LayerByName returns the layer with the given name, nil if not found.
func (nt *Network) LayerByName(name string) *Layer {
	return nt.LayMap[name]
}

// Build constructs the network from the parsed layer specs, for a
// fixed batch size, validating the configuration and the graph before
// allocating any state.  Must be called exactly once.
func (nt *Network) Build(specs []LayerSpec, batch int, cfg *Config) error {
	if len(nt.Layers) > 0 {
		return fmt.Errorf("snn.Network %s: already built", nt.Nm)
	}
	if batch <= 0 {
		return fmt.Errorf("snn.Network %s: batch size must be positive, got %d", nt.Nm, batch)
	}
	cfg.Update()
	if err := cfg.Validate(); err != nil {
		return err
	}
	nt.Cfg = *cfg
	nt.Batch = batch

	lmap := make(map[string]*LayerSpec, len(specs))
	for si := range specs {
		sp := &specs[si]
		if _, dup := lmap[sp.Name]; dup {
			return fmt.Errorf("snn.Network %s: duplicate layer name %s", nt.Nm, sp.Name)
		}
		lmap[sp.Name] = sp
	}
	order, err := topoSort(specs, lmap)
	if err != nil {
		return fmt.Errorf("snn.Network %s: %v", nt.Nm, err)
	}

	for di, sp := range order {
		ly := &Layer{Nm: sp.Name, Kind: sp.Kind, Idx: di, Inbound: sp.Inbound,
			Conv: sp.Conv, Pool: sp.Pool, Pad: sp.Pad, Up: sp.Up, Wts: sp.Wts}
		ly.Shp.SetShape(sp.Shape, nil, nil)
		for _, inm := range sp.Inbound {
			il := nt.LayMap[inm]
			if il == nil {
				return fmt.Errorf("snn.Network %s: layer %s inbound %s not built yet", nt.Nm, sp.Name, inm)
			}
			ly.In = append(ly.In, il)
		}
		switch {
		case sp.Kind == Input:
			if len(ly.In) != 0 {
				return fmt.Errorf("snn.Network %s: input layer %s cannot have inbound layers", nt.Nm, sp.Name)
			}
			if nt.InLay != nil {
				return fmt.Errorf("snn.Network %s: multiple input layers", nt.Nm)
			}
			nt.InLay = ly
		case len(ly.In) == 0:
			return fmt.Errorf("snn.Network %s: layer %s has no inbound layers", nt.Nm, sp.Name)
		default:
			ly.InShp = ly.In[0].Shp
		}
		if sp.Kind == Concat {
			if err := checkConcat(ly); err != nil {
				return fmt.Errorf("snn.Network %s: %v", nt.Nm, err)
			}
		}
		if sp.Kind.IsSpiking() {
			fn, err := defaultActFunc(sp.Kind, sp.Activation)
			if err != nil {
				return fmt.Errorf("snn.Network %s: layer %s: %v", nt.Nm, sp.Name, err)
			}
			if fn == spikefn.Quantized {
				log.Printf("snn.Network %s: layer %s uses the quantized activation, which is not implemented and falls back to linear\n", nt.Nm, sp.Name)
			}
			ly.Act.Func = fn
		}
		if sp.Bias != nil {
			// one-time compile scaling to the time resolution, on a
			// copy -- the caller's parsed-model tensors are never
			// mutated
			bias := &etensor.Float32{}
			bias.SetShape(sp.Bias.Shapes(), nil, nil)
			bias.CopyFrom(sp.Bias)
			for i := range bias.Values {
				bias.Values[i] *= cfg.Dt
			}
			ly.Bias = bias
		}
		if err := ly.Build(batch, cfg); err != nil {
			return err
		}
		nt.Layers = append(nt.Layers, ly)
		nt.LayMap[ly.Nm] = ly
	}
	if nt.InLay == nil {
		return fmt.Errorf("snn.Network %s: no input layer", nt.Nm)
	}
	nt.OutLay = nt.Layers[len(nt.Layers)-1]

	for _, ly := range nt.Layers {
		ly.FanOut = nt.fanOut(ly)
		if ly.Kind.IsSpiking() && ly.Bias != nil {
			ly.NBias = ly.Shp.Len()
		}
	}
	nt.InFanOut = nt.InLay.FanOut
	return nil
}

// checkConcat validates that all inbound layers of a channel
// concatenation share spatial dims and that channels sum to the output.
func checkConcat(ly *Layer) error {
	if ly.Shp.NumDims() != 3 {
		return fmt.Errorf("concat layer %s must have a [H, W, C] shape", ly.Nm)
	}
	csum := 0
	for _, in := range ly.In {
		if in.Shp.NumDims() != 3 || in.Shp.Dim(0) != ly.Shp.Dim(0) || in.Shp.Dim(1) != ly.Shp.Dim(1) {
			return fmt.Errorf("concat layer %s: inbound %s spatial dims mismatch", ly.Nm, in.Nm)
		}
		csum += in.Shp.Dim(2)
	}
	if csum != ly.Shp.Dim(2) {
		return fmt.Errorf("concat layer %s: inbound channels sum to %d, shape has %d", ly.Nm, csum, ly.Shp.Dim(2))
	}
	return nil
}

// fanOut returns the per-neuron outgoing connection count for a layer,
// summed over its spiking consumers, looking through passthroughs.
func (nt *Network) fanOut(src *Layer) int {
	fo := 0
	for _, ly := range nt.Layers {
		for _, in := range ly.In {
			if in != src {
				continue
			}
			if ly.Kind.IsSpiking() {
				fo += consumerFanOut(ly)
			} else {
				fo += nt.fanOut(ly)
			}
		}
	}
	return fo
}

// consumerFanOut is the number of connections one presynaptic neuron
// makes into the given consumer layer.
func consumerFanOut(ly *Layer) int {
	switch ly.Kind {
	case Dense:
		return ly.Shp.Len()
	case Conv2D:
		kY, kX := ly.Wts.Dim(0), ly.Wts.Dim(1)
		outC := ly.Shp.Dim(2)
		return imax(1, kY*kX*outC/(ly.Conv.StrideY*ly.Conv.StrideX))
	case DepthwiseConv2D:
		kY, kX := ly.Wts.Dim(0), ly.Wts.Dim(1)
		return imax(1, kY*kX/(ly.Conv.StrideY*ly.Conv.StrideX))
	case AvgPool2D, MaxPool2D:
		return imax(1, (ly.Pool.SizeY/ly.Pool.StrideY)*(ly.Pool.SizeX/ly.Pool.StrideX))
	}
	return 0
}

func imax(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SetTime sets the simulation clock on every stateful layer.
func (nt *Network) SetTime(t float32) {
	for _, ly := range nt.Layers {
		if ly.Kind.IsSpiking() {
			ly.SetTime(t)
		}
	}
}

// Reset reinitializes all layer state at a sample boundary, honoring
// the reset modulus.
func (nt *Network) Reset(sampleIdx int) {
	for _, ly := range nt.Layers {
		ly.Reset(sampleIdx)
	}
}

// Cycle propagates one encoded input frame through the network for the
// current timestep and returns the final layer's output spikes.
func (nt *Network) Cycle(frame etensor.Tensor) (*etensor.Float32, error) {
	if err := nt.InLay.SetFrame(frame); err != nil {
		return nil, err
	}
	for _, ly := range nt.Layers {
		ly.Advance()
	}
	return nt.OutLay.Out, nil
}

// topoSort returns the layer specs in topological order (Kahn), with
// ties broken by the given slice order.
func topoSort(specs []LayerSpec, lmap map[string]*LayerSpec) ([]*LayerSpec, error) {
	ndeps := make(map[string]int, len(specs))
	for si := range specs {
		sp := &specs[si]
		for _, inm := range sp.Inbound {
			if _, ok := lmap[inm]; !ok {
				return nil, fmt.Errorf("layer %s: unknown inbound layer %s", sp.Name, inm)
			}
		}
		ndeps[sp.Name] = len(sp.Inbound)
	}
	var order []*LayerSpec
	done := make(map[string]bool, len(specs))
	for len(order) < len(specs) {
		progress := false
		for si := range specs {
			sp := &specs[si]
			if done[sp.Name] || ndeps[sp.Name] != 0 {
				continue
			}
			order = append(order, sp)
			done[sp.Name] = true
			progress = true
			for sj := range specs {
				nx := &specs[sj]
				if done[nx.Name] {
					continue
				}
				for _, inm := range nx.Inbound {
					if inm == sp.Name {
						ndeps[nx.Name]--
					}
				}
			}
		}
		if !progress {
			return nil, fmt.Errorf("layer graph contains a cycle")
		}
	}
	return order, nil
}
