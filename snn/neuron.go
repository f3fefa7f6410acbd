// Copyright (c) 2021, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"github.com/emer/etable/etensor"
)

// NeuronState holds the per-neuron numeric buffers for one spiking
// layer.  All output-shaped buffers share the layer's batch-leading
// output shape; MemInput and the clamp-variance buffers share the
// layer's input shape.  Buffers are allocated once at network build
// and mutated only by this layer's own Advance / Reset calls.
type NeuronState struct {
	Mem         etensor.Float32 `desc:"membrane potential, reset where spikes fire"`
	MemAcc      etensor.Float32 `desc:"unreset membrane history accumulator, never cleared by spikes -- drives max-pooling winner selection"`
	MemInput    etensor.Float32 `desc:"raw (pre-gate) input recorded each step"`
	RefracUntil etensor.Float32 `desc:"per-neuron time until which input is gated off after a spike -- allocated only when TauRefrac > 0"`

	SpikeTrain  *etensor.Float32 `desc:"diagnostic record of spike value times firing time, nil unless recording"`
	Payloads    *etensor.Float32 `desc:"analog residual carried to the next layer, nil unless payloads enabled"`
	PayloadsSum *etensor.Float32 `desc:"running sum of emitted payloads, nil unless payloads enabled"`
	SpikeCounts *etensor.Float32 `desc:"per-neuron cumulative spike counts, nil unless online normalization enabled"`
	SpikeRate   *etensor.Float32 `desc:"running mean of incoming spikes (input shape), nil unless clamp-variance enabled"`
	SpikeVar    *etensor.Float32 `desc:"running variance of incoming spikes (input shape), nil unless clamp-variance enabled"`

	MaxSpikeRate float32 `desc:"maximum spike rate observed across the layer, updated each step under online normalization"`
	VThresh      float32 `desc:"current adaptive firing threshold, always within [base/100, base]"`
	Time         float32 `desc:"current simulation time in msec, non-decreasing within one sample"`
}

// Alloc allocates the state buffers for the given batch-leading output
// and input shapes.  The optional buffers are only allocated for the
// features that are enabled.
func (ns *NeuronState) Alloc(outShp, inShp []int, refrac, payloads, onlineNorm, clampVar, recSpikes bool) {
	ns.Mem.SetShape(outShp, nil, nil)
	ns.MemAcc.SetShape(outShp, nil, nil)
	ns.MemInput.SetShape(inShp, nil, nil)
	if refrac {
		ns.RefracUntil.SetShape(outShp, nil, nil)
	}
	if payloads {
		ns.Payloads = &etensor.Float32{}
		ns.Payloads.SetShape(outShp, nil, nil)
		ns.PayloadsSum = &etensor.Float32{}
		ns.PayloadsSum.SetShape(outShp, nil, nil)
	}
	if onlineNorm {
		ns.SpikeCounts = &etensor.Float32{}
		ns.SpikeCounts.SetShape(outShp, nil, nil)
	}
	if clampVar {
		ns.SpikeRate = &etensor.Float32{}
		ns.SpikeRate.SetShape(inShp, nil, nil)
		ns.SpikeVar = &etensor.Float32{}
		ns.SpikeVar.SetShape(inShp, nil, nil)
	}
	if recSpikes {
		ns.SpikeTrain = &etensor.Float32{}
		ns.SpikeTrain.SetShape(outShp, nil, nil)
	}
}
