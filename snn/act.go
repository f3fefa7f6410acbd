// Copyright (c) 2021, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"math/rand"

	"github.com/emer/etable/etensor"
	"github.com/emer/etable/minmax"
	"github.com/goki/mat32"
	"github.com/snnkit/snnkit/spikefn"
)

// varSettleTol is the mean spike-rate variance below which the
// clamp-variance hold releases the membrane.
const varSettleTol = float32(1e-4)

// ActParams holds the spiking activation parameters for one layer and
// implements the per-step membrane update sequence.
type ActParams struct {
	Func       spikefn.ActFuncs   `desc:"activation policy mapping membrane potential to spikes"`
	Reset      spikefn.ResetModes `desc:"membrane reset policy applied where spikes fired"`
	VThresh    float32            `def:"1" desc:"base firing threshold -- the adaptive threshold starts here and is reset toward it"`
	TauRefrac  float32            `def:"0" desc:"refractory duration in msec -- 0 disables gating"`
	Leak       bool               `desc:"subtract LeakRate * Dt from positive membranes each step"`
	LeakRate   float32            `def:"0.1" desc:"leak amount per msec"`
	Payloads   bool               `desc:"emit the post-spike residual as an analog payload for the next layer"`
	OnlineNorm bool               `desc:"adapt the threshold from the maximum observed spike rate"`
	MemInit    MemInitModes       `desc:"membrane initialization mode at sample reset"`
	ClampVar   bool               `desc:"experimental: hold the membrane until presynaptic rate variance settles"`
	VClip      bool               `desc:"experimental: clip membrane to [-3, 3] after integration"`
	ClampUntil float32            `def:"0" desc:"experimental: hold the membrane before this time (msec) -- 0 = no hold"`
	Dt         float32            `def:"1" desc:"timestep in msec"`
	Duration   float32            `def:"100" desc:"simulation window in msec"`
	ThrRange   minmax.F32         `view:"inline" desc:"bounds for the adaptive threshold: [VThresh/100, VThresh]"`
}

func (ac *ActParams) Defaults() {
	ac.Func = spikefn.Linear
	ac.Reset = spikefn.ResetBySubtract
	ac.VThresh = 1
	ac.TauRefrac = 0
	ac.LeakRate = 0.1
	ac.MemInit = MemInitZero
	ac.Dt = 1
	ac.Duration = 100
	ac.Update()
}

func (ac *ActParams) Update() {
	ac.ThrRange.Set(ac.VThresh/100, ac.VThresh)
}

// FromConfig sets the shared parameters from the network configuration.
// The activation function is set separately per layer.
func (ac *ActParams) FromConfig(cf *Config) {
	ac.Reset = cf.Reset
	ac.VThresh = cf.VThresh
	ac.TauRefrac = cf.TauRefrac
	ac.Leak = cf.Leak
	ac.LeakRate = cf.LeakRate
	ac.Payloads = cf.Payloads
	ac.OnlineNorm = cf.OnlineNorm
	ac.MemInit = cf.MemInit
	ac.ClampVar = cf.ClampVar
	ac.VClip = cf.VClip
	ac.Dt = cf.Dt
	ac.Duration = cf.Duration
	ac.Update()
}

// ThrFromRate returns the adapted threshold for the given maximum
// spike rate, clipped to ThrRange.
func (ac *ActParams) ThrFromRate(maxRate float32) float32 {
	thr := ac.ThrRange.Min + ac.ThrRange.Range()*maxRate*ac.Dt
	return ac.ThrRange.ClipVal(thr)
}

// InitMem initializes the membrane buffer mem according to the MemInit
// mode.  bias supplies the per-unit bias for MemInitBias (may be nil).
func (ac *ActParams) InitMem(mem *etensor.Float32, bias *etensor.Float32) {
	switch ac.MemInit {
	case MemInitUniform:
		for i := range mem.Values {
			mem.Values[i] = -ac.VThresh + 2*ac.VThresh*rand.Float32()
		}
	case MemInitBias:
		if bias == nil || len(bias.Values) == 0 {
			mem.SetZeros()
			return
		}
		nb := len(bias.Values)
		for i := range mem.Values {
			mem.Values[i] = -bias.Values[i%nb]
		}
	default:
		mem.SetZeros()
	}
}

// UpdateVariance folds one step of incoming spikes x into the running
// per-input spike rate and variance (Welford update normalized by
// time).  Only called when clamp-variance is enabled.
func (ac *ActParams) UpdateVariance(ns *NeuronState, x *etensor.Float32) {
	if ns.SpikeRate == nil || ns.Time <= 0 {
		return
	}
	for i := range x.Values {
		delta := x.Values[i] - ns.SpikeRate.Values[i]
		rate := ns.SpikeRate.Values[i] + delta/ns.Time
		ns.SpikeVar.Values[i] = (ns.SpikeVar.Values[i] + delta*(x.Values[i]-rate)) / ns.Time
		ns.SpikeRate.Values[i] = rate
	}
}

// memHold reports whether the membrane is held (no integration) this
// step under the experimental clamp paths.
func (ac *ActParams) memHold(ns *NeuronState) bool {
	if ac.ClampUntil > 0 && ns.Time < ac.ClampUntil {
		return true
	}
	if ac.ClampVar && ns.SpikeVar != nil {
		var sum float32
		for _, v := range ns.SpikeVar.Values {
			sum += v
		}
		mv := sum / float32(len(ns.SpikeVar.Values))
		if mv >= varSettleTol && ns.Time <= ac.Duration/2 {
			return true
		}
	}
	return false
}

// SpikesFromMem computes this step's spikes from the current membrane
// potentials into spikes.  Softmax draws one uniform number per neuron
// against the softmax of each batch row; all other policies are
// deterministic per neuron.
func (ac *ActParams) SpikesFromMem(ns *NeuronState, spikes *etensor.Float32) {
	thr := ns.VThresh
	if ac.Func == spikefn.Softmax {
		batch := ns.Mem.Dim(0)
		rowN := ns.Mem.Len() / batch
		urand := make([]float32, rowN)
		prob := make([]float32, rowN)
		for bi := 0; bi < batch; bi++ {
			row := ns.Mem.Values[bi*rowN : (bi+1)*rowN]
			out := spikes.Values[bi*rowN : (bi+1)*rowN]
			for i := range urand {
				urand[i] = rand.Float32()
			}
			spikefn.SoftmaxSpike(row, urand, prob, out, thr)
		}
		return
	}
	for i, m := range ns.Mem.Values {
		spikes.Values[i] = ac.Func.Spike(m, thr)
	}
}

// Advance runs the ordered per-step update for one layer: refractory
// gating, integration (with optional leak, clip, and clamp holds),
// spike generation, reset, input recording, refractory update, payload
// relay, online normalization, threshold adaptation, and spike-train
// recording.  impulse is the layer's computed input current for this
// step, raw is the incoming spike frame (after payload add-in), and
// spikes receives the output.
func (ac *ActParams) Advance(ns *NeuronState, impulse, raw, spikes *etensor.Float32) {
	hold := ac.memHold(ns)

	// refractory gate, then integrate mem and the unreset accumulator
	for i := range ns.Mem.Values {
		imp := impulse.Values[i]
		if ac.TauRefrac > 0 && ns.RefracUntil.Values[i] > ns.Time {
			imp = 0
		}
		ns.MemAcc.Values[i] += imp
		m := ns.Mem.Values[i]
		if !hold {
			m += imp
			if ac.VClip {
				m = mat32.Clamp(m, -3, 3)
			}
		}
		if ac.Leak && m > 0 {
			m -= ac.LeakRate * ac.Dt
		}
		ns.Mem.Values[i] = m
	}

	ac.SpikesFromMem(ns, spikes)

	// reset, capturing the pre-reset membrane for the payload residual
	thr := ns.VThresh
	for i := range ns.Mem.Values {
		m := ns.Mem.Values[i]
		sp := spikes.Values[i]
		if ns.Payloads != nil {
			res := m
			if sp != 0 {
				res = m - thr
			}
			pay := res - ns.PayloadsSum.Values[i]
			ns.Payloads.Values[i] = pay
			ns.PayloadsSum.Values[i] += pay
		}
		ns.Mem.Values[i] = ac.Func.Reset(m, sp, thr, ac.Reset, ns.Payloads != nil)
	}

	copy(ns.MemInput.Values, raw.Values)

	if ac.TauRefrac > 0 {
		for i, sp := range spikes.Values {
			if sp != 0 {
				ns.RefracUntil.Values[i] = ns.Time + ac.TauRefrac
			}
		}
	}

	if ns.SpikeCounts != nil {
		mx := float32(0)
		for i, sp := range spikes.Values {
			if sp != 0 {
				ns.SpikeCounts.Values[i]++
			}
			if ns.SpikeCounts.Values[i] > mx {
				mx = ns.SpikeCounts.Values[i]
			}
		}
		ns.MaxSpikeRate = mx * ac.Dt / ns.Time
		ns.VThresh = ac.ThrFromRate(ns.MaxSpikeRate)
	}

	if ns.SpikeTrain != nil {
		for i, sp := range spikes.Values {
			ns.SpikeTrain.Values[i] = sp * ns.Time
		}
	}
}

// ResetState reinitializes the layer state at a sample boundary.
// When memReset is false (continuous mode, reset modulus not hit) the
// membrane, accumulator, input record and clock keep running; the
// refractory, spike-train and payload buffers are cleared regardless.
func (ac *ActParams) ResetState(ns *NeuronState, bias *etensor.Float32, memReset bool) {
	if memReset {
		ac.InitMem(&ns.Mem, bias)
		ac.InitMem(&ns.MemAcc, bias)
		ns.MemInput.SetZeros()
		ns.Time = ac.Dt
	}
	if ac.TauRefrac > 0 {
		ns.RefracUntil.SetZeros()
	}
	if ns.SpikeTrain != nil {
		ns.SpikeTrain.SetZeros()
	}
	if ns.Payloads != nil {
		ns.Payloads.SetZeros()
		ns.PayloadsSum.SetZeros()
	}
	if memReset && ns.SpikeCounts != nil {
		ns.SpikeCounts.SetZeros()
		ns.MaxSpikeRate = 0
		ns.VThresh = ac.VThresh
	}
	if memReset && ns.SpikeRate != nil {
		ns.SpikeRate.SetZeros()
		ns.SpikeVar.SetZeros()
	}
}
