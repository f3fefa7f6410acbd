// Copyright (c) 2021, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"

	"github.com/goki/ki/kit"
	"github.com/snnkit/snnkit/spikefn"
)

// InputModes are the input encoding modes driving the first layer.
type InputModes int32

//go:generate stringer -type=InputModes

var KiT_InputModes = kit.Enums.AddEnum(InputModesN, kit.NotBitFlag, nil)

func (ev InputModes) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *InputModes) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// DirectInput injects the analog frame scaled by dt as a constant
	// current at every timestep.
	DirectInput InputModes = iota

	// PoissonInput draws stochastic signed spikes with probability
	// proportional to each analog value.
	PoissonInput

	// DVSInput consumes a pre-recorded event-camera stream, rastered
	// into per-step frames.
	DVSInput

	InputModesN
)

// MemInitModes are the membrane-potential initialization modes applied
// at sample reset.
type MemInitModes int32

//go:generate stringer -type=MemInitModes

var KiT_MemInitModes = kit.Enums.AddEnum(MemInitModesN, kit.NotBitFlag, nil)

func (ev MemInitModes) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *MemInitModes) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// MemInitZero starts every membrane at zero (default).
	MemInitZero MemInitModes = iota

	// MemInitUniform starts each membrane at an independent uniform
	// draw in [-thresh, +thresh].
	MemInitUniform

	// MemInitBias starts each membrane at its negative bias, which can
	// suppress the transient onset response.
	MemInitBias

	MemInitModesN
)

// Config has the full set of run-time parameters for building and
// evaluating a converted spiking network.  Call Defaults once, adjust
// fields, then Validate before building.
type Config struct {
	Dt           float32            `def:"1" desc:"duration of one timestep in msec"`
	Duration     float32            `def:"100" desc:"total simulated duration per sample in msec"`
	VThresh      float32            `def:"1" desc:"base firing threshold shared by all spiking layers"`
	TauRefrac    float32            `def:"0" desc:"refractory duration in msec imposed after each spike -- 0 disables the refractory gate entirely"`
	Reset        spikefn.ResetModes `desc:"membrane reset policy applied where a spike fired"`
	Leak         bool               `def:"false" desc:"subtract a fixed leak of LeakRate * Dt from positive membrane potentials each step"`
	LeakRate     float32            `def:"0.1" desc:"leak amount per msec, applied when Leak is on"`
	Payloads     bool               `def:"false" desc:"carry the post-spike membrane residual to the next layer as an analog payload, compensating discretization error"`
	OnlineNorm   bool               `def:"false" desc:"adapt each layer threshold online from its maximum observed spike rate"`
	MemInit      MemInitModes       `desc:"membrane potential initialization mode at sample reset"`
	ResetMod     int                `def:"1" desc:"reset state before every Nth sample -- 1 resets every sample, larger values leave state running across samples, 0 resets only before the first sample (fully continuous mode for video-like data)"`
	Input        InputModes         `desc:"input encoding mode driving the first layer"`
	PoissonRate  float32            `def:"1000" desc:"target input spike rate in Hz for PoissonInput"`
	MaxEvents    int                `def:"0" desc:"per-sample input event budget for PoissonInput -- 0 = unlimited"`
	SpikeBudget  int                `def:"0" desc:"cap on the cumulative analog input spike count, converted to a step cap before simulating -- 0 = off; requires DirectInput and ResetBySubtract"`
	BiasRelax    bool               `def:"false" desc:"anneal layer biases toward their trained values over the simulation window, faster for shallow layers"`
	ClampVar     bool               `def:"false" desc:"experimental: hold each membrane until the presynaptic spike-rate variance settles, avoiding the transient onset response"`
	VClip        bool               `def:"false" desc:"experimental: clip membrane potentials to [-3, 3] after integration"`
	ClampSched   map[int]float32    `desc:"experimental: per-layer-depth time (msec) before which the membrane is held clamped -- nil = no schedule"`
	RecordSpikes bool               `def:"false" desc:"record per-neuron spike trains (spike value times firing time) for diagnostics"`
	PoolGateP    float32            `def:"0.8" desc:"success probability of the Bernoulli gate applied to max-pooling outputs"`
}

// Defaults sets default parameter values.
func (cf *Config) Defaults() {
	cf.Dt = 1
	cf.Duration = 100
	cf.VThresh = 1
	cf.TauRefrac = 0
	cf.Reset = spikefn.ResetBySubtract
	cf.Leak = false
	cf.LeakRate = 0.1
	cf.Payloads = false
	cf.OnlineNorm = false
	cf.MemInit = MemInitZero
	cf.ResetMod = 1
	cf.Input = DirectInput
	cf.PoissonRate = 1000
	cf.MaxEvents = 0
	cf.SpikeBudget = 0
	cf.BiasRelax = false
	cf.ClampVar = false
	cf.VClip = false
	cf.RecordSpikes = false
	cf.PoolGateP = 0.8
}

// Update ensures derived values are consistent after field changes.
func (cf *Config) Update() {
	if cf.ResetMod < 0 {
		cf.ResetMod = 0
	}
}

// NumSteps returns the number of timesteps per sample: Duration / Dt.
func (cf *Config) NumSteps() int {
	return int(cf.Duration / cf.Dt)
}

// Validate checks for fatal configuration errors that must be rejected
// before any simulation step runs.
func (cf *Config) Validate() error {
	if cf.Dt <= 0 {
		return fmt.Errorf("snn.Config: Dt must be positive, got %g", cf.Dt)
	}
	if cf.Duration < cf.Dt {
		return fmt.Errorf("snn.Config: Duration %g shorter than one timestep %g", cf.Duration, cf.Dt)
	}
	if cf.VThresh <= 0 {
		return fmt.Errorf("snn.Config: VThresh must be positive, got %g", cf.VThresh)
	}
	if cf.PoolGateP < 0 || cf.PoolGateP > 1 {
		return fmt.Errorf("snn.Config: PoolGateP must be in [0, 1], got %g", cf.PoolGateP)
	}
	if cf.SpikeBudget > 0 {
		if cf.Reset != spikefn.ResetBySubtract {
			return fmt.Errorf("snn.Config: SpikeBudget requires ResetBySubtract, got %v", cf.Reset)
		}
		if cf.Input != DirectInput {
			return fmt.Errorf("snn.Config: SpikeBudget requires DirectInput, got %v", cf.Input)
		}
	}
	if cf.Input == PoissonInput && cf.PoissonRate <= 0 {
		return fmt.Errorf("snn.Config: PoissonInput requires a positive PoissonRate, got %g", cf.PoissonRate)
	}
	return nil
}
