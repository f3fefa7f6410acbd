// Copyright (c) 2021, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package spikefn provides the spike-generation (activation) and
membrane-reset policies used by temporal mean-rate spiking neurons.

A spiking neuron integrates input into its membrane potential and emits
a spike when the potential satisfies the firing condition of its
activation policy.  The emitted spike carries the threshold magnitude
(signed for bipolar policies), so that the time-averaged spike train
approximates the analog activation the neuron was converted from.

These are pure functions of (mem, thresh) so they can be tested in
isolation; the batched per-layer state loop lives in the snn package.
*/
package spikefn

import (
	"github.com/chewxy/math32"
	"github.com/goki/ki/kit"
)

// LeakyNegFactor is the asymmetry factor for the LeakyReLU policy:
// negative spikes fire only once the membrane reaches
// -LeakyNegFactor * thresh, and subtraction reset adds back
// LeakyNegFactor * thresh.
const LeakyNegFactor = float32(10)

// ActFuncs are the activation policies determining when a neuron
// spikes as a function of its membrane potential and threshold.
type ActFuncs int32

//go:generate stringer -type=ActFuncs

var KiT_ActFuncs = kit.Enums.AddEnum(ActFuncsN, kit.NotBitFlag, nil)

func (ev ActFuncs) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *ActFuncs) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// Linear fires a positive spike when mem >= thresh.
	Linear ActFuncs = iota

	// BipolarLinear fires a positive spike when mem >= thresh and a
	// negative spike when mem <= -thresh.  Used for linear layers that
	// can produce negative activations, and for pooling layers.
	BipolarLinear

	// BinarySigmoid fires a positive spike whenever mem > 0.
	BinarySigmoid

	// BinaryTanh fires a positive spike when mem > 0 and a negative
	// spike when mem < 0.
	BinaryTanh

	// LeakyReLU fires a positive spike when mem >= thresh and a
	// negative spike when mem <= -LeakyNegFactor * thresh.
	LeakyReLU

	// Softmax fires stochastically: each neuron in a batch row spikes
	// with probability softmax(mem) over that row.  Softmax neurons
	// always reset to zero regardless of the configured reset mode.
	// Spiking requires the whole row, so it is computed by
	// SoftmaxSpike rather than Spike.
	Softmax

	// Quantized is a placeholder for fixed-point Q(m,f) activations.
	// It currently behaves as Linear; using it logs a warning at
	// network build time.
	Quantized

	ActFuncsN
)

// ResetModes are the membrane-reset policies applied after a spike.
type ResetModes int32

//go:generate stringer -type=ResetModes

var KiT_ResetModes = kit.Enums.AddEnum(ResetModesN, kit.NotBitFlag, nil)

func (ev ResetModes) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *ResetModes) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// ResetToZero sets the membrane potential to zero after a spike.
	ResetToZero ResetModes = iota

	// ResetBySubtract subtracts the threshold from the membrane after
	// a positive spike and adds it back after a negative spike,
	// preserving the residual charge above threshold.
	ResetBySubtract

	// ResetByModulo reduces the membrane modulo the threshold after a
	// spike (floored modulo, so the result is always in [0, thresh)).
	ResetByModulo

	ResetModesN
)

// Spike returns the spike emitted for membrane potential mem at
// threshold thr: +thr, -thr, or 0.  Softmax is stochastic and
// row-dependent so it always returns 0 here; use SoftmaxSpike.
func (af ActFuncs) Spike(mem, thr float32) float32 {
	switch af {
	case Linear, Quantized:
		if mem >= thr {
			return thr
		}
	case BipolarLinear:
		if mem >= thr {
			return thr
		}
		if mem <= -thr {
			return -thr
		}
	case BinarySigmoid:
		if mem > 0 {
			return thr
		}
	case BinaryTanh:
		if mem > 0 {
			return thr
		}
		if mem < 0 {
			return -thr
		}
	case LeakyReLU:
		if mem >= thr {
			return thr
		}
		if mem <= -LeakyNegFactor*thr {
			return -thr
		}
	}
	return 0
}

// Reset returns the post-spike membrane potential for a neuron that
// emitted spike (0 = no spike) from potential mem at threshold thr.
// When payloads is true the residual charge travels in the payload
// channel instead, so any spike resets the membrane fully to zero.
// Softmax neurons always reset to zero.
func (af ActFuncs) Reset(mem, spike, thr float32, mode ResetModes, payloads bool) float32 {
	if spike == 0 {
		return mem
	}
	if payloads || af == Softmax {
		return 0
	}
	switch mode {
	case ResetToZero:
		return 0
	case ResetBySubtract:
		if spike < 0 {
			if af == LeakyReLU {
				return mem + LeakyNegFactor*thr
			}
			return mem + thr
		}
		return mem - thr
	case ResetByModulo:
		return FloorMod(mem, thr)
	}
	return mem
}

// FloorMod returns x mod y using floored division, so the result has
// the sign of y (always in [0, y) for positive y).
func FloorMod(x, y float32) float32 {
	return x - y*math32.Floor(x/y)
}

// SoftmaxRow computes the softmax of the in row into out (which must
// be the same length), shifting by the row max for stability.
func SoftmaxRow(in, out []float32) {
	if len(in) == 0 {
		return
	}
	mx := in[0]
	for _, v := range in {
		if v > mx {
			mx = v
		}
	}
	var sum float32
	for i, v := range in {
		e := math32.Exp(v - mx)
		out[i] = e
		sum += e
	}
	for i := range out {
		out[i] /= sum
	}
}

// SoftmaxSpike returns the spikes for one batch row of softmax
// neurons: neuron i spikes at +thr when urand[i] <= softmax(mem)[i],
// where urand holds uniform [0,1) draws.  prob is scratch space of the
// same length for the softmax values.
func SoftmaxSpike(mem, urand, prob, spikes []float32, thr float32) {
	SoftmaxRow(mem, prob)
	for i := range mem {
		if urand[i] <= prob[i] {
			spikes[i] = thr
		} else {
			spikes[i] = 0
		}
	}
}
