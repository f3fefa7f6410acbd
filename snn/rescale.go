// Copyright (c) 2021, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"github.com/emer/etable/etensor"
	"github.com/goki/mat32"
)

// Weight and bias rescaling over simulation time.  The one-time
// compile-step scaling of biases by dt happens in Network.Build; the
// methods here implement the periodic schedules.

// RelaxBias anneals every layer's bias toward its trained value at
// simulation time t:
//
//	bias(t) = bias0 * clip(1 - (1 - 2t/duration) * depth/50, 0, 1)
//
// Shallow layers reach their trained bias early in the window, deep
// layers only toward the end, which suppresses the error transient
// that accumulates front-to-back at stimulus onset.
func (nt *Network) RelaxBias(t float32) {
	for _, ly := range nt.Layers {
		if ly.Bias == nil || ly.Bias0 == nil {
			continue
		}
		m := mat32.Clamp(1-(1-2*t/nt.Cfg.Duration)*float32(ly.Idx)/50, 0, 1)
		for i := range ly.Bias.Values {
			ly.Bias.Values[i] = ly.Bias0[i] * m
		}
	}
}

// ScaleFirstLayer rescales the first weighted layer's parameters at
// time t so that input current is overweighted early in the window and
// decays to the trained values as t approaches the duration:
//
//	w(t)    = w0 * (duration + tau) / (t + tau)
//	bias(t) = bias0 + tau * (duration - t) / (t + tau) * w0 x mean(input)
//
// The bias correction uses the batch-mean input; it is only computed
// for a dense first layer, other kinds get the weight scaling alone.
func (nt *Network) ScaleFirstLayer(t, tau float32, input *etensor.Float32) {
	var ly *Layer
	for _, l := range nt.Layers {
		if l.Kind.HasWeights() {
			ly = l
			break
		}
	}
	if ly == nil || ly.Wts == nil {
		return
	}
	if ly.W0 == nil {
		ly.W0 = make([]float32, len(ly.Wts.Values))
		copy(ly.W0, ly.Wts.Values)
		// scaling below writes in place: detach from the caller's
		// parsed-model tensor first
		w := &etensor.Float32{}
		w.SetShape(ly.Wts.Shapes(), nil, nil)
		copy(w.Values, ly.W0)
		ly.Wts = w
	}
	dur := nt.Cfg.Duration
	alpha := (dur + tau) / (t + tau)
	for i := range ly.Wts.Values {
		ly.Wts.Values[i] = alpha * ly.W0[i]
	}
	if ly.Bias == nil || ly.Bias0 == nil || ly.Kind != Dense {
		return
	}
	inN := ly.InShp.Len()
	outN := ly.Shp.Len()
	if input.Len() < inN {
		return
	}
	batch := input.Len() / inN
	beta := tau * (dur - t) / (t + tau)
	for o := 0; o < outN; o++ {
		var drive float32
		for i := 0; i < inN; i++ {
			var mean float32
			for b := 0; b < batch; b++ {
				mean += input.Values[b*inN+i]
			}
			mean /= float32(batch)
			drive += ly.W0[i*outN+o] * mean
		}
		ly.Bias.Values[o] = ly.Bias0[o] + beta*drive
	}
}
