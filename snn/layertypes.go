// Copyright (c) 2021, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"github.com/goki/ki/kit"
)

// LayerKinds are the supported layer kinds.  The spiking kinds own
// neuron state and run the full advance sequence each step; the
// passthrough kinds hold no state and deterministically transform
// their inbound output, excluded from all spike and operation
// statistics.
type LayerKinds int32

//go:generate stringer -type=LayerKinds

var KiT_LayerKinds = kit.Enums.AddEnum(LayerKindsN, kit.NotBitFlag, nil)

func (ev LayerKinds) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *LayerKinds) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// Input holds the per-step encoded input frame.
	Input LayerKinds = iota

	// Dense is a fully connected spiking layer.
	Dense

	// Conv2D is a 2D convolution spiking layer (channels-last).
	Conv2D

	// DepthwiseConv2D convolves each input channel with its own filter.
	DepthwiseConv2D

	// AvgPool2D averages over pooling windows, then spikes.
	AvgPool2D

	// MaxPool2D approximates max-pooling in the spike domain: winner
	// selection by windowed arg-max over the inbound layer's unreset
	// accumulator, gated by a Bernoulli draw.
	MaxPool2D

	// Flatten reshapes to a vector, passthrough.
	Flatten

	// Reshape changes shape without reordering, passthrough.
	Reshape

	// ZeroPad2D pads the spatial dims with zeros, passthrough.
	ZeroPad2D

	// Concat concatenates inbound outputs along the channel axis,
	// passthrough.
	Concat

	// UpSample2D repeats rows and columns (nearest neighbor),
	// passthrough.
	UpSample2D

	LayerKindsN
)

// IsSpiking reports whether this kind owns neuron state and fires
// spikes.  Passthrough kinds and the input layer do not.
func (lk LayerKinds) IsSpiking() bool {
	switch lk {
	case Dense, Conv2D, DepthwiseConv2D, AvgPool2D, MaxPool2D:
		return true
	}
	return false
}

// HasWeights reports whether this kind carries weight and bias tensors.
func (lk LayerKinds) HasWeights() bool {
	switch lk {
	case Dense, Conv2D, DepthwiseConv2D:
		return true
	}
	return false
}
