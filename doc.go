// Copyright (c) 2021, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package snnkit converts trained analog (rate-based) neural networks into
spiking networks under a temporal mean-rate code, and evaluates them over
a fixed simulation duration.

This top-level of the repository has no functional code -- everything is
organized into the following sub-packages:

* snn: the core implementation -- Layer, Network, per-neuron state
buffers, the per-step integrate-and-fire advance sequence, the batched
simulation loop, and evaluation statistics / operation accounting.

* spikefn: the pure spike-generation and membrane-reset policy math,
as closed enumerated types plus stateless functions, separately tested.

* encode: input encoders that turn analog frames or event-camera
recordings into per-step input to the first layer -- direct (constant
current), Poisson rate coding, and DVS event rasters.
*/
package snnkit
