// Copyright (c) 2021, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encode

import (
	"fmt"
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/emer/emergent/env"
	"github.com/emer/etable/etensor"
)

// PoissonEnv encodes the analog input as stochastic spike trains: each
// element fires independently per step with probability proportional
// to its absolute value, at a configured target rate for the maximum
// input.  Emitted spikes carry the maximum input magnitude with the
// sign of the source value, which supports non-normalized signed
// inputs.  An optional per-sample event budget stops emission (all
// zero frames) once exhausted.
type PoissonEnv struct {
	Nm        string  `desc:"name of this environment"`
	Dsc       string  `desc:"description"`
	Dt        float32 `desc:"timestep in msec"`
	RateHz    float32 `def:"1000" desc:"target input spike rate in Hz for the maximum analog value"`
	MaxEvents int     `desc:"per-sample input event budget, <= 0 for unlimited"`

	X     etensor.Float32 `desc:"batch analog input, set via Action"`
	Frame etensor.Float32 `desc:"current stochastic spike frame"`

	MaxX       float32 `inactive:"+" desc:"maximum analog value of the current batch"`
	RescaleFac float32 `inactive:"+" desc:"probability rescaling factor: 1000 / (RateHz * Dt)"`
	EventCnt   int     `inactive:"+" desc:"events emitted so far this sample (batch average)"`

	Run  env.Ctr `view:"inline" desc:"run counter"`
	Tick env.Ctr `view:"inline" desc:"timestep within the simulation window"`
}

func (pe *PoissonEnv) Name() string { return pe.Nm }
func (pe *PoissonEnv) Desc() string { return pe.Dsc }

func (pe *PoissonEnv) Validate() error {
	if pe.Dt <= 0 {
		return fmt.Errorf("encode.PoissonEnv %s: Dt must be positive, got %g", pe.Nm, pe.Dt)
	}
	if pe.RateHz <= 0 {
		return fmt.Errorf("encode.PoissonEnv %s: RateHz must be positive, got %g", pe.Nm, pe.RateHz)
	}
	return nil
}

func (pe *PoissonEnv) Counters() []env.TimeScales {
	return []env.TimeScales{env.Run, env.Tick}
}

func (pe *PoissonEnv) States() env.Elements {
	return env.Elements{
		{Name: "Input", Shape: pe.Frame.Shapes()},
	}
}

func (pe *PoissonEnv) State(element string) etensor.Tensor {
	if element == "Input" {
		return &pe.Frame
	}
	return nil
}

func (pe *PoissonEnv) Actions() env.Elements {
	return env.Elements{
		{Name: "Input", Shape: pe.X.Shapes()},
	}
}

// Action sets the batch analog input ("Input"), computes the
// per-batch rescaling factor, and resets the event budget.
func (pe *PoissonEnv) Action(element string, input etensor.Tensor) {
	if element != "Input" {
		return
	}
	pe.X.SetShape(input.Shapes(), nil, nil)
	pe.X.CopyFrom(input)
	pe.Frame.SetShape(input.Shapes(), nil, nil)
	pe.MaxX = 0
	for _, v := range pe.X.Values {
		if v > pe.MaxX {
			pe.MaxX = v
		}
	}
	pe.RescaleFac = 1000 / (pe.RateHz * pe.Dt)
	pe.EventCnt = 0
}

func (pe *PoissonEnv) Init(run int) {
	pe.Run.Scale = env.Run
	pe.Tick.Scale = env.Tick
	pe.Run.Init()
	pe.Tick.Init()
	pe.Run.Cur = run
	pe.EventCnt = 0
}

// Step draws a fresh stochastic frame, or an all-zero frame once the
// event budget is spent.  Always returns true; budget exhaustion is a
// normal condition surfaced by the zero frames and RemainingEvents.
func (pe *PoissonEnv) Step() bool {
	pe.Tick.Incr()
	if pe.MaxEvents > 0 && pe.EventCnt >= pe.MaxEvents {
		pe.Frame.SetZeros()
		return true
	}
	batch := 1
	if pe.X.NumDims() > 0 {
		batch = pe.X.Dim(0)
	}
	nnz := 0
	for i, v := range pe.X.Values {
		draw := rand.Float32() * pe.RescaleFac * pe.MaxX
		if draw <= math32.Abs(v) && v != 0 {
			pe.Frame.Values[i] = pe.MaxX * sign(v)
			nnz++
		} else {
			pe.Frame.Values[i] = 0
		}
	}
	if batch > 0 {
		pe.EventCnt += nnz / batch
	}
	return true
}

// RemainingEvents returns the unspent part of the event budget, 0 when
// unlimited.
func (pe *PoissonEnv) RemainingEvents() int {
	if pe.MaxEvents <= 0 {
		return 0
	}
	rem := pe.MaxEvents - pe.EventCnt
	if rem < 0 {
		return 0
	}
	return rem
}

func (pe *PoissonEnv) Counter(scale env.TimeScales) (cur, prv int, chg bool) {
	switch scale {
	case env.Run:
		return pe.Run.Query()
	case env.Tick:
		return pe.Tick.Query()
	}
	return -1, -1, false
}

func sign(v float32) float32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

var _ env.Env = (*PoissonEnv)(nil)
