// Copyright (c) 2021, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package encode provides the input encoders that turn analog frames or
event-camera recordings into the per-timestep input frames driving the
first layer of a converted spiking network.

Each encoder implements the emergent env.Env interface: the host sets
the batch's analog input through Action (or loads event recordings),
and the simulation loop calls Step once per timestep and reads the
"Input" state.
*/
package encode

import (
	"fmt"

	"github.com/emer/emergent/env"
	"github.com/emer/etable/etensor"
)

// DirectEnv presents the analog input as a constant bias current:
// every step's frame is the analog value scaled by dt, with no
// randomness and no exhaustion.
type DirectEnv struct {
	Nm  string  `desc:"name of this environment"`
	Dsc string  `desc:"description"`
	Dt  float32 `desc:"timestep in msec, scales the analog input"`

	X     etensor.Float32 `desc:"batch analog input, set via Action"`
	Frame etensor.Float32 `desc:"constant per-step input frame: X * Dt"`

	Run  env.Ctr `view:"inline" desc:"run counter"`
	Tick env.Ctr `view:"inline" desc:"timestep within the simulation window"`
}

func (de *DirectEnv) Name() string { return de.Nm }
func (de *DirectEnv) Desc() string { return de.Dsc }

func (de *DirectEnv) Validate() error {
	if de.Dt <= 0 {
		return fmt.Errorf("encode.DirectEnv %s: Dt must be positive, got %g", de.Nm, de.Dt)
	}
	return nil
}

func (de *DirectEnv) Counters() []env.TimeScales {
	return []env.TimeScales{env.Run, env.Tick}
}

func (de *DirectEnv) States() env.Elements {
	return env.Elements{
		{Name: "Input", Shape: de.Frame.Shapes()},
	}
}

func (de *DirectEnv) State(element string) etensor.Tensor {
	if element == "Input" {
		return &de.Frame
	}
	return nil
}

func (de *DirectEnv) Actions() env.Elements {
	return env.Elements{
		{Name: "Input", Shape: de.X.Shapes()},
	}
}

// Action sets the batch analog input ("Input") and computes the
// constant frame.
func (de *DirectEnv) Action(element string, input etensor.Tensor) {
	if element != "Input" {
		return
	}
	de.X.SetShape(input.Shapes(), nil, nil)
	de.X.CopyFrom(input)
	de.Frame.SetShape(input.Shapes(), nil, nil)
	for i, v := range de.X.Values {
		de.Frame.Values[i] = v * de.Dt
	}
}

func (de *DirectEnv) Init(run int) {
	de.Run.Scale = env.Run
	de.Tick.Scale = env.Tick
	de.Run.Init()
	de.Tick.Init()
	de.Run.Cur = run
}

// Step advances the tick; the frame is constant so there is nothing to
// recompute, and direct input never exhausts.
func (de *DirectEnv) Step() bool {
	de.Tick.Incr()
	return true
}

func (de *DirectEnv) Counter(scale env.TimeScales) (cur, prv int, chg bool) {
	switch scale {
	case env.Run:
		return de.Run.Query()
	case env.Tick:
		return de.Tick.Query()
	}
	return -1, -1, false
}

// compile-time interface check
var _ env.Env = (*DirectEnv)(nil)
