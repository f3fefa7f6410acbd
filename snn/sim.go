// Copyright (c) 2021, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"fmt"
	"log"

	"github.com/chewxy/math32"
	"github.com/emer/emergent/env"
	"github.com/emer/emergent/erand"
	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"
	"github.com/goki/ki/ints"
	"github.com/snnkit/snnkit/spikefn"
)

// UndecidedClass is the sentinel guess assigned to samples whose
// cumulative output spikes are all zero.  It compares unequal to any
// valid class label, so undecided samples always count as wrong.
const UndecidedClass = -1

// EventReporter is implemented by encoders that can report unconsumed
// input events after a batch finishes.
type EventReporter interface {
	// RemainingEvents returns the number of events left unprocessed
	// for the current batch.
	RemainingEvents() int
}

// Sim drives a built network over the simulation window, one batch of
// samples at a time, aggregating classification and operation
// statistics.
type Sim struct {
	Net *Network `desc:"the built spiking network"`
	Enc env.Env  `desc:"input encoder producing one frame per Step"`

	EvalLog  *etable.Table `desc:"per-timestep evaluation log"`
	RndSeeds erand.Seeds   `view:"-" desc:"random seeds, one per run"`

	OutSpikes *etensor.Float32 `desc:"cumulative binary output spikes for the current batch, [batch, classes]"`
	Guesses   []int            `desc:"current per-sample class guesses, UndecidedClass when no output spikes yet"`
	Correct   *etensor.Float32 `desc:"per-step correctness for the current batch, [batch, steps], 1 = correct"`
	SynOps    []float64        `desc:"batch-total synaptic operations per step"`
	NeurOps   []float64        `desc:"batch-total neuron (bias) operations per step"`
	StepsRun  int              `inactive:"+" desc:"steps actually simulated for the last batch (early stop or budget can shorten)"`

	BatchCnt int   `inactive:"+" desc:"batches run so far"`
	TruthAll []int `view:"-" desc:"true labels over all batches"`
	GuessAll []int `view:"-" desc:"final guesses over all batches"`
	Top5Cnt  int   `inactive:"+" desc:"samples whose true class was in the top 5 outputs"`
}

// NewSim returns a Sim for a built network and encoder.
func NewSim(net *Network, enc env.Env) *Sim {
	return &Sim{Net: net, Enc: enc}
}

// Init allocates the aggregation buffers and seeds the random stream.
// Call once after the network is built, before the first batch.
func (ss *Sim) Init(run int) {
	ss.RndSeeds.Init(100)
	ss.RndSeeds.Set(run)
	ncls := ss.Net.OutLay.Shp.Len()
	ss.OutSpikes = &etensor.Float32{}
	ss.OutSpikes.SetShape([]int{ss.Net.Batch, ncls}, nil, []string{"Batch", "Class"})
	ss.Correct = &etensor.Float32{}
	ss.Correct.SetShape([]int{ss.Net.Batch, ss.Net.Cfg.NumSteps()}, nil, []string{"Batch", "Step"})
	ss.Guesses = make([]int, ss.Net.Batch)
	ss.EvalLog = &etable.Table{}
	ss.ConfigEvalLog(ss.EvalLog)
	ss.BatchCnt = 0
	ss.TruthAll = nil
	ss.GuessAll = nil
	ss.Top5Cnt = 0
}

// StepsAtSpikeBudget returns the number of steps after which the
// cumulative (ungated) input spike count of the given dt-scaled frame
// would exceed the configured budget, capped at the full window.  The
// cap only applies to constant direct input with subtraction reset;
// any other combination leaves the duration unchanged (intentional
// no-op, rejected earlier by Config.Validate in normal use).
func (ss *Sim) StepsAtSpikeBudget(frame *etensor.Float32) int {
	cfg := &ss.Net.Cfg
	num := cfg.NumSteps()
	if cfg.SpikeBudget <= 0 {
		return num
	}
	if cfg.Input != DirectInput || cfg.Reset != spikefn.ResetBySubtract {
		return num
	}
	limit := float64(cfg.SpikeBudget * ss.Net.Batch)
	acc := make([]float32, len(frame.Values))
	for t := 0; t < num; t++ {
		var cnt float64
		for i, v := range frame.Values {
			acc[i] += v
			cnt += float64(math32.Floor(acc[i]))
		}
		if cnt > limit {
			return t
		}
	}
	return num
}

// RunBatch simulates one batch of samples over the full window (or
// until an early stop), given the true class labels.  The encoder must
// already hold the batch's analog input or event streams.  sampleIdx
// feeds the reset modulus for continuous mode.
func (ss *Sim) RunBatch(truth []int, sampleIdx int) error {
	net := ss.Net
	cfg := &net.Cfg
	if len(truth) != net.Batch {
		return fmt.Errorf("snn.Sim: batch size %d does not match built network batch %d", len(truth), net.Batch)
	}
	net.Reset(sampleIdx)
	ss.OutSpikes.SetZeros()
	ss.Correct.SetZeros()
	for b := range ss.Guesses {
		ss.Guesses[b] = UndecidedClass
	}
	nsteps := cfg.NumSteps()
	if cfg.SpikeBudget > 0 {
		if fr, ok := ss.Enc.State("Input").(*etensor.Float32); ok && fr != nil {
			nsteps = ints.MinInt(nsteps, ss.StepsAtSpikeBudget(fr))
		}
	}
	ncls := net.OutLay.Shp.Len()
	ss.SynOps = make([]float64, nsteps)
	ss.NeurOps = make([]float64, nsteps)
	ss.StepsRun = 0

	eventInput := cfg.Input == PoissonInput || cfg.Input == DVSInput
	for k := 0; k < nsteps; k++ {
		if !ss.Enc.Step() {
			// input archive exhausted, normal termination
			break
		}
		frame, ok := ss.Enc.State("Input").(*etensor.Float32)
		if !ok || frame == nil {
			return fmt.Errorf("snn.Sim: encoder %s did not produce a Float32 Input state", ss.Enc.Name())
		}
		nnzIn := 0
		for _, v := range frame.Values {
			if v != 0 {
				nnzIn++
			}
		}
		if eventInput && nnzIn == 0 {
			log.Printf("snn.Sim: input empty, finishing simulation %d steps early\n", nsteps-k)
			break
		}
		t := float32(k+1) * cfg.Dt
		net.SetTime(t)
		if cfg.BiasRelax {
			net.RelaxBias(t)
		}
		out, err := net.Cycle(frame)
		if err != nil {
			return err
		}
		nerr := 0
		for b := 0; b < net.Batch; b++ {
			row := ss.OutSpikes.Values[b*ncls : (b+1)*ncls]
			orow := out.Values[b*ncls : (b+1)*ncls]
			for c := 0; c < ncls; c++ {
				if orow[c] > 0 {
					row[c]++
				}
			}
			g := argmaxRow(row)
			ss.Guesses[b] = g
			if g != UndecidedClass && g == truth[b] {
				ss.Correct.Values[b*cfg.NumSteps()+k] = 1
			} else {
				nerr++
			}
		}
		var syn, neur float64
		for _, ly := range net.Layers {
			if !ly.Kind.IsSpiking() {
				continue
			}
			syn += float64(ly.SpikeCount() * ly.FanOut)
			neur += float64(ly.NBias * net.Batch)
		}
		if eventInput {
			syn += float64(nnzIn * net.InFanOut)
		} else if k == 0 {
			if fl := net.firstSpiking(); fl != nil {
				neur += float64(2 * fanIn(fl) * fl.Shp.Len() * net.Batch)
			}
		}
		ss.SynOps[k] = syn
		ss.NeurOps[k] = neur
		ss.LogStep(ss.BatchCnt, k, t, float64(nerr)/float64(net.Batch), syn, neur)
		ss.StepsRun = k + 1
	}

	if rep, ok := ss.Enc.(EventReporter); ok {
		if rem := rep.RemainingEvents(); rem > 0 {
			log.Printf("snn.Sim: batch finished but %d input events were not processed, consider increasing the simulation time\n", rem)
		}
	}

	for b := 0; b < net.Batch; b++ {
		ss.TruthAll = append(ss.TruthAll, truth[b])
		ss.GuessAll = append(ss.GuessAll, ss.Guesses[b])
		if Top5Hit(ss.OutSpikes.Values[b*ncls:(b+1)*ncls], truth[b]) {
			ss.Top5Cnt++
		}
	}
	ss.BatchCnt++
	return nil
}

// Top1Acc returns the moving top-1 accuracy over all batches run.
func (ss *Sim) Top1Acc() float64 {
	if len(ss.TruthAll) == 0 {
		return 0
	}
	n := 0
	for i, gt := range ss.TruthAll {
		if ss.GuessAll[i] == gt {
			n++
		}
	}
	return float64(n) / float64(len(ss.TruthAll))
}

// Top5Acc returns the moving top-5 accuracy over all batches run.
func (ss *Sim) Top5Acc() float64 {
	if len(ss.TruthAll) == 0 {
		return 0
	}
	return float64(ss.Top5Cnt) / float64(len(ss.TruthAll))
}

// AvgClassAcc returns the accuracy averaged over classes.
func (ss *Sim) AvgClassAcc() float64 {
	return PerClassAcc(ss.TruthAll, ss.GuessAll, ss.Net.OutLay.Shp.Len())
}

// argmaxRow returns the index of the maximum value, or UndecidedClass
// when the row is entirely zero.
func argmaxRow(row []float32) int {
	gi := UndecidedClass
	var mx float32
	for c, v := range row {
		if v == 0 {
			continue
		}
		if gi == UndecidedClass || v > mx {
			gi = c
			mx = v
		}
	}
	return gi
}

// firstSpiking returns the first spiking layer in topological order.
func (nt *Network) firstSpiking() *Layer {
	for _, ly := range nt.Layers {
		if ly.Kind.IsSpiking() {
			return ly
		}
	}
	return nil
}

// fanIn is the number of incoming connections per neuron of a layer.
func fanIn(ly *Layer) int {
	switch ly.Kind {
	case Dense:
		return ly.InShp.Len()
	case Conv2D:
		return ly.Wts.Dim(0) * ly.Wts.Dim(1) * ly.InShp.Dim(2)
	case DepthwiseConv2D:
		return ly.Wts.Dim(0) * ly.Wts.Dim(1)
	case AvgPool2D, MaxPool2D:
		return ly.Pool.SizeY * ly.Pool.SizeX
	}
	return 0
}
