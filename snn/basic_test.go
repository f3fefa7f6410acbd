// Copyright (c) 2021, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"testing"

	"github.com/snnkit/snnkit/encode"
	"github.com/snnkit/snnkit/spikefn"
)

// buildDenseNet builds input[2] -> dense[2] with identity weights.
func buildDenseNet(t *testing.T, cfg *Config) *Network {
	specs := []LayerSpec{
		{Name: "in", Kind: Input, Shape: []int{2}},
		{Name: "fc", Kind: Dense, Shape: []int{2}, Inbound: []string{"in"},
			Wts: newF32([]int{2, 2}, 1, 0, 0, 1)},
	}
	net := NewNetwork("test")
	if err := net.Build(specs, 1, cfg); err != nil {
		t.Fatal(err)
	}
	return net
}

func TestNetBuildErrors(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()

	dup := []LayerSpec{
		{Name: "in", Kind: Input, Shape: []int{2}},
		{Name: "in", Kind: Input, Shape: []int{2}},
	}
	if err := NewNetwork("dup").Build(dup, 1, &cfg); err == nil {
		t.Errorf("duplicate layer names not rejected")
	}

	unk := []LayerSpec{
		{Name: "in", Kind: Input, Shape: []int{2}},
		{Name: "fc", Kind: Dense, Shape: []int{2}, Inbound: []string{"nope"},
			Wts: newF32([]int{2, 2})},
	}
	if err := NewNetwork("unk").Build(unk, 1, &cfg); err == nil {
		t.Errorf("unknown inbound layer not rejected")
	}

	twoIn := []LayerSpec{
		{Name: "in1", Kind: Input, Shape: []int{2}},
		{Name: "in2", Kind: Input, Shape: []int{2}},
	}
	if err := NewNetwork("twoin").Build(twoIn, 1, &cfg); err == nil {
		t.Errorf("multiple input layers not rejected")
	}

	noWts := []LayerSpec{
		{Name: "in", Kind: Input, Shape: []int{2}},
		{Name: "fc", Kind: Dense, Shape: []int{2}, Inbound: []string{"in"}},
	}
	if err := NewNetwork("nowts").Build(noWts, 1, &cfg); err == nil {
		t.Errorf("dense layer without weights not rejected")
	}

	cyc := []LayerSpec{
		{Name: "in", Kind: Input, Shape: []int{1, 1, 1}},
		{Name: "a", Kind: Flatten, Shape: []int{1}, Inbound: []string{"b"}},
		{Name: "b", Kind: Flatten, Shape: []int{1}, Inbound: []string{"a"}},
	}
	if err := NewNetwork("cyc").Build(cyc, 1, &cfg); err == nil {
		t.Errorf("cyclic layer graph not rejected")
	}
}

// specs given out of dependency order must still build in topological
// order.
func TestTopoOrder(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()
	specs := []LayerSpec{
		{Name: "fc", Kind: Dense, Shape: []int{2}, Inbound: []string{"flat"},
			Wts: newF32([]int{2, 2}, 1, 0, 0, 1)},
		{Name: "flat", Kind: Flatten, Shape: []int{2}, Inbound: []string{"in"}},
		{Name: "in", Kind: Input, Shape: []int{1, 2, 1}},
	}
	net := NewNetwork("topo")
	if err := net.Build(specs, 1, &cfg); err != nil {
		t.Fatal(err)
	}
	order := []string{"in", "flat", "fc"}
	for i, nm := range order {
		if net.Layers[i].Nm != nm {
			t.Errorf("layer %d = %s != %s", i, net.Layers[i].Nm, nm)
		}
	}
	if net.OutLay.Nm != "fc" {
		t.Errorf("output layer = %s != fc", net.OutLay.Nm)
	}
	// fan-out looks through the flatten: each input element drives the
	// full dense layer
	if net.InFanOut != 2 {
		t.Errorf("input fan-out = %d != 2", net.InFanOut)
	}
}

// constant direct input through an identity dense layer must produce
// the rate code: floor(x * duration / thr) spikes per class.
func TestDenseRateCode(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()
	cfg.Duration = 10
	net := buildDenseNet(t, &cfg)

	frame := newF32([]int{1, 2}, 0.37, 0.73) // already dt-scaled
	counts := [2]int{}
	for k := 0; k < cfg.NumSteps(); k++ {
		net.SetTime(float32(k+1) * cfg.Dt)
		out, err := net.Cycle(frame)
		if err != nil {
			t.Fatal(err)
		}
		for c := 0; c < 2; c++ {
			if out.Values[c] != 0 {
				counts[c]++
			}
		}
	}
	if counts[0] != 3 || counts[1] != 7 {
		t.Errorf("rate code = %v != [3 7]", counts)
	}
}

func TestConvForward(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()
	cfg.VThresh = 100
	specs := []LayerSpec{
		{Name: "in", Kind: Input, Shape: []int{2, 2, 1}},
		{Name: "cv", Kind: Conv2D, Shape: []int{1, 1, 1}, Inbound: []string{"in"},
			Wts:  newF32([]int{2, 2, 1, 1}, 1, 2, 3, 4),
			Conv: ConvParams{StrideY: 1, StrideX: 1}},
	}
	net := NewNetwork("conv")
	if err := net.Build(specs, 1, &cfg); err != nil {
		t.Fatal(err)
	}
	frame := newF32([]int{1, 2, 2, 1}, 1, 0.5, 0.25, 0.125)
	net.SetTime(1)
	if _, err := net.Cycle(frame); err != nil {
		t.Fatal(err)
	}
	cv := net.LayerByName("cv")
	trg := float32(1*1 + 0.5*2 + 0.25*3 + 0.125*4)
	if d := cv.State.Mem.Values[0] - trg; d > difTol || d < -difTol {
		t.Errorf("conv membrane = %g != %g", cv.State.Mem.Values[0], trg)
	}
}

func TestAvgPoolForward(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()
	cfg.VThresh = 100
	specs := []LayerSpec{
		{Name: "in", Kind: Input, Shape: []int{2, 2, 1}},
		{Name: "pl", Kind: AvgPool2D, Shape: []int{1, 1, 1}, Inbound: []string{"in"},
			Pool: PoolParams{SizeY: 2, SizeX: 2, StrideY: 2, StrideX: 2, GateP: 1}},
	}
	net := NewNetwork("avg")
	if err := net.Build(specs, 1, &cfg); err != nil {
		t.Fatal(err)
	}
	frame := newF32([]int{1, 2, 2, 1}, 1, 0.5, 0.25, 0.125)
	net.SetTime(1)
	if _, err := net.Cycle(frame); err != nil {
		t.Fatal(err)
	}
	pl := net.LayerByName("pl")
	trg := float32((1 + 0.5 + 0.25 + 0.125) / 4)
	if d := pl.State.Mem.Values[0] - trg; d > difTol || d < -difTol {
		t.Errorf("avg pool membrane = %g != %g", pl.State.Mem.Values[0], trg)
	}
}

// max pooling gathers the instantaneous spike of the window's arg-max
// history element; with the gate probability at 1 the result is
// deterministic.
func TestMaxPoolWinner(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()
	cfg.PoolGateP = 1
	specs := []LayerSpec{
		{Name: "in", Kind: Input, Shape: []int{2, 2, 1}},
		{Name: "pl", Kind: MaxPool2D, Shape: []int{1, 1, 1}, Inbound: []string{"in"},
			Pool: PoolParams{SizeY: 2, SizeX: 2, StrideY: 2, StrideX: 2, GateP: 1}},
	}
	net := NewNetwork("max")
	if err := net.Build(specs, 1, &cfg); err != nil {
		t.Fatal(err)
	}
	frame := newF32([]int{1, 2, 2, 1}, 0.2, 0.9, 0.1, 0.3)
	// step 1: winner 0.9 integrates to 0.9, below threshold
	net.SetTime(1)
	out, err := net.Cycle(frame)
	if err != nil {
		t.Fatal(err)
	}
	if out.Values[0] != 0 {
		t.Errorf("step 1 spiked at %g membrane", out.Values[0])
	}
	// step 2: 1.8 crosses and fires the bipolar spike of +thr
	net.SetTime(2)
	out, err = net.Cycle(frame)
	if err != nil {
		t.Fatal(err)
	}
	if out.Values[0] != 1 {
		t.Errorf("step 2 spike = %g != 1", out.Values[0])
	}
}

// a gate probability of 0 suppresses every pooled spike.
func TestMaxPoolGateClosed(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()
	cfg.PoolGateP = 0
	specs := []LayerSpec{
		{Name: "in", Kind: Input, Shape: []int{2, 2, 1}},
		{Name: "pl", Kind: MaxPool2D, Shape: []int{1, 1, 1}, Inbound: []string{"in"},
			Pool: PoolParams{SizeY: 2, SizeX: 2, StrideY: 2, StrideX: 2}},
	}
	net := NewNetwork("gate")
	if err := net.Build(specs, 1, &cfg); err != nil {
		t.Fatal(err)
	}
	frame := newF32([]int{1, 2, 2, 1}, 0.2, 0.9, 0.1, 0.3)
	for k := 0; k < 5; k++ {
		net.SetTime(float32(k + 1))
		out, err := net.Cycle(frame)
		if err != nil {
			t.Fatal(err)
		}
		if out.Values[0] != 0 {
			t.Errorf("closed gate passed a spike at step %d: %g", k, out.Values[0])
		}
	}
	pl := net.LayerByName("pl")
	if pl.State.Mem.Values[0] != 0 {
		t.Errorf("closed gate integrated input: membrane = %g", pl.State.Mem.Values[0])
	}
}

// with the reset modulus at 0 the state runs continuously: only the
// first sample ever clears the membrane.
func TestResetModulus(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()
	cfg.ResetMod = 0
	net := buildDenseNet(t, &cfg)
	frame := newF32([]int{1, 2}, 0.4, 0)
	net.SetTime(1)
	if _, err := net.Cycle(frame); err != nil {
		t.Fatal(err)
	}
	fc := net.LayerByName("fc")
	net.Reset(1)
	if fc.State.Mem.Values[0] != 0.4 {
		t.Errorf("continuous mode cleared the membrane at sample 1: %g", fc.State.Mem.Values[0])
	}
	net.Reset(0)
	if fc.State.Mem.Values[0] != 0 {
		t.Errorf("first sample did not clear the membrane: %g", fc.State.Mem.Values[0])
	}

	cfg.Defaults()
	cfg.ResetMod = 2
	net = buildDenseNet(t, &cfg)
	net.SetTime(1)
	if _, err := net.Cycle(frame); err != nil {
		t.Fatal(err)
	}
	fc = net.LayerByName("fc")
	net.Reset(1)
	if fc.State.Mem.Values[0] != 0.4 {
		t.Errorf("modulus 2 cleared the membrane at sample 1: %g", fc.State.Mem.Values[0])
	}
	net.Reset(2)
	if fc.State.Mem.Values[0] != 0 {
		t.Errorf("modulus 2 did not clear the membrane at sample 2: %g", fc.State.Mem.Values[0])
	}
}

// building scales biases by dt on a copy: the caller's tensors stay
// untouched, so the same layer list builds identically again.
func TestBiasSpecPristine(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()
	cfg.Dt = 0.5
	bias := newF32([]int{1}, 0.25)
	specs := []LayerSpec{
		{Name: "in", Kind: Input, Shape: []int{1}},
		{Name: "fc", Kind: Dense, Shape: []int{1}, Inbound: []string{"in"},
			Wts: newF32([]int{1, 1}, 1), Bias: bias},
	}
	net1 := NewNetwork("b1")
	if err := net1.Build(specs, 1, &cfg); err != nil {
		t.Fatal(err)
	}
	got := net1.LayerByName("fc").Bias.Values[0]
	if d := got - 0.125; d > difTol || d < -difTol {
		t.Errorf("scaled bias = %g != 0.125", got)
	}
	if bias.Values[0] != 0.25 {
		t.Errorf("build mutated the given bias: %g != 0.25", bias.Values[0])
	}
	net2 := NewNetwork("b2")
	if err := net2.Build(specs, 1, &cfg); err != nil {
		t.Fatal(err)
	}
	got = net2.LayerByName("fc").Bias.Values[0]
	if d := got - 0.125; d > difTol || d < -difTol {
		t.Errorf("rebuild double-scaled the bias: %g != 0.125", got)
	}
}

func TestPassthroughs(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()

	pad := []LayerSpec{
		{Name: "in", Kind: Input, Shape: []int{1, 1, 2}},
		{Name: "pd", Kind: ZeroPad2D, Shape: []int{3, 3, 2}, Inbound: []string{"in"},
			Pad: PadParams{Top: 1, Bottom: 1, Left: 1, Right: 1}},
	}
	net := NewNetwork("pad")
	if err := net.Build(pad, 1, &cfg); err != nil {
		t.Fatal(err)
	}
	frame := newF32([]int{1, 1, 1, 2}, 5, 7)
	net.SetTime(1)
	if _, err := net.Cycle(frame); err != nil {
		t.Fatal(err)
	}
	pv := net.LayerByName("pd").Out.Values
	center := (1*3 + 1) * 2
	if pv[center] != 5 || pv[center+1] != 7 {
		t.Errorf("padded center = [%g %g] != [5 7]", pv[center], pv[center+1])
	}
	var sum float32
	for _, v := range pv {
		sum += v
	}
	if sum != 12 {
		t.Errorf("pad leaked values: sum = %g != 12", sum)
	}

	up := []LayerSpec{
		{Name: "in", Kind: Input, Shape: []int{1, 2, 1}},
		{Name: "up", Kind: UpSample2D, Shape: []int{2, 4, 1}, Inbound: []string{"in"},
			Up: UpSampleParams{ScaleY: 2, ScaleX: 2}},
	}
	net = NewNetwork("up")
	if err := net.Build(up, 1, &cfg); err != nil {
		t.Fatal(err)
	}
	frame = newF32([]int{1, 1, 2, 1}, 3, 4)
	net.SetTime(1)
	if _, err := net.Cycle(frame); err != nil {
		t.Fatal(err)
	}
	uv := net.LayerByName("up").Out.Values
	trg := []float32{3, 3, 4, 4, 3, 3, 4, 4}
	for i := range trg {
		if uv[i] != trg[i] {
			t.Errorf("upsample [%d] = %g != %g", i, uv[i], trg[i])
		}
	}

	cat := []LayerSpec{
		{Name: "in", Kind: Input, Shape: []int{1, 1, 2}},
		{Name: "rs", Kind: Reshape, Shape: []int{1, 1, 2}, Inbound: []string{"in"}},
		{Name: "ct", Kind: Concat, Shape: []int{1, 1, 4}, Inbound: []string{"in", "rs"}},
	}
	net = NewNetwork("cat")
	if err := net.Build(cat, 1, &cfg); err != nil {
		t.Fatal(err)
	}
	frame = newF32([]int{1, 1, 1, 2}, 5, 7)
	net.SetTime(1)
	if _, err := net.Cycle(frame); err != nil {
		t.Fatal(err)
	}
	cvals := net.LayerByName("ct").Out.Values
	ctrg := []float32{5, 7, 5, 7}
	for i := range ctrg {
		if cvals[i] != ctrg[i] {
			t.Errorf("concat [%d] = %g != %g", i, cvals[i], ctrg[i])
		}
	}
}

// bias relaxation anneals toward the dt-scaled trained bias, with the
// multiplier clipped to [0, 1] and scaled by layer depth.
func TestBiasRelax(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()
	cfg.BiasRelax = true
	specs := []LayerSpec{
		{Name: "in", Kind: Input, Shape: []int{1}},
		{Name: "fc", Kind: Dense, Shape: []int{1}, Inbound: []string{"in"},
			Wts: newF32([]int{1, 1}, 1), Bias: newF32([]int{1}, 0.5)},
	}
	net := NewNetwork("relax")
	if err := net.Build(specs, 1, &cfg); err != nil {
		t.Fatal(err)
	}
	fc := net.LayerByName("fc")
	if fc.Bias0[0] != 0.5 {
		t.Fatalf("dt-scaled trained bias = %g != 0.5", fc.Bias0[0])
	}
	net.RelaxBias(10)
	// depth 1: 0.5 * (1 - (1 - 20/100) / 50) = 0.5 * 0.984
	if d := fc.Bias.Values[0] - 0.492; d > difTol || d < -difTol {
		t.Errorf("relaxed bias at t=10 = %g != 0.492", fc.Bias.Values[0])
	}
	net.RelaxBias(50)
	if d := fc.Bias.Values[0] - 0.5; d > difTol || d < -difTol {
		t.Errorf("relaxed bias at t=50 = %g != 0.5", fc.Bias.Values[0])
	}
}

func TestScaleFirstLayer(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()
	specs := []LayerSpec{
		{Name: "in", Kind: Input, Shape: []int{1}},
		{Name: "fc", Kind: Dense, Shape: []int{1}, Inbound: []string{"in"},
			Wts: newF32([]int{1, 1}, 1), Bias: newF32([]int{1}, 0.5)},
	}
	net := NewNetwork("scale")
	if err := net.Build(specs, 1, &cfg); err != nil {
		t.Fatal(err)
	}
	input := newF32([]int{1, 1}, 0.2)
	net.ScaleFirstLayer(50, 10, input)
	fc := net.LayerByName("fc")
	// alpha = (100 + 10) / (50 + 10)
	wtrg := float32(110.0 / 60.0)
	if d := fc.Wts.Values[0] - wtrg; d > difTol || d < -difTol {
		t.Errorf("scaled weight = %g != %g", fc.Wts.Values[0], wtrg)
	}
	// beta = 10 * 50 / 60, drive = 1 * 0.2
	btrg := float32(0.5 + 10.0*50.0/60.0*0.2)
	if d := fc.Bias.Values[0] - btrg; d > difTol || d < -difTol {
		t.Errorf("corrected bias = %g != %g", fc.Bias.Values[0], btrg)
	}
	// at t = duration the trained values are restored
	net.ScaleFirstLayer(cfg.Duration, 10, input)
	wtrg = float32(110.0 / 110.0)
	if d := fc.Wts.Values[0] - wtrg; d > difTol || d < -difTol {
		t.Errorf("weight at full duration = %g != %g", fc.Wts.Values[0], wtrg)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config rejected: %v", err)
	}
	cfg.SpikeBudget = 100
	cfg.Reset = spikefn.ResetToZero
	if err := cfg.Validate(); err == nil {
		t.Errorf("spike budget with zero reset not rejected")
	}
	cfg.Reset = spikefn.ResetBySubtract
	cfg.Input = PoissonInput
	if err := cfg.Validate(); err == nil {
		t.Errorf("spike budget with stochastic input not rejected")
	}
	cfg.Defaults()
	cfg.Dt = 0
	if err := cfg.Validate(); err == nil {
		t.Errorf("zero dt not rejected")
	}
	cfg.Defaults()
	cfg.PoolGateP = 1.5
	if err := cfg.Validate(); err == nil {
		t.Errorf("gate probability above 1 not rejected")
	}
}

func TestStepsAtSpikeBudget(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()
	cfg.Duration = 10
	cfg.SpikeBudget = 2
	net := buildDenseNet(t, &cfg)
	ss := NewSim(net, nil)

	frame := newF32([]int{1, 2}, 1, 0)
	if n := ss.StepsAtSpikeBudget(frame); n != 2 {
		t.Errorf("budget steps = %d != 2", n)
	}
	net.Cfg.SpikeBudget = 0
	if n := ss.StepsAtSpikeBudget(frame); n != 10 {
		t.Errorf("unbudgeted steps = %d != 10", n)
	}
}

func TestRunBatchDirect(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()
	cfg.Duration = 10
	net := buildDenseNet(t, &cfg)

	enc := &encode.DirectEnv{Nm: "direct", Dt: cfg.Dt}
	enc.Init(0)
	enc.Action("Input", newF32([]int{1, 2}, 1, 0.1))

	ss := NewSim(net, enc)
	ss.Init(0)
	if err := ss.RunBatch([]int{0}, 0); err != nil {
		t.Fatal(err)
	}
	if ss.StepsRun != 10 {
		t.Errorf("steps run = %d != 10", ss.StepsRun)
	}
	if ss.Guesses[0] != 0 {
		t.Errorf("guess = %d != 0", ss.Guesses[0])
	}
	// class 0 fires every step, class 1 once
	if ss.OutSpikes.Values[0] != 10 || ss.OutSpikes.Values[1] != 1 {
		t.Errorf("cumulative spikes = %v != [10 1]", ss.OutSpikes.Values)
	}
	if acc := ss.Top1Acc(); acc != 1 {
		t.Errorf("top-1 accuracy = %g != 1", acc)
	}
	if !Top5Hit(ss.OutSpikes.Values[0:2], 0) {
		t.Errorf("top-5 missed the dominant class")
	}
	if ss.EvalLog.Rows != 10 {
		t.Errorf("eval log rows = %d != 10", ss.EvalLog.Rows)
	}
	// one-time analog-to-impulse conversion cost at the first step:
	// 2 * fanin * neurons * batch
	if ss.NeurOps[0] != 8 {
		t.Errorf("first-step neuron ops = %g != 8", ss.NeurOps[0])
	}
	if ss.NeurOps[1] != 0 {
		t.Errorf("later-step neuron ops = %g != 0", ss.NeurOps[1])
	}
}

// a sample with no output spikes keeps the undecided sentinel and
// always counts as wrong.
func TestRunBatchUndecided(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()
	cfg.Duration = 5
	specs := []LayerSpec{
		{Name: "in", Kind: Input, Shape: []int{2}},
		{Name: "fc", Kind: Dense, Shape: []int{2}, Inbound: []string{"in"},
			Wts: newF32([]int{2, 2})}, // zero weights: never spikes
	}
	net := NewNetwork("undec")
	if err := net.Build(specs, 1, &cfg); err != nil {
		t.Fatal(err)
	}
	enc := &encode.DirectEnv{Nm: "direct", Dt: cfg.Dt}
	enc.Init(0)
	enc.Action("Input", newF32([]int{1, 2}, 1, 1))

	ss := NewSim(net, enc)
	ss.Init(0)
	if err := ss.RunBatch([]int{0}, 0); err != nil {
		t.Fatal(err)
	}
	if ss.Guesses[0] != UndecidedClass {
		t.Errorf("guess = %d != undecided sentinel", ss.Guesses[0])
	}
	for i, v := range ss.Correct.Values {
		if v != 0 {
			t.Errorf("undecided sample marked correct at step %d", i)
		}
	}
	if acc := ss.Top1Acc(); acc != 0 {
		t.Errorf("top-1 accuracy = %g != 0", acc)
	}
}

// an all-zero stochastic input frame ends the batch early; statistics
// past the stop point stay untouched.
func TestRunBatchEarlyStop(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()
	cfg.Duration = 10
	cfg.Input = PoissonInput
	net := buildDenseNet(t, &cfg)

	enc := &encode.PoissonEnv{Nm: "poisson", Dt: cfg.Dt, RateHz: cfg.PoissonRate, MaxEvents: 1}
	enc.Init(0)
	// max value 0.5 spikes with probability 1 at the default rate, so
	// the one-event budget is spent on the first step
	enc.Action("Input", newF32([]int{1, 2}, 0.5, 0))

	ss := NewSim(net, enc)
	ss.Init(0)
	if err := ss.RunBatch([]int{0}, 0); err != nil {
		t.Fatal(err)
	}
	if ss.StepsRun != 1 {
		t.Errorf("steps run = %d != 1", ss.StepsRun)
	}
	if ss.EvalLog.Rows != 1 {
		t.Errorf("eval log rows = %d != 1", ss.EvalLog.Rows)
	}
	for k := 1; k < cfg.NumSteps(); k++ {
		if ss.Correct.Values[k] != 0 {
			t.Errorf("correctness written past the stop point at step %d", k)
		}
	}
}

func TestRunBatchSizeMismatch(t *testing.T) {
	cfg := Config{}
	cfg.Defaults()
	net := buildDenseNet(t, &cfg)
	enc := &encode.DirectEnv{Nm: "direct", Dt: cfg.Dt}
	enc.Init(0)
	ss := NewSim(net, enc)
	ss.Init(0)
	if err := ss.RunBatch([]int{0, 1}, 0); err == nil {
		t.Errorf("batch size mismatch not rejected")
	}
}

func TestTop5Hit(t *testing.T) {
	sums := []float32{1, 2, 3, 4, 5, 6, 7}
	if Top5Hit(sums, 0) {
		t.Errorf("class ranked 7th counted as top-5")
	}
	if !Top5Hit(sums, 2) {
		t.Errorf("class ranked 5th not counted as top-5")
	}
	if Top5Hit([]float32{0, 0, 0}, 1) {
		t.Errorf("all-zero outputs counted as top-5")
	}
}

func TestPerClassAcc(t *testing.T) {
	truth := []int{0, 0, 1, 1, 1}
	guess := []int{0, 1, 1, 1, 0}
	// class 0: 1/2, class 1: 2/3
	trg := (0.5 + 2.0/3.0) / 2
	got := PerClassAcc(truth, guess, 3)
	if d := got - trg; d > 1e-9 || d < -1e-9 {
		t.Errorf("per-class accuracy = %g != %g", got, trg)
	}
	if PerClassAcc(nil, nil, 3) != 0 {
		t.Errorf("empty inputs should give 0")
	}
}
