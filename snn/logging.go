// Copyright (c) 2021, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"github.com/emer/etable/agg"
	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"
)

// ConfigEvalLog sets up the per-timestep evaluation table: one row per
// simulated step, across batches.
func (ss *Sim) ConfigEvalLog(dt *etable.Table) {
	dt.SetMetaData("name", "EvalLog")
	dt.SetMetaData("desc", "per-timestep evaluation statistics over the simulation window")
	dt.SetMetaData("read-only", "true")

	sch := etable.Schema{
		{Name: "Batch", Type: etensor.INT64},
		{Name: "Step", Type: etensor.INT64},
		{Name: "Time", Type: etensor.FLOAT64},
		{Name: "PctErr", Type: etensor.FLOAT64},
		{Name: "SynOps", Type: etensor.FLOAT64},
		{Name: "NeurOps", Type: etensor.FLOAT64},
	}
	dt.SetFromSchema(sch, 0)
}

// LogStep appends one row of per-step statistics to the eval log.
func (ss *Sim) LogStep(batch, step int, time float32, pctErr, synOps, neurOps float64) {
	dt := ss.EvalLog
	row := dt.Rows
	dt.SetNumRows(row + 1)
	dt.SetCellFloat("Batch", row, float64(batch))
	dt.SetCellFloat("Step", row, float64(step))
	dt.SetCellFloat("Time", row, float64(time))
	dt.SetCellFloat("PctErr", row, pctErr)
	dt.SetCellFloat("SynOps", row, synOps)
	dt.SetCellFloat("NeurOps", row, neurOps)
}

// PctErrAvg returns the mean per-step error over everything logged so
// far.
func (ss *Sim) PctErrAvg() float64 {
	if ss.EvalLog == nil || ss.EvalLog.Rows == 0 {
		return 0
	}
	ix := etable.NewIdxView(ss.EvalLog)
	return agg.Mean(ix, "PctErr")[0]
}

// Top5Hit reports whether the true class is among the five highest
// cumulative outputs.  A sample with no output spikes never hits.
func Top5Hit(sums []float32, truth int) bool {
	if truth < 0 || truth >= len(sums) {
		return false
	}
	allZero := true
	for _, v := range sums {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return false
	}
	higher := 0
	for c, v := range sums {
		if c == truth {
			continue
		}
		if v > sums[truth] {
			higher++
		}
	}
	return higher < 5
}

// PerClassAcc returns the accuracy averaged over classes, weighting
// each class equally regardless of sample counts.  Classes with no
// samples are excluded.
func PerClassAcc(truth, guesses []int, ncls int) float64 {
	count := make([]int, ncls)
	match := make([]int, ncls)
	for i, gt := range truth {
		if gt < 0 || gt >= ncls {
			continue
		}
		count[gt]++
		if i < len(guesses) && guesses[i] == gt {
			match[gt]++
		}
	}
	var sum float64
	n := 0
	for c := 0; c < ncls; c++ {
		if count[c] == 0 {
			continue
		}
		sum += float64(match[c]) / float64(count[c])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
