// Copyright (c) 2021, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encode

import (
	"fmt"
	"log"

	"github.com/emer/emergent/env"
	"github.com/emer/etable/etensor"
	"gonum.org/v1/gonum/stat"
)

// Event is one asynchronous event-camera (DVS) event.
type Event struct {
	TS  int64 `desc:"timestamp in usec"`
	X   int   `desc:"pixel column on the sensor"`
	Y   int   `desc:"pixel row on the sensor"`
	Pol int8  `desc:"polarity of the brightness change: +1 or -1"`
}

// Recording is one labeled DVS event stream.
type Recording struct {
	Nm     string  `desc:"name of the recording"`
	Label  int     `desc:"class label shared by all samples extracted from this stream"`
	Events []Event `desc:"events in timestamp order"`
}

// RemoveOutliers filters events whose addresses fall outside the valid
// sensor range [0, xMax] x [0, yMax], returning the kept events and
// the number discarded.
func RemoveOutliers(events []Event, xMax, yMax int) ([]Event, int) {
	kept := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.X < 0 || ev.X > xMax || ev.Y < 0 || ev.Y > yMax {
			continue
		}
		kept = append(kept, ev)
	}
	n := len(events) - len(kept)
	if n > 0 {
		log.Printf("encode: removed %d outlier events\n", n)
	}
	return kept, n
}

// DVSEnv consumes pre-recorded event-camera streams.  NextBatch
// extracts a fixed number of events per sample from the current
// recording into per-sample queues, subsampling sensor addresses to
// the raster size and clipping per-pixel event counts to three
// standard deviations above zero to suppress hot pixels.  Step then
// rasters one frame per timestep: at most one event per pixel, bounded
// by a time span from the frame's first event.  The stream of
// recordings is finite; exhaustion is a normal stop, not an error.
type DVSEnv struct {
	Nm   string      `desc:"name of this environment"`
	Dsc  string      `desc:"description"`
	Recs []Recording `desc:"the labeled event streams to iterate"`

	Batch       int   `desc:"samples per batch"`
	SensorW     int   `def:"240" desc:"sensor width in pixels"`
	SensorH     int   `def:"180" desc:"sensor height in pixels"`
	FrameW      int   `def:"64" desc:"raster frame width"`
	FrameH      int   `def:"64" desc:"raster frame height"`
	PerSample   int   `def:"1000" desc:"events extracted per sample"`
	FrameSpan   int64 `def:"10000" desc:"max timespan in usec of one frame, measured from its first event"`
	Discarded   int   `inactive:"+" desc:"events discarded by 3-sigma clipping so far"`
	OutOfBounds int   `inactive:"+" desc:"events discarded as address outliers so far"`

	Frame  etensor.Float32 `desc:"current raster frame, [batch, H, W, 1]"`
	Labels []int           `inactive:"+" desc:"labels of the current batch samples"`

	queues   [][]Event
	recIdx   int
	batchIdx int

	Run    env.Ctr `view:"inline" desc:"run counter"`
	Sample env.Ctr `view:"inline" desc:"batch counter within the archive"`
	Tick   env.Ctr `view:"inline" desc:"timestep within the simulation window"`
}

func (dv *DVSEnv) Name() string { return dv.Nm }
func (dv *DVSEnv) Desc() string { return dv.Dsc }

// Defaults sets default geometry for a 240x180 sensor subsampled to a
// 64x64 raster.
func (dv *DVSEnv) Defaults() {
	dv.SensorW = 240
	dv.SensorH = 180
	dv.FrameW = 64
	dv.FrameH = 64
	dv.PerSample = 1000
	dv.FrameSpan = 10000
}

func (dv *DVSEnv) Validate() error {
	if len(dv.Recs) == 0 {
		return fmt.Errorf("encode.DVSEnv %s: no recordings", dv.Nm)
	}
	if dv.Batch <= 0 {
		return fmt.Errorf("encode.DVSEnv %s: Batch must be positive, got %d", dv.Nm, dv.Batch)
	}
	if dv.FrameW <= 0 || dv.FrameH <= 0 || dv.SensorW < dv.FrameW || dv.SensorH < dv.FrameH {
		return fmt.Errorf("encode.DVSEnv %s: invalid sensor %dx%d / frame %dx%d geometry",
			dv.Nm, dv.SensorW, dv.SensorH, dv.FrameW, dv.FrameH)
	}
	if dv.PerSample <= 0 {
		return fmt.Errorf("encode.DVSEnv %s: PerSample must be positive, got %d", dv.Nm, dv.PerSample)
	}
	return nil
}

func (dv *DVSEnv) Counters() []env.TimeScales {
	return []env.TimeScales{env.Run, env.Trial, env.Tick}
}

func (dv *DVSEnv) States() env.Elements {
	return env.Elements{
		{Name: "Input", Shape: []int{dv.Batch, dv.FrameH, dv.FrameW, 1}, DimNames: []string{"Batch", "Y", "X", "Pol"}},
	}
}

func (dv *DVSEnv) State(element string) etensor.Tensor {
	if element == "Input" {
		return &dv.Frame
	}
	return nil
}

func (dv *DVSEnv) Actions() env.Elements { return nil }

func (dv *DVSEnv) Action(element string, input etensor.Tensor) {
	// recordings are loaded up front, no actions
}

func (dv *DVSEnv) Init(run int) {
	dv.Run.Scale = env.Run
	dv.Sample.Scale = env.Trial
	dv.Tick.Scale = env.Tick
	dv.Run.Init()
	dv.Sample.Init()
	dv.Tick.Init()
	dv.Run.Cur = run
	dv.recIdx = -1
	dv.batchIdx = 0
	dv.queues = nil
	dv.Discarded = 0
	dv.OutOfBounds = 0
	dv.Frame.SetShape([]int{dv.Batch, dv.FrameH, dv.FrameW, 1}, nil, []string{"Batch", "Y", "X", "Pol"})
}

// NextBatch extracts the next batch of per-sample event queues from
// the recordings, advancing to the next recording when the current one
// has too few events left.  Returns false when the archive is
// exhausted.
func (dv *DVSEnv) NextBatch() bool {
	perBatch := dv.Batch * dv.PerSample
	for dv.recIdx < 0 || perBatch*(dv.batchIdx+1) >= dv.curEventCount() {
		dv.recIdx++
		if dv.recIdx >= len(dv.Recs) {
			dv.queues = nil
			return false
		}
		dv.batchIdx = 0
		ev, oob := RemoveOutliers(dv.Recs[dv.recIdx].Events, dv.SensorW-1, dv.SensorH-1)
		dv.Recs[dv.recIdx].Events = ev
		dv.OutOfBounds += oob
	}
	rec := &dv.Recs[dv.recIdx]
	dv.queues = make([][]Event, dv.Batch)
	dv.Labels = make([]int, dv.Batch)
	sx := float64(dv.SensorW) / float64(dv.FrameW)
	sy := float64(dv.SensorH) / float64(dv.FrameH)
	for bi := 0; bi < dv.Batch; bi++ {
		start := perBatch*dv.batchIdx + dv.PerSample*bi
		seg := rec.Events[start : start+dv.PerSample]

		// subsample addresses and count events per raster pixel
		sub := make([]Event, len(seg))
		sums := make([]float64, dv.FrameH*dv.FrameW)
		for i, ev := range seg {
			x := int(float64(ev.X) / sx)
			y := int(float64(ev.Y) / sy)
			sub[i] = Event{TS: ev.TS, X: x, Y: y, Pol: ev.Pol}
			sums[y*dv.FrameW+x]++
		}

		// clip per-pixel counts to three sigma to suppress hot pixels
		sigma := stat.PopStdDev(sums, nil)
		budget := make([]int, len(sums))
		kept := 0
		for i, s := range sums {
			b := int(s)
			if float64(b) > 3*sigma {
				b = int(3 * sigma)
			}
			budget[i] = b
			kept += b
		}
		if disc := len(seg) - kept; disc > 0 {
			dv.Discarded += disc
			log.Printf("encode.DVSEnv %s: discarded %d events during 3-sigma standardization\n", dv.Nm, disc)
		}

		q := make([]Event, 0, kept)
		for _, ev := range sub {
			pi := ev.Y*dv.FrameW + ev.X
			if budget[pi] > 0 {
				q = append(q, ev)
				budget[pi]--
			}
		}
		dv.queues[bi] = q
		dv.Labels[bi] = rec.Label
	}
	dv.batchIdx++
	dv.Sample.Incr()
	dv.Tick.Init()
	return true
}

// Step rasters the next event frame for every sample: events are
// consumed in timestamp order, at most one per pixel, until the frame
// timespan from the first event is exceeded.  Unconsumed events stay
// queued for later frames.  Returns false when no batch is loaded.
func (dv *DVSEnv) Step() bool {
	if dv.queues == nil {
		return false
	}
	dv.Tick.Incr()
	dv.Frame.SetZeros()
	for bi := 0; bi < dv.Batch; bi++ {
		q := dv.queues[bi]
		if len(q) == 0 {
			continue
		}
		first := q[0].TS
		var held []Event
		end := len(q)
		for i, ev := range q {
			if ev.TS-first > dv.FrameSpan {
				end = i
				break
			}
			idx := (bi*dv.FrameH+ev.Y)*dv.FrameW + ev.X
			if dv.Frame.Values[idx] == 0 {
				dv.Frame.Values[idx] = 1
			} else {
				held = append(held, ev)
			}
		}
		dv.queues[bi] = append(held, q[end:]...)
	}
	return true
}

// RemainingEvents returns the events still queued for the current
// batch, reported when a batch finishes with input left over.
func (dv *DVSEnv) RemainingEvents() int {
	n := 0
	for _, q := range dv.queues {
		n += len(q)
	}
	return n
}

func (dv *DVSEnv) Counter(scale env.TimeScales) (cur, prv int, chg bool) {
	switch scale {
	case env.Run:
		return dv.Run.Query()
	case env.Trial:
		return dv.Sample.Query()
	case env.Tick:
		return dv.Tick.Query()
	}
	return -1, -1, false
}

// curEventCount is the event count of the current recording, 0 before
// the first.
func (dv *DVSEnv) curEventCount() int {
	if dv.recIdx < 0 || dv.recIdx >= len(dv.Recs) {
		return 0
	}
	return len(dv.Recs[dv.recIdx].Events)
}

var _ env.Env = (*DVSEnv)(nil)
