// Copyright (c) 2021, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package snn

import (
	"github.com/emer/emergent/erand"
	"github.com/emer/etable/etensor"
)

// convPad returns the leading padding for same-padded convolution or
// pooling along one dimension.
func convPad(in, out, stride, k int) int {
	tot := (out-1)*stride + k - in
	if tot < 0 {
		return 0
	}
	return tot / 2
}

// denseForward computes the fully connected input current:
// impulse = x W + bias, skipping zero input spikes.
func (ly *Layer) denseForward(x *etensor.Float32) {
	inN := ly.InShp.Len()
	outN := ly.Shp.Len()
	wv := ly.Wts.Values
	for b := 0; b < ly.Batch; b++ {
		xr := x.Values[b*inN : (b+1)*inN]
		or := ly.Impulse.Values[b*outN : (b+1)*outN]
		for o := range or {
			if ly.Bias != nil {
				or[o] = ly.Bias.Values[o]
			} else {
				or[o] = 0
			}
		}
		for i, xi := range xr {
			if xi == 0 {
				continue
			}
			wr := wv[i*outN : (i+1)*outN]
			for o := range or {
				or[o] += xi * wr[o]
			}
		}
	}
}

// convForward computes a direct 2D convolution (channels-last), with
// weights laid out [kY, kX, inC, outC].
func (ly *Layer) convForward(x *etensor.Float32) {
	inH, inW, inC := ly.InShp.Dim(0), ly.InShp.Dim(1), ly.InShp.Dim(2)
	outH, outW, outC := ly.Shp.Dim(0), ly.Shp.Dim(1), ly.Shp.Dim(2)
	kY, kX := ly.Wts.Dim(0), ly.Wts.Dim(1)
	sy, sx := ly.Conv.StrideY, ly.Conv.StrideX
	padT, padL := 0, 0
	if ly.Conv.SamePad {
		padT = convPad(inH, outH, sy, kY)
		padL = convPad(inW, outW, sx, kX)
	}
	wv := ly.Wts.Values
	inSz := inH * inW * inC
	outSz := outH * outW * outC
	for b := 0; b < ly.Batch; b++ {
		in := x.Values[b*inSz : (b+1)*inSz]
		out := ly.Impulse.Values[b*outSz : (b+1)*outSz]
		for oy := 0; oy < outH; oy++ {
			for ox := 0; ox < outW; ox++ {
				base := (oy*outW + ox) * outC
				for oc := 0; oc < outC; oc++ {
					if ly.Bias != nil {
						out[base+oc] = ly.Bias.Values[oc]
					} else {
						out[base+oc] = 0
					}
				}
				for ky := 0; ky < kY; ky++ {
					iy := oy*sy + ky - padT
					if iy < 0 || iy >= inH {
						continue
					}
					for kx := 0; kx < kX; kx++ {
						ix := ox*sx + kx - padL
						if ix < 0 || ix >= inW {
							continue
						}
						ib := (iy*inW + ix) * inC
						wb := (ky*kX + kx) * inC * outC
						for ic := 0; ic < inC; ic++ {
							xi := in[ib+ic]
							if xi == 0 {
								continue
							}
							wr := wv[wb+ic*outC : wb+(ic+1)*outC]
							for oc := 0; oc < outC; oc++ {
								out[base+oc] += xi * wr[oc]
							}
						}
					}
				}
			}
		}
	}
}

// depthwiseForward convolves each channel with its own [kY, kX] filter,
// weights laid out [kY, kX, C].
func (ly *Layer) depthwiseForward(x *etensor.Float32) {
	inH, inW, nc := ly.InShp.Dim(0), ly.InShp.Dim(1), ly.InShp.Dim(2)
	outH, outW := ly.Shp.Dim(0), ly.Shp.Dim(1)
	kY, kX := ly.Wts.Dim(0), ly.Wts.Dim(1)
	sy, sx := ly.Conv.StrideY, ly.Conv.StrideX
	padT, padL := 0, 0
	if ly.Conv.SamePad {
		padT = convPad(inH, outH, sy, kY)
		padL = convPad(inW, outW, sx, kX)
	}
	wv := ly.Wts.Values
	inSz := inH * inW * nc
	outSz := outH * outW * nc
	for b := 0; b < ly.Batch; b++ {
		in := x.Values[b*inSz : (b+1)*inSz]
		out := ly.Impulse.Values[b*outSz : (b+1)*outSz]
		for oy := 0; oy < outH; oy++ {
			for ox := 0; ox < outW; ox++ {
				base := (oy*outW + ox) * nc
				for c := 0; c < nc; c++ {
					var sum float32
					if ly.Bias != nil {
						sum = ly.Bias.Values[c]
					}
					for ky := 0; ky < kY; ky++ {
						iy := oy*sy + ky - padT
						if iy < 0 || iy >= inH {
							continue
						}
						for kx := 0; kx < kX; kx++ {
							ix := ox*sx + kx - padL
							if ix < 0 || ix >= inW {
								continue
							}
							sum += in[(iy*inW+ix)*nc+c] * wv[(ky*kX+kx)*nc+c]
						}
					}
					out[base+c] = sum
				}
			}
		}
	}
}

// avgPoolForward averages the input over each pooling window.
func (ly *Layer) avgPoolForward(x *etensor.Float32) {
	inH, inW, nc := ly.InShp.Dim(0), ly.InShp.Dim(1), ly.InShp.Dim(2)
	outH, outW := ly.Shp.Dim(0), ly.Shp.Dim(1)
	inSz := inH * inW * nc
	outSz := outH * outW * nc
	for b := 0; b < ly.Batch; b++ {
		in := x.Values[b*inSz : (b+1)*inSz]
		out := ly.Impulse.Values[b*outSz : (b+1)*outSz]
		for oy := 0; oy < outH; oy++ {
			for ox := 0; ox < outW; ox++ {
				base := (oy*outW + ox) * nc
				for c := 0; c < nc; c++ {
					var sum float32
					n := 0
					for wy := 0; wy < ly.Pool.SizeY; wy++ {
						iy := oy*ly.Pool.StrideY + wy
						if iy >= inH {
							continue
						}
						for wx := 0; wx < ly.Pool.SizeX; wx++ {
							ix := ox*ly.Pool.StrideX + wx
							if ix >= inW {
								continue
							}
							sum += in[(iy*inW+ix)*nc+c]
							n++
						}
					}
					if n > 0 {
						out[base+c] = sum / float32(n)
					} else {
						out[base+c] = 0
					}
				}
			}
		}
	}
}

// maxPoolForward approximates max-pooling in the spike domain: the
// winner per window is the arg-max of the inbound layer's unreset
// membrane accumulator, its current instantaneous spike is gathered,
// and a Bernoulli gate thins the result.  When the inbound layer has
// no accumulator (direct input), the layer's own last-input record
// plus the current frame serves as the history.
func (ly *Layer) maxPoolForward(x *etensor.Float32) {
	inH, inW, nc := ly.InShp.Dim(0), ly.InShp.Dim(1), ly.InShp.Dim(2)
	outH, outW := ly.Shp.Dim(0), ly.Shp.Dim(1)
	acc := ly.In[0].State.MemAcc.Values
	ownHist := false
	if len(acc) == 0 {
		acc = ly.State.MemInput.Values
		ownHist = true
	}
	inSz := inH * inW * nc
	outSz := outH * outW * nc
	for b := 0; b < ly.Batch; b++ {
		out := ly.Impulse.Values[b*outSz : (b+1)*outSz]
		for oy := 0; oy < outH; oy++ {
			for ox := 0; ox < outW; ox++ {
				base := (oy*outW + ox) * nc
				for c := 0; c < nc; c++ {
					best := float32(0)
					bi := -1
					for wy := 0; wy < ly.Pool.SizeY; wy++ {
						iy := oy*ly.Pool.StrideY + wy
						if iy >= inH {
							continue
						}
						for wx := 0; wx < ly.Pool.SizeX; wx++ {
							ix := ox*ly.Pool.StrideX + wx
							if ix >= inW {
								continue
							}
							idx := b*inSz + (iy*inW+ix)*nc + c
							h := acc[idx]
							if ownHist {
								h += x.Values[idx]
							}
							if bi < 0 || h > best {
								best = h
								bi = idx
							}
						}
					}
					sp := float32(0)
					if bi >= 0 {
						sp = x.Values[bi]
					}
					if sp != 0 && !erand.BoolP(ly.Pool.GateP) {
						sp = 0
					}
					out[base+c] = sp
				}
			}
		}
	}
}

// passthrough computes the stateless shape transforms: these hold no
// neuron state and relay their inbound output values unchanged.
func (ly *Layer) passthrough() {
	switch ly.Kind {
	case Flatten, Reshape:
		copy(ly.Out.Values, ly.In[0].Out.Values)
	case ZeroPad2D:
		ly.zeroPad()
	case Concat:
		ly.concat()
	case UpSample2D:
		ly.upSample()
	}
}

func (ly *Layer) zeroPad() {
	inH, inW, nc := ly.InShp.Dim(0), ly.InShp.Dim(1), ly.InShp.Dim(2)
	outH, outW := ly.Shp.Dim(0), ly.Shp.Dim(1)
	in := ly.In[0].Out.Values
	out := ly.Out.Values
	for i := range out {
		out[i] = 0
	}
	inSz := inH * inW * nc
	outSz := outH * outW * nc
	for b := 0; b < ly.Batch; b++ {
		for y := 0; y < inH; y++ {
			src := b*inSz + y*inW*nc
			dst := b*outSz + ((y+ly.Pad.Top)*outW+ly.Pad.Left)*nc
			copy(out[dst:dst+inW*nc], in[src:src+inW*nc])
		}
	}
}

func (ly *Layer) concat() {
	h, w, nc := ly.Shp.Dim(0), ly.Shp.Dim(1), ly.Shp.Dim(2)
	outSz := h * w * nc
	for b := 0; b < ly.Batch; b++ {
		coff := 0
		for _, in := range ly.In {
			ic := in.Shp.Dim(2)
			inSz := h * w * ic
			iv := in.Out.Values[b*inSz : (b+1)*inSz]
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					src := (y*w + x) * ic
					dst := b*outSz + (y*w+x)*nc + coff
					copy(ly.Out.Values[dst:dst+ic], iv[src:src+ic])
				}
			}
			coff += ic
		}
	}
}

func (ly *Layer) upSample() {
	inH, inW, nc := ly.InShp.Dim(0), ly.InShp.Dim(1), ly.InShp.Dim(2)
	outH, outW := ly.Shp.Dim(0), ly.Shp.Dim(1)
	in := ly.In[0].Out.Values
	out := ly.Out.Values
	inSz := inH * inW * nc
	outSz := outH * outW * nc
	for b := 0; b < ly.Batch; b++ {
		for oy := 0; oy < outH; oy++ {
			iy := oy / ly.Up.ScaleY
			for ox := 0; ox < outW; ox++ {
				ix := ox / ly.Up.ScaleX
				src := b*inSz + (iy*inW+ix)*nc
				dst := b*outSz + (oy*outW+ox)*nc
				copy(out[dst:dst+nc], in[src:src+nc])
			}
		}
	}
}
