/*
Copyright © 2024 the rastergrid authors.
This file is part of rastergrid.

rastergrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

rastergrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with rastergrid.  If not, see <http://www.gnu.org/licenses/>.
*/

package warp

import (
	"math"
	"sort"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/rastergrid"
	"gonum.org/v1/gonum/floats"
)

// sampler reads source pixels, reporting nodata and out-of-range pixels
// as missing.
type sampler struct {
	data   []float64
	h, w   int
	nodata float64
}

func newSampler(a *sparse.DenseArray, nodata float64) *sampler {
	return &sampler{data: a.Elements, h: a.Shape[1], w: a.Shape[2], nodata: nodata}
}

func (s *sampler) at(b, row, col int) (float64, bool) {
	if row < 0 || row >= s.h || col < 0 || col >= s.w {
		return 0, false
	}
	v := s.data[(b*s.h+row)*s.w+col]
	if isNodata(v, s.nodata) {
		return 0, false
	}
	return v, true
}

// isNodata returns whether v is missing. NaN is always missing.
func isNodata(v, nodata float64) bool {
	return v == nodata || math.IsNaN(v)
}

// pointKernel returns a function estimating band values at fractional
// source pixel location (px, py), where integer values fall on pixel
// corners.
func pointKernel(s *sampler, method rastergrid.Resampling, px, py float64) func(b int) (float64, bool) {
	col, row := int(math.Floor(px)), int(math.Floor(py))
	if row < 0 || row >= s.h || col < 0 || col >= s.w {
		return func(int) (float64, bool) { return 0, false }
	}
	switch method {
	case rastergrid.Bilinear:
		return func(b int) (float64, bool) { return s.bilinear(b, px, py) }
	case rastergrid.Cubic:
		return func(b int) (float64, bool) { return s.cubic(b, px, py) }
	default:
		return func(b int) (float64, bool) { return s.at(b, row, col) }
	}
}

// bilinear interpolates between the four pixel centres around (px, py).
// Missing neighbours are dropped and the remaining weights renormalised.
func (s *sampler) bilinear(b int, px, py float64) (float64, bool) {
	x, y := px-0.5, py-0.5
	c0, r0 := int(math.Floor(x)), int(math.Floor(y))
	fx, fy := x-float64(c0), y-float64(r0)
	var sum, wsum float64
	for _, n := range [4]struct {
		dc, dr int
		w      float64
	}{
		{0, 0, (1 - fx) * (1 - fy)},
		{1, 0, fx * (1 - fy)},
		{0, 1, (1 - fx) * fy},
		{1, 1, fx * fy},
	} {
		if n.w == 0 {
			continue
		}
		if v, ok := s.at(b, r0+n.dr, c0+n.dc); ok {
			sum += n.w * v
			wsum += n.w
		}
	}
	if wsum == 0 {
		return s.at(b, int(math.Floor(py)), int(math.Floor(px)))
	}
	return sum / wsum, true
}

// cubic uses cubic convolution over the surrounding 4x4 pixels. If any
// of them is missing it falls back to bilinear interpolation.
func (s *sampler) cubic(b int, px, py float64) (float64, bool) {
	x, y := px-0.5, py-0.5
	c0, r0 := int(math.Floor(x)), int(math.Floor(y))
	fx, fy := x-float64(c0), y-float64(r0)
	wx := cubicWeights(fx)
	wy := cubicWeights(fy)
	var sum float64
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			v, ok := s.at(b, r0-1+j, c0-1+i)
			if !ok {
				return s.bilinear(b, px, py)
			}
			sum += wx[i] * wy[j] * v
		}
	}
	return sum, true
}

// cubicWeights returns the Keys (a = -0.5) weights of the four taps
// around fractional offset f.
func cubicWeights(f float64) [4]float64 {
	return [4]float64{keys(1 + f), keys(f), keys(1 - f), keys(2 - f)}
}

func keys(t float64) float64 {
	const a = -0.5
	t = math.Abs(t)
	switch {
	case t <= 1:
		return (a+2)*t*t*t - (a+3)*t*t + 1
	case t < 2:
		return a*t*t*t - 5*a*t*t + 8*a*t - 4*a
	default:
		return 0
	}
}

// areaKernel returns a function summarising the valid source pixels in
// win.
func areaKernel(s *sampler, method rastergrid.Resampling, win window) func(b int) (float64, bool) {
	r0, r1 := clamp(win.r0, 0, s.h-1), clamp(win.r1, 0, s.h-1)
	c0, c1 := clamp(win.c0, 0, s.w-1), clamp(win.c1, 0, s.w-1)
	if win.r1 < 0 || win.r0 >= s.h || win.c1 < 0 || win.c0 >= s.w {
		return func(int) (float64, bool) { return 0, false }
	}
	return func(b int) (float64, bool) {
		var vals []float64
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				if v, ok := s.at(b, r, c); ok {
					vals = append(vals, v)
				}
			}
		}
		if len(vals) == 0 {
			return 0, false
		}
		switch method {
		case rastergrid.Average:
			return floats.Sum(vals) / float64(len(vals)), true
		case rastergrid.Min:
			return floats.Min(vals), true
		case rastergrid.Max:
			return floats.Max(vals), true
		default:
			return mode(vals), true
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// mode returns the most common value in vals, choosing the smallest on
// ties. vals is sorted in place.
func mode(vals []float64) float64 {
	sort.Float64s(vals)
	best, bestN := vals[0], 0
	for i := 0; i < len(vals); {
		j := i
		for j < len(vals) && vals[j] == vals[i] {
			j++
		}
		if j-i > bestN {
			best, bestN = vals[i], j-i
		}
		i = j
	}
	return best
}
