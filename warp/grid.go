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
	"context"
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/spatialmodel/rastergrid"
	"github.com/spatialmodel/rastergrid/internal/hash"
)

// maxCells is the largest destination grid DestinationGrid will return.
const maxCells = 1 << 31

type gridRequest struct {
	SrcCRS, DstCRS string
	Bounds         geom.Bounds
	ResX, ResY     float64
	EdgePoints     int
}

type destGrid struct {
	t    rastergrid.Affine
	w, h int
}

// DestinationGrid implements rastergrid.Geodesy. The bounds are densified
// with EdgePoints points per edge before being transformed so that curved
// edges in the destination CRS are covered. The returned grid is north-up
// with its corner at the upper-left of the transformed bounds and
// dimensions rounded up to whole pixels.
func (p *Projector) DestinationGrid(src rastergrid.GridSpec, srcBounds *geom.Bounds, dstCRS string, resX, resY float64) (rastergrid.Affine, int, int, error) {
	if !(resX > 0) || !(resY > 0) || math.IsInf(resX, 0) || math.IsInf(resY, 0) {
		return rastergrid.Affine{}, 0, 0, fmt.Errorf("warp: %w: resolution (%g, %g) must be finite and >0",
			rastergrid.ErrInvalidParameter, resX, resY)
	}
	if srcBounds == nil || srcBounds.Empty() {
		return rastergrid.Affine{}, 0, 0, fmt.Errorf("warp: %w: source bounds are empty", rastergrid.ErrReprojection)
	}
	req := gridRequest{
		SrcCRS:     src.CRS,
		DstCRS:     dstCRS,
		Bounds:     *srcBounds,
		ResX:       resX,
		ResY:       resY,
		EdgePoints: p.EdgePoints,
	}
	r := p.gridCache.NewRequest(context.TODO(), req, hash.Key("grid", req))
	result, err := r.Result()
	if err != nil {
		return rastergrid.Affine{}, 0, 0, err
	}
	g := result.(destGrid)
	return g.t, g.w, g.h, nil
}

func (p *Projector) destinationGrid(req gridRequest) (destGrid, error) {
	t, err := p.transformer(req.SrcCRS, req.DstCRS)
	if err != nil {
		return destGrid{}, err
	}
	n := req.EdgePoints
	if n < 2 {
		n = 2
	}
	in := req.Bounds
	b := geom.NewBounds()
	var failed error
	for i := 0; i < n; i++ {
		f := float64(i) / float64(n-1)
		x := in.Min.X + f*(in.Max.X-in.Min.X)
		y := in.Min.Y + f*(in.Max.Y-in.Min.Y)
		for _, pt := range [][2]float64{{x, in.Min.Y}, {x, in.Max.Y}, {in.Min.X, y}, {in.Max.X, y}} {
			px, py, err := t(pt[0], pt[1])
			if err != nil {
				failed = err
				continue
			}
			if !finite(px) || !finite(py) {
				continue
			}
			b.Extend(geom.NewBoundsPoint(geom.Point{X: px, Y: py}))
		}
	}
	if b.Empty() {
		if failed != nil {
			return destGrid{}, fmt.Errorf("warp: %w: no point of the source bounds could be transformed: %v",
				rastergrid.ErrReprojection, failed)
		}
		return destGrid{}, fmt.Errorf("warp: %w: source bounds have no finite image in the destination CRS",
			rastergrid.ErrReprojection)
	}
	w, err := pixels((b.Max.X - b.Min.X) / req.ResX)
	if err != nil {
		return destGrid{}, err
	}
	h, err := pixels((b.Max.Y - b.Min.Y) / req.ResY)
	if err != nil {
		return destGrid{}, err
	}
	if float64(w)*float64(h) > maxCells {
		return destGrid{}, fmt.Errorf("warp: %w: destination grid %dx%d is too large", rastergrid.ErrReprojection, w, h)
	}
	return destGrid{
		t: rastergrid.Affine{A: req.ResX, C: b.Min.X, E: -req.ResY, F: b.Max.Y},
		w: w,
		h: h,
	}, nil
}

// pixels rounds a pixel count up, ignoring floating point noise, with a
// minimum of 1.
func pixels(v float64) (int, error) {
	const tol = 1e-9
	if !finite(v) || v > maxCells {
		return 0, fmt.Errorf("warp: %w: invalid destination grid size %g", rastergrid.ErrReprojection, v)
	}
	n := math.Ceil(v - tol*math.Max(1, v))
	if n < 1 {
		return 1, nil
	}
	return int(n), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
