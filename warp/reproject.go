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

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/rastergrid"
)

// Reproject implements rastergrid.Reprojector. Each destination cell is
// mapped into the source grid and estimated with method; cells that map
// outside the source or onto source nodata only are left as they are.
// ctx is checked before each destination row.
func (p *Projector) Reproject(ctx context.Context, src *sparse.DenseArray, srcGrid rastergrid.GridSpec, srcNodata float64,
	dst *sparse.DenseArray, dstGrid rastergrid.GridSpec, dstNodata float64, method rastergrid.Resampling) error {
	if err := checkArray("source", src, srcGrid); err != nil {
		return err
	}
	if err := checkArray("destination", dst, dstGrid); err != nil {
		return err
	}
	if src.Shape[0] != dst.Shape[0] {
		return fmt.Errorf("warp: %w: source has %d bands but destination has %d",
			rastergrid.ErrReprojection, src.Shape[0], dst.Shape[0])
	}
	if !method.Valid() {
		return fmt.Errorf("warp: %w: unsupported resampling method %v", rastergrid.ErrInvalidParameter, method)
	}
	inv, err := srcGrid.Transform.Invert()
	if err != nil {
		return fmt.Errorf("warp: %w: %v", rastergrid.ErrReprojection, err)
	}
	t, err := p.transformer(dstGrid.CRS, srcGrid.CRS)
	if err != nil {
		return err
	}
	toSrc := func(col, row float64) (px, py float64, ok bool) {
		x, y := dstGrid.Transform.Apply(col, row)
		sx, sy, err := t(x, y)
		if err != nil || !finite(sx) || !finite(sy) {
			return 0, 0, false
		}
		px, py = inv.Apply(sx, sy)
		return px, py, true
	}

	s := newSampler(src, srcNodata)
	bands, h, w := dst.Shape[0], dst.Shape[1], dst.Shape[2]
	plane := h * w
	for row := 0; row < h; row++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("warp: %w", err)
		}
		for col := 0; col < w; col++ {
			var fill func(b int) (float64, bool)
			switch method {
			case rastergrid.Nearest, rastergrid.Bilinear, rastergrid.Cubic:
				px, py, ok := toSrc(float64(col)+0.5, float64(row)+0.5)
				if !ok {
					continue
				}
				fill = pointKernel(s, method, px, py)
			default:
				win, ok := footprint(toSrc, col, row)
				if !ok {
					continue
				}
				fill = areaKernel(s, method, win)
			}
			for b := 0; b < bands; b++ {
				if v, ok := fill(b); ok {
					dst.Elements[b*plane+row*w+col] = v
				}
			}
		}
	}
	return nil
}

// window is a rectangle of source pixel indices, inclusive.
type window struct {
	c0, r0, c1, r1 int
}

// footprint returns the source pixels overlapped by destination cell
// (col, row). The corners of the cell are mapped into the source grid and
// their bounding box is used.
func footprint(toSrc func(col, row float64) (float64, float64, bool), col, row int) (window, bool) {
	const eps = 1e-9
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}} {
		px, py, ok := toSrc(float64(col)+c[0], float64(row)+c[1])
		if !ok {
			return window{}, false
		}
		minX, maxX = math.Min(minX, px), math.Max(maxX, px)
		minY, maxY = math.Min(minY, py), math.Max(maxY, py)
	}
	w := window{
		c0: int(math.Floor(minX + eps)),
		r0: int(math.Floor(minY + eps)),
		c1: int(math.Ceil(maxX-eps)) - 1,
		r1: int(math.Ceil(maxY-eps)) - 1,
	}
	// A footprint narrower than a source pixel still overlaps the pixel
	// it lies in.
	if w.c1 < w.c0 {
		w.c1 = w.c0
	}
	if w.r1 < w.r0 {
		w.r1 = w.r0
	}
	return w, true
}

func checkArray(name string, a *sparse.DenseArray, g rastergrid.GridSpec) error {
	if a == nil || len(a.Shape) != 3 {
		return fmt.Errorf("warp: %w: %s array must be 3-dimensional", rastergrid.ErrReprojection, name)
	}
	if a.Shape[1] != g.Height || a.Shape[2] != g.Width {
		return fmt.Errorf("warp: %w: %s array shape %v does not match grid %dx%d",
			rastergrid.ErrReprojection, name, a.Shape, g.Width, g.Height)
	}
	if len(a.Elements) != a.Shape[0]*a.Shape[1]*a.Shape[2] {
		return fmt.Errorf("warp: %w: %s array has %d elements but shape %v",
			rastergrid.ErrReprojection, name, len(a.Elements), a.Shape)
	}
	return nil
}

var _ rastergrid.Geodesy = (*Projector)(nil)
var _ rastergrid.Reprojector = (*Projector)(nil)
