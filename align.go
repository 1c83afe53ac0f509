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

package rastergrid

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// Geodesy computes the grids that rasters occupy after being moved to a
// different coordinate reference system.
type Geodesy interface {
	// DestinationGrid returns the transform and dimensions of a north-up
	// grid in dstCRS with pixel size (resX, resY) that covers srcBounds,
	// given in the CRS of src, after reprojection.
	DestinationGrid(src GridSpec, srcBounds *geom.Bounds, dstCRS string, resX, resY float64) (t Affine, width, height int, err error)
}

// FloorMod returns x modulo m with the sign of m, so that for m > 0 the
// result is in [0, m) even when x is negative.
func FloorMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r != 0 && (r < 0) != (m < 0) {
		r += m
	}
	if r == m { // x was a tiny negative number.
		return 0
	}
	return r
}

// SnapOrigin moves coordinate c onto the nearest line of the lattice
// {origin + k*res}. Ties round down.
func SnapOrigin(c, origin, res float64) float64 {
	rem := FloorMod(c-origin, res)
	if rem > res/2 {
		return c - rem + res
	}
	return c - rem
}

// AlignGrid returns a grid in the CRS and at the resolution of base that
// covers the full extent of src once reprojected. The upper-left corner
// of the returned grid lies on the lattice defined by the origin and
// resolution of base, so grids aligned independently against the same base
// share pixel boundaries wherever they overlap. Only the corner is moved;
// the dimensions are those returned by g.
//
// Errors from g are returned as they are.
func AlignGrid(g Geodesy, src, base GridSpec) (GridSpec, error) {
	resX, resY := base.Resolution()
	if !(resX > 0) || !(resY > 0) {
		return GridSpec{}, invalidf("base resolution (%g, %g) must be >0", resX, resY)
	}
	t, w, h, err := g.DestinationGrid(src, src.Bounds(), base.CRS, resX, resY)
	if err != nil {
		return GridSpec{}, err
	}
	ox, oy := base.Origin()
	out := GridSpec{
		CRS:       base.CRS,
		Width:     w,
		Height:    h,
		Transform: t.WithOrigin(SnapOrigin(t.C, ox, resX), SnapOrigin(t.F, oy, resY)),
	}
	if err := out.Check(); err != nil {
		return GridSpec{}, fmt.Errorf("rastergrid: %w: destination grid: %v", ErrReprojection, err)
	}
	return out, nil
}
