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

// Package rastergrid puts rasters with differing spatial references,
// resolutions and extents onto consistent pixel grids so that they can
// be combined cell by cell.
//
// The projection math and the interpolation kernels are supplied by the
// caller through the Geodesy and Reprojector interfaces; package warp
// provides implementations of both.
package rastergrid

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// Affine is a transform from pixel (column, row) coordinates to
// world coordinates:
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
//
// A and E are the pixel sizes, B and D are shear terms and (C, F) is the
// world location of the upper-left corner of the upper-left pixel.
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Apply returns the world coordinates of pixel location (col, row).
func (t Affine) Apply(col, row float64) (x, y float64) {
	return t.A*col + t.B*row + t.C, t.D*col + t.E*row + t.F
}

// Invert returns the transform from world coordinates back to
// pixel coordinates.
func (t Affine) Invert() (Affine, error) {
	det := t.A*t.E - t.B*t.D
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return Affine{}, fmt.Errorf("rastergrid: affine transform %+v is not invertible", t)
	}
	ia, ib := t.E/det, -t.B/det
	id, ie := -t.D/det, t.A/det
	return Affine{
		A: ia, B: ib, C: -(ia*t.C + ib*t.F),
		D: id, E: ie, F: -(id*t.C + ie*t.F),
	}, nil
}

// WithOrigin returns a copy of t with the translation terms replaced.
func (t Affine) WithOrigin(c, f float64) Affine {
	t.C, t.F = c, f
	return t
}

// GridSpec describes a pixel grid. It is a value type; none of its
// methods modify the receiver.
type GridSpec struct {
	// CRS identifies the coordinate reference system of the grid in a
	// format understood by the Geodesy and Reprojector in use
	// (for package warp, a PROJ4 or WKT string).
	CRS string

	Width, Height int

	Transform Affine
}

// NewGridSpec returns a validated GridSpec.
func NewGridSpec(crs string, width, height int, transform Affine) (GridSpec, error) {
	g := GridSpec{CRS: crs, Width: width, Height: height, Transform: transform}
	if err := g.Check(); err != nil {
		return GridSpec{}, err
	}
	return g, nil
}

// Check returns an error wrapping ErrInvalidParameter if g does not
// describe a usable grid.
func (g GridSpec) Check() error {
	if g.CRS == "" {
		return invalidf("grid has no CRS")
	}
	if g.Width < 1 || g.Height < 1 {
		return invalidf("grid dimensions %dx%d must both be at least 1", g.Width, g.Height)
	}
	rx, ry := g.Resolution()
	if !(rx > 0) || !(ry > 0) || math.IsInf(rx, 0) || math.IsInf(ry, 0) {
		return invalidf("grid resolution (%g, %g) must be finite and >0", rx, ry)
	}
	if math.IsNaN(g.Transform.C) || math.IsNaN(g.Transform.F) ||
		math.IsInf(g.Transform.C, 0) || math.IsInf(g.Transform.F, 0) {
		return invalidf("grid origin (%g, %g) is not finite", g.Transform.C, g.Transform.F)
	}
	if _, err := g.Transform.Invert(); err != nil {
		return invalidf("%v", err)
	}
	return nil
}

// Resolution returns the pixel size along each axis. Both values are
// positive regardless of the axis orientation.
func (g GridSpec) Resolution() (x, y float64) {
	return math.Abs(g.Transform.A), math.Abs(g.Transform.E)
}

// Origin returns the world coordinates of the upper-left grid corner.
func (g GridSpec) Origin() (x, y float64) {
	return g.Transform.C, g.Transform.F
}

// Bounds returns the world extent covered by the grid.
func (g GridSpec) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	w, h := float64(g.Width), float64(g.Height)
	for _, c := range [][2]float64{{0, 0}, {w, 0}, {w, h}, {0, h}} {
		x, y := g.Transform.Apply(c[0], c[1])
		b.Extend(geom.NewBoundsPoint(geom.Point{X: x, Y: y}))
	}
	return b
}
