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

package rastergrid_test

import (
	"context"
	"math"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/rastergrid"
	"github.com/spatialmodel/rastergrid/warp"
)

const (
	longlat = "+proj=longlat"
	lcc     = "+proj=lcc +lat_1=33.000000 +lat_2=45.000000 +lat_0=40.000000 +lon_0=-97.000000 +x_0=0 +y_0=0 +a=6370997.000000 +b=6370997.000000 +to_meter=1"
)

func newRaster(t *testing.T, crs string, w, h int, tr rastergrid.Affine, nodata float64, f func(row, col int) float64) *rastergrid.Raster {
	t.Helper()
	g, err := rastergrid.NewGridSpec(crs, w, h, tr)
	if err != nil {
		t.Fatal(err)
	}
	data := sparse.ZerosDense(1, h, w)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			data.Elements[r*w+c] = f(r, c)
		}
	}
	rr, err := rastergrid.NewRaster(g, nodata, data)
	if err != nil {
		t.Fatal(err)
	}
	return rr
}

// A small raster offset by a fraction of a pixel is placed on the base
// grid, and everything it does not cover is nodata.
func TestUnifyOffsetRaster(t *testing.T) {
	base := newRaster(t, lcc, 10, 10, rastergrid.Affine{A: 1, E: -1, F: 10}, -9999,
		func(row, col int) float64 { return 0 })
	other := newRaster(t, lcc, 5, 5, rastergrid.Affine{A: 1, C: 0.3, E: -1, F: 9.7}, -1,
		func(row, col int) float64 { return float64(row*5 + col + 1) })

	u := warp.NewUnifier()
	out, err := u.Unify(context.Background(), base, []rastergrid.Handle{other}, rastergrid.Nearest, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("have %d results, want 2", len(out))
	}
	r := out[1]
	if r.GridSpec != base.Descriptor().GridSpec || r.Nodata != -9999 {
		t.Fatalf("result descriptor %+v does not match the base", r.Descriptor)
	}
	for row := 0; row < 10; row++ {
		for col := 0; col < 10; col++ {
			v := r.Data.Get(0, row, col)
			want := -9999.
			if row < 5 && col < 5 {
				want = float64(row*5 + col + 1)
			}
			if v != want {
				t.Errorf("(%d, %d): have %g, want %g", row, col, v, want)
			}
		}
	}
}

// Unifying a raster with itself returns it unchanged.
func TestUnifyIdempotent(t *testing.T) {
	base := newRaster(t, lcc, 8, 6, rastergrid.Affine{A: 12000, C: -2736000, E: -12000, F: 2088000}, -9999,
		func(row, col int) float64 {
			if row == 2 && col == 3 {
				return -9999
			}
			return math.Sin(float64(row)) * float64(col)
		})
	want, err := base.Read()
	if err != nil {
		t.Fatal(err)
	}
	u := warp.NewUnifier()
	for _, m := range []rastergrid.Resampling{rastergrid.Nearest, rastergrid.Bilinear, rastergrid.Cubic, rastergrid.Average} {
		for _, sameExtent := range []bool{true, false} {
			out, err := u.Unify(context.Background(), base, []rastergrid.Handle{base}, m, sameExtent)
			if err != nil {
				t.Fatal(err)
			}
			if out[1].GridSpec != base.Descriptor().GridSpec {
				t.Errorf("%v, sameExtent=%v: grid %+v, want %+v", m, sameExtent, out[1].GridSpec, base.Descriptor().GridSpec)
				continue
			}
			for i, v := range out[1].Data.Elements {
				if math.Abs(v-want.Elements[i]) > 1e-9 {
					t.Errorf("%v, sameExtent=%v: element %d: have %g, want %g", m, sameExtent, i, v, want.Elements[i])
					break
				}
			}
		}
	}
}

// Rasters in another CRS keep their own extent but land on the base
// grid lattice.
func TestUnifyOwnExtentLattice(t *testing.T) {
	const res = 1000.
	baseT := rastergrid.Affine{A: res, C: -50250, E: -res, F: 49750}
	base := newRaster(t, lcc, 100, 100, baseT, -9999, func(row, col int) float64 { return 1 })
	others := []rastergrid.Handle{
		newRaster(t, longlat, 5, 5, rastergrid.Affine{A: 0.05, C: -97.1, E: -0.05, F: 40.1}, -1,
			func(row, col int) float64 { return float64(row + col) }),
		newRaster(t, longlat, 8, 4, rastergrid.Affine{A: 0.02, C: -96.93, E: -0.02, F: 39.77}, -1,
			func(row, col int) float64 { return 7 }),
	}
	u := warp.NewUnifier()
	out, err := u.Unify(context.Background(), base, others, rastergrid.Bilinear, false)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range out[1:] {
		if r.CRS != lcc {
			t.Errorf("result %d: CRS %q", i+1, r.CRS)
		}
		if rx, ry := r.Resolution(); rx != res || ry != res {
			t.Errorf("result %d: resolution (%g, %g)", i+1, rx, ry)
		}
		for _, d := range []float64{r.Transform.C - baseT.C, r.Transform.F - baseT.F} {
			rem := rastergrid.FloorMod(d, res)
			if math.Min(rem, res-rem) > 1e-6 {
				t.Errorf("result %d: origin (%g, %g) is off the base lattice", i+1, r.Transform.C, r.Transform.F)
			}
		}
		var valid int
		for _, v := range r.Data.Elements {
			if v != -9999 {
				valid++
			}
		}
		if valid == 0 {
			t.Errorf("result %d has no data", i+1)
		}
	}
	if out[1].GridSpec == out[2].GridSpec {
		t.Error("rasters with different extents were given the same grid")
	}
}
