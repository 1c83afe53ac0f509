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
	"errors"
	"testing"

	"github.com/spatialmodel/rastergrid"
	"gonum.org/v1/gonum/floats"
)

const tolerance = 1e-9

const (
	longlat = "+proj=longlat"
	lcc     = "+proj=lcc +lat_1=33.000000 +lat_2=45.000000 +lat_0=40.000000 +lon_0=-97.000000 +x_0=0 +y_0=0 +a=6370997.000000 +b=6370997.000000 +to_meter=1"
)

func TestDestinationGridSameCRS(t *testing.T) {
	p := NewProjector(10)
	src := rastergrid.GridSpec{CRS: lcc, Width: 10, Height: 10, Transform: rastergrid.Affine{A: 1, E: -1, F: 10}}
	tests := []struct {
		res  float64
		w, h int
	}{
		{res: 1, w: 10, h: 10},
		{res: 3, w: 4, h: 4},
		{res: 0.1, w: 100, h: 100},
		{res: 100, w: 1, h: 1},
	}
	for _, test := range tests {
		tr, w, h, err := p.DestinationGrid(src, src.Bounds(), lcc, test.res, test.res)
		if err != nil {
			t.Fatal(err)
		}
		if w != test.w || h != test.h {
			t.Errorf("res %g: have %dx%d, want %dx%d", test.res, w, h, test.w, test.h)
		}
		want := rastergrid.Affine{A: test.res, E: -test.res, F: 10}
		if tr != want {
			t.Errorf("res %g: have transform %+v, want %+v", test.res, tr, want)
		}
	}
}

func TestDestinationGridReproject(t *testing.T) {
	p := NewProjector(10)
	src := rastergrid.GridSpec{CRS: longlat, Width: 20, Height: 20, Transform: rastergrid.Affine{A: 0.1, C: -98, E: -0.1, F: 41}}
	const res = 1000.
	tr, w, h, err := p.DestinationGrid(src, src.Bounds(), lcc, res, res)
	if err != nil {
		t.Fatal(err)
	}
	if tr.A != res || tr.E != -res || tr.B != 0 || tr.D != 0 {
		t.Errorf("transform %+v is not north-up at %g m", tr, res)
	}
	// Two degrees is roughly 170 km of longitude and 222 km of latitude
	// at 40N.
	if w < 165 || w > 180 || h < 215 || h > 230 {
		t.Errorf("unexpected dimensions %dx%d", w, h)
	}

	// The middle of the southern edge bulges south of the corners, so the
	// grid only covers it because the edges are densified.
	fwd, err := p.transformer(longlat, lcc)
	if err != nil {
		t.Fatal(err)
	}
	_, ySouth, err := fwd(-97, 39)
	if err != nil {
		t.Fatal(err)
	}
	_, yCorner, err := fwd(-98, 39)
	if err != nil {
		t.Fatal(err)
	}
	if !(ySouth < yCorner) {
		t.Fatalf("projection is not curved: %g >= %g", ySouth, yCorner)
	}
	if minY := tr.F + tr.E*float64(h); minY > ySouth {
		t.Errorf("grid bottom %g does not cover southern edge midpoint %g", minY, ySouth)
	}

	// The result is cached.
	tr2, w2, h2, err := p.DestinationGrid(src, src.Bounds(), lcc, res, res)
	if err != nil {
		t.Fatal(err)
	}
	if tr2 != tr || w2 != w || h2 != h {
		t.Error("repeated request returned a different grid")
	}
}

func TestDestinationGridErrors(t *testing.T) {
	p := NewProjector(10)
	src := rastergrid.GridSpec{CRS: lcc, Width: 10, Height: 10, Transform: rastergrid.Affine{A: 1, E: -1, F: 10}}
	if _, _, _, err := p.DestinationGrid(src, src.Bounds(), lcc, 0, 1); !errors.Is(err, rastergrid.ErrInvalidParameter) {
		t.Errorf("zero resolution: have %v, want ErrInvalidParameter", err)
	}
	bad := src
	bad.CRS = "not a projection"
	if _, _, _, err := p.DestinationGrid(bad, bad.Bounds(), lcc, 1, 1); !errors.Is(err, rastergrid.ErrReprojection) {
		t.Errorf("bad CRS: have %v, want ErrReprojection", err)
	}
	if err := p.Validate("not a projection"); !errors.Is(err, rastergrid.ErrReprojection) {
		t.Errorf("Validate: have %v, want ErrReprojection", err)
	}
	if err := p.Validate(lcc); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestPixels(t *testing.T) {
	have := make([]float64, 0, 4)
	for _, v := range []float64{10, 10 + 1e-12, 10.2, 0.3} {
		n, err := pixels(v)
		if err != nil {
			t.Fatal(err)
		}
		have = append(have, float64(n))
	}
	if want := []float64{10, 10, 11, 1}; !floats.Equal(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
	if _, err := pixels(1e12); !errors.Is(err, rastergrid.ErrReprojection) {
		t.Errorf("have %v, want ErrReprojection", err)
	}
}
