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

package footprint

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/geom/encoding/shp"
	gshp "github.com/jonas-p/go-shp"
	"github.com/spatialmodel/rastergrid"
	"gonum.org/v1/gonum/floats"
)

func testResults() []rastergrid.Result {
	return []rastergrid.Result{
		{Descriptor: rastergrid.Descriptor{
			GridSpec:  rastergrid.GridSpec{CRS: "+proj=longlat", Width: 10, Height: 10, Transform: rastergrid.Affine{A: 1, E: -1, F: 10}},
			BandCount: 1, Nodata: -9999,
		}},
		{Descriptor: rastergrid.Descriptor{
			GridSpec:  rastergrid.GridSpec{CRS: "+proj=longlat", Width: 3, Height: 2, Transform: rastergrid.Affine{A: 1, C: -2, E: -1, F: 4}},
			BandCount: 1, Nodata: math.NaN(),
		}},
	}
}

func TestPolygon(t *testing.T) {
	p := Polygon(testResults()[1].GridSpec)
	b := p.Bounds()
	if have, want := []float64{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y}, []float64{-2, 2, 1, 4}; !floats.Equal(have, want) {
		t.Errorf("bounds: have %v, want %v", have, want)
	}
	if a := p.Area(); a != 6 {
		t.Errorf("area: have %g, want 6", a)
	}
	if r := p[0]; len(r) != 5 || r[0] != r[4] {
		t.Errorf("ring is not closed: %v", r)
	}
}

func TestWriteShp(t *testing.T) {
	dir, err := ioutil.TempDir("", "footprint")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "footprints.shp")
	if err := WriteShp(path, []string{"base", "other"}, testResults()); err != nil {
		t.Fatal(err)
	}

	d, err := shp.NewDecoder(path)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	var recs []Record
	for {
		var r Record
		if more := d.DecodeRow(&r); !more {
			break
		}
		recs = append(recs, r)
	}
	if err := d.Error(); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("have %d records, want 2", len(recs))
	}
	if recs[1].Name != "other" || recs[1].Width != 3 || recs[1].Height != 2 {
		t.Errorf("unexpected record %+v", recs[1])
	}

	r, err := gshp.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.GeometryType != gshp.POLYGON {
		t.Errorf("geometry type %v, want polygon", r.GeometryType)
	}
	for r.Next() {
		n, s := r.Shape()
		b := s.BBox()
		want := recs[n].Polygon.Bounds()
		if b.MinX != want.Min.X || b.MaxY != want.Max.Y {
			t.Errorf("shape %d: box %+v, want %+v", n, b, want)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "footprints.prj")); !os.IsNotExist(err) {
		t.Error("a .prj file was written for a PROJ4 CRS")
	}
}

func TestWriteGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGeoJSON(&buf, []string{"base", "other"}, testResults()); err != nil {
		t.Fatal(err)
	}
	var fc struct {
		Type     string
		Proj4    string
		Features []struct {
			Geometry struct {
				Type        string
				Coordinates [][][]float64
			}
			Properties map[string]interface{}
		}
	}
	if err := json.Unmarshal(buf.Bytes(), &fc); err != nil {
		t.Fatal(err)
	}
	if fc.Type != "FeatureCollection" || fc.Proj4 != "+proj=longlat" || len(fc.Features) != 2 {
		t.Fatalf("unexpected collection %+v", fc)
	}
	f := fc.Features[0]
	if f.Geometry.Type != "Polygon" || len(f.Geometry.Coordinates) != 1 || len(f.Geometry.Coordinates[0]) != 5 {
		t.Errorf("unexpected geometry %+v", f.Geometry)
	}
	if f.Properties["Name"] != "base" || f.Properties["Nodata"] != -9999. {
		t.Errorf("unexpected properties %v", f.Properties)
	}
	if v, ok := fc.Features[1].Properties["Nodata"]; !ok || v != nil {
		t.Errorf("NaN nodata: have %v, want null", v)
	}
}

func TestRecordsMismatch(t *testing.T) {
	if _, err := Records([]string{"a"}, testResults()); err == nil {
		t.Error("mismatched names should fail")
	}
	if err := WriteGeoJSON(ioutil.Discard, nil, testResults()); err == nil {
		t.Error("mismatched names should fail")
	}
}

