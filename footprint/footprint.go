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

// Package footprint exports the extents of unified rasters as polygons so
// they can be inspected in GIS software.
package footprint

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"math"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/spatialmodel/rastergrid"
)

// Polygon returns the outline of grid g in its own CRS.
func Polygon(g rastergrid.GridSpec) geom.Polygon {
	w, h := float64(g.Width), float64(g.Height)
	ring := make([]geom.Point, 0, 5)
	for _, c := range [][2]float64{{0, 0}, {0, h}, {w, h}, {w, 0}, {0, 0}} {
		x, y := g.Transform.Apply(c[0], c[1])
		ring = append(ring, geom.Point{X: x, Y: y})
	}
	return geom.Polygon{ring}
}

// Record is one footprint and its attributes.
type Record struct {
	geom.Polygon
	Name          string
	Width, Height int
	ResX, ResY    float64
	Nodata        float64
}

// Records returns a footprint record for each result. names must be the
// same length as results.
func Records(names []string, results []rastergrid.Result) ([]Record, error) {
	if len(names) != len(results) {
		return nil, fmt.Errorf("footprint: %d names for %d results", len(names), len(results))
	}
	out := make([]Record, len(results))
	for i, r := range results {
		rx, ry := r.Resolution()
		out[i] = Record{
			Polygon: Polygon(r.GridSpec),
			Name:    names[i],
			Width:   r.Width,
			Height:  r.Height,
			ResX:    rx,
			ResY:    ry,
			Nodata:  r.Nodata,
		}
	}
	return out, nil
}

// WriteShp writes the footprints of results to the shapefile at path.
// If the results are in a WKT CRS a matching .prj file is written too.
func WriteShp(path string, names []string, results []rastergrid.Result) error {
	recs, err := Records(names, results)
	if err != nil {
		return err
	}
	e, err := shp.NewEncoder(path, Record{})
	if err != nil {
		return fmt.Errorf("footprint: creating shapefile: %v", err)
	}
	for _, r := range recs {
		if err = e.Encode(r); err != nil {
			e.Close()
			return fmt.Errorf("footprint: writing shapefile: %v", err)
		}
	}
	e.Close()

	if len(results) == 0 || !isWKT(results[0].CRS) {
		return nil
	}
	prj := strings.TrimSuffix(path, ".shp") + ".prj"
	if err := ioutil.WriteFile(prj, []byte(results[0].CRS), 0644); err != nil {
		return fmt.Errorf("footprint: writing projection file: %v", err)
	}
	return nil
}

func isWKT(crs string) bool {
	for _, p := range []string{"PROJCS", "GEOGCS"} {
		if strings.HasPrefix(strings.TrimSpace(crs), p) {
			return true
		}
	}
	return false
}

type feature struct {
	Type       string
	Geometry   *geojson.Geometry
	Properties properties
}

type properties struct {
	Name          string
	Width, Height int
	ResX, ResY    float64
	Nodata        *float64 // nil if NaN, which JSON cannot hold.
}

type featureCollection struct {
	Type     string
	Proj4    string `json:",omitempty"`
	Features []feature
}

// WriteGeoJSON writes the footprints of results to w as a GeoJSON
// feature collection. The CRS of the first result is stored in its
// Proj4 member.
func WriteGeoJSON(w io.Writer, names []string, results []rastergrid.Result) error {
	recs, err := Records(names, results)
	if err != nil {
		return err
	}
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, len(recs))}
	if len(results) > 0 {
		fc.Proj4 = results[0].CRS
	}
	for i, r := range recs {
		g, err := geojson.ToGeoJSON(r.Polygon)
		if err != nil {
			return fmt.Errorf("footprint: encoding %s: %v", r.Name, err)
		}
		var nodata *float64
		if !math.IsNaN(r.Nodata) {
			nodata = &recs[i].Nodata
		}
		fc.Features[i] = feature{
			Type:     "Feature",
			Geometry: g,
			Properties: properties{
				Name:   r.Name,
				Width:  r.Width,
				Height: r.Height,
				ResX:   r.ResX,
				ResY:   r.ResY,
				Nodata: nodata,
			},
		}
	}
	b, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("footprint: %v", err)
	}
	_, err = w.Write(b)
	return err
}
