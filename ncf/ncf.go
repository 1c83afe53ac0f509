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

// Package ncf stores rasters in NetCDF (classic format) files.
//
// A raster is a variable with dimensions (band, y, x) or (y, x). Its grid
// is held in the global attributes "crs", a PROJ4 or WKT string, and
// "transform", the six affine coefficients A, B, C, D, E and F. The nodata
// value is the variable attribute "nodata", or "_FillValue" if that is
// missing.
package ncf

import (
	"fmt"
	"math"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/spatialmodel/rastergrid"
)

// Attribute names.
const (
	AttrCRS       = "crs"
	AttrTransform = "transform"
	AttrNodata    = "nodata"
	attrFill      = "_FillValue"
)

// Raster is a raster variable in a NetCDF file. It implements
// rastergrid.Handle.
type Raster struct {
	f        *cdf.File
	variable string
	desc     rastergrid.Descriptor
}

// Open reads the header of the NetCDF file in rw and returns the raster
// held in the named variable. rw must stay open while the raster is in
// use.
func Open(rw cdf.ReaderWriterAt, variable string) (*Raster, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("ncf: opening file: %v", err)
	}
	h := f.Header
	dims := h.Lengths(variable)
	var bands, height, width int
	switch len(dims) {
	case 0:
		return nil, fmt.Errorf("ncf: variable %q not in file", variable)
	case 2:
		bands, height, width = 1, dims[0], dims[1]
	case 3:
		bands, height, width = dims[0], dims[1], dims[2]
	default:
		return nil, fmt.Errorf("ncf: variable %q has %d dimensions; it must have 2 or 3", variable, len(dims))
	}
	if h.IsRecordVariable(variable) {
		return nil, fmt.Errorf("ncf: variable %q is a record variable", variable)
	}

	crs, ok := h.GetAttribute("", AttrCRS).(string)
	if !ok {
		return nil, fmt.Errorf("ncf: missing global attribute %q", AttrCRS)
	}
	t, err := floatAttribute(h, "", AttrTransform)
	if err != nil {
		return nil, err
	}
	if len(t) != 6 {
		return nil, fmt.Errorf("ncf: global attribute %q has %d values; it must have 6", AttrTransform, len(t))
	}
	nodata := math.NaN()
	for _, a := range []string{AttrNodata, attrFill} {
		v, err := floatAttribute(h, variable, a)
		if err == nil && len(v) > 0 {
			nodata = v[0]
			break
		}
	}

	g, err := rastergrid.NewGridSpec(crs, width, height, rastergrid.Affine{
		A: t[0], B: t[1], C: t[2],
		D: t[3], E: t[4], F: t[5],
	})
	if err != nil {
		return nil, fmt.Errorf("ncf: variable %q: %w", variable, err)
	}
	return &Raster{
		f:        f,
		variable: variable,
		desc:     rastergrid.Descriptor{GridSpec: g, BandCount: bands, Nodata: nodata},
	}, nil
}

// floatAttribute returns the numeric attribute a of variable v as float64
// values.
func floatAttribute(h *cdf.Header, v, a string) ([]float64, error) {
	x := h.GetAttribute(v, a)
	if x == nil {
		return nil, fmt.Errorf("ncf: missing attribute %q of variable %q", a, v)
	}
	if out := toFloat64(x); out != nil {
		return out, nil
	}
	return nil, fmt.Errorf("ncf: attribute %q of variable %q has unsupported type %T", a, v, x)
}

func toFloat64(values interface{}) []float64 {
	switch x := values.(type) {
	case []float64:
		return x
	case []float32:
		out := make([]float64, len(x))
		for i, v := range x {
			out[i] = float64(v)
		}
		return out
	case []int32:
		out := make([]float64, len(x))
		for i, v := range x {
			out[i] = float64(v)
		}
		return out
	case []int16:
		out := make([]float64, len(x))
		for i, v := range x {
			out[i] = float64(v)
		}
		return out
	case []uint8:
		out := make([]float64, len(x))
		for i, v := range x {
			out[i] = float64(v)
		}
		return out
	}
	return nil
}

// CRS, Width, Height, Transform, BandCount and Nodata implement
// rastergrid.Handle. Descriptor returns them all at once.
func (r *Raster) CRS() string                       { return r.desc.CRS }
func (r *Raster) Width() int                        { return r.desc.Width }
func (r *Raster) Height() int                       { return r.desc.Height }
func (r *Raster) Transform() rastergrid.Affine      { return r.desc.Transform }
func (r *Raster) BandCount() int                    { return r.desc.BandCount }
func (r *Raster) Nodata() float64                   { return r.desc.Nodata }
func (r *Raster) Descriptor() rastergrid.Descriptor { return r.desc }

// Read reads the whole variable.
func (r *Raster) Read() (*sparse.DenseArray, error) {
	rd := r.f.Reader(r.variable, nil, nil)
	buf := rd.Zero(-1)
	if _, err := rd.Read(buf); err != nil {
		return nil, fmt.Errorf("ncf: reading variable %q: %v", r.variable, err)
	}
	values := toFloat64(buf)
	data := sparse.ZerosDense(r.desc.Shape()...)
	if len(values) != len(data.Elements) {
		return nil, fmt.Errorf("ncf: variable %q: read %d values, want %d", r.variable, len(values), len(data.Elements))
	}
	copy(data.Elements, values)
	return data, nil
}

// Write stores r in rw as a new NetCDF file with a single raster variable
// of type double, along with the x and y coordinates of the pixel centres
// of the first row and column.
func Write(rw cdf.ReaderWriterAt, variable string, r rastergrid.Result) error {
	if r.Data == nil {
		return fmt.Errorf("ncf: result has no data")
	}
	shape := r.Shape()
	if len(r.Data.Elements) != shape[0]*shape[1]*shape[2] {
		return fmt.Errorf("ncf: data has %d elements but grid shape is %v", len(r.Data.Elements), shape)
	}
	if variable == "x" || variable == "y" {
		return fmt.Errorf("ncf: variable name %q is reserved for coordinates", variable)
	}

	h := cdf.NewHeader([]string{"band", "y", "x"}, shape)
	h.AddVariable(variable, []string{"band", "y", "x"}, []float64{0})
	h.AddAttribute(variable, AttrNodata, []float64{r.Nodata})
	h.AddAttribute(variable, attrFill, []float64{r.Nodata})
	h.AddVariable("x", []string{"x"}, []float64{0})
	h.AddAttribute("x", "description", "x coordinate of pixel centres")
	h.AddVariable("y", []string{"y"}, []float64{0})
	h.AddAttribute("y", "description", "y coordinate of pixel centres")

	t := r.Transform
	h.AddAttribute("", AttrCRS, r.CRS)
	h.AddAttribute("", AttrTransform, []float64{t.A, t.B, t.C, t.D, t.E, t.F})
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("ncf: creating header: %v", err)
	}

	f, err := cdf.Create(rw, h)
	if err != nil {
		return fmt.Errorf("ncf: creating file: %v", err)
	}
	if _, err := f.Writer(variable, nil, nil).Write(r.Data.Elements); err != nil {
		return fmt.Errorf("ncf: writing variable %q: %v", variable, err)
	}
	x := make([]float64, r.Width)
	for i := range x {
		x[i], _ = t.Apply(float64(i)+0.5, 0.5)
	}
	y := make([]float64, r.Height)
	for i := range y {
		_, y[i] = t.Apply(0.5, float64(i)+0.5)
	}
	for name, v := range map[string][]float64{"x": x, "y": y} {
		if _, err := f.Writer(name, nil, nil).Write(v); err != nil {
			return fmt.Errorf("ncf: writing coordinate %q: %v", name, err)
		}
	}
	return nil
}

var _ rastergrid.Handle = (*Raster)(nil)
