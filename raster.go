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
	"reflect"

	"github.com/ctessum/sparse"
)

// Handle gives read access to a raster. Handles are owned by the caller;
// nothing in this package opens, closes or modifies them.
type Handle interface {
	CRS() string
	Width() int
	Height() int
	Transform() Affine
	BandCount() int
	Nodata() float64

	// Read returns the pixel values as an array with shape
	// [bands, height, width].
	Read() (*sparse.DenseArray, error)
}

// Descriptor holds the grid and the pixel metadata of a raster.
type Descriptor struct {
	GridSpec
	BandCount int
	Nodata    float64
}

// Describe returns the descriptor of h, checking that h is usable.
func Describe(h Handle) (Descriptor, error) {
	if h == nil {
		return Descriptor{}, invalidf("raster handle is nil")
	}
	if v := reflect.ValueOf(h); isNilable(v.Kind()) && v.IsNil() {
		return Descriptor{}, invalidf("raster handle is a nil %T", h)
	}
	d := Descriptor{
		GridSpec: GridSpec{
			CRS:       h.CRS(),
			Width:     h.Width(),
			Height:    h.Height(),
			Transform: h.Transform(),
		},
		BandCount: h.BandCount(),
		Nodata:    h.Nodata(),
	}
	if err := d.GridSpec.Check(); err != nil {
		return Descriptor{}, err
	}
	if d.BandCount < 1 {
		return Descriptor{}, invalidf("band count %d must be at least 1", d.BandCount)
	}
	return d, nil
}

func isNilable(k reflect.Kind) bool {
	switch k {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return true
	}
	return false
}

// Shape returns the array shape of a raster with descriptor d.
func (d Descriptor) Shape() []int {
	return []int{d.BandCount, d.Height, d.Width}
}

// Result is one unified raster.
type Result struct {
	Data *sparse.DenseArray
	Descriptor
}

// Raster is an in-memory Handle.
type Raster struct {
	desc Descriptor
	data *sparse.DenseArray
}

// NewRaster creates an in-memory raster on grid g. data must have shape
// [bands, g.Height, g.Width]; it is not copied.
func NewRaster(g GridSpec, nodata float64, data *sparse.DenseArray) (*Raster, error) {
	if err := g.Check(); err != nil {
		return nil, err
	}
	if data == nil || len(data.Shape) != 3 {
		return nil, invalidf("raster data must be 3-dimensional")
	}
	if data.Shape[1] != g.Height || data.Shape[2] != g.Width {
		return nil, invalidf("raster data shape %v does not match grid %dx%d",
			data.Shape, g.Width, g.Height)
	}
	if len(data.Elements) != data.Shape[0]*data.Shape[1]*data.Shape[2] {
		return nil, invalidf("raster data has %d elements but shape %v", len(data.Elements), data.Shape)
	}
	return &Raster{
		desc: Descriptor{GridSpec: g, BandCount: data.Shape[0], Nodata: nodata},
		data: data,
	}, nil
}

// FromResult wraps a unification result as a Handle, for example to use it
// as the base of a further unification.
func FromResult(r Result) (*Raster, error) {
	rr, err := NewRaster(r.GridSpec, r.Nodata, r.Data)
	if err != nil {
		return nil, fmt.Errorf("rastergrid: converting result: %w", err)
	}
	return rr, nil
}

// CRS, Width, Height, Transform, BandCount and Nodata implement Handle.
// Descriptor returns them all at once.
func (r *Raster) CRS() string            { return r.desc.CRS }
func (r *Raster) Width() int             { return r.desc.Width }
func (r *Raster) Height() int            { return r.desc.Height }
func (r *Raster) Transform() Affine      { return r.desc.Transform }
func (r *Raster) BandCount() int         { return r.desc.BandCount }
func (r *Raster) Nodata() float64        { return r.desc.Nodata }
func (r *Raster) Descriptor() Descriptor { return r.desc }

// Read returns a copy of the raster data.
func (r *Raster) Read() (*sparse.DenseArray, error) {
	return r.data.Copy(), nil
}
