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
	"context"
	"fmt"
	"strings"

	"github.com/ctessum/sparse"
)

// Resampling selects how pixel values are estimated at new grid
// locations. The zero value is Nearest.
type Resampling int

// Resampling methods.
const (
	Nearest Resampling = iota
	Bilinear
	Cubic
	Average
	Mode
	Min
	Max
)

var resamplingNames = [...]string{
	Nearest:  "nearest",
	Bilinear: "bilinear",
	Cubic:    "cubic",
	Average:  "average",
	Mode:     "mode",
	Min:      "min",
	Max:      "max",
}

func (r Resampling) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Resampling(%d)", int(r))
	}
	return resamplingNames[r]
}

// Valid returns whether r is one of the defined methods.
func (r Resampling) Valid() bool {
	return r >= 0 && int(r) < len(resamplingNames)
}

// ParseResampling returns the method with the given name. Matching is
// case-insensitive.
func ParseResampling(s string) (Resampling, error) {
	for i, n := range resamplingNames {
		if strings.EqualFold(strings.TrimSpace(s), n) {
			return Resampling(i), nil
		}
	}
	return 0, invalidf("unknown resampling method %q; valid methods are %s",
		s, strings.Join(resamplingNames[:], ", "))
}

// Reprojector fills a destination array with values from a source array
// on a different grid.
type Reprojector interface {
	// Reproject estimates the value of each cell of dst, which lies on
	// dstGrid, from src, which lies on srcGrid, using method. Both arrays
	// have shape [bands, height, width]. Source cells equal to srcNodata
	// are ignored and destination cells without source coverage must be
	// left unchanged. src must not be modified.
	Reproject(ctx context.Context, src *sparse.DenseArray, srcGrid GridSpec, srcNodata float64,
		dst *sparse.DenseArray, dstGrid GridSpec, dstNodata float64, method Resampling) error
}

// NodataArray returns an array of the given shape with every element
// set to nodata.
func NodataArray(bands, height, width int, nodata float64) *sparse.DenseArray {
	a := sparse.ZerosDense(bands, height, width)
	for i := range a.Elements {
		a.Elements[i] = nodata
	}
	return a
}

// Resample returns a new array on grid dst holding the values of src,
// which lies on srcGrid. Cells of the output without source coverage
// equal nodata exactly.
func Resample(ctx context.Context, r Reprojector, src *sparse.DenseArray, srcGrid GridSpec, srcNodata float64,
	dst GridSpec, bands int, nodata float64, method Resampling) (*sparse.DenseArray, error) {
	out := NodataArray(bands, dst.Height, dst.Width, nodata)
	if err := r.Reproject(ctx, src, srcGrid, srcNodata, out, dst, nodata, method); err != nil {
		return nil, err
	}
	return out, nil
}
