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

// Package warp moves rasters between coordinate reference systems using
// the projection library github.com/ctessum/geom/proj. Its Projector
// implements both rastergrid.Geodesy and rastergrid.Reprojector.
package warp

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ctessum/geom/proj"
	"github.com/ctessum/requestcache"
	"github.com/spatialmodel/rastergrid"
	"github.com/spatialmodel/rastergrid/internal/hash"
)

// DefaultEdgePoints is the default number of points sampled along each
// edge of a raster's bounds when computing its extent in another CRS.
const DefaultEdgePoints = 21

// Projector reprojects grids and pixel data. CRS strings are parsed with
// proj.Parse, so PROJ4 and WKT definitions are accepted. Parsed spatial
// references and computed destination grids are cached, and a Projector
// is safe for concurrent use.
type Projector struct {
	// EdgePoints is the number of points sampled along each edge of the
	// source bounds by DestinationGrid. Values below 2 are treated as 2.
	EdgePoints int

	srCache   *requestcache.Cache
	gridCache *requestcache.Cache
}

// NewProjector returns a Projector whose caches hold up to cacheSize
// spatial references and destination grids each.
func NewProjector(cacheSize int) *Projector {
	p := &Projector{EdgePoints: DefaultEdgePoints}
	p.srCache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
		return parseSR(request.(string))
	}, runtime.GOMAXPROCS(-1), requestcache.Deduplicate(), requestcache.Memory(cacheSize))
	p.gridCache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
		return p.destinationGrid(request.(gridRequest))
	}, runtime.GOMAXPROCS(-1), requestcache.Deduplicate(), requestcache.Memory(cacheSize))
	return p
}

// NewUnifier returns a rastergrid.Unifier that uses a new Projector for
// both grid computation and resampling.
func NewUnifier() *rastergrid.Unifier {
	p := NewProjector(100)
	return rastergrid.NewUnifier(p, p)
}

func parseSR(crs string) (*proj.SR, error) {
	sr, err := proj.Parse(crs)
	if err != nil {
		return nil, fmt.Errorf("warp: %w: parsing CRS %q: %v", rastergrid.ErrReprojection, crs, err)
	}
	return sr, nil
}

// SR returns the parsed spatial reference for crs. The returned value is
// shared and must not be modified.
func (p *Projector) SR(crs string) (*proj.SR, error) {
	req := p.srCache.NewRequest(context.TODO(), crs, hash.Key("sr", crs))
	result, err := req.Result()
	if err != nil {
		return nil, err
	}
	return result.(*proj.SR), nil
}

// Validate returns an error wrapping rastergrid.ErrReprojection if crs
// cannot be parsed.
func (p *Projector) Validate(crs string) error {
	_, err := p.SR(crs)
	return err
}

// transformer returns a function converting world coordinates in src to
// world coordinates in dst. Transformers are not shared between calls
// because those returned by proj are not safe for concurrent use.
func (p *Projector) transformer(src, dst string) (proj.Transformer, error) {
	if src == dst {
		return func(x, y float64) (float64, float64, error) { return x, y, nil }, nil
	}
	srcSR, err := p.SR(src)
	if err != nil {
		return nil, err
	}
	dstSR, err := p.SR(dst)
	if err != nil {
		return nil, err
	}
	t, err := srcSR.NewTransform(dstSR)
	if err != nil {
		return nil, fmt.Errorf("warp: %w: creating transform: %v", rastergrid.ErrReprojection, err)
	}
	if len(srcSR.DatumParams) > 0 && dstSR.DatumCode != "WGS84" {
		// Transforms that shift the source datum through WGS84 replace
		// their source after the first point, so each point needs its own.
		return func(x, y float64) (float64, float64, error) {
			t, err := srcSR.NewTransform(dstSR)
			if err != nil {
				return 0, 0, err
			}
			return t(x, y)
		}, nil
	}
	return t, nil
}
