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
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Unifier resamples rasters onto the grid of a base raster.
type Unifier struct {
	Geodesy     Geodesy
	Reprojector Reprojector

	// Workers is the maximum number of rasters processed at the same
	// time. If Workers <= 0, runtime.GOMAXPROCS(0) is used.
	Workers int

	Log logrus.FieldLogger
}

// NewUnifier returns a Unifier using g and r with default settings.
func NewUnifier(g Geodesy, r Reprojector) *Unifier {
	return &Unifier{
		Geodesy:     g,
		Reprojector: r,
		Log:         logrus.StandardLogger(),
	}
}

// Unify reprojects, resamples and aligns each of others onto the grid of
// base. The first result holds the data and descriptor of base as they
// are; result i+1 corresponds to others[i].
//
// If sameExtent is true every result has the grid of base, with cells
// outside a raster's coverage set to the base nodata value. Otherwise each
// raster keeps its own extent, reprojected into the base CRS at the base
// resolution, with its corner snapped to the base grid lattice. Those
// grids are computed separately for each raster and so generally differ
// from one another.
//
// All results use the band count and nodata value of base. Invalid
// arguments return an error wrapping ErrInvalidParameter before any data
// is read. Any other failure aborts the whole operation and no results
// are returned.
func (u *Unifier) Unify(ctx context.Context, base Handle, others []Handle, method Resampling, sameExtent bool) ([]Result, error) {
	baseDesc, err := u.validate(base, others, method, sameExtent)
	if err != nil {
		return nil, err
	}
	log := u.logger()

	baseData, err := base.Read()
	if err != nil {
		return nil, fmt.Errorf("rastergrid: reading base raster: %w", err)
	}
	out := make([]Result, len(others)+1)
	out[0] = Result{Data: baseData, Descriptor: baseDesc}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	nWorkers := u.Workers
	if nWorkers <= 0 {
		nWorkers = runtime.GOMAXPROCS(0)
	}
	if nWorkers > len(others) {
		nWorkers = len(others)
	}

	jobChan := make(chan int, len(others))
	for i := range others {
		jobChan <- i
	}
	close(jobChan)

	errChan := make(chan error, nWorkers)
	for w := 0; w < nWorkers; w++ {
		go func() {
			for i := range jobChan {
				if err := ctx.Err(); err != nil {
					errChan <- fmt.Errorf("rastergrid: %w", err)
					return
				}
				start := time.Now()
				r, err := u.unifyOne(ctx, baseDesc, others[i], method, sameExtent)
				if err != nil {
					cancel()
					errChan <- fmt.Errorf("rastergrid: unifying raster %d: %w", i, err)
					return
				}
				log.WithFields(logrus.Fields{
					"raster":     i,
					"width":      r.Width,
					"height":     r.Height,
					"resampling": method.String(),
					"duration":   time.Since(start),
				}).Debug("rastergrid: unified raster")
				out[i+1] = r
			}
			errChan <- nil
		}()
	}

	var errs []error
	for w := 0; w < nWorkers; w++ {
		if err := <-errChan; err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		// Prefer the failure that caused the cancellation over the
		// cancellations it caused.
		for _, err := range errs {
			if !errors.Is(err, context.Canceled) {
				return nil, err
			}
		}
		return nil, errs[0]
	}
	log.WithFields(logrus.Fields{
		"rasters":     len(others),
		"same_extent": sameExtent,
	}).Info("rastergrid: unification complete")
	return out, nil
}

// unifyOne computes the target grid for r and resamples r onto it.
// It only reads base, so calls for different rasters are independent.
func (u *Unifier) unifyOne(ctx context.Context, base Descriptor, r Handle, method Resampling, sameExtent bool) (Result, error) {
	srcDesc, err := Describe(r)
	if err != nil {
		return Result{}, err
	}
	target := base.GridSpec
	if !sameExtent {
		target, err = AlignGrid(u.Geodesy, srcDesc.GridSpec, base.GridSpec)
		if err != nil {
			return Result{}, err
		}
	}
	src, err := r.Read()
	if err != nil {
		return Result{}, fmt.Errorf("reading raster: %w", err)
	}
	data, err := Resample(ctx, u.Reprojector, src, srcDesc.GridSpec, srcDesc.Nodata,
		target, base.BandCount, base.Nodata, method)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Data: data,
		Descriptor: Descriptor{
			GridSpec:  target,
			BandCount: base.BandCount,
			Nodata:    base.Nodata,
		},
	}, nil
}

// validate checks the arguments to Unify and returns the descriptor of
// base.
func (u *Unifier) validate(base Handle, others []Handle, method Resampling, sameExtent bool) (Descriptor, error) {
	if u.Reprojector == nil {
		return Descriptor{}, invalidf("no Reprojector configured")
	}
	if !sameExtent && u.Geodesy == nil {
		return Descriptor{}, invalidf("no Geodesy configured; it is required when sameExtent is false")
	}
	if !method.Valid() {
		return Descriptor{}, invalidf("invalid resampling method %v", method)
	}
	baseDesc, err := Describe(base)
	if err != nil {
		return Descriptor{}, fmt.Errorf("base raster: %w", err)
	}
	if len(others) == 0 {
		return Descriptor{}, invalidf("no rasters to unify")
	}
	for i, r := range others {
		d, err := Describe(r)
		if err != nil {
			return Descriptor{}, fmt.Errorf("raster %d: %w", i, err)
		}
		if d.BandCount != baseDesc.BandCount {
			return Descriptor{}, invalidf("raster %d has %d bands but the base raster has %d",
				i, d.BandCount, baseDesc.BandCount)
		}
	}
	return baseDesc, nil
}

func (u *Unifier) logger() logrus.FieldLogger {
	if u.Log == nil {
		return logrus.StandardLogger()
	}
	return u.Log
}
