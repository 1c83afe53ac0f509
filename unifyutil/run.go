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

package unifyutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/rastergrid"
	"github.com/spatialmodel/rastergrid/footprint"
	"github.com/spatialmodel/rastergrid/ncf"
	"github.com/spatialmodel/rastergrid/warp"
)

// Run unifies the rasters in c and writes one NetCDF file per input,
// including the base raster, to c.OutputDir. If c.FootprintFile is set,
// the outlines of the unified rasters are written there too.
func Run(ctx context.Context, log logrus.FieldLogger, c *Config) error {
	start := time.Now()
	dir, err := tempDir()
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	inputs := append([]string{c.BaseRaster}, c.Rasters...)
	handles := make([]rastergrid.Handle, len(inputs))
	for i, in := range inputs {
		local, err := maybeDownload(ctx, in, dir, log)
		if err != nil {
			return err
		}
		f, err := os.Open(local)
		if err != nil {
			return fmt.Errorf("rastergrid: opening input raster: %v", err)
		}
		defer f.Close()
		r, err := ncf.Open(f, c.Variable)
		if err != nil {
			return fmt.Errorf("rastergrid: reading %s: %w", in, err)
		}
		handles[i] = r
	}

	u := warp.NewUnifier()
	u.Workers = c.Workers
	u.Log = log
	results, err := u.Unify(ctx, handles[0], handles[1:], c.Resampling, c.SameExtent)
	if err != nil {
		return err
	}

	up := new(uploader)
	defer up.cleanup()
	names := make([]string, len(inputs))
	for i, in := range inputs {
		names[i] = outputName(in)
		path, err := up.maybeUpload(joinOutput(c.OutputDir, names[i]))
		if err != nil {
			return err
		}
		if err := writeResult(path, c.Variable, results[i]); err != nil {
			return err
		}
		log.WithField("file", path).Debug("rastergrid: wrote unified raster")
	}
	if c.FootprintFile != "" {
		path, err := up.maybeUpload(c.FootprintFile)
		if err != nil {
			return err
		}
		if err := writeFootprint(path, names, results); err != nil {
			return err
		}
	}
	if err := up.upload(ctx, log); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"rasters": len(inputs),
		"time":    time.Since(start),
	}).Info("rastergrid: finished")
	return nil
}

func writeResult(path, variable string, r rastergrid.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rastergrid: creating output file: %v", err)
	}
	if err := ncf.Write(f, variable, r); err != nil {
		f.Close()
		return fmt.Errorf("rastergrid: writing %s: %w", path, err)
	}
	return f.Close()
}

func writeFootprint(path string, names []string, results []rastergrid.Result) error {
	if filepath.Ext(path) == ".shp" {
		return footprint.WriteShp(path, names, results)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rastergrid: creating footprint file: %v", err)
	}
	if err := footprint.WriteGeoJSON(f, names, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
