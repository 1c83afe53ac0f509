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
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/rastergrid"
	"github.com/spf13/cast"
)

// Config holds the settings for a unify run.
type Config struct {
	// BaseRaster and Rasters are the input locations.
	BaseRaster string
	Rasters    []string

	// Variable is the NetCDF variable holding the raster data.
	Variable string

	Resampling rastergrid.Resampling
	SameExtent bool
	Workers    int

	// OutputDir is where the unified rasters are written.
	OutputDir string

	// FootprintFile is optional.
	FootprintFile string
}

// LoadConfig reads and checks the unify settings in cfg.
func LoadConfig(cfg *viper.Viper) (*Config, error) {
	rasters, err := toStringSliceE(cfg.Get("Rasters"))
	if err != nil {
		return nil, fmt.Errorf("rastergrid: reading Rasters: %v", err)
	}
	c := &Config{
		BaseRaster:    os.ExpandEnv(cfg.GetString("BaseRaster")),
		Rasters:       expandStringSlice(rasters),
		Variable:      os.ExpandEnv(cfg.GetString("Variable")),
		SameExtent:    cfg.GetBool("SameExtent"),
		Workers:       cfg.GetInt("Workers"),
		FootprintFile: os.ExpandEnv(cfg.GetString("FootprintFile")),
	}
	if c.BaseRaster == "" {
		return nil, fmt.Errorf("rastergrid: you need to specify a BaseRaster configuration variable")
	}
	if len(c.Rasters) == 0 {
		return nil, fmt.Errorf("rastergrid: there are no Rasters specified to unify. Please fill in " +
			"the Rasters configuration and try again")
	}
	if c.Variable == "" {
		return nil, fmt.Errorf("rastergrid: the Variable configuration variable is empty")
	}
	if c.Resampling, err = rastergrid.ParseResampling(os.ExpandEnv(cfg.GetString("Resampling"))); err != nil {
		return nil, err
	}
	if c.Workers < 0 {
		return nil, fmt.Errorf("rastergrid: Workers must not be negative but is %d", c.Workers)
	}
	if c.OutputDir, err = checkOutputDir(cfg.GetString("OutputDir")); err != nil {
		return nil, err
	}
	if err = checkFootprintFile(c.FootprintFile); err != nil {
		return nil, err
	}
	return c, nil
}

// toStringSliceE converts a configuration value to a slice of strings. A
// single string, for example from an environment variable or a flag
// value like "[a,b]", is split at commas.
func toStringSliceE(v interface{}) ([]string, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "["), "]")
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		v = strings.Split(s, ",")
	}
	o, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, err
	}
	for i := range o {
		o[i] = strings.TrimSpace(o[i])
	}
	return o, nil
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// checkOutputDir makes sure that the output directory exists, and expands
// any environment variables.
func checkOutputDir(d string) (string, error) {
	d = os.ExpandEnv(d)
	if d == "" {
		d = "."
	}
	if IsBlob(d) {
		url, err := url.Parse(d)
		if err != nil {
			return d, err
		}
		_, err = OpenBucket(context.TODO(), url.Scheme+"://"+url.Host)
		if err != nil {
			return d, fmt.Errorf("rastergrid: error when checking OutputDir location: %v", err)
		}
		return d, nil
	}
	fi, err := os.Stat(d)
	if err != nil {
		return d, fmt.Errorf("rastergrid: the OutputDir directory doesn't exist: %v", err)
	}
	if !fi.IsDir() {
		return d, fmt.Errorf("rastergrid: OutputDir %s is not a directory", d)
	}
	return d, nil
}

// checkFootprintFile ensures that the footprint file, if given, has a
// supported extension.
func checkFootprintFile(f string) error {
	if f == "" {
		return nil
	}
	switch filepath.Ext(f) {
	case ".shp", ".geojson":
		return nil
	default:
		return fmt.Errorf("rastergrid: FootprintFile must end in .shp or .geojson but is `%s`", f)
	}
}

// outputName returns the name of the unified file for input path p.
func outputName(p string) string {
	base := filepath.Base(p)
	if u, err := url.Parse(p); err == nil && u.Path != "" {
		base = filepath.Base(u.Path)
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_unified.ncf"
}

// joinOutput joins an output directory, which may be a blob storage
// location, and a file name.
func joinOutput(dir, name string) string {
	if IsBlob(dir) {
		return strings.TrimSuffix(dir, "/") + "/" + name
	}
	return filepath.Join(dir, name)
}
