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

// Package unifyutil contains the rastergrid command-line interface and
// its configuration handling.
package unifyutil

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/ctessum/gobra"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
	"github.com/spatialmodel/rastergrid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to rastergrid.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "BaseRaster",
			usage: `
              BaseRaster is the path to the NetCDF file holding the raster
              whose grid the other rasters are put onto. It can be a local
              path, an http(s) URL, or a blob storage location starting
              with gs://, s3:// or file://.`,
			shorthand:  "b",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{unifyCmd.Flags()},
		},
		{
			name: "Rasters",
			usage: `
              Rasters is a list of paths to the NetCDF files holding the
              rasters to unify with the base raster. Locations are
              specified in the same way as for BaseRaster.`,
			shorthand:  "r",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{unifyCmd.Flags()},
		},
		{
			name: "Variable",
			usage: `
              Variable is the name of the NetCDF variable holding the raster
              data in each input file. Output files use the same name.`,
			defaultVal: "data",
			flagsets:   []*pflag.FlagSet{unifyCmd.Flags()},
		},
		{
			name: "Resampling",
			usage: `
              Resampling is the method used to estimate pixel values on the
              new grids. It can be nearest, bilinear, cubic, average, mode,
              min, or max.`,
			defaultVal: "nearest",
			flagsets:   []*pflag.FlagSet{unifyCmd.Flags()},
		},
		{
			name: "SameExtent",
			usage: `
              SameExtent specifies whether all outputs should have the extent
              of the base raster. If false, each raster keeps its own extent,
              aligned to the base raster's grid.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{unifyCmd.Flags()},
		},
		{
			name: "Workers",
			usage: `
              Workers is the number of rasters to process at the same time.
              Zero means the number of processors.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{unifyCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory where the unified rasters are
              written, one file named <input>_unified.ncf per input. It can
              be a blob storage location.`,
			shorthand:  "o",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{unifyCmd.Flags()},
		},
		{
			name: "FootprintFile",
			usage: `
              FootprintFile, if set, is the path to a file ending in .shp or
              .geojson where the outline of each unified raster is written.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{unifyCmd.Flags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the logging verbosity: debug, info, warning, or
              error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("RASTERGRID")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(unifyCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the logging level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("rastergrid: problem reading configuration file: %v", err)
		}
	}
	lvl, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("rastergrid: LogLevel: %v", err)
	}
	logrus.SetLevel(lvl)
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "rastergrid",
	Short: "Put rasters onto a common grid.",
	Long: `rastergrid reprojects, resamples and aligns rasters so that they share
the coordinate reference system, resolution and pixel lattice of a base raster.
Use the subcommands specified below to access the functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'RASTERGRID_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of rastergrid.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("rastergrid v%s\n", rastergrid.Version)
	},
	DisableAutoGenTag: true,
}

// unifyCmd unifies the configured rasters.
var unifyCmd = &cobra.Command{
	Use:   "unify",
	Short: "Put rasters onto the grid of a base raster.",
	Long: `unify reprojects and resamples each of the configured rasters onto the
grid of the base raster and writes the results as NetCDF files. With
--SameExtent=false each raster keeps its own extent, snapped to the pixel
lattice of the base raster.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := LoadConfig(Cfg)
		if err != nil {
			return err
		}
		return Run(context.Background(), logrus.StandardLogger(), c)
	},
	DisableAutoGenTag: true,
}

// configHandler loads the configuration file named by the "config" query
// parameter and responds with the resulting option values as JSON.
func configHandler(w http.ResponseWriter, r *http.Request) {
	configFile := r.URL.Query().Get("config")
	if err := Root.PersistentFlags().Set("config", configFile); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := setConfig(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	config := make(map[string]interface{})
	for _, option := range options {
		config[option.name] = Cfg.Get(option.name)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(config); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// guiPage wraps the gobra command form. Editing the config field reloads
// the other fields from that file.
var guiPage = template.Must(template.New("gui").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>rastergrid</title>
	<style>
		body { max-width: 700px; margin: 2% auto; padding: 10px; font-family: sans-serif; }
		div[id^="gobra-"] blockquote { border-left: 3px solid #bbb; margin: .3em; padding-left: 5px; font-size: 75%; }
		div[id^="gobra-"] input { font-family: monospace; width: 50%; }
		.invalid { border: 1px solid #c35; }
		.from-file { border: 1px solid #3c5; }
	</style>
</head>
<body>
	<h1>rastergrid</h1>
	<p>Set the base raster and the rasters to unify, or load them from a
	configuration file. Fields outlined in green come from that file.</p>
	{{.}}
<script>
const fields = [...document.querySelectorAll('[data-name]')];
const configInput = fields.find(f => f.dataset.name == "config").children[0];
configInput.addEventListener("input", () => {
	fetch("/setConfig?config=" + encodeURIComponent(configInput.value))
		.then(res => {
			configInput.classList.toggle("invalid", !res.ok);
			return res.ok ? res.json() : {};
		})
		.then(values => fields.forEach(f => {
			if (!(f.dataset.name in values) || f.dataset.name == "config") return;
			const input = f.children[0];
			input.value = JSON.stringify(values[f.dataset.name]).replace(/^"|"$/g, "");
			input.classList.add("from-file");
		}))
		.catch(err => console.log("loading configuration:", err));
});
</script>
</body>
</html>`))

// StartWebServer starts the configuration GUI at localhost:7272 and opens
// it in a browser.
func StartWebServer() {
	if err := setConfig(); err != nil {
		logrus.Warn(err)
	}
	http.HandleFunc("/setConfig", configHandler)

	for _, cmd := range []*cobra.Command{Root, versionCmd, unifyCmd} {
		cmd.SilenceUsage = true // Usage messages clutter the GUI.
	}

	const address = "localhost:7272"
	server := gobra.Server{Root: Root, ServerAddress: address, AllowCORS: false, HTML: guiPage}
	logrus.WithField("address", address).Info("rastergrid: starting configuration GUI")
	open.Run("http://" + address)
	fmt.Println("If not opened automatically, please visit http://" + address)
	server.Start()
}
