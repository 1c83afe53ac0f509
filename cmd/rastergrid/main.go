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

// Command rastergrid puts rasters onto the grid of a base raster.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spatialmodel/rastergrid/unifyutil"
)

func main() {
	var commands int
	for _, arg := range os.Args { // Count the number of supplied commands.
		if !strings.HasPrefix(arg, "-") {
			commands++
		}
	}
	if commands == 1 { // If only one command was supplied, start the GUI server.
		unifyutil.StartWebServer()
	}

	// If more than one command was supplied, run in CLI mode.
	if err := unifyutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
