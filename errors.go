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
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter is returned, wrapped, when the arguments to an
	// operation are malformed. Operations failing with this error have
	// not done any processing.
	ErrInvalidParameter = errors.New("invalid parameter value")

	// ErrReprojection is wrapped by Geodesy and Reprojector
	// implementations when a grid cannot be moved between coordinate
	// reference systems, for example because a CRS cannot be parsed or
	// the reprojected bounds are degenerate.
	ErrReprojection = errors.New("reprojection failed")
)

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("rastergrid: %w: "+format, append([]interface{}{ErrInvalidParameter}, args...)...)
}
