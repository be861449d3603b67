/*
   Velociraptor - Dig Deeper
   Copyright (C) 2019-2025 Rapid7 Inc.

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU Affero General Public License as published
   by the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU Affero General Public License for more details.

   You should have received a copy of the GNU Affero General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package utils

import (
	"fmt"
	"runtime"
)

// Converts a recovered panic value into an error. Must be called
// directly from a deferred function:
//
//	defer func() { err = utils.RecoverError(recover(), err) }()
func RecoverError(r interface{}, err error) error {
	if r == nil {
		return err
	}

	buffer := make([]byte, 4096)
	n := runtime.Stack(buffer, false /* all */)

	rerr, ok := r.(error)
	if ok {
		return fmt.Errorf("PANIC: %w\n%s", rerr, buffer[:n])
	}
	return fmt.Errorf("PANIC: %v\n%s", r, buffer[:n])
}
