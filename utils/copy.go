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
	"io"

	humanize "github.com/dustin/go-humanize"
)

// Reads the reader into memory. If we reach the limit signal this as
// an error rather than silently truncating.
func ReadAllWithLimit(fd io.Reader, limit int) ([]byte, error) {
	res, err := io.ReadAll(io.LimitReader(fd, int64(limit)+1))
	if err != nil {
		return nil, err
	}

	if len(res) > limit {
		return nil, Wrap(IOError, "Memory buffer exceeded %v",
			humanize.IBytes(uint64(limit)))
	}

	return res, nil
}

// Reads up to length bytes from the start of the reader. Short
// content is not an error - the caller gets whatever is there.
func ReadHeader(fd io.Reader, length int) ([]byte, error) {
	buf := make([]byte, length)
	n, err := io.ReadFull(fd, buf)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return buf[:n], nil
	}
	if err != nil {
		return nil, err
	}
	return buf, nil
}
