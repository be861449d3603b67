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
package document

import (
	"bytes"

	"www.velocidex.com/golang/macroscan/constants"
	"www.velocidex.com/golang/oleparse"
)

type ContainerKind int

const (
	UNKNOWN ContainerKind = iota
	OLE
	ZIP
)

func (self ContainerKind) String() string {
	switch self {
	case OLE:
		return "OLE"
	case ZIP:
		return "ZIP"
	default:
		return "UNKNOWN"
	}
}

// The longest signature we need to see to classify a file.
var ProbeLength = len(oleparse.OLE_SIGNATURE)

// Probe classifies content by its leading magic bytes. It never fails
// - anything unrecognized (including empty or short content) is
// UNKNOWN.
func Probe(header []byte) ContainerKind {
	switch {
	case bytes.HasPrefix(header, []byte(oleparse.OLE_SIGNATURE)):
		return OLE

	case bytes.HasPrefix(header, []byte(constants.ZIP_SIGNATURE)):
		return ZIP
	}

	return UNKNOWN
}

// IsOLESignature reports if the buffer starts with the OLE compound
// file magic.
func IsOLESignature(header []byte) bool {
	return Probe(header) == OLE
}
