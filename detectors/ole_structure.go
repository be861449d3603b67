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
package detectors

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/richardlehane/mscfb"
	"www.velocidex.com/golang/macroscan/constants"
	"www.velocidex.com/golang/macroscan/document"
	"www.velocidex.com/golang/macroscan/utils"
)

// Detects Excel 97-2003 workbooks carrying a VBA project by looking
// for both the Workbook stream and the _VBA_PROJECT_CUR storage at
// the top of the OLE directory.
type OLEStructureDetector struct {
	required []string
}

func NewOLEStructureDetector() *OLEStructureDetector {
	return &OLEStructureDetector{
		required: []string{
			constants.OLE_WORKBOOK_STREAM,
			constants.OLE_VBA_PROJECT,
		},
	}
}

func (self *OLEStructureDetector) Name() string {
	return constants.STRATEGY_OLE_STRUCTURE
}

func (self *OLEStructureDetector) Detect(
	ctx context.Context, doc *document.Document) (result Result, err error) {
	if doc.Kind() != document.OLE {
		return Negative("not an OLE compound file"), nil
	}

	fd, err := doc.Open()
	if err != nil {
		return Result{}, newDetectionError(
			MalformedContainer, self.Name(), err)
	}
	defer fd.Close()

	// A corrupt directory must not take the scan down.
	defer func() {
		r := recover()
		if r != nil {
			err = newDetectionError(ParserFailure, self.Name(),
				utils.RecoverError(r, nil))
		}
	}()

	found, err := topLevelEntries(fd)
	if err != nil {
		return Result{}, newDetectionError(
			MalformedContainer, self.Name(), err)
	}

	missing := []string{}
	for _, name := range self.required {
		if !found[strings.ToLower(name)] {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return Negative("no %v entry", strings.Join(missing, " or ")), nil
	}

	return Positive("both %v present", strings.Join(self.required, " and ")), nil
}

// Lists the names of all entries directly under the root storage,
// lower cased because OLE names compare case insensitively.
func topLevelEntries(reader io.ReaderAt) (map[string]bool, error) {
	ole, err := mscfb.New(reader)
	if err != nil {
		return nil, err
	}

	result := make(map[string]bool)
	for {
		entry, err := ole.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading OLE directory: %w", err)
		}

		if len(entry.Path) == 0 {
			result[strings.ToLower(entry.Name)] = true
		}
	}

	return result, nil
}
