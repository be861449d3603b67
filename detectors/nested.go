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
	"bytes"
	"context"
	"io"

	"github.com/Velocidex/zip"
	"www.velocidex.com/golang/macroscan/constants"
	"www.velocidex.com/golang/macroscan/document"
	"www.velocidex.com/golang/macroscan/logging"
	"www.velocidex.com/golang/macroscan/utils"
)

// Walks every entry of a zip based package looking for embedded OLE
// files (e.g. word/embeddings/oleObject1.bin) and runs the VBA parser
// over each one.
type NestedContainerDetector struct {
	vba    *VBAParserDetector
	logger *logging.LogContext
}

func NewNestedContainerDetector(vba *VBAParserDetector) *NestedContainerDetector {
	return &NestedContainerDetector{
		vba:    vba,
		logger: getDetectorLogger(),
	}
}

func (self *NestedContainerDetector) Name() string {
	return constants.STRATEGY_NESTED
}

func (self *NestedContainerDetector) Detect(
	ctx context.Context, doc *document.Document) (Result, error) {
	if doc.Kind() != document.ZIP {
		return Negative("not a zip archive"), nil
	}

	fd, err := doc.Open()
	if err != nil {
		return Result{}, newDetectionError(MalformedContainer, self.Name(), err)
	}
	defer fd.Close()

	zfd, err := zip.NewReader(fd, doc.Size())
	if err != nil {
		return Result{}, newDetectionError(MalformedContainer, self.Name(), err)
	}

	ole_entries := 0
	for _, f := range zfd.File {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		if f.FileInfo().IsDir() {
			continue
		}

		data, err := readEmbeddedOLE(f, doc.MaxSize())
		if err != nil {
			self.logger.Debug("%v: skipping %v: %v", self.Name(), f.Name,
				newDetectionError(UnreadableEntry, self.Name(), err))
			continue
		}

		// Not an OLE file.
		if data == nil {
			continue
		}

		ole_entries++
		self.logger.Debug("%v: OLE file detected: %v", self.Name(), f.Name)

		result, err := self.vba.DetectBuffer(f.Name, data, doc.MaxSize())
		if err != nil {
			self.logger.Debug("%v: skipping %v: %v", self.Name(), f.Name, err)
			continue
		}

		if result.Verdict == POSITIVE {
			return Positive("embedded OLE entry %v has VBA modules", f.Name), nil
		}
	}

	return Negative("%v embedded OLE entries, none with VBA modules",
		ole_entries), nil
}

// Returns the full content of the entry if it starts with the OLE
// signature, or nil if it does not.
func readEmbeddedOLE(f *zip.File, max_size int) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	header, err := utils.ReadHeader(rc, document.ProbeLength)
	if err != nil {
		return nil, err
	}

	if !document.IsOLESignature(header) {
		return nil, nil
	}

	return utils.ReadAllWithLimit(
		io.MultiReader(bytes.NewReader(header), rc), max_size)
}
