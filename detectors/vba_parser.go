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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Velocidex/zip"
	"www.velocidex.com/golang/macroscan/constants"
	"www.velocidex.com/golang/macroscan/document"
	"www.velocidex.com/golang/macroscan/utils"
	"www.velocidex.com/golang/oleparse"
)

// Parses a raw OLE buffer into its VBA modules. parseVBAProject in
// production.
type ParseFunc func(data []byte) ([]*oleparse.VBAModule, error)

var (
	errUnsupportedFormat = errors.New("not an OLE or OpenXML document")
)

// A VBAParser wraps one document (on disk or in memory) and answers
// whether it holds VBA modules. It understands plain OLE files and
// OpenXML packages, where the VBA project lives in a binary part such
// as xl/vbaProject.bin. Close must always be called.
type VBAParser struct {
	label    string
	fd       *os.File
	size     int64
	data     []byte
	max_size int
	parse    ParseFunc
}

func NewVBAParserFromFile(
	path string, max_size int, parse ParseFunc) (*VBAParser, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	stat, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, err
	}

	return &VBAParser{
		label:    path,
		fd:       fd,
		size:     stat.Size(),
		max_size: max_size,
		parse:    getParseFunc(parse),
	}, nil
}

func NewVBAParserFromBuffer(
	label string, data []byte, max_size int, parse ParseFunc) *VBAParser {
	return &VBAParser{
		label:    label,
		data:     data,
		size:     int64(len(data)),
		max_size: max_size,
		parse:    getParseFunc(parse),
	}
}

func getParseFunc(parse ParseFunc) ParseFunc {
	if parse == nil {
		return parseVBAProject
	}
	return parse
}

// An OLE file without a PROJECT stream has no VBA project at all,
// which oleparse reports as an error. That is a clean document, not
// a parser failure.
func parseVBAProject(data []byte) ([]*oleparse.VBAModule, error) {
	ole_file, err := oleparse.NewOLEFile(data)
	if err != nil {
		return nil, err
	}

	if ole_file.FindStreamByName(constants.OLE_PROJECT_STREAM) == nil {
		return nil, nil
	}

	return oleparse.ExtractMacros(ole_file)
}

func (self *VBAParser) readerAt() io.ReaderAt {
	if self.fd != nil {
		return self.fd
	}
	return bytes.NewReader(self.data)
}

func (self *VBAParser) DetectMacros() (has_macros bool, err error) {
	if self.fd == nil && self.data == nil {
		return false, errors.New("parser is closed")
	}

	defer func() {
		r := recover()
		if r != nil {
			has_macros = false
			err = utils.RecoverError(r, nil)
		}
	}()

	reader := self.readerAt()
	header, err := utils.ReadHeader(
		io.NewSectionReader(reader, 0, self.size), document.ProbeLength)
	if err != nil {
		return false, err
	}

	switch document.Probe(header) {
	case document.OLE:
		data := self.data
		if data == nil {
			data, err = utils.ReadAllWithLimit(
				io.NewSectionReader(reader, 0, self.size), self.max_size)
			if err != nil {
				return false, err
			}
		}
		return self.detectOLE(data)

	case document.ZIP:
		return self.detectOpenXML(reader)
	}

	return false, errUnsupportedFormat
}

func (self *VBAParser) detectOLE(data []byte) (bool, error) {
	modules, err := self.parse(data)
	if err != nil {
		return false, err
	}
	return len(modules) > 0, nil
}

// Checks every VBA project part of the package. A part that fails to
// parse only matters if no other part has macros.
func (self *VBAParser) detectOpenXML(reader io.ReaderAt) (bool, error) {
	zfd, err := zip.NewReader(reader, self.size)
	if err != nil {
		return false, err
	}

	var first_err error
	for _, f := range zfd.File {
		if !oleparse.BINFILE_NAME.MatchString(f.Name) {
			continue
		}

		data, err := readZipEntry(f, self.max_size)
		if err == nil {
			var has_macros bool
			has_macros, err = self.detectOLE(data)
			if has_macros {
				return true, nil
			}
		}

		if err != nil && first_err == nil {
			first_err = fmt.Errorf("%v: %w", f.Name, err)
		}
	}

	return false, first_err
}

func (self *VBAParser) Close() error {
	self.data = nil
	if self.fd != nil {
		err := self.fd.Close()
		self.fd = nil
		return err
	}
	return nil
}

func readZipEntry(f *zip.File, max_size int) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return utils.ReadAllWithLimit(rc, max_size)
}

// Asks the VBA parser directly. This is the most precise strategy
// since the parser understands both OLE and OpenXML layouts.
type VBAParserDetector struct {
	parse ParseFunc
}

func NewVBAParserDetector(parse ParseFunc) *VBAParserDetector {
	return &VBAParserDetector{parse: getParseFunc(parse)}
}

func (self *VBAParserDetector) Name() string {
	return constants.STRATEGY_VBA_PARSER
}

func (self *VBAParserDetector) Detect(
	ctx context.Context, doc *document.Document) (Result, error) {
	data, err := doc.Bytes()
	if err != nil {
		return Result{}, newDetectionError(ParserFailure, self.Name(), err)
	}

	return self.DetectBuffer(doc.Path(), data, doc.MaxSize())
}

// DetectBuffer runs the parser over an in memory document, such as
// an entry extracted from an archive.
func (self *VBAParserDetector) DetectBuffer(
	label string, data []byte, max_size int) (Result, error) {
	parser := NewVBAParserFromBuffer(label, data, max_size, self.parse)
	defer parser.Close()

	return self.detect(parser)
}

func (self *VBAParserDetector) detect(parser *VBAParser) (Result, error) {
	has_macros, err := parser.DetectMacros()
	if err != nil {
		return Result{}, newDetectionError(ParserFailure, self.Name(),
			fmt.Errorf("%v: %w", parser.label, err))
	}

	if has_macros {
		return Positive("VBA modules found in %v", parser.label), nil
	}
	return Negative("no VBA modules in %v", parser.label), nil
}
