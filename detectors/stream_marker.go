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
	"strings"

	config_types "www.velocidex.com/golang/macroscan/config/types"
	"www.velocidex.com/golang/macroscan/constants"
	"www.velocidex.com/golang/macroscan/document"
)

// Runs a stream dumper (oledump.py by default). Each output line
// describes one stream; the second column is a type marker which is
// "M" for streams containing macro code, e.g.
//
//	 8: M    1234 'VBA/Module1'
type StreamMarkerDetector struct {
	argv   []string
	runner CommandRunner
}

func NewStreamMarkerDetector(
	tool *config_types.ToolConfig, runner CommandRunner) *StreamMarkerDetector {
	return &StreamMarkerDetector{
		argv:   tool.Argv,
		runner: runner,
	}
}

func (self *StreamMarkerDetector) Name() string {
	return constants.STRATEGY_STREAM_MARKER
}

func (self *StreamMarkerDetector) Detect(
	ctx context.Context, doc *document.Document) (Result, error) {
	argv := commandLine(self.argv, doc.Path())

	res, err := self.runner.Run(ctx, argv)
	if err != nil {
		return Result{}, withStrategy(self.Name(), err)
	}

	line, ok := findMacroMarker(string(res.Stdout))
	if ok {
		return Positive("%v marks a macro stream: %v", argv[0],
			strings.TrimSpace(line)), nil
	}

	return Negative("%v reports no macro streams", argv[0]), nil
}

// Returns the first line whose second whitespace separated column is
// the macro marker. Lines with fewer than two columns are ignored.
func findMacroMarker(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		if strings.EqualFold(fields[1], "m") {
			return line, true
		}
	}
	return "", false
}
