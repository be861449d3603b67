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

// Runs a triage tool (olevba -t by default) and looks for macro
// related keywords anywhere in its output.
type TriageDetector struct {
	argv     []string
	keywords []string
	runner   CommandRunner
}

func NewTriageDetector(
	tool *config_types.ToolConfig, runner CommandRunner) *TriageDetector {
	return &TriageDetector{
		argv:     tool.Argv,
		keywords: constants.TRIAGE_KEYWORDS,
		runner:   runner,
	}
}

func (self *TriageDetector) Name() string {
	return constants.STRATEGY_TRIAGE
}

func (self *TriageDetector) Detect(
	ctx context.Context, doc *document.Document) (Result, error) {
	argv := commandLine(self.argv, doc.Path())

	res, err := self.runner.Run(ctx, argv)
	if err != nil {
		return Result{}, withStrategy(self.Name(), err)
	}

	output := strings.ToLower(string(res.Stdout))
	for _, keyword := range self.keywords {
		if strings.Contains(output, keyword) {
			return Positive("%v output mentions %q", argv[0], keyword), nil
		}
	}

	return Negative("%v output has no macro keywords", argv[0]), nil
}
