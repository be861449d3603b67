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
package scanner

import (
	"io"

	"github.com/Velocidex/ordereddict"
	"github.com/olekukonko/tablewriter"
)

// ToDict summarizes the scan for machine consumption.
func (self *Verdict) ToDict() *ordereddict.Dict {
	return ordereddict.NewDict().
		Set("ScanId", self.ScanId).
		Set("Verdict", self.String()).
		Set("Outcomes", self.Rows())
}

// Rows describes each strategy outcome for diagnostics.
func (self *Verdict) Rows() []*ordereddict.Dict {
	result := make([]*ordereddict.Dict, 0, len(self.Outcomes))
	for _, outcome := range self.Outcomes {
		result = append(result, ordereddict.NewDict().
			Set("Strategy", outcome.Strategy).
			Set("Result", outcome.Result.Verdict.String()).
			Set("Reason", outcome.Result.Reason))
	}
	return result
}

// Renders the outcomes as a table. This never goes to stdout which
// carries only the verdict.
func (self *Verdict) WriteTable(out io.Writer) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Strategy", "Result", "Duration", "Reason"})
	table.SetAutoWrapText(false)

	// The footer carries the verdict token which must print verbatim.
	table.SetAutoFormatHeaders(false)

	for _, outcome := range self.Outcomes {
		table.Append([]string{
			outcome.Strategy,
			outcome.Result.Verdict.String(),
			outcome.Duration.String(),
			outcome.Result.Reason,
		})
	}
	table.SetFooter([]string{"", "", "Verdict", self.String()})
	table.Render()
}
