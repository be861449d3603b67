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
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricStrategyResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macroscan_strategy_results_total",
			Help: "Number of strategy runs by strategy and result.",
		},
		[]string{"strategy", "result"},
	)

	metricScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macroscan_scans_total",
			Help: "Number of completed scans by verdict.",
		},
		[]string{"verdict"},
	)
)

// WriteMetrics renders the current value of every macroscan counter
// in the default registry.
func WriteMetrics(out io.Writer) error {
	return writeMetrics(prometheus.DefaultGatherer, out)
}

func writeMetrics(gatherer prometheus.Gatherer, out io.Writer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Metric", "Labels", "Value"})
	table.SetAutoFormatHeaders(false)

	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), "macroscan_") {
			continue
		}

		for _, metric := range family.GetMetric() {
			labels := []string{}
			for _, label := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%v=%v",
					label.GetName(), label.GetValue()))
			}
			sort.Strings(labels)

			table.Append([]string{
				family.GetName(),
				strings.Join(labels, " "),
				fmt.Sprintf("%v", metric.GetCounter().GetValue()),
			})
		}
	}
	table.Render()

	return nil
}
