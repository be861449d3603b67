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
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/olekukonko/tablewriter"
	config_types "www.velocidex.com/golang/macroscan/config/types"
	"www.velocidex.com/golang/macroscan/constants"
	"www.velocidex.com/golang/macroscan/detectors"
	"www.velocidex.com/golang/macroscan/utils"
)

var (
	check_command = app.Command(
		"check", "Verify that the external tools can be found.")
)

// Reports where each external tool resolves to. Returns an error
// naming the tools which are missing.
func doCheck(config_obj *config_types.Config, out io.Writer) error {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Strategy", "Command", "Path", "Status"})
	table.SetAutoWrapText(false)

	missing := []string{}
	for _, item := range []struct {
		strategy string
		tool     *config_types.ToolConfig
	}{
		{constants.STRATEGY_TRIAGE, config_obj.Triage},
		{constants.STRATEGY_STREAM_MARKER, config_obj.StreamDump},
	} {
		command := strings.Join(item.tool.Argv, " ")

		if utils.InString(config_obj.DisabledStrategies, item.strategy) {
			table.Append([]string{item.strategy, command, "", "disabled"})
			continue
		}

		path, err := detectors.ResolveTool(item.tool.Argv)
		if err != nil {
			missing = append(missing, item.strategy)
			table.Append([]string{item.strategy, command, "", "missing"})
			continue
		}
		table.Append([]string{item.strategy, command, path, "ok"})
	}
	table.Render()

	if len(missing) > 0 {
		return fmt.Errorf("tools unavailable for: %v",
			strings.Join(missing, ", "))
	}
	return nil
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case check_command.FullCommand():
			config_obj, err := makeDefaultConfigLoader().LoadAndValidate()
			kingpin.FatalIfError(err, "Unable to load config.")

			kingpin.FatalIfError(doCheck(config_obj, os.Stdout), "check")

		default:
			return false
		}
		return true
	})
}
