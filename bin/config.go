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

	"github.com/alecthomas/kingpin/v2"
	"www.velocidex.com/golang/macroscan/config"
	config_types "www.velocidex.com/golang/macroscan/config/types"
)

var (
	config_command      = app.Command("config", "Manipulate the configuration.")
	config_show_command = config_command.Command(
		"show", "Show the effective configuration.")
)

func makeDefaultConfigLoader() *config.Loader {
	return new(config.Loader).
		WithVerbose(*verbose_flag).
		WithFileLoader(*config_path).
		WithDefaultLoader().
		WithConfigMutator("Timeout override", applyTimeoutOverride)
}

func applyTimeoutOverride(config_obj *config_types.Config) error {
	if *timeout_flag == 0 {
		return nil
	}

	for _, tool := range []*config_types.ToolConfig{
		config_obj.Triage, config_obj.StreamDump} {
		if tool != nil {
			tool.TimeoutSeconds = *timeout_flag
		}
	}
	return nil
}

func doShowConfig() error {
	config_obj, err := makeDefaultConfigLoader().LoadAndValidate()
	if err != nil {
		return fmt.Errorf("Unable to load config: %w", err)
	}

	res, err := config.Marshal(config_obj)
	if err != nil {
		return fmt.Errorf("Unable to encode config: %w", err)
	}
	fmt.Printf("%v", string(res))
	return nil
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case config_show_command.FullCommand():
			kingpin.FatalIfError(doShowConfig(), "config show")

		default:
			return false
		}
		return true
	})
}
