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
package config

import (
	"os"
	"strings"

	"github.com/Velocidex/yaml/v2"
	errors "github.com/go-errors/errors"
	config_types "www.velocidex.com/golang/macroscan/config/types"
	"www.velocidex.com/golang/macroscan/constants"
	"www.velocidex.com/golang/macroscan/utils"
)

var (
	valid_log_levels = []string{"debug", "info", "warn", "warning", "error"}
)

func GetDefaultConfig() *config_types.Config {
	return &config_types.Config{
		Triage: &config_types.ToolConfig{
			Argv:              []string{"olevba", "-t"},
			TimeoutSeconds:    constants.DEFAULT_TOOL_TIMEOUT_SEC,
			AcceptedExitCodes: []int{0},
		},
		StreamDump: &config_types.ToolConfig{
			Argv:              []string{"oledump.py"},
			TimeoutSeconds:    constants.DEFAULT_TOOL_TIMEOUT_SEC,
			AcceptedExitCodes: []int{0},
		},
		MaxMemory: constants.MAX_MEMORY,
		Logging: &config_types.LoggingConfig{
			Level: "debug",
		},
	}
}

// Load the config stored in the YAML file over the defaults.
func LoadConfig(filename string) (*config_types.Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	return ParseConfigFromString(data)
}

func ParseConfigFromString(data []byte) (*config_types.Config, error) {
	result := GetDefaultConfig()
	err := yaml.UnmarshalStrict(data, result)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	// A tool section in the file without some fields still gets the
	// defaults for those fields.
	mergeToolDefaults(result.Triage, GetDefaultConfig().Triage)
	mergeToolDefaults(result.StreamDump, GetDefaultConfig().StreamDump)
	if result.Logging == nil {
		result.Logging = GetDefaultConfig().Logging
	}
	if result.MaxMemory == 0 {
		result.MaxMemory = constants.MAX_MEMORY
	}

	return result, nil
}

func mergeToolDefaults(tool, defaults *config_types.ToolConfig) {
	if tool == nil {
		return
	}
	if len(tool.Argv) == 0 {
		tool.Argv = defaults.Argv
	}
	if tool.TimeoutSeconds == 0 {
		tool.TimeoutSeconds = defaults.TimeoutSeconds
	}
	if len(tool.AcceptedExitCodes) == 0 {
		tool.AcceptedExitCodes = defaults.AcceptedExitCodes
	}
}

func ValidateConfig(config_obj *config_types.Config) error {
	if config_obj.Triage == nil || len(config_obj.Triage.Argv) == 0 {
		return errors.New("triage: argv must not be empty")
	}

	if config_obj.StreamDump == nil || len(config_obj.StreamDump.Argv) == 0 {
		return errors.New("stream_dump: argv must not be empty")
	}

	for _, name := range config_obj.DisabledStrategies {
		if !utils.InString(constants.STRATEGY_ORDER, name) {
			return errors.Errorf(
				"disabled_strategies: unknown strategy %q (valid: %s)",
				name, strings.Join(constants.STRATEGY_ORDER, ", "))
		}
	}

	if config_obj.Logging != nil && config_obj.Logging.Level != "" &&
		!utils.InStringFold(valid_log_levels, config_obj.Logging.Level) {
		return errors.Errorf("logging: unknown level %q",
			config_obj.Logging.Level)
	}

	return nil
}

func Marshal(config_obj *config_types.Config) ([]byte, error) {
	return yaml.Marshal(config_obj)
}
