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
// Configuration schema for the scanner. The yaml library reads the json
// tags, which define the on disk format.
package types

type ToolConfig struct {
	// The command line to run. The document path is appended as the
	// last argument.
	Argv []string `json:"argv,omitempty"`

	TimeoutSeconds uint64 `json:"timeout_seconds,omitempty"`

	// Exit codes which still count as a normal completion. Defaults
	// to 0 only.
	AcceptedExitCodes []int `json:"accepted_exit_codes,omitempty"`
}

type LoggingConfig struct {
	Level string `json:"level,omitempty"`

	// If set, log lines are also appended to this file.
	OutputFile string `json:"output_file,omitempty"`
}

type Config struct {
	Triage     *ToolConfig `json:"triage,omitempty"`
	StreamDump *ToolConfig `json:"stream_dump,omitempty"`

	// Largest document or embedded entry loaded into memory.
	MaxMemory uint64 `json:"max_memory,omitempty"`

	DisabledStrategies []string `json:"disabled_strategies,omitempty"`

	Logging *LoggingConfig `json:"logging,omitempty"`

	// Set from the command line, never read from the file.
	Verbose bool `json:"-"`
}
