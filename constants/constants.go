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
package constants

var (
	VERSION = "0.1.0"
)

const (
	// Maximum size of a document or embedded entry we are prepared
	// to load into memory.
	MAX_MEMORY = 100 * 1024 * 1024

	// Default bound on a single external tool invocation.
	DEFAULT_TOOL_TIMEOUT_SEC = 30

	// Verdict lines written to stdout.
	MACROS_PRESENT = "MACROS_PRESENT"
	NO_MACROS      = "NO_MACROS"

	// Strategy names, in the default evaluation order.
	STRATEGY_TRIAGE        = "triage"
	STRATEGY_STREAM_MARKER = "stream_marker"
	STRATEGY_OLE_STRUCTURE = "ole_structure"
	STRATEGY_VBA_PARSER    = "vba_parser"
	STRATEGY_NESTED        = "nested_container"

	// Names of top level OLE entries marking an Excel 97 workbook
	// carrying a VBA project.
	OLE_WORKBOOK_STREAM = "Workbook"
	OLE_VBA_PROJECT     = "_VBA_PROJECT_CUR"

	// Every VBA project has this stream.
	OLE_PROJECT_STREAM = "PROJECT"

	// Local file header of a zip archive.
	ZIP_SIGNATURE = "PK\x03\x04"
)

var (
	STRATEGY_ORDER = []string{
		STRATEGY_TRIAGE,
		STRATEGY_STREAM_MARKER,
		STRATEGY_OLE_STRUCTURE,
		STRATEGY_VBA_PARSER,
		STRATEGY_NESTED,
	}

	// Keywords in triage output which indicate macro content.
	TRIAGE_KEYWORDS = []string{"macros", "autoexec", "vba"}
)
