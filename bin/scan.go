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
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	config_types "www.velocidex.com/golang/macroscan/config/types"
	"www.velocidex.com/golang/macroscan/document"
	"www.velocidex.com/golang/macroscan/json"
	"www.velocidex.com/golang/macroscan/logging"
	"www.velocidex.com/golang/macroscan/scanner"
)

var (
	scan_command = app.Command(
		"scan", "Scan a document and print MACROS_PRESENT or NO_MACROS.").
		Default()

	scan_command_file = scan_command.Arg(
		"file", "The document to scan.").Required().String()

	scan_command_report = scan_command.Flag(
		"report", "Print the result of every strategy to stderr.").Bool()

	scan_command_report_json = scan_command.Flag(
		"report_json", "Also write the full scan result as JSON to this file.").
		String()
)

// Writes exactly one verdict line to out. The per strategy table only
// ever goes to report.
func doScan(ctx context.Context, config_obj *config_types.Config,
	filename string, out io.Writer, report io.Writer) (*scanner.Verdict, error) {
	doc, err := document.New(filename, int(config_obj.MaxMemory))
	if err != nil {
		return nil, err
	}

	verdict, err := scanner.NewScanner(config_obj).Scan(ctx, doc)
	if err != nil {
		return nil, err
	}

	if report != nil {
		verdict.WriteTable(report)
		err = scanner.WriteMetrics(report)
		if err != nil {
			return nil, err
		}
	}

	_, err = fmt.Fprintln(out, verdict.String())
	return verdict, err
}

func writeJsonReport(verdict *scanner.Verdict, filename string) error {
	serialized, err := json.MarshalIndent(verdict.ToDict())
	if err != nil {
		return err
	}
	return os.WriteFile(filename, serialized, 0600)
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case scan_command.FullCommand():
			config_obj, err := makeDefaultConfigLoader().LoadAndValidate()
			kingpin.FatalIfError(err, "Unable to load config.")

			ctx, cancel := install_sig_handler()
			defer cancel()

			var report io.Writer
			if *scan_command_report || *verbose_flag {
				report = os.Stderr
			}

			verdict, err := doScan(ctx, config_obj, *scan_command_file,
				os.Stdout, report)
			if err == nil && *scan_command_report_json != "" {
				err = writeJsonReport(verdict, *scan_command_report_json)
			}
			if err != nil {
				logging.GetLogger(config_obj, &logging.ToolComponent).
					Error("scan: %v", err)
			}
			kingpin.FatalIfError(err, "scan")

		default:
			return false
		}
		return true
	})
}
