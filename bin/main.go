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
	"os"

	"github.com/alecthomas/kingpin/v2"
	"www.velocidex.com/golang/macroscan/constants"
	"www.velocidex.com/golang/macroscan/logging"
)

type CommandHandler func(command string) bool

var (
	app = kingpin.New("macroscan",
		"Detects VBA macros in office documents.")

	config_path = app.Flag("config", "The configuration file.").Short('c').
			Envar("MACROSCAN_CONFIG").String()

	verbose_flag = app.Flag(
		"verbose", "Enable verbose logging to stderr.").Short('v').
		Default("false").Bool()

	timeout_flag = app.Flag(
		"timeout", "Override the timeout of external tools (seconds).").
		Uint64()

	command_handlers []CommandHandler
)

func main() {
	app.HelpFlag.Short('h')
	app.Version(constants.VERSION)
	app.UsageTemplate(kingpin.CompactUsageTemplate)
	args := os.Args[1:]

	command := kingpin.MustParse(app.Parse(args))

	if !*verbose_flag {
		logging.SuppressLogging = true
		logging.Manager.Reset()
	}

	for _, command_handler := range command_handlers {
		if command_handler(command) {
			break
		}
	}
}
