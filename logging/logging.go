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
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	config_types "www.velocidex.com/golang/macroscan/config/types"
)

var (
	GenericComponent  = "MacroScan"
	ToolComponent     = "MacroScan tool"
	ScannerComponent  = "MacroScan scanner"
	DetectorComponent = "MacroScan detector"

	// When set, nothing is written to stderr. The memory log and any
	// configured log file still receive every message.
	SuppressLogging = false

	Manager = NewLogManager()
)

type LogManager struct {
	mu sync.Mutex

	logger  *logrus.Logger
	memory  *memoryHook
	prelogs []string
}

func NewLogManager() *LogManager {
	result := &LogManager{
		memory: newMemoryHook(1000),
	}
	result.Reset()
	return result
}

// Reset returns the manager to its initial state: stderr output at
// debug level with only the memory hook attached.
func (self *LogManager) Reset() {
	self.mu.Lock()
	defer self.mu.Unlock()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors:    true,
		FullTimestamp:    true,
		QuoteEmptyFields: true,
	})
	logger.AddHook(self.memory)
	if SuppressLogging {
		logger.SetOutput(io.Discard)
	} else {
		logger.SetOutput(os.Stderr)
	}

	self.logger = logger
}

func (self *LogManager) AddHook(hook logrus.Hook) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.logger.AddHook(hook)
}

func (self *LogManager) getLogger() *logrus.Logger {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.logger
}

// Prelog records messages emitted before logging is configured. They
// are replayed by InitLogging.
func Prelog(format string, v ...interface{}) {
	Manager.mu.Lock()
	defer Manager.mu.Unlock()

	Manager.prelogs = append(Manager.prelogs, fmt.Sprintf(format, v...))
}

func FlushPrelogs(logger *LogContext) {
	Manager.mu.Lock()
	prelogs := Manager.prelogs
	Manager.prelogs = nil
	Manager.mu.Unlock()

	for _, msg := range prelogs {
		logger.Info("%s", msg)
	}
}

func InitLogging(config_obj *config_types.Config) error {
	if config_obj != nil {
		SuppressLogging = !config_obj.Verbose
	}
	Manager.Reset()

	if config_obj != nil && config_obj.Logging != nil {
		err := configureLogger(config_obj.Logging)
		if err != nil {
			return err
		}
	}

	FlushPrelogs(GetLogger(config_obj, &GenericComponent))
	return nil
}

func configureLogger(logging_config *config_types.LoggingConfig) error {
	logger := Manager.getLogger()

	if logging_config.Level != "" {
		level, err := logrus.ParseLevel(strings.ToLower(logging_config.Level))
		if err != nil {
			return err
		}
		logger.SetLevel(level)
	}

	if logging_config.OutputFile != "" {
		fd, err := os.OpenFile(logging_config.OutputFile,
			os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("Unable to open log file: %w", err)
		}
		fd.Close()

		Manager.AddHook(lfshook.NewHook(
			lfshook.PathMap{
				logrus.DebugLevel: logging_config.OutputFile,
				logrus.InfoLevel:  logging_config.OutputFile,
				logrus.WarnLevel:  logging_config.OutputFile,
				logrus.ErrorLevel: logging_config.OutputFile,
			}, &logrus.JSONFormatter{}))
	}

	return nil
}

type LogContext struct {
	entry *logrus.Entry
}

func (self *LogContext) Debug(format string, v ...interface{}) {
	self.entry.Debugf(format, v...)
}

func (self *LogContext) Info(format string, v ...interface{}) {
	self.entry.Infof(format, v...)
}

func (self *LogContext) Warn(format string, v ...interface{}) {
	self.entry.Warnf(format, v...)
}

func (self *LogContext) Error(format string, v ...interface{}) {
	self.entry.Errorf(format, v...)
}

func (self *LogContext) WithField(key string, value interface{}) *LogContext {
	return &LogContext{entry: self.entry.WithField(key, value)}
}

func GetLogger(config_obj *config_types.Config, component *string) *LogContext {
	return &LogContext{
		entry: Manager.getLogger().WithField("component", *component),
	}
}
