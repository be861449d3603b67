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
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Keeps the most recent log lines in memory so tests can inspect
// what was logged.
type memoryHook struct {
	mu        sync.Mutex
	size      int
	lines     []string
	formatter logrus.Formatter
}

func newMemoryHook(size int) *memoryHook {
	return &memoryHook{
		size:      size,
		formatter: &logrus.TextFormatter{DisableColors: true, DisableTimestamp: true},
	}
}

func (self *memoryHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (self *memoryHook) Fire(entry *logrus.Entry) error {
	serialized, err := self.formatter.Format(entry)
	if err != nil {
		return err
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	self.lines = append(self.lines, strings.TrimRight(string(serialized), "\n"))
	if len(self.lines) > self.size {
		self.lines = self.lines[len(self.lines)-self.size:]
	}
	return nil
}

func GetMemoryLogs() []string {
	Manager.memory.mu.Lock()
	defer Manager.memory.mu.Unlock()

	return append([]string{}, Manager.memory.lines...)
}

func ClearMemoryLogs() {
	Manager.memory.mu.Lock()
	defer Manager.memory.mu.Unlock()

	Manager.memory.lines = nil
}
