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
package document

import (
	"fmt"
	"os"
	"sync"

	"www.velocidex.com/golang/macroscan/constants"
	"www.velocidex.com/golang/macroscan/utils"
)

// A read only handle to the file under test. Content is read lazily
// and cached, so strategies that only need the path or a small header
// never load the whole file.
type Document struct {
	path     string
	size     int64
	max_size int

	header_once sync.Once
	header      []byte

	data_once sync.Once
	data      []byte
	data_err  error
}

// New checks that path names a readable regular file. This is the
// only place where errors reach the caller: once a Document exists,
// every strategy failure is soft.
func New(path string, max_size int) (*Document, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !stat.Mode().IsRegular() {
		return nil, fmt.Errorf("%v: %w", path, utils.Wrap(
			utils.IOError, "not a regular file"))
	}

	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fd.Close()

	if max_size <= 0 {
		max_size = constants.MAX_MEMORY
	}

	return &Document{
		path:     path,
		size:     stat.Size(),
		max_size: max_size,
	}, nil
}

func (self *Document) Path() string {
	return self.path
}

func (self *Document) Size() int64 {
	return self.size
}

func (self *Document) MaxSize() int {
	return self.max_size
}

// Open returns a fresh read only handle. The caller must close it.
func (self *Document) Open() (*os.File, error) {
	return os.Open(self.path)
}

// Header returns up to ProbeLength leading bytes. Read errors yield
// an empty header which probes as UNKNOWN.
func (self *Document) Header() []byte {
	self.header_once.Do(func() {
		fd, err := self.Open()
		if err != nil {
			return
		}
		defer fd.Close()

		self.header, _ = utils.ReadHeader(fd, ProbeLength)
	})
	return self.header
}

func (self *Document) Kind() ContainerKind {
	return Probe(self.Header())
}

// Bytes loads the entire content, bounded by the max size.
func (self *Document) Bytes() ([]byte, error) {
	self.data_once.Do(func() {
		fd, err := self.Open()
		if err != nil {
			self.data_err = err
			return
		}
		defer fd.Close()

		self.data, self.data_err = utils.ReadAllWithLimit(fd, self.max_size)
	})
	return self.data, self.data_err
}
